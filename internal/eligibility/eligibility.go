// Package eligibility decides whether a donor may give blood on a given day.
//
// Evaluate is pure: no I/O, no clock reads. Callers pass the evaluation date,
// normally requestcontext.Now(ctx), so every check in one request sees the same day.
package eligibility

import (
	"fmt"
	"time"

	id "donorhub/pkg/domain"
)

const (
	MinAge                  = 18
	MaxAge                  = 65
	MinWeightKg             = 50.0
	MinDaysBetweenDonations = 56
)

// Check names a single eligibility rule.
type Check string

const (
	CheckAge        Check = "age"
	CheckWeight     Check = "weight"
	CheckInterval   Check = "donation_interval"
	CheckManualFlag Check = "manual_flag"
)

// ReasonEligible is reported when every rule passes.
const ReasonEligible = "eligible for donation"

// Input carries the donor attributes the rules read.
type Input struct {
	BirthDate      time.Time
	WeightKg       float64
	LastDonation   *time.Time
	MarkedEligible bool
}

// Result is the outcome of one evaluation. Reason explains the first failing
// rule; Reasons lists every failing rule in evaluation order.
type Result struct {
	Eligible              bool
	Reason                string
	Reasons               []string
	FailedChecks          []Check
	Age                   int
	DaysSinceLastDonation *int
	DaysUntilEligible     int
	EvaluatedAt           time.Time
}

type rule struct {
	check Check
	eval  func(in Input, on time.Time, res *Result) (bool, string)
}

// Rule order fixes which reason is reported first.
//  1. Age window
//  2. Minimum weight
//  3. Interval since last donation
//  4. Manual flag, which can only force ineligibility
var rules = []rule{
	{CheckAge, checkAge},
	{CheckWeight, checkWeight},
	{CheckInterval, checkInterval},
	{CheckManualFlag, checkManualFlag},
}

// Evaluate applies every rule to in as of the calendar day of on.
func Evaluate(in Input, on time.Time) Result {
	on = id.TruncateToDate(on)
	res := Result{
		Eligible:    true,
		Age:         id.AgeOn(in.BirthDate, on),
		EvaluatedAt: on,
	}

	for _, r := range rules {
		ok, reason := r.eval(in, on, &res)
		if ok {
			continue
		}
		res.Eligible = false
		res.FailedChecks = append(res.FailedChecks, r.check)
		res.Reasons = append(res.Reasons, reason)
	}

	if res.Eligible {
		res.Reason = ReasonEligible
	} else {
		res.Reason = res.Reasons[0]
	}
	return res
}

// IsEligible is shorthand for Evaluate(in, on).Eligible.
func IsEligible(in Input, on time.Time) bool {
	return Evaluate(in, on).Eligible
}

func checkAge(_ Input, _ time.Time, res *Result) (bool, string) {
	if res.Age < MinAge || res.Age > MaxAge {
		return false, fmt.Sprintf("age must be between %d and %d years (currently %d)", MinAge, MaxAge, res.Age)
	}
	return true, ""
}

func checkWeight(in Input, _ time.Time, _ *Result) (bool, string) {
	if in.WeightKg < MinWeightKg {
		return false, fmt.Sprintf("weight must be at least %g kg (currently %g kg)", MinWeightKg, in.WeightKg)
	}
	return true, ""
}

func checkInterval(in Input, on time.Time, res *Result) (bool, string) {
	if in.LastDonation == nil {
		return true, ""
	}
	days := id.DaysBetween(*in.LastDonation, on)
	res.DaysSinceLastDonation = &days
	if days < MinDaysBetweenDonations {
		res.DaysUntilEligible = MinDaysBetweenDonations - days
		return false, fmt.Sprintf("must wait %d more days since the last donation", res.DaysUntilEligible)
	}
	return true, ""
}

func checkManualFlag(in Input, _ time.Time, _ *Result) (bool, string) {
	if !in.MarkedEligible {
		return false, "donor is marked as ineligible"
	}
	return true, ""
}

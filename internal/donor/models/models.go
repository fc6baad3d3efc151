package models

import (
	"math"
	"strings"
	"time"

	"donorhub/internal/eligibility"
	id "donorhub/pkg/domain"
)

// Donor is a registered blood donor. IsEligible is the manual flag set by
// administrators; computed eligibility is never stored.
type Donor struct {
	ID               id.DonorID
	FirstName        string
	LastName         string
	Email            string
	Phone            string
	BirthDate        time.Time
	BloodType        id.BloodType
	WeightKg         float64
	LastDonationDate *time.Time
	IsEligible       bool
	MedicalNotes     string
	CreatedBy        id.UserID
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (d *Donor) FullName() string {
	return strings.TrimSpace(d.FirstName + " " + d.LastName)
}

// EligibilityInput maps the donor onto the rule inputs.
func (d *Donor) EligibilityInput() eligibility.Input {
	return eligibility.Input{
		BirthDate:      d.BirthDate,
		WeightKg:       d.WeightKg,
		LastDonation:   d.LastDonationDate,
		MarkedEligible: d.IsEligible,
	}
}

// Evaluate computes eligibility as of on.
func (d *Donor) Evaluate(on time.Time) eligibility.Result {
	return eligibility.Evaluate(d.EligibilityInput(), on)
}

// Clone returns a deep copy.
func (d *Donor) Clone() *Donor {
	out := *d
	if d.LastDonationDate != nil {
		last := *d.LastDonationDate
		out.LastDonationDate = &last
	}
	return &out
}

// View pairs a donor with its eligibility at request time.
type View struct {
	Donor       *Donor
	Eligibility eligibility.Result
}

// ListQuery selects donors. Zero Limit means no limit.
type ListQuery struct {
	Owner     *id.UserID
	BloodType *id.BloodType
	Limit     int
	Offset    int
}

// ListFilter is the caller-facing list request. Eligible filters on computed
// eligibility, not on the stored flag.
type ListFilter struct {
	BloodType *id.BloodType
	Eligible  *bool
	Page      int
	PerPage   int
}

const (
	DefaultPage    = 1
	DefaultPerPage = 10
	MaxPerPage     = 100
	// MaxPage keeps (Page-1)*PerPage and Offset+PerPage within int.
	MaxPage = math.MaxInt / MaxPerPage
)

// Normalize applies pagination defaults and caps.
func (f *ListFilter) Normalize() {
	if f.Page < 1 {
		f.Page = DefaultPage
	}
	if f.Page > MaxPage {
		f.Page = MaxPage
	}
	if f.PerPage < 1 {
		f.PerPage = DefaultPerPage
	}
	if f.PerPage > MaxPerPage {
		f.PerPage = MaxPerPage
	}
}

type Page struct {
	Donors  []View
	Page    int
	PerPage int
	Total   int
}

// Pages returns the number of pages needed for Total.
func (p Page) Pages() int {
	if p.Total == 0 || p.PerPage == 0 {
		return 0
	}
	return (p.Total + p.PerPage - 1) / p.PerPage
}

// EligibilityReport is the detailed eligibility check for one donor.
type EligibilityReport struct {
	Donor       *Donor
	Eligibility eligibility.Result
}

// AgeBuckets lists the statistics age ranges in display order.
var AgeBuckets = []string{"16-25", "26-35", "36-45", "46-55", "56-65", "66+"}

// AgeBucket returns the statistics range containing age. Ages outside the
// lower ranges fall into the last bucket.
func AgeBucket(age int) string {
	switch {
	case age >= 16 && age <= 25:
		return "16-25"
	case age >= 26 && age <= 35:
		return "26-35"
	case age >= 36 && age <= 45:
		return "36-45"
	case age >= 46 && age <= 55:
		return "46-55"
	case age >= 56 && age <= 65:
		return "56-65"
	default:
		return "66+"
	}
}

type Statistics struct {
	TotalDonors           int
	EligibleDonors        int
	IneligibleDonors      int
	EligibilityRate       float64
	BloodTypeDistribution map[id.BloodType]int
	AgeDistribution       map[string]int
}

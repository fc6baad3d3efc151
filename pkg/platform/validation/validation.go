// Package validation holds field rules shared by request types. Rules append
// messages to a Validator instead of failing fast, so a single response can
// report every problem with the input.
package validation

import (
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/asaskevich/govalidator"

	id "donorhub/pkg/domain"
	dErrors "donorhub/pkg/domain-errors"
)

const (
	MinPasswordLength = 8
	MinNameLength     = 2
	MaxNameLength     = 100
	MaxEmailLength    = 254
	MinPhoneDigits    = 10
	MinWeightKg       = 45.0
	MaxWeightKg       = 200.0
	MinDonorAge       = 16
	MaxDonorAge       = 70
	MaxNotesLength    = 2000
)

// Validator accumulates field messages in the order rules were applied.
type Validator struct {
	messages []string
}

func New() *Validator {
	return &Validator{}
}

// Add records a failure message.
func (v *Validator) Add(format string, args ...any) {
	v.messages = append(v.messages, fmt.Sprintf(format, args...))
}

// Check records msg when ok is false and reports ok.
func (v *Validator) Check(ok bool, msg string) bool {
	if !ok {
		v.messages = append(v.messages, msg)
	}
	return ok
}

func (v *Validator) Valid() bool {
	return len(v.messages) == 0
}

func (v *Validator) Messages() []string {
	return append([]string(nil), v.messages...)
}

// Err returns a CodeValidation error listing every message, or nil.
func (v *Validator) Err() error {
	if v.Valid() {
		return nil
	}
	return dErrors.Validation(v.messages...)
}

// Required checks that the trimmed value is non-empty.
func (v *Validator) Required(field, value string) bool {
	return v.Check(strings.TrimSpace(value) != "", field+" is required")
}

// Email checks a local@domain.tld address.
func (v *Validator) Email(field, value string) bool {
	if len(value) > MaxEmailLength {
		v.Add("%s must be at most %d characters", field, MaxEmailLength)
		return false
	}
	return v.Check(IsEmail(value), field+" must be a valid email address")
}

// Password checks length and character classes, reporting each missing class.
func (v *Validator) Password(field, value string) bool {
	ok := true
	for _, msg := range PasswordProblems(value) {
		v.Add("%s %s", field, msg)
		ok = false
	}
	return ok
}

// Name checks a person name: letters and spaces, at least two characters.
func (v *Validator) Name(field, value string) bool {
	value = strings.TrimSpace(value)
	n := utf8.RuneCountInString(value)
	if n < MinNameLength || n > MaxNameLength {
		v.Add("%s must be between %d and %d characters", field, MinNameLength, MaxNameLength)
		return false
	}
	return v.Check(IsPersonName(value), field+" may contain only letters and spaces")
}

// Phone checks an optional phone number. Empty values pass.
func (v *Validator) Phone(field, value string) bool {
	if strings.TrimSpace(value) == "" {
		return true
	}
	return v.Check(len(PhoneDigits(value)) >= MinPhoneDigits,
		fmt.Sprintf("%s must contain at least %d digits", field, MinPhoneDigits))
}

// Date parses a YYYY-MM-DD value. ok is false when the value is malformed.
func (v *Validator) Date(field, value string) (time.Time, bool) {
	t, err := ParseDate(value)
	if err != nil {
		v.Add("%s must be a valid date in YYYY-MM-DD format", field)
		return time.Time{}, false
	}
	return t, true
}

// Weight checks the inclusive kilogram bounds.
func (v *Validator) Weight(field string, kg float64) bool {
	return v.Check(kg >= MinWeightKg && kg <= MaxWeightKg,
		fmt.Sprintf("%s must be between %g and %g kg", field, MinWeightKg, MaxWeightKg))
}

// BloodType checks the value against the supported blood types.
func (v *Validator) BloodType(field, value string) (id.BloodType, bool) {
	bt, err := id.ParseBloodType(value)
	if err != nil {
		if strings.TrimSpace(value) == "" {
			v.Add("%s is required", field)
		} else {
			v.Add("%s must be one of A+, A-, B+, B-, AB+, AB-, O+, O-", field)
		}
		return "", false
	}
	return bt, true
}

// DonorAge checks that the donor's age on the given day is within the
// registration bounds.
func (v *Validator) DonorAge(field string, birthDate, on time.Time) bool {
	if birthDate.After(on) {
		v.Add("%s cannot be in the future", field)
		return false
	}
	age := id.AgeOn(birthDate, on)
	return v.Check(age >= MinDonorAge && age <= MaxDonorAge,
		fmt.Sprintf("donor age must be between %d and %d years", MinDonorAge, MaxDonorAge))
}

// LastDonation checks that a last-donation date is not in the future and not
// before the donor was born.
func (v *Validator) LastDonation(field string, last, birthDate, on time.Time) bool {
	ok := v.Check(!id.TruncateToDate(last).After(id.TruncateToDate(on)), field+" cannot be in the future")
	if !birthDate.IsZero() && last.Before(birthDate) {
		v.Add("%s cannot be before birth_date", field)
		ok = false
	}
	return ok
}

// MaxLength checks a rune count bound.
func (v *Validator) MaxLength(field, value string, max int) bool {
	return v.Check(utf8.RuneCountInString(value) <= max,
		fmt.Sprintf("%s must be at most %d characters", field, max))
}

// -----------------------------------------------------------------------------
// Predicates
// -----------------------------------------------------------------------------

// IsEmail accepts addresses whose domain part contains a dot.
func IsEmail(s string) bool {
	if !govalidator.IsEmail(s) {
		return false
	}
	at := strings.LastIndexByte(s, '@')
	domain := s[at+1:]
	dot := strings.LastIndexByte(domain, '.')
	return dot > 0 && dot < len(domain)-1
}

// PasswordProblems lists the strength rules a password fails.
func PasswordProblems(pw string) []string {
	var problems []string
	if utf8.RuneCountInString(pw) < MinPasswordLength {
		problems = append(problems, fmt.Sprintf("must be at least %d characters", MinPasswordLength))
	}
	var upper, lower, digit bool
	for _, r := range pw {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !upper {
		problems = append(problems, "must contain at least one uppercase letter")
	}
	if !lower {
		problems = append(problems, "must contain at least one lowercase letter")
	}
	if !digit {
		problems = append(problems, "must contain at least one digit")
	}
	return problems
}

// IsPersonName reports whether s holds only letters and spaces.
func IsPersonName(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) && r != ' ' {
			return false
		}
	}
	return s != ""
}

// PhoneDigits strips everything but ASCII digits.
func PhoneDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ParseDate parses a YYYY-MM-DD calendar date in UTC.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(id.DateLayout, strings.TrimSpace(s), time.UTC)
}

// NormalizeEmail lowercases and trims an address.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

package models

import (
	"strconv"
	"strings"
	"time"

	dErrors "donorhub/pkg/domain-errors"
	"donorhub/pkg/platform/validation"
)

// CreateDonorRequest is the body of POST /api/donors.
type CreateDonorRequest struct {
	FirstName        string   `json:"first_name"`
	LastName         string   `json:"last_name"`
	Email            string   `json:"email"`
	Phone            string   `json:"phone,omitempty"`
	BirthDate        string   `json:"birth_date"`
	BloodType        string   `json:"blood_type"`
	Weight           *float64 `json:"weight"`
	LastDonationDate *string  `json:"last_donation_date,omitempty"`
	IsEligible       *bool    `json:"is_eligible,omitempty"`
	MedicalNotes     string   `json:"medical_notes,omitempty"`
}

func (r *CreateDonorRequest) Normalize() {
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	r.Email = validation.NormalizeEmail(r.Email)
	r.Phone = strings.TrimSpace(r.Phone)
	r.BirthDate = strings.TrimSpace(r.BirthDate)
	r.BloodType = strings.ToUpper(strings.TrimSpace(r.BloodType))
	r.MedicalNotes = strings.TrimSpace(r.MedicalNotes)
	if r.LastDonationDate != nil {
		last := strings.TrimSpace(*r.LastDonationDate)
		if last == "" {
			r.LastDonationDate = nil
		} else {
			r.LastDonationDate = &last
		}
	}
}

// Build validates the request as of on and returns the donor it describes.
// Every problem is reported in one validation error. ID, owner and timestamps
// are left for the caller.
func (r *CreateDonorRequest) Build(on time.Time) (*Donor, error) {
	if r == nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	v := validation.New()
	d := &Donor{
		FirstName:    r.FirstName,
		LastName:     r.LastName,
		Email:        r.Email,
		Phone:        r.Phone,
		IsEligible:   true,
		MedicalNotes: r.MedicalNotes,
	}

	if v.Required("first_name", r.FirstName) {
		v.Name("first_name", r.FirstName)
	}
	if v.Required("last_name", r.LastName) {
		v.Name("last_name", r.LastName)
	}
	if v.Required("email", r.Email) {
		v.Email("email", r.Email)
	}
	v.Phone("phone", r.Phone)

	birthOK := false
	if v.Required("birth_date", r.BirthDate) {
		if birth, ok := v.Date("birth_date", r.BirthDate); ok {
			d.BirthDate = birth
			birthOK = v.DonorAge("birth_date", birth, on)
		}
	}

	if bt, ok := v.BloodType("blood_type", r.BloodType); ok {
		d.BloodType = bt
	}

	if r.Weight == nil {
		v.Add("weight is required")
	} else if v.Weight("weight", *r.Weight) {
		d.WeightKg = *r.Weight
	}

	if r.LastDonationDate != nil {
		if last, ok := v.Date("last_donation_date", *r.LastDonationDate); ok {
			birth := time.Time{}
			if birthOK {
				birth = d.BirthDate
			}
			if v.LastDonation("last_donation_date", last, birth, on) {
				d.LastDonationDate = &last
			}
		}
	}

	if r.IsEligible != nil {
		d.IsEligible = *r.IsEligible
	}
	v.MaxLength("medical_notes", r.MedicalNotes, validation.MaxNotesLength)

	if err := v.Err(); err != nil {
		return nil, err
	}
	return d, nil
}

// UpdateDonorRequest is the body of PUT /api/donors/{id}. Omitted fields are
// left unchanged; an empty last_donation_date clears it.
type UpdateDonorRequest struct {
	FirstName        *string  `json:"first_name,omitempty"`
	LastName         *string  `json:"last_name,omitempty"`
	Email            *string  `json:"email,omitempty"`
	Phone            *string  `json:"phone,omitempty"`
	BirthDate        *string  `json:"birth_date,omitempty"`
	BloodType        *string  `json:"blood_type,omitempty"`
	Weight           *float64 `json:"weight,omitempty"`
	LastDonationDate *string  `json:"last_donation_date,omitempty"`
	IsEligible       *bool    `json:"is_eligible,omitempty"`
	MedicalNotes     *string  `json:"medical_notes,omitempty"`
}

func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}

func (r *UpdateDonorRequest) Normalize() {
	r.FirstName = trimPtr(r.FirstName)
	r.LastName = trimPtr(r.LastName)
	if r.Email != nil {
		e := validation.NormalizeEmail(*r.Email)
		r.Email = &e
	}
	r.Phone = trimPtr(r.Phone)
	r.BirthDate = trimPtr(r.BirthDate)
	if r.BloodType != nil {
		bt := strings.ToUpper(strings.TrimSpace(*r.BloodType))
		r.BloodType = &bt
	}
	r.LastDonationDate = trimPtr(r.LastDonationDate)
	r.MedicalNotes = trimPtr(r.MedicalNotes)
}

func (r *UpdateDonorRequest) IsEmpty() bool {
	return r.FirstName == nil && r.LastName == nil && r.Email == nil && r.Phone == nil &&
		r.BirthDate == nil && r.BloodType == nil && r.Weight == nil &&
		r.LastDonationDate == nil && r.IsEligible == nil && r.MedicalNotes == nil
}

// Apply validates the request against current as of on and returns the
// updated copy. Cross-field rules run on the merged values, so changing only
// the birth date still checks the stored last donation date.
func (r *UpdateDonorRequest) Apply(current *Donor, on time.Time) (*Donor, error) {
	if r == nil || r.IsEmpty() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "no fields to update")
	}
	v := validation.New()
	d := current.Clone()

	if r.FirstName != nil && v.Name("first_name", *r.FirstName) {
		d.FirstName = *r.FirstName
	}
	if r.LastName != nil && v.Name("last_name", *r.LastName) {
		d.LastName = *r.LastName
	}
	if r.Email != nil && v.Required("email", *r.Email) && v.Email("email", *r.Email) {
		d.Email = *r.Email
	}
	if r.Phone != nil && v.Phone("phone", *r.Phone) {
		d.Phone = *r.Phone
	}

	birthOK := true
	if r.BirthDate != nil {
		birth, ok := v.Date("birth_date", *r.BirthDate)
		birthOK = ok && v.DonorAge("birth_date", birth, on)
		if birthOK {
			d.BirthDate = birth
		}
	}

	if r.BloodType != nil {
		if bt, ok := v.BloodType("blood_type", *r.BloodType); ok {
			d.BloodType = bt
		}
	}
	if r.Weight != nil && v.Weight("weight", *r.Weight) {
		d.WeightKg = *r.Weight
	}

	switch {
	case r.LastDonationDate != nil && *r.LastDonationDate == "":
		d.LastDonationDate = nil
	case r.LastDonationDate != nil:
		if last, ok := v.Date("last_donation_date", *r.LastDonationDate); ok {
			d.LastDonationDate = &last
		}
	}
	if d.LastDonationDate != nil && birthOK && (r.LastDonationDate != nil || r.BirthDate != nil) {
		v.LastDonation("last_donation_date", *d.LastDonationDate, d.BirthDate, on)
	}

	if r.IsEligible != nil {
		d.IsEligible = *r.IsEligible
	}
	if r.MedicalNotes != nil && v.MaxLength("medical_notes", *r.MedicalNotes, validation.MaxNotesLength) {
		d.MedicalNotes = *r.MedicalNotes
	}

	if err := v.Err(); err != nil {
		return nil, err
	}
	return d, nil
}

// ChangesEligibilityFlag reports whether applying the request would change
// the stored manual flag.
func (r *UpdateDonorRequest) ChangesEligibilityFlag(current *Donor) bool {
	return r.IsEligible != nil && *r.IsEligible != current.IsEligible
}

// ParseListFilter builds a ListFilter from raw query values. Empty values are
// treated as absent.
func ParseListFilter(bloodType, eligible, page, perPage string) (ListFilter, error) {
	var f ListFilter
	v := validation.New()

	// "+" arrives as a space when the query string is not percent-encoded.
	bloodType = strings.ReplaceAll(bloodType, " ", "+")
	if bloodType != "" {
		if bt, ok := v.BloodType("blood_type", bloodType); ok {
			f.BloodType = &bt
		}
	}
	if eligible != "" {
		switch strings.ToLower(eligible) {
		case "true":
			t := true
			f.Eligible = &t
		case "false":
			b := false
			f.Eligible = &b
		default:
			v.Add("is_eligible must be true or false")
		}
	}
	f.Page = parsePositive(v, "page", page)
	f.PerPage = parsePositive(v, "per_page", perPage)

	if err := v.Err(); err != nil {
		return ListFilter{}, err
	}
	f.Normalize()
	return f, nil
}

func parsePositive(v *validation.Validator, field, raw string) int {
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		v.Add("%s must be a positive integer", field)
		return 0
	}
	return n
}

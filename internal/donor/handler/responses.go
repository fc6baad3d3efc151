package handler

import (
	"time"

	"donorhub/internal/donor/models"
	id "donorhub/pkg/domain"
)

// EligibilityStatus is the computed eligibility embedded in donor responses.
type EligibilityStatus struct {
	Eligible bool     `json:"eligible"`
	Reason   string   `json:"reason"`
	Reasons  []string `json:"reasons,omitempty"`
}

// DonorResponse is the wire shape of a donor. is_eligible is the stored
// manual flag; eligibility_status is computed at request time.
type DonorResponse struct {
	ID                string            `json:"id"`
	FirstName         string            `json:"first_name"`
	LastName          string            `json:"last_name"`
	Email             string            `json:"email"`
	Phone             string            `json:"phone,omitempty"`
	BirthDate         string            `json:"birth_date"`
	Age               int               `json:"age"`
	BloodType         id.BloodType      `json:"blood_type"`
	Weight            float64           `json:"weight"`
	LastDonationDate  *string           `json:"last_donation_date"`
	IsEligible        bool              `json:"is_eligible"`
	MedicalNotes      string            `json:"medical_notes,omitempty"`
	EligibilityStatus EligibilityStatus `json:"eligibility_status"`
	CreatedBy         string            `json:"created_by"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(id.DateLayout)
	return &s
}

func toDonorResponse(v *models.View) DonorResponse {
	d := v.Donor
	return DonorResponse{
		ID:               d.ID.String(),
		FirstName:        d.FirstName,
		LastName:         d.LastName,
		Email:            d.Email,
		Phone:            d.Phone,
		BirthDate:        d.BirthDate.Format(id.DateLayout),
		Age:              v.Eligibility.Age,
		BloodType:        d.BloodType,
		Weight:           d.WeightKg,
		LastDonationDate: formatDate(d.LastDonationDate),
		IsEligible:       d.IsEligible,
		MedicalNotes:     d.MedicalNotes,
		EligibilityStatus: EligibilityStatus{
			Eligible: v.Eligibility.Eligible,
			Reason:   v.Eligibility.Reason,
			Reasons:  v.Eligibility.Reasons,
		},
		CreatedBy: d.CreatedBy.String(),
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

type Pagination struct {
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
	Pages   int `json:"pages"`
	Total   int `json:"total"`
}

type DonorListResponse struct {
	Donors     []DonorResponse `json:"donors"`
	Pagination Pagination      `json:"pagination"`
}

func toDonorListResponse(p *models.Page) DonorListResponse {
	out := DonorListResponse{
		Donors: make([]DonorResponse, 0, len(p.Donors)),
		Pagination: Pagination{
			Page:    p.Page,
			PerPage: p.PerPage,
			Pages:   p.Pages(),
			Total:   p.Total,
		},
	}
	for i := range p.Donors {
		out.Donors = append(out.Donors, toDonorResponse(&p.Donors[i]))
	}
	return out
}

type EligibilityDetails struct {
	Age                   int          `json:"age"`
	Weight                float64      `json:"weight"`
	BloodType             id.BloodType `json:"blood_type"`
	LastDonationDate      *string      `json:"last_donation_date"`
	DaysSinceLastDonation *int         `json:"days_since_last_donation"`
	DaysUntilEligible     int          `json:"days_until_eligible"`
	IsMarkedEligible      bool         `json:"is_marked_eligible"`
}

type EligibilityResponse struct {
	DonorID      string             `json:"donor_id"`
	DonorName    string             `json:"donor_name"`
	Eligible     bool               `json:"eligible"`
	Reason       string             `json:"reason"`
	FailedChecks []string           `json:"failed_checks"`
	Details      EligibilityDetails `json:"details"`
	EvaluatedAt  string             `json:"evaluated_at"`
}

func toEligibilityResponse(r *models.EligibilityReport) EligibilityResponse {
	d, res := r.Donor, r.Eligibility
	failed := make([]string, 0, len(res.FailedChecks))
	for _, c := range res.FailedChecks {
		failed = append(failed, string(c))
	}
	return EligibilityResponse{
		DonorID:      d.ID.String(),
		DonorName:    d.FullName(),
		Eligible:     res.Eligible,
		Reason:       res.Reason,
		FailedChecks: failed,
		Details: EligibilityDetails{
			Age:                   res.Age,
			Weight:                d.WeightKg,
			BloodType:             d.BloodType,
			LastDonationDate:      formatDate(d.LastDonationDate),
			DaysSinceLastDonation: res.DaysSinceLastDonation,
			DaysUntilEligible:     res.DaysUntilEligible,
			IsMarkedEligible:      d.IsEligible,
		},
		EvaluatedAt: res.EvaluatedAt.Format(id.DateLayout),
	}
}

type StatisticsResponse struct {
	TotalDonors           int            `json:"total_donors"`
	EligibleDonors        int            `json:"eligible_donors"`
	IneligibleDonors      int            `json:"ineligible_donors"`
	EligibilityRate       float64        `json:"eligibility_rate"`
	BloodTypeDistribution map[string]int `json:"blood_type_distribution"`
	AgeDistribution       map[string]int `json:"age_distribution"`
}

func toStatisticsResponse(s *models.Statistics) StatisticsResponse {
	byType := make(map[string]int, len(s.BloodTypeDistribution))
	for bt, n := range s.BloodTypeDistribution {
		byType[bt.String()] = n
	}
	return StatisticsResponse{
		TotalDonors:           s.TotalDonors,
		EligibleDonors:        s.EligibleDonors,
		IneligibleDonors:      s.IneligibleDonors,
		EligibilityRate:       s.EligibilityRate,
		BloodTypeDistribution: byType,
		AgeDistribution:       s.AgeDistribution,
	}
}

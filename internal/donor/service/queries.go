package service

import (
	"context"
	"math"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"donorhub/internal/access"
	"donorhub/internal/donor/models"
	id "donorhub/pkg/domain"
	dErrors "donorhub/pkg/domain-errors"
	"donorhub/pkg/platform/audit"
	"donorhub/pkg/requestcontext"
)

func (s *Service) view(d *models.Donor, on time.Time) *models.View {
	return &models.View{Donor: d, Eligibility: d.Evaluate(on)}
}

// List returns one page of donors visible to actor. The eligibility filter
// uses computed eligibility, so when it is set every candidate is evaluated
// and paginated in memory; otherwise the store paginates.
func (s *Service) List(ctx context.Context, actor access.Actor, filter models.ListFilter) (_ *models.Page, err error) {
	ctx, span := s.tracer.Start(ctx, "donor.List")
	defer func() { endSpan(span, err) }()

	if err := access.Authorize(actor, access.OpList, actor.ID, resourceName); err != nil {
		return nil, err
	}
	filter.Normalize()
	now := requestcontext.Now(ctx)
	start := time.Now()

	q := models.ListQuery{Owner: access.ListScope(actor), BloodType: filter.BloodType}
	page := &models.Page{Page: filter.Page, PerPage: filter.PerPage, Donors: []models.View{}}
	// Normalize bounds Page, so the offset cannot overflow.
	offset := (filter.Page - 1) * filter.PerPage

	if filter.Eligible == nil {
		q.Limit, q.Offset = filter.PerPage, offset
		donors, total, err := s.donors.List(ctx, q)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list donors")
		}
		page.Total = total
		for _, d := range donors {
			page.Donors = append(page.Donors, *s.view(d, now))
		}
		s.metrics.ObserveListLatency("store", time.Since(start))
		span.SetAttributes(attribute.Int("donor.total", total))
		return page, nil
	}

	donors, _, err := s.donors.List(ctx, q)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list donors")
	}
	matched := make([]models.View, 0, len(donors))
	for _, d := range donors {
		v := s.view(d, now)
		if v.Eligibility.Eligible == *filter.Eligible {
			matched = append(matched, *v)
		}
	}
	page.Total = len(matched)
	if offset < len(matched) {
		page.Donors = matched[offset:min(offset+filter.PerPage, len(matched))]
	}
	s.metrics.ObserveListLatency("computed", time.Since(start))
	span.SetAttributes(attribute.Int("donor.total", page.Total))
	return page, nil
}

// CheckEligibility evaluates a donor as of the request time.
func (s *Service) CheckEligibility(ctx context.Context, actor access.Actor, donorID id.DonorID) (_ *models.EligibilityReport, err error) {
	ctx, span := s.tracer.Start(ctx, "donor.CheckEligibility")
	defer func() { endSpan(span, err) }()
	span.SetAttributes(attribute.String("donor.id", donorID.String()))

	d, err := s.load(ctx, actor, donorID, access.OpRead)
	if err != nil {
		return nil, err
	}
	result := d.Evaluate(requestcontext.Now(ctx))

	firstFailed := ""
	if len(result.FailedChecks) > 0 {
		firstFailed = string(result.FailedChecks[0])
	}
	s.metrics.ObserveEligibility(result.Eligible, firstFailed)
	span.SetAttributes(attribute.Bool("donor.eligible", result.Eligible))

	s.emitAudit(ctx, audit.Event{
		Action:  audit.EventEligibilityChecked,
		ActorID: actor.ID,
		Subject: d.ID.String(),
		Reason:  result.Reason,
	})
	return &models.EligibilityReport{Donor: d, Eligibility: result}, nil
}

// Statistics summarizes every donor. Administrators only.
func (s *Service) Statistics(ctx context.Context, actor access.Actor) (_ *models.Statistics, err error) {
	ctx, span := s.tracer.Start(ctx, "donor.Statistics")
	defer func() { endSpan(span, err) }()

	if err := access.Authorize(actor, access.OpStatistics, id.UserID{}, resourceName); err != nil {
		return nil, err
	}

	// One read, so every figure describes the same snapshot.
	donors, total, err := s.donors.List(ctx, models.ListQuery{})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list donors")
	}

	now := requestcontext.Now(ctx)
	stats := &models.Statistics{
		TotalDonors:           total,
		BloodTypeDistribution: make(map[id.BloodType]int, len(id.BloodTypes)),
		AgeDistribution:       make(map[string]int, len(models.AgeBuckets)),
	}
	for _, bt := range id.BloodTypes {
		stats.BloodTypeDistribution[bt] = 0
	}
	for _, bucket := range models.AgeBuckets {
		stats.AgeDistribution[bucket] = 0
	}
	for _, d := range donors {
		result := d.Evaluate(now)
		if result.Eligible {
			stats.EligibleDonors++
		}
		stats.AgeDistribution[models.AgeBucket(result.Age)]++
		stats.BloodTypeDistribution[d.BloodType]++
	}
	stats.IneligibleDonors = total - stats.EligibleDonors
	if total > 0 {
		rate := float64(stats.EligibleDonors) / float64(total) * 100
		stats.EligibilityRate = math.Round(rate*100) / 100
	}

	s.emitAudit(ctx, audit.Event{Action: audit.EventStatisticsRequested, ActorID: actor.ID})
	return stats, nil
}

package service

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"

	"donorhub/internal/access"
	"donorhub/internal/donor/models"
	id "donorhub/pkg/domain"
	dErrors "donorhub/pkg/domain-errors"
	"donorhub/pkg/platform/audit"
	"donorhub/pkg/platform/sentinel"
	"donorhub/pkg/requestcontext"
)

// Create registers a donor owned by actor. Only administrators may register
// a donor with the manual eligibility flag off.
func (s *Service) Create(ctx context.Context, actor access.Actor, req *models.CreateDonorRequest) (_ *models.View, err error) {
	ctx, span := s.tracer.Start(ctx, "donor.Create")
	defer func() { endSpan(span, err) }()

	if err := access.Authorize(actor, access.OpCreate, actor.ID, resourceName); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	d, err := req.Build(now)
	if err != nil {
		return nil, err
	}
	if !d.IsEligible && !actor.IsAdministrator() {
		return nil, errEligibilityFlagForbidden()
	}

	taken, err := s.emailTaken(ctx, d.Email, id.DonorID{})
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, dErrors.New(dErrors.CodeConflict, "donor email is already registered")
	}

	d.ID = id.NewDonorID()
	d.CreatedBy = actor.ID
	d.CreatedAt = now
	d.UpdatedAt = now
	span.SetAttributes(attribute.String("donor.id", d.ID.String()))

	if err := s.donors.Create(ctx, d); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "donor email is already registered")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create donor")
	}

	s.metrics.IncrementOperation("create")
	s.emitAudit(ctx, audit.Event{Action: audit.EventDonorCreated, ActorID: actor.ID, Subject: d.ID.String(), Email: d.Email})
	s.logger.InfoContext(ctx, "donor created",
		"donor_id", d.ID.String(),
		"created_by", actor.ID.String(),
		"request_id", requestcontext.RequestID(ctx),
	)
	return s.view(d, now), nil
}

// Get returns one donor with its eligibility as of the request time.
func (s *Service) Get(ctx context.Context, actor access.Actor, donorID id.DonorID) (*models.View, error) {
	d, err := s.load(ctx, actor, donorID, access.OpRead)
	if err != nil {
		return nil, err
	}
	return s.view(d, requestcontext.Now(ctx)), nil
}

// Update applies a partial update. Regular users may resubmit the current
// manual flag but not change it.
func (s *Service) Update(ctx context.Context, actor access.Actor, donorID id.DonorID, req *models.UpdateDonorRequest) (_ *models.View, err error) {
	ctx, span := s.tracer.Start(ctx, "donor.Update")
	defer func() { endSpan(span, err) }()
	span.SetAttributes(attribute.String("donor.id", donorID.String()))

	current, err := s.load(ctx, actor, donorID, access.OpUpdate)
	if err != nil {
		return nil, err
	}
	if req.ChangesEligibilityFlag(current) && !actor.IsAdministrator() {
		return nil, errEligibilityFlagForbidden()
	}

	now := requestcontext.Now(ctx)
	updated, err := req.Apply(current, now)
	if err != nil {
		return nil, err
	}
	if updated.Email != current.Email {
		taken, err := s.emailTaken(ctx, updated.Email, updated.ID)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, dErrors.New(dErrors.CodeConflict, "donor email is already registered")
		}
	}
	updated.UpdatedAt = now

	if err := s.donors.Update(ctx, updated); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrConflict):
			return nil, dErrors.New(dErrors.CodeConflict, "donor email is already registered")
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.New(dErrors.CodeNotFound, "donor not found")
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update donor")
		}
	}

	s.metrics.IncrementOperation("update")
	s.emitAudit(ctx, audit.Event{Action: audit.EventDonorUpdated, ActorID: actor.ID, Subject: updated.ID.String(), Email: updated.Email})
	return s.view(updated, now), nil
}

// Delete removes a donor record.
func (s *Service) Delete(ctx context.Context, actor access.Actor, donorID id.DonorID) (err error) {
	ctx, span := s.tracer.Start(ctx, "donor.Delete")
	defer func() { endSpan(span, err) }()
	span.SetAttributes(attribute.String("donor.id", donorID.String()))

	d, err := s.load(ctx, actor, donorID, access.OpDelete)
	if err != nil {
		return err
	}
	if err := s.donors.Delete(ctx, d.ID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "donor not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete donor")
	}

	s.metrics.IncrementOperation("delete")
	s.emitAudit(ctx, audit.Event{Action: audit.EventDonorDeleted, ActorID: actor.ID, Subject: d.ID.String(), Email: d.Email})
	s.logger.InfoContext(ctx, "donor deleted",
		"donor_id", d.ID.String(),
		"request_id", requestcontext.RequestID(ctx),
	)
	return nil
}

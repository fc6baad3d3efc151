package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"donorhub/internal/access"
	"donorhub/internal/donor/metrics"
	"donorhub/internal/donor/models"
	id "donorhub/pkg/domain"
	dErrors "donorhub/pkg/domain-errors"
	"donorhub/pkg/platform/audit"
	"donorhub/pkg/platform/sentinel"
	"donorhub/pkg/requestcontext"
)

type DonorStore interface {
	Create(ctx context.Context, donor *models.Donor) error
	FindByID(ctx context.Context, donorID id.DonorID) (*models.Donor, error)
	FindByEmail(ctx context.Context, email string) (*models.Donor, error)
	List(ctx context.Context, q models.ListQuery) ([]*models.Donor, int, error)
	Update(ctx context.Context, donor *models.Donor) error
	Delete(ctx context.Context, donorID id.DonorID) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

const resourceName = "donor"

// Service manages donor records and evaluates eligibility on demand. Every
// operation runs the access predicate before touching the record.
type Service struct {
	donors         DonorStore
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
	tracer         trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tracer
	}
}

func New(donors DonorStore, opts ...Option) (*Service, error) {
	if donors == nil {
		return nil, errors.New("donor service requires a donor store")
	}
	s := &Service{
		donors: donors,
		logger: slog.Default(),
		tracer: otel.Tracer("donorhub/internal/donor/service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// load fetches a donor and authorizes op against its owner. Records the actor
// may not see are reported as not found.
func (s *Service) load(ctx context.Context, actor access.Actor, donorID id.DonorID, op access.Operation) (*models.Donor, error) {
	d, err := s.donors.FindByID(ctx, donorID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "donor not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load donor")
	}
	if err := access.Authorize(actor, op, d.CreatedBy, resourceName); err != nil {
		return nil, err
	}
	return d, nil
}

// emailTaken reports whether email belongs to a donor other than self.
func (s *Service) emailTaken(ctx context.Context, email string, self id.DonorID) (bool, error) {
	existing, err := s.donors.FindByEmail(ctx, email)
	if errors.Is(err, sentinel.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check email")
	}
	return existing.ID != self, nil
}

func errEligibilityFlagForbidden() error {
	return dErrors.New(dErrors.CodeForbidden, "administrator role required to change is_eligible")
}

func (s *Service) emitAudit(ctx context.Context, event audit.Event) {
	if s.auditPublisher == nil {
		return
	}
	event.RequestID = requestcontext.RequestID(ctx)
	event.ClientIP = requestcontext.ClientIP(ctx)
	event = event.Normalize(requestcontext.Now(ctx))
	if err := s.auditPublisher.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event",
			"action", event.Action,
			"request_id", event.RequestID,
			"error", err,
		)
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil && dErrors.CodeOf(err) == dErrors.CodeInternal {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

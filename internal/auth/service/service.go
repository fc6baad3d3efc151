package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"donorhub/internal/auth/models"
	jwttoken "donorhub/internal/jwt_token"
	"donorhub/internal/platform/metrics"
	id "donorhub/pkg/domain"
	dErrors "donorhub/pkg/domain-errors"
	"donorhub/pkg/platform/audit"
	"donorhub/pkg/platform/sentinel"
	"donorhub/pkg/requestcontext"
)

type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, userID id.UserID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, userID id.UserID) error
	ExistsWithRole(ctx context.Context, role id.Role) (bool, error)
}

// DonorOwnership reports how many donor records an account owns.
type DonorOwnership interface {
	CountByOwner(ctx context.Context, owner id.UserID) (int, error)
}

type TokenRevocationList interface {
	RevokeToken(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

type TokenGenerator interface {
	GenerateAccessToken(userID id.UserID, role id.Role, email string) (*jwttoken.IssuedToken, error)
}

type PasswordHasher interface {
	Hash(secret string) (string, error)
	Verify(secret, hash string) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service owns accounts: registration, login, logout, and the administrator
// user-management surface.
type Service struct {
	users          UserStore
	donors         DonorOwnership
	trl            TokenRevocationList
	tokens         TokenGenerator
	hasher         PasswordHasher
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

func New(users UserStore, donors DonorOwnership, trl TokenRevocationList, tokens TokenGenerator, hasher PasswordHasher, opts ...Option) (*Service, error) {
	if users == nil || donors == nil || trl == nil || tokens == nil || hasher == nil {
		return nil, errors.New("auth service requires user store, donor ownership, revocation list, token generator and hasher")
	}
	s := &Service{
		users:  users,
		donors: donors,
		trl:    trl,
		tokens: tokens,
		hasher: hasher,
		logger: slog.Default(),
		tracer: otel.Tracer("donorhub/internal/auth/service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// IsTokenRevoked lets the auth middleware consult the revocation list.
func (s *Service) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	return s.trl.IsRevoked(ctx, jti)
}

// findUser loads an account, mapping a missing record to a not-found error.
func (s *Service) findUser(ctx context.Context, userID id.UserID) (*models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}
	return user, nil
}

// emailTaken reports whether email belongs to an account other than self.
func (s *Service) emailTaken(ctx context.Context, email string, self id.UserID) (bool, error) {
	existing, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, sentinel.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check email")
	}
	return existing.ID != self, nil
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
		s.metrics.IncrementAuditPublishFailure("auth")
	}
}

// endSpan records err on span before ending it. Client errors are not span
// failures.
func endSpan(span trace.Span, err error) {
	if err != nil && dErrors.CodeOf(err) == dErrors.CodeInternal {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

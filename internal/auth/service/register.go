package service

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"

	"donorhub/internal/access"
	"donorhub/internal/auth/models"
	id "donorhub/pkg/domain"
	dErrors "donorhub/pkg/domain-errors"
	"donorhub/pkg/platform/audit"
	"donorhub/pkg/platform/sentinel"
	"donorhub/pkg/requestcontext"
)

// Register creates an account from a validated request. Self-registration
// yields a regular account; creating an administrator requires actor to be
// an administrator. actor is nil for anonymous callers.
func (s *Service) Register(ctx context.Context, actor *access.Actor, req *models.RegisterRequest) (_ *models.UserSummary, err error) {
	ctx, span := s.tracer.Start(ctx, "auth.Register")
	defer func() { endSpan(span, err) }()

	role := req.ParsedRole()
	span.SetAttributes(attribute.String("user.role", role.String()))

	if role.IsAdministrator() {
		if actor == nil {
			return nil, dErrors.New(dErrors.CodeForbidden, "administrator role required to register an administrator")
		}
		if err := access.RequireAdministrator(*actor); err != nil {
			return nil, err
		}
	}

	taken, err := s.emailTaken(ctx, req.Email, id.UserID{})
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, dErrors.New(dErrors.CodeConflict, "email is already registered")
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		if dErrors.CodeOf(err) != dErrors.CodeInternal {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}

	now := requestcontext.Now(ctx)
	user := &models.User{
		ID:           id.NewUserID(),
		Email:        req.Email,
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "email is already registered")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create user")
	}

	s.metrics.IncrementUsersCreated()
	event := audit.Event{Action: audit.EventUserRegistered, Subject: user.ID.String(), Email: user.Email}
	if actor != nil {
		event.ActorID = actor.ID
	}
	s.emitAudit(ctx, event)
	s.logger.InfoContext(ctx, "user registered",
		"user_id", user.ID.String(),
		"role", user.Role,
		"request_id", requestcontext.RequestID(ctx),
	)

	summary := user.Summary()
	return &summary, nil
}

package service

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"donorhub/internal/access"
	"donorhub/internal/auth/models"
	id "donorhub/pkg/domain"
	dErrors "donorhub/pkg/domain-errors"
	"donorhub/pkg/platform/audit"
	"donorhub/pkg/platform/sentinel"
	"donorhub/pkg/requestcontext"
)

// ListUsers returns every account. Administrators only.
func (s *Service) ListUsers(ctx context.Context, actor access.Actor) (*models.UserList, error) {
	if err := access.RequireAdministrator(actor); err != nil {
		return nil, err
	}
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list users")
	}
	out := &models.UserList{Users: make([]models.UserSummary, 0, len(users)), Total: len(users)}
	for _, u := range users {
		out.Users = append(out.Users, u.Summary())
	}
	return out, nil
}

// UpdateUser changes an account's email, role or active flag. Administrators
// cannot demote or deactivate themselves.
func (s *Service) UpdateUser(ctx context.Context, actor access.Actor, userID id.UserID, req *models.UpdateUserRequest) (_ *models.UserSummary, err error) {
	ctx, span := s.tracer.Start(ctx, "auth.UpdateUser")
	defer func() { endSpan(span, err) }()
	span.SetAttributes(attribute.String("user.id", userID.String()))

	if err := access.RequireAdministrator(actor); err != nil {
		return nil, err
	}

	user, err := s.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.Email != nil && *req.Email != user.Email {
		taken, err := s.emailTaken(ctx, *req.Email, user.ID)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, dErrors.New(dErrors.CodeConflict, "email is already registered")
		}
		user.Email = *req.Email
	}
	if req.Role != nil {
		role, err := id.ParseRole(*req.Role)
		if err != nil {
			return nil, err
		}
		if user.ID == actor.ID && role != user.Role {
			return nil, dErrors.New(dErrors.CodeBadRequest, "administrators cannot change their own role")
		}
		user.Role = role
	}
	if req.IsActive != nil {
		if user.ID == actor.ID && !*req.IsActive {
			return nil, dErrors.New(dErrors.CodeBadRequest, "administrators cannot deactivate their own account")
		}
		user.IsActive = *req.IsActive
	}
	user.UpdatedAt = requestcontext.Now(ctx)

	if err := s.users.Update(ctx, user); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrConflict):
			return nil, dErrors.New(dErrors.CodeConflict, "email is already registered")
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update user")
	}

	s.emitAudit(ctx, audit.Event{
		Action:  audit.EventUserUpdated,
		ActorID: actor.ID,
		Subject: user.ID.String(),
		Email:   user.Email,
	})

	summary := user.Summary()
	return &summary, nil
}

// DeleteUser removes an account that owns no donor records. Administrators
// cannot delete themselves.
func (s *Service) DeleteUser(ctx context.Context, actor access.Actor, userID id.UserID) (err error) {
	ctx, span := s.tracer.Start(ctx, "auth.DeleteUser")
	defer func() { endSpan(span, err) }()
	span.SetAttributes(attribute.String("user.id", userID.String()))

	if err := access.RequireAdministrator(actor); err != nil {
		return err
	}
	if userID == actor.ID {
		return dErrors.New(dErrors.CodeBadRequest, "administrators cannot delete their own account")
	}

	// Capture user before deletion to enrich audit events
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return err
	}

	owned, err := s.donors.CountByOwner(ctx, userID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to count donor records")
	}
	if owned > 0 {
		return dErrors.New(dErrors.CodeConflict, fmt.Sprintf("user still owns %d donor records", owned))
	}

	if err := s.users.Delete(ctx, userID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		if errors.Is(err, sentinel.ErrConflict) {
			return dErrors.New(dErrors.CodeConflict, "user still owns donor records")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete user")
	}

	s.emitAudit(ctx, audit.Event{
		Action:  audit.EventUserDeleted,
		ActorID: actor.ID,
		Subject: userID.String(),
		Email:   user.Email,
	})
	return nil
}

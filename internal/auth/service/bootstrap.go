package service

import (
	"context"
	"errors"

	"donorhub/internal/auth/models"
	id "donorhub/pkg/domain"
	dErrors "donorhub/pkg/domain-errors"
	"donorhub/pkg/platform/audit"
	"donorhub/pkg/platform/sentinel"
	"donorhub/pkg/platform/validation"
	"donorhub/pkg/requestcontext"
)

// EnsureDefaultAdmin creates the first administrator when none exists. It is
// safe to call on every start and reports whether an account was created.
func (s *Service) EnsureDefaultAdmin(ctx context.Context, email, password string) (bool, error) {
	exists, err := s.users.ExistsWithRole(ctx, id.RoleAdministrator)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check for administrators")
	}
	if exists {
		return false, nil
	}

	email = validation.NormalizeEmail(email)
	v := validation.New()
	if v.Required("admin email", email) {
		v.Email("admin email", email)
	}
	if v.Required("admin password", password) {
		v.Password("admin password", password)
	}
	if err := v.Err(); err != nil {
		return false, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash admin password")
	}

	now := requestcontext.Now(ctx)
	admin := &models.User{
		ID:           id.NewUserID(),
		Email:        email,
		PasswordHash: hash,
		Role:         id.RoleAdministrator,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, admin); err != nil {
		if !errors.Is(err, sentinel.ErrConflict) {
			return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create default administrator")
		}
		// Another instance may have won the race.
		exists, checkErr := s.users.ExistsWithRole(ctx, id.RoleAdministrator)
		if checkErr == nil && exists {
			return false, nil
		}
		return false, dErrors.New(dErrors.CodeConflict, "default administrator email belongs to a non-administrator account")
	}

	s.metrics.IncrementUsersCreated()
	s.emitAudit(ctx, audit.Event{
		Action:  audit.EventAdminBootstrap,
		Subject: admin.ID.String(),
		Email:   admin.Email,
	})
	s.logger.InfoContext(ctx, "default administrator created", "user_id", admin.ID.String())
	return true, nil
}

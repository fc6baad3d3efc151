package service

import (
	"context"
	"errors"

	"donorhub/internal/access"
	"donorhub/internal/auth/models"
	id "donorhub/pkg/domain"
	dErrors "donorhub/pkg/domain-errors"
	"donorhub/pkg/platform/audit"
	"donorhub/pkg/platform/sentinel"
	"donorhub/pkg/requestcontext"
	"donorhub/pkg/secrets"
)

const tokenTypeBearer = "Bearer"

// Login verifies credentials and issues an access token. Unknown emails and
// wrong passwords produce the same error.
func (s *Service) Login(ctx context.Context, req *models.LoginRequest) (_ *models.LoginResult, err error) {
	ctx, span := s.tracer.Start(ctx, "auth.Login")
	defer func() { endSpan(span, err) }()

	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.loginFailed(ctx, req.Email, "unknown_email")
			return nil, secrets.ErrMismatch
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}

	if err := s.hasher.Verify(req.Password, user.PasswordHash); err != nil {
		if errors.Is(err, secrets.ErrMismatch) {
			s.loginFailed(ctx, req.Email, "invalid_credentials")
			return nil, secrets.ErrMismatch
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to verify password")
	}

	if !user.CanLogin() {
		s.loginFailed(ctx, req.Email, "inactive")
		return nil, dErrors.New(dErrors.CodeUnauthorized, "account is inactive")
	}

	issued, err := s.tokens.GenerateAccessToken(user.ID, user.Role, user.Email)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue access token")
	}

	s.metrics.IncrementLoginAttempt("success")
	s.emitAudit(ctx, audit.Event{
		Action:  audit.EventLoginSucceeded,
		ActorID: user.ID,
		Subject: user.ID.String(),
		Email:   user.Email,
	})

	return &models.LoginResult{
		AccessToken: issued.Token,
		TokenType:   tokenTypeBearer,
		ExpiresIn:   issued.ExpiresIn(),
		User:        user.Summary(),
	}, nil
}

func (s *Service) loginFailed(ctx context.Context, email, reason string) {
	s.metrics.IncrementLoginAttempt(reason)
	s.logger.WarnContext(ctx, "login failed",
		"reason", reason,
		"request_id", requestcontext.RequestID(ctx),
	)
	s.emitAudit(ctx, audit.Event{
		Action: audit.EventLoginFailed,
		Email:  email,
		Reason: reason,
	})
}

// Logout revokes the presented token until it would have expired.
func (s *Service) Logout(ctx context.Context, userID id.UserID) (err error) {
	ctx, span := s.tracer.Start(ctx, "auth.Logout")
	defer func() { endSpan(span, err) }()

	jti := requestcontext.TokenID(ctx)
	if jti == "" {
		return dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	ttl := requestcontext.TokenExpiry(ctx).Sub(requestcontext.Now(ctx))
	if ttl <= 0 {
		return nil
	}
	if err := s.trl.RevokeToken(ctx, jti, ttl); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke token")
	}

	s.metrics.IncrementTokensRevoked()
	s.emitAudit(ctx, audit.Event{
		Action:  audit.EventLogout,
		ActorID: userID,
		Subject: userID.String(),
	})
	return nil
}

// ResolveActor loads the caller's account on every request, so a deleted or
// deactivated account loses access even while its token is unexpired. The
// role comes from the store, not the token.
func (s *Service) ResolveActor(ctx context.Context, userID id.UserID) (access.Actor, error) {
	if userID.IsNil() {
		return access.Actor{}, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return access.Actor{}, dErrors.New(dErrors.CodeUnauthorized, "account no longer exists")
		}
		return access.Actor{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}
	if !user.IsActive {
		return access.Actor{}, dErrors.New(dErrors.CodeUnauthorized, "account is inactive")
	}
	return access.Actor{ID: user.ID, Role: user.Role}, nil
}

// Profile returns the caller's own account.
func (s *Service) Profile(ctx context.Context, userID id.UserID) (*models.UserSummary, error) {
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	summary := user.Summary()
	return &summary, nil
}

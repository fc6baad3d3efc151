package handler

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"donorhub/internal/access"
	"donorhub/internal/auth/models"
	id "donorhub/pkg/domain"
	"donorhub/pkg/platform/httputil"
	"donorhub/pkg/requestcontext"
)

// Service defines the account operations the handler depends on.
type Service interface {
	Register(ctx context.Context, actor *access.Actor, req *models.RegisterRequest) (*models.UserSummary, error)
	Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResult, error)
	Logout(ctx context.Context, userID id.UserID) error
	Profile(ctx context.Context, userID id.UserID) (*models.UserSummary, error)
	ListUsers(ctx context.Context, actor access.Actor) (*models.UserList, error)
	UpdateUser(ctx context.Context, actor access.Actor, userID id.UserID, req *models.UpdateUserRequest) (*models.UserSummary, error)
	DeleteUser(ctx context.Context, actor access.Actor, userID id.UserID) error
	ResolveActor(ctx context.Context, userID id.UserID) (access.Actor, error)
}

// Handler wires account endpoints to the auth service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterPublic mounts endpoints reachable without a token. Register runs
// behind optional authentication so administrators can create administrators.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Post("/auth/register", h.HandleRegister)
	r.Post("/auth/login", h.HandleLogin)
}

// RegisterProtected mounts endpoints that require a bearer token.
func (h *Handler) RegisterProtected(r chi.Router) {
	r.Post("/auth/logout", h.HandleLogout)
	r.Get("/auth/profile", h.HandleProfile)
	r.Get("/auth/users", h.HandleListUsers)
	r.Put("/auth/users/{id}", h.HandleUpdateUser)
	r.Delete("/auth/users/{id}", h.HandleDeleteUser)
}

// HandleRegister handles POST /auth/register.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.RegisterRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	var actor *access.Actor
	if userID := requestcontext.UserID(ctx); !userID.IsNil() {
		resolved, err := h.service.ResolveActor(ctx, userID)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		actor = &resolved
	}

	user, err := h.service.Register(ctx, actor, req)
	if err != nil {
		h.logger.WarnContext(ctx, "registration failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, http.StatusCreated, "user registered successfully", user)
}

// HandleLogin handles POST /auth/login.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.LoginRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.Login(ctx, req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, "login successful", result)
}

// HandleLogout handles POST /auth/logout.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := h.requireActor(w, r)
	if !ok {
		return
	}
	if err := h.service.Logout(ctx, actor.ID); err != nil {
		h.logger.ErrorContext(ctx, "logout failed",
			"request_id", requestcontext.RequestID(ctx),
			"user_id", actor.ID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, "logout successful", nil)
}

// HandleProfile handles GET /auth/profile.
func (h *Handler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireActor(w, r)
	if !ok {
		return
	}
	user, err := h.service.Profile(r.Context(), actor.ID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, "profile retrieved successfully", user)
}

// HandleListUsers handles GET /auth/users.
func (h *Handler) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireActor(w, r)
	if !ok {
		return
	}
	users, err := h.service.ListUsers(r.Context(), actor)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, "users retrieved successfully", users)
}

// HandleUpdateUser handles PUT /auth/users/{id}.
func (h *Handler) HandleUpdateUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	actor, ok := h.requireActor(w, r)
	if !ok {
		return
	}
	userID, err := id.ParseUserID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[models.UpdateUserRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	user, err := h.service.UpdateUser(ctx, actor, userID, req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(ctx, "user updated",
		"request_id", requestID,
		"user_id", userID.String(),
		"actor_id", actor.ID.String(),
	)
	httputil.WriteSuccess(w, http.StatusOK, "user updated successfully", user)
}

// HandleDeleteUser handles DELETE /auth/users/{id}.
func (h *Handler) HandleDeleteUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	actor, ok := h.requireActor(w, r)
	if !ok {
		return
	}
	userID, err := id.ParseUserID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.service.DeleteUser(ctx, actor, userID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(ctx, "user deleted",
		"request_id", requestcontext.RequestID(ctx),
		"user_id", userID.String(),
		"actor_id", actor.ID.String(),
	)
	httputil.WriteSuccess(w, http.StatusOK, "user deleted successfully", nil)
}

// requireActor resolves the authenticated caller from the store, writing the
// error response when it cannot.
func (h *Handler) requireActor(w http.ResponseWriter, r *http.Request) (access.Actor, bool) {
	actor, err := h.service.ResolveActor(r.Context(), requestcontext.UserID(r.Context()))
	if err != nil {
		httputil.WriteError(w, err)
		return access.Actor{}, false
	}
	return actor, true
}

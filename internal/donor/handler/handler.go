package handler

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"donorhub/internal/access"
	"donorhub/internal/donor/models"
	id "donorhub/pkg/domain"
	"donorhub/pkg/platform/httputil"
	"donorhub/pkg/requestcontext"
)

// Service defines the donor operations the handler depends on.
type Service interface {
	Create(ctx context.Context, actor access.Actor, req *models.CreateDonorRequest) (*models.View, error)
	List(ctx context.Context, actor access.Actor, filter models.ListFilter) (*models.Page, error)
	Get(ctx context.Context, actor access.Actor, donorID id.DonorID) (*models.View, error)
	Update(ctx context.Context, actor access.Actor, donorID id.DonorID, req *models.UpdateDonorRequest) (*models.View, error)
	Delete(ctx context.Context, actor access.Actor, donorID id.DonorID) error
	CheckEligibility(ctx context.Context, actor access.Actor, donorID id.DonorID) (*models.EligibilityReport, error)
	Statistics(ctx context.Context, actor access.Actor) (*models.Statistics, error)
}

// ActorResolver loads the authenticated caller's current role.
type ActorResolver interface {
	ResolveActor(ctx context.Context, userID id.UserID) (access.Actor, error)
}

type Handler struct {
	service Service
	actors  ActorResolver
	logger  *slog.Logger
}

func New(service Service, actors ActorResolver, logger *slog.Logger) *Handler {
	return &Handler{service: service, actors: actors, logger: logger}
}

// Register mounts the donor endpoints. Every route requires a bearer token.
func (h *Handler) Register(r chi.Router) {
	r.Route("/donors", func(r chi.Router) {
		r.Post("/", h.HandleCreate)
		r.Get("/", h.HandleList)
		r.Get("/statistics", h.HandleStatistics)
		r.Get("/eligibility-check/{id}", h.HandleEligibilityCheck)
		r.Get("/{id}", h.HandleGet)
		r.Put("/{id}", h.HandleUpdate)
		r.Delete("/{id}", h.HandleDelete)
	})
}

// HandleCreate handles POST /donors.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	actor, ok := h.requireActor(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[models.CreateDonorRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	view, err := h.service.Create(ctx, actor, req)
	if err != nil {
		h.logger.WarnContext(ctx, "donor registration failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, http.StatusCreated, "donor registered successfully", toDonorResponse(view))
}

// HandleList handles GET /donors.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireActor(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	filter, err := models.ParseListFilter(q.Get("blood_type"), q.Get("is_eligible"), q.Get("page"), q.Get("per_page"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	page, err := h.service.List(r.Context(), actor, filter)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, "donors retrieved successfully", toDonorListResponse(page))
}

// HandleGet handles GET /donors/{id}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	actor, donorID, ok := h.actorAndDonorID(w, r)
	if !ok {
		return
	}
	view, err := h.service.Get(r.Context(), actor, donorID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, "donor retrieved successfully", toDonorResponse(view))
}

// HandleUpdate handles PUT /donors/{id}.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	actor, donorID, ok := h.actorAndDonorID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[models.UpdateDonorRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	view, err := h.service.Update(ctx, actor, donorID, req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(ctx, "donor updated",
		"request_id", requestID,
		"donor_id", donorID.String(),
		"actor_id", actor.ID.String(),
	)
	httputil.WriteSuccess(w, http.StatusOK, "donor updated successfully", toDonorResponse(view))
}

// HandleDelete handles DELETE /donors/{id}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	actor, donorID, ok := h.actorAndDonorID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), actor, donorID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, "donor deleted successfully", nil)
}

// HandleEligibilityCheck handles GET /donors/eligibility-check/{id}.
func (h *Handler) HandleEligibilityCheck(w http.ResponseWriter, r *http.Request) {
	actor, donorID, ok := h.actorAndDonorID(w, r)
	if !ok {
		return
	}
	report, err := h.service.CheckEligibility(r.Context(), actor, donorID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, "eligibility check completed", toEligibilityResponse(report))
}

// HandleStatistics handles GET /donors/statistics.
func (h *Handler) HandleStatistics(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireActor(w, r)
	if !ok {
		return
	}
	stats, err := h.service.Statistics(r.Context(), actor)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, "statistics retrieved successfully", toStatisticsResponse(stats))
}

func (h *Handler) requireActor(w http.ResponseWriter, r *http.Request) (access.Actor, bool) {
	actor, err := h.actors.ResolveActor(r.Context(), requestcontext.UserID(r.Context()))
	if err != nil {
		httputil.WriteError(w, err)
		return access.Actor{}, false
	}
	return actor, true
}

func (h *Handler) actorAndDonorID(w http.ResponseWriter, r *http.Request) (access.Actor, id.DonorID, bool) {
	actor, ok := h.requireActor(w, r)
	if !ok {
		return access.Actor{}, id.DonorID{}, false
	}
	donorID, err := id.ParseDonorID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return access.Actor{}, id.DonorID{}, false
	}
	return actor, donorID, true
}

package handlers

import (
	"context"
	"net/http"
	"strconv"

	"photographer-backend/internal/domain"
	"photographer-backend/internal/middleware"
	"photographer-backend/internal/service/photographer"
	"photographer-backend/pkg/api"
	apperrors "photographer-backend/pkg/errors"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const (
	defaultPageSize = 10
	maxBodyBytes    = 1 << 20
)

// PhotographerService is the facade the handlers call.
type PhotographerService interface {
	List(ctx context.Context, page, size int) (photographer.Result[photographer.Page], error)
	GetByID(ctx context.Context, id int64) (photographer.Result[*domain.Photographer], error)
	ListByEventType(ctx context.Context, eventType string) (photographer.Result[[]domain.Summary], error)
	Youngest(ctx context.Context, size int) (photographer.Result[[]domain.Summary], error)
	NearBy(ctx context.Context, lat, lng, radius float64) (photographer.Result[[]domain.Summary], error)
	Create(ctx context.Context, p domain.Photographer) (*domain.Photographer, error)
	Update(ctx context.Context, id int64, p domain.Photographer) (*domain.Photographer, error)
	Delete(ctx context.Context, id int64) error
}

// PhotographerHandler serves /api/photographers.
type PhotographerHandler struct {
	svc    PhotographerService
	logger *zap.Logger
}

func NewPhotographerHandler(svc PhotographerService, logger *zap.Logger) *PhotographerHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PhotographerHandler{svc: svc, logger: logger.Named("http")}
}

// List handles GET /api/photographers?page=&size=
func (h *PhotographerHandler) List(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page", 0)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	size, err := queryInt(r, "size", defaultPageSize)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	res, err := h.svc.List(r.Context(), page, size)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	p := res.Value
	respond(w, r, api.NewPage(p.Content, p.Page, p.Size, p.Total), res.CacheHit, res.Degraded)
}

// Get handles GET /api/photographers/{id}
func (h *PhotographerHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	res, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond(w, r, res.Value, res.CacheHit, res.Degraded)
}

// ByEventType handles GET /api/photographers/event/{eventType}
func (h *PhotographerHandler) ByEventType(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.ListByEventType(r.Context(), chi.URLParam(r, "eventType"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond(w, r, res.Value, res.CacheHit, res.Degraded)
}

// Youngest handles GET /api/photographers/youngest?size=
func (h *PhotographerHandler) Youngest(w http.ResponseWriter, r *http.Request) {
	size, err := queryInt(r, "size", defaultPageSize)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	res, err := h.svc.Youngest(r.Context(), size)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond(w, r, res.Value, res.CacheHit, res.Degraded)
}

// Proximity handles GET /api/photographers/proximity?lat=&lng=&radius=
func (h *PhotographerHandler) Proximity(w http.ResponseWriter, r *http.Request) {
	var coords [3]float64
	for i, name := range []string{"lat", "lng", "radius"} {
		v, err := queryFloat(r, name)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		coords[i] = v
	}

	res, err := h.svc.NearBy(r.Context(), coords[0], coords[1], coords[2])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond(w, r, res.Value, res.CacheHit, res.Degraded)
}

// Create handles POST /api/photographers
func (h *PhotographerHandler) Create(w http.ResponseWriter, r *http.Request) {
	var p domain.Photographer
	if err := api.DecodeJSON(r, &p, maxBodyBytes); err != nil {
		h.fail(w, r, apperrors.NewValidationError("invalid request body: "+err.Error()))
		return
	}

	created, err := h.svc.Create(r.Context(), p)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/photographers/"+strconv.FormatInt(created.ID, 10))
	api.RespondWithMeta(w, http.StatusCreated, created, &api.MetaInfo{RequestID: middleware.GetRequestID(r.Context())})
}

// Update handles PUT /api/photographers/{id}
func (h *PhotographerHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var p domain.Photographer
	if err := api.DecodeJSON(r, &p, maxBodyBytes); err != nil {
		h.fail(w, r, apperrors.NewValidationError("invalid request body: "+err.Error()))
		return
	}

	updated, err := h.svc.Update(r.Context(), id, p)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.RespondWithMeta(w, http.StatusOK, updated, &api.MetaInfo{RequestID: middleware.GetRequestID(r.Context())})
}

// Delete handles DELETE /api/photographers/{id}
func (h *PhotographerHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.svc.Delete(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func respond(w http.ResponseWriter, r *http.Request, data any, hit, degraded bool) {
	if degraded {
		w.Header().Set(middleware.HeaderDegraded, "true")
	}
	api.RespondWithMeta(w, http.StatusOK, data, &api.MetaInfo{
		RequestID: middleware.GetRequestID(r.Context()),
		CacheHit:  &hit,
		Degraded:  degraded,
	})
}

// fail writes err as an error envelope. Server-side failures are logged with
// their cause; client errors only at debug level.
func (h *PhotographerHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	fields := []zap.Field{
		zap.String("requestId", middleware.GetRequestID(r.Context())),
		zap.String("path", r.URL.Path),
		zap.Error(err),
	}
	if apperrors.HTTPStatus(err) >= http.StatusInternalServerError {
		h.logger.Error("Request failed", fields...)
	} else {
		h.logger.Debug("Request rejected", fields...)
	}
	api.RespondAppError(w, err)
}

func pathID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, apperrors.NewValidationError("id must be an integer").
			WithDetails(map[string]string{"id": raw})
	}
	return id, nil
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.NewValidationError(name + " must be an integer").
			WithDetails(map[string]string{name: raw})
	}
	return v, nil
}

// queryFloat parses a required float parameter.
func queryFloat(r *http.Request, name string) (float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, apperrors.NewValidationError(name + " is required").
			WithDetails(map[string]string{name: "required"})
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, apperrors.NewValidationError(name + " must be a number").
			WithDetails(map[string]string{name: raw})
	}
	return v, nil
}

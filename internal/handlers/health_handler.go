package handlers

import (
	"context"
	"net/http"
	"time"

	"photographer-backend/internal/resilience"
	"photographer-backend/pkg/api"

	"go.uber.org/zap"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves the liveness and readiness probes.
type HealthHandler struct {
	store   Pinger
	breaker func() resilience.State
	timeout time.Duration
	logger  *zap.Logger
}

func NewHealthHandler(store Pinger, breaker func() resilience.State, logger *zap.Logger) *HealthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HealthHandler{store: store, breaker: breaker, timeout: 2 * time.Second, logger: logger.Named("health")}
}

func (h *HealthHandler) Health(w http.ResponseWriter, _ *http.Request) {
	api.RespondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// Ready pings the store. An open breaker is reported but does not fail the
// probe since the proximity view keeps answering with its fallback.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	body := map[string]string{"status": "ready", "store": "ok"}
	if h.breaker != nil {
		body["breaker"] = string(h.breaker())
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	if err := h.store.Ping(ctx); err != nil {
		h.logger.Warn("Store ping failed", zap.Error(err))
		body["status"] = "not ready"
		body["store"] = "unreachable"
		api.RespondJSON(w, http.StatusServiceUnavailable, body)
		return
	}
	api.RespondJSON(w, http.StatusOK, body)
}

package handlers

import (
	"net/http"

	"photographer-backend/internal/cache"
	"photographer-backend/internal/resilience"
	"photographer-backend/pkg/api"
)

// StatsSource exposes per-namespace cache counters.
type StatsSource interface {
	Stats() map[string]cache.StatsSnapshot
}

type CacheHandler struct {
	stats   StatsSource
	breaker func() resilience.State
}

func NewCacheHandler(stats StatsSource, breaker func() resilience.State) *CacheHandler {
	return &CacheHandler{stats: stats, breaker: breaker}
}

type cacheStatsResponse struct {
	Namespaces map[string]cache.StatsSnapshot `json:"namespaces"`
	Breaker    resilience.State               `json:"breaker,omitempty"`
}

// Stats handles GET /api/cache/stats
func (h *CacheHandler) Stats(w http.ResponseWriter, _ *http.Request) {
	resp := cacheStatsResponse{Namespaces: h.stats.Stats()}
	if h.breaker != nil {
		resp.Breaker = h.breaker()
	}
	api.RespondJSON(w, http.StatusOK, resp)
}

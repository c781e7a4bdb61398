// Package handlers wires the HTTP surface onto the photographer facade.
package handlers

import (
	"net/http"

	"photographer-backend/internal/middleware"
	"photographer-backend/internal/resilience"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// RouterOptions carries the cross-cutting settings of the HTTP surface.
type RouterOptions struct {
	AllowedOrigins []string
	// Validator enables bearer-token checks on /api when non-nil.
	Validator middleware.TokenValidator
	// WriteRole is required on mutating routes when authentication is on.
	WriteRole string
}

// Dependencies are the collaborators the routes call into.
type Dependencies struct {
	Photographers PhotographerService
	Store         Pinger
	Caches        StatsSource
	Breaker       func() resilience.State
	Observer      middleware.RequestObserver
	Metrics       http.Handler
}

// Router creates and configures the HTTP router.
type Router struct {
	deps   Dependencies
	opts   RouterOptions
	logger *zap.Logger
}

func NewRouter(deps Dependencies, opts RouterOptions, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{deps: deps, opts: opts, logger: logger}
}

// Setup configures all routes and middleware.
func (rt *Router) Setup() *chi.Mux {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(middleware.Timing(rt.logger, rt.deps.Observer))
	router.Use(middleware.Recovery(rt.logger))

	origins := rt.opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", middleware.HeaderRequestID},
		ExposedHeaders: []string{middleware.HeaderRequestID, middleware.HeaderDegraded},
		MaxAge:         300,
	}))

	health := NewHealthHandler(rt.deps.Store, rt.deps.Breaker, rt.logger)
	router.Get("/health", health.Health)
	router.Get("/ready", health.Ready)
	if rt.deps.Metrics != nil {
		router.Method(http.MethodGet, "/metrics", rt.deps.Metrics)
	}

	router.Route("/api", func(r chi.Router) {
		if rt.opts.Validator != nil {
			r.Use(middleware.Authenticate(rt.opts.Validator, rt.logger))
		}

		ph := NewPhotographerHandler(rt.deps.Photographers, rt.logger)
		r.Route("/photographers", func(r chi.Router) {
			r.Get("/", ph.List)
			r.Get("/youngest", ph.Youngest)
			r.Get("/proximity", ph.Proximity)
			r.Get("/event/{eventType}", ph.ByEventType)
			r.Get("/{id}", ph.Get)

			r.Group(func(r chi.Router) {
				if rt.opts.Validator != nil && rt.opts.WriteRole != "" {
					r.Use(middleware.RequireRole(rt.opts.WriteRole))
				}
				r.Post("/", ph.Create)
				r.Put("/{id}", ph.Update)
				r.Delete("/{id}", ph.Delete)
			})
		})

		if rt.deps.Caches != nil {
			r.Get("/cache/stats", NewCacheHandler(rt.deps.Caches, rt.deps.Breaker).Stats)
		}
	})

	return router
}

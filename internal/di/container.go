// Package di assembles the service from its configuration.
package di

import (
	"context"
	"fmt"

	"photographer-backend/internal/bootstrap"
	"photographer-backend/internal/cache"
	"photographer-backend/internal/config"
	"photographer-backend/internal/jobs"
	"photographer-backend/internal/observability"
	"photographer-backend/internal/repository"
	"photographer-backend/internal/service/photographer"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Container holds all application dependencies.
type Container struct {
	Config    *config.Config
	Logger    *zap.Logger
	Store     repository.PhotographerStore
	Cache     *cache.Manager
	Service   *photographer.Service
	Scheduler *jobs.Scheduler
	Tracing   *observability.TracerProvider
	Metrics   *observability.Collector
	Router    *chi.Mux

	watcher *config.Watcher `wire:"-"`
}

// Seed fills an empty store from the configured bootstrap file.
func (c *Container) Seed(ctx context.Context) error {
	path := c.Config.Bootstrap.DataFile
	if path == "" {
		return nil
	}
	if _, err := bootstrap.Seed(ctx, c.Store, path, c.Logger); err != nil {
		return fmt.Errorf("seed from %s: %w", path, err)
	}
	return nil
}

// WatchConfig hot-reloads cache policies from the loader's file.
func (c *Container) WatchConfig(loader *config.Loader) error {
	w, err := config.NewWatcher(loader, c.Config, c.Logger)
	if err != nil {
		return err
	}
	w.OnChange(config.ReloadCachePolicies(c.Cache, c.Logger))
	if err := w.Start(); err != nil {
		return err
	}
	c.watcher = w
	return nil
}

// StartJobs runs the scheduled maintenance jobs until Stop.
func (c *Container) StartJobs() {
	c.Scheduler.Start()
}

// Stop ends the background work started on the container. Resources are
// released by the cleanup returned from InitializeContainer.
func (c *Container) Stop() {
	c.Scheduler.Stop()
	if c.watcher != nil {
		c.watcher.Stop()
	}
}

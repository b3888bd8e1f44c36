package container

import (
	"context"
	"fmt"

	"nyassess/app"
	"nyassess/internal"
	"nyassess/internal/cache"
	"nyassess/internal/config"
	"nyassess/internal/ingest"
	"nyassess/internal/metrics"
	"nyassess/internal/watch"

	"github.com/prometheus/client_golang/prometheus"
)

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config *config.Config
	Logger *internal.Logger

	// Ingestion
	Loader  *ingest.Loader
	Service *app.AssessmentService

	// Observability
	Registry *prometheus.Registry

	// Optional directory watcher, nil unless WATCH_ENABLED
	Watcher *watch.Watcher
	cancel  context.CancelFunc
}

// New creates a new dependency injection container
func New(cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	c := &Container{
		Config:   cfg,
		Logger:   internal.NewLogger(internal.ParseLogLevel(cfg.Log.Level)),
		Registry: prometheus.NewRegistry(),
	}

	c.Loader = ingest.NewLoader(cfg.Data.Root,
		ingest.WithConcurrency(cfg.Data.LoadConcurrency),
		ingest.WithLogger(c.Logger),
	)
	c.Service = app.NewAssessmentService(c.Loader, cache.Options{
		Metrics: metrics.New(c.Registry, "nyassess", "payload_cache"),
		Logger:  c.Logger,
	})

	c.Logger.Info("[Container] data root %s, load concurrency %d", cfg.Data.Root, cfg.Data.LoadConcurrency)
	return c, nil
}

// StartWatcher begins refreshing cached payloads on directory changes.
// It is a no-op unless watching is enabled in the config.
func (c *Container) StartWatcher(ctx context.Context) error {
	if !c.Config.Watch.Enabled {
		return nil
	}

	w, err := watch.New(watch.Targets(c.Loader.Dir), c.Service.Warm, c.Config.Watch.Debounce, c.Logger)
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	ctx, cancel := context.WithCancel(ctx)
	c.Watcher = w
	c.cancel = cancel
	go w.Run(ctx)
	return nil
}

// Shutdown releases background resources
func (c *Container) Shutdown() {
	if c.cancel != nil {
		c.cancel()
	}
	if c.Watcher != nil {
		if err := c.Watcher.Close(); err != nil {
			c.Logger.Warn("[Container] watcher close: %v", err)
		}
	}
}

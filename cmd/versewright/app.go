package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/versewright/versewright/pkg/budget"
	"github.com/versewright/versewright/pkg/cache"
	cachepkg "github.com/versewright/versewright/pkg/cache/sqlite"
	"github.com/versewright/versewright/pkg/config"
	"github.com/versewright/versewright/pkg/gemini"
	"github.com/versewright/versewright/pkg/logging"
	"github.com/versewright/versewright/pkg/lyrics"
	"github.com/versewright/versewright/pkg/ratelimit"
	"github.com/versewright/versewright/pkg/router"
	"github.com/versewright/versewright/pkg/telemetry"
	"github.com/versewright/versewright/pkg/tracker"
)

// app bundles the wired dependencies shared by the commands.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *telemetry.Metrics
	svc     *lyrics.Service
	tracker *tracker.SQLiteTracker
	durable *cachepkg.Cache

	closers []func() error
}

func newApp(configPath string) (*app, error) {
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}

	a := &app{
		cfg:     cfg,
		logger:  logger,
		metrics: telemetry.NewMetrics(nil),
	}

	tr, err := tracker.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("init tracker: %w", err)
	}
	a.tracker = tr
	a.closers = append(a.closers, tr.Close)

	var layered *cache.Layered
	if cfg.Cache.Enabled {
		var durable cache.Persistent
		if cfg.Cache.Persistent {
			c, err := cachepkg.New(cfg.DBPath)
			if err != nil {
				a.close()
				return nil, fmt.Errorf("init cache: %w", err)
			}
			a.durable = c
			a.closers = append(a.closers, c.Close)
			durable = c
		}
		layered = cache.NewLayered(cache.NewMemory(cfg.Cache.TTL), durable,
			cache.WithMetrics(a.metrics),
			cache.WithLogger(logger),
		)
	}

	limiter := ratelimit.New(ratelimit.Config{
		Window:      cfg.RateLimit.Window,
		MaxRequests: cfg.RateLimit.MaxRequests,
		MinInterval: cfg.RateLimit.MinInterval,
	}, ratelimit.WithMetrics(a.metrics), ratelimit.WithLogger(logger))

	var waiter lyrics.Waiter = limiter
	if cfg.Budget.MaxTokens > 0 {
		waiter = budget.NewGuard(budget.New(cfg.Budget.MaxTokens, cfg.Budget.Period, tr), limiter)
	}

	models := router.New(cfg)
	if unknown := models.Unknown(lyrics.Operations); len(unknown) > 0 {
		logger.Warn("model overrides for unknown operations are ignored", "operations", unknown)
	}

	client := gemini.New(gemini.Config{
		APIKey:  cfg.Gemini.APIKey,
		BaseURL: cfg.Gemini.BaseURL,
		Model:   cfg.Models.Default,
		Timeout: cfg.Gemini.Timeout,
	}, gemini.WithLogger(logger))

	a.svc = lyrics.New(client, layered, waiter,
		lyrics.WithLogger(logger),
		lyrics.WithRecorder(tr),
		lyrics.WithModels(models),
		lyrics.WithMetrics(a.metrics),
		lyrics.WithFanOut(cfg.Artists.FanOut),
	)
	return a, nil
}

func (a *app) close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

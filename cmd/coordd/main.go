// Command coordd serves the cross-module coordination API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/suitecore/crosscoord/internal/api"
	"github.com/suitecore/crosscoord/pkg/crosscoord"
	"github.com/suitecore/crosscoord/pkg/crosscoord/config"
	crosserrors "github.com/suitecore/crosscoord/pkg/crosscoord/errors"
	"github.com/suitecore/crosscoord/pkg/crosscoord/event"
	"github.com/suitecore/crosscoord/pkg/crosscoord/observability"
	"github.com/suitecore/crosscoord/pkg/crosscoord/relation"
	"github.com/suitecore/crosscoord/pkg/crosscoord/validation"
)

const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "coordd terminated with error: %v\n", err)
	}
	os.Exit(code)
}

func run() (int, error) {
	var (
		configPath = flag.String("config", "", "path to YAML or JSON config file")
		addr       = flag.String("addr", "", "listen address (overrides config)")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return exitConfig, fmt.Errorf("load config: %w", err)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	listen := cfg.String("server.addr", ":8080")
	if *addr != "" {
		listen = *addr
	}

	coord, cleanup, err := buildCoordinator(cfg, logger)
	if err != nil {
		return exitRuntime, err
	}
	defer cleanup()

	server := &http.Server{
		Addr:              listen,
		Handler:           api.NewServer(coord, logger).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("coordination api listening", "addr", listen)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return exitRuntime, fmt.Errorf("server: %w", err)
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return exitRuntime, fmt.Errorf("shutdown: %w", err)
		}
	}

	return exitOK, nil
}

func newLogger(cfg config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.String("log.level", "info") {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}

// buildCoordinator assembles the subsystems from config. The returned
// cleanup closes the journal and validation cache.
func buildCoordinator(cfg config.Config, logger *slog.Logger) (*crosscoord.Coordinator, func(), error) {
	metrics := observability.NewMetricsRecorder()
	spans := observability.NewSpanManager()

	var closers []func() error
	cleanup := func() {
		for _, c := range closers {
			if err := c(); err != nil {
				logger.Warn("cleanup failed", "error", err)
			}
		}
	}

	dispatcherOpts := []event.DispatcherOption{
		event.WithLogger(logger),
		event.WithMetrics(metrics),
		event.WithSpanManager(spans),
	}
	if cfg.Bool("events.retry", true) {
		dispatcherOpts = append(dispatcherOpts, event.WithRetry(crosserrors.DefaultRetry))
	}
	if path := cfg.String("events.journal_path", ""); path != "" {
		journal, err := event.NewJournal(path)
		if err != nil {
			return nil, nil, fmt.Errorf("open event journal: %w", err)
		}
		closers = append(closers, journal.Close)
		dispatcherOpts = append(dispatcherOpts, event.WithJournal(journal))
	}

	validationOpts := []validation.RegistryOption{
		validation.WithLogger(logger),
		validation.WithMetrics(metrics),
		validation.WithSpanManager(spans),
	}
	if cfg.Bool("validation.cache", true) {
		ttl := cfg.Duration("validation.cache_ttl", validation.DefaultCacheTTL)
		cache, err := openValidationCache(cfg, ttl)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("open validation cache: %w", err)
		}
		closers = append(closers, cache.Close)
		validationOpts = append(validationOpts, validation.WithCache(cache))
	}

	aggregator := relation.NewAggregator(
		relation.WithLogger(logger),
		relation.WithMetrics(metrics),
		relation.WithSpanManager(spans),
		relation.WithLookupTimeout(cfg.Duration("relationships.lookup_timeout", 5*time.Second)),
	)
	for _, kind := range []string{
		relation.KindProjects,
		relation.KindLeads,
		relation.KindEmailCampaigns,
		relation.KindPosts,
		relation.KindUniverseInstances,
		relation.KindWorkflows,
		relation.KindAuraChats,
		relation.KindAnalytics,
	} {
		aggregator.RegisterLookup(relation.NewStaticLookup(kind))
	}

	coord := crosscoord.New(
		crosscoord.WithLogger(logger),
		crosscoord.WithDispatcher(event.NewDispatcher(dispatcherOpts...)),
		crosscoord.WithValidation(validation.NewRegistry(validationOpts...)),
		crosscoord.WithAggregator(aggregator),
	)
	return coord, cleanup, nil
}

func openValidationCache(cfg config.Config, ttl time.Duration) (*validation.Cache, error) {
	if dir := cfg.String("validation.cache_dir", ""); dir != "" {
		return validation.NewCache(dir, ttl)
	}
	return validation.NewInMemoryCache(ttl)
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/okian/pairwise/internal/adapters/http/api"
	"github.com/okian/pairwise/internal/adapters/http/site"
	"github.com/okian/pairwise/internal/adapters/http/swagger"
	"github.com/okian/pairwise/internal/adapters/repository"
	app "github.com/okian/pairwise/internal/app"
	"github.com/okian/pairwise/internal/config"
	"github.com/okian/pairwise/internal/domain/catalog"
	"github.com/okian/pairwise/pkg/logger"
	"github.com/okian/pairwise/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 10 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	serviceMetricsInterval    = 5 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// Disable default Go metrics collection to avoid duplicate metrics
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// Load configuration (defaults -> .env -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.SetFormat(cfg.LogFormat); err != nil {
		return fmt.Errorf("failed to set log format: %w", err)
	}
	loggerInstance := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	defer func() { _ = logger.Sync() }()

	items, err := loadCatalog(cfg)
	if err != nil {
		return err
	}

	store, err := openStore(ctx, cfg, loggerInstance)
	if err != nil {
		return err
	}

	svc := newService(cfg, items, store, loggerInstance)
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("failed to start service: %w", err)
	}
	defer svc.Stop()

	go startSystemMetricsUpdater(ctx)
	go startServiceMetricsUpdater(ctx, svc)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newHandler(ctx, cfg, svc),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		loggerInstance.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
	}
	loggerInstance.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		loggerInstance.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	loggerInstance.Info(ctx, "server stopped")
	return nil
}

// loadCatalog returns the configured catalog or the built-in yakuman list.
func loadCatalog(cfg *config.Config) (*catalog.Catalog, error) {
	if cfg.CatalogFile == "" {
		return catalog.Default(), nil
	}
	c, err := catalog.LoadFile(cfg.CatalogFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	return c, nil
}

// openStore builds the configured session backend. External backends are
// wrapped in a circuit breaker. A nil store lets the service create its
// default memory store.
func openStore(ctx context.Context, cfg *config.Config, log logger.Logger) (repository.Store, error) {
	breaker := repository.BreakerConfig{
		Name:                "session-store-" + cfg.SessionBackend,
		ConsecutiveFailures: uint32(cfg.BreakerFailures), //nolint:gosec // validated > 0
		Timeout:             cfg.BreakerTimeout(),
		Logger:              log,
	}

	switch cfg.SessionBackend {
	case repository.BackendRedis:
		cache, err := repository.DialRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		log.Info(ctx, "session store ready", logger.String("backend", "redis"), logger.String("addr", cfg.RedisAddr))
		return repository.NewBreakerStore(repository.NewRedisStore(cache), breaker), nil
	case repository.BackendBadger:
		db, err := repository.OpenBadger(cfg.BadgerDir)
		if err != nil {
			return nil, fmt.Errorf("failed to open badger: %w", err)
		}
		log.Info(ctx, "session store ready", logger.String("backend", "badger"), logger.String("dir", cfg.BadgerDir))
		return repository.NewBreakerStore(repository.NewBadgerStore(db), breaker), nil
	default:
		return nil, nil
	}
}

func newService(cfg *config.Config, items *catalog.Catalog, store repository.Store, log logger.Logger) *app.Service {
	opts := []app.Option{
		app.WithLogger(log),
		app.WithCatalog(items),
		app.WithKFactor(cfg.KFactor),
		app.WithInitialRating(cfg.InitialRating),
		app.WithShuffleSeed(cfg.ShuffleSeed),
		app.WithSessionTTL(cfg.SessionTTL()),
		app.WithSweepInterval(cfg.SweepInterval()),
		app.WithTopListSize(cfg.TopListSize),
	}
	if store != nil {
		opts = append(opts, app.WithStore(store, cfg.SessionBackend))
	}
	return app.New(opts...)
}

// newHandler registers every route and wraps the mux with CORS.
func newHandler(ctx context.Context, cfg *config.Config, svc *app.Service) http.Handler {
	mux := http.NewServeMux()

	swagger.Register(ctx, mux)
	site.Register(ctx, mux)

	apiServer := api.NewServer(svc, svc, api.Options{
		CookieName:        cfg.CookieName,
		CookieSecure:      cfg.CookieSecure,
		MaxStandingsLimit: cfg.MaxStandingsLimit,
	})
	apiServer.Register(ctx, mux)

	return api.CORS(cfg.CORSAllowedOrigins)(mux)
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// startServiceMetricsUpdater starts a background goroutine that refreshes
// the session gauges through GetStats.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(ctx, svc)
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)

	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}

// updateServiceMetrics updates service-level metrics.
func updateServiceMetrics(ctx context.Context, svc *app.Service) {
	stats := svc.GetStats(ctx)
	if n, ok := stats["activeSessions"].(int); ok {
		metrics.UpdateActiveSessions(n)
	}
}

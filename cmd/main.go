package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/okian/servhooks/internal/adapters/fetch"
	"github.com/okian/servhooks/internal/adapters/host"
	"github.com/okian/servhooks/internal/adapters/http/api"
	"github.com/okian/servhooks/internal/adapters/lookup"
	"github.com/okian/servhooks/internal/adapters/metadata"
	"github.com/okian/servhooks/internal/adapters/notify"
	app "github.com/okian/servhooks/internal/app"
	"github.com/okian/servhooks/internal/config"
	"github.com/okian/servhooks/internal/domain/enrichment"
	"github.com/okian/servhooks/internal/domain/identity"
	"github.com/okian/servhooks/internal/telemetry"
	"github.com/okian/servhooks/pkg/logger"
	"github.com/okian/servhooks/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout           = 10 * time.Second
	writeTimeout          = 10 * time.Second
	idleTimeout           = 60 * time.Second
	readHeaderTimeout     = 5 * time.Second
	shutdownTimeout       = 30 * time.Second
	systemMetricsInterval = 10 * time.Second
)

func main() {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		// Logger isn't configured yet.
		_, _ = os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.InitWith(logger.Options{Format: cfg.LogFormat}); err != nil {
		_, _ = os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	if err := run(ctx, cfg); err != nil {
		log.Error(ctx, "servhooks exited", logger.Error(err))
		os.Exit(1)
	}
}

// run serves until ctx is canceled, then shuts down in order: HTTP first,
// then the workers, then the stores and the tracer.
func run(ctx context.Context, cfg *config.Config) error {
	log := logger.Get()

	shutdownTracer, err := telemetry.InitTracer(ctx, cfg.TraceEnabled)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}

	store, err := metadata.Open(ctx, metadata.Options{
		Driver:        cfg.MetadataDriver,
		RedisAddr:     cfg.RedisAddr,
		RedisPassword: cfg.RedisPassword,
		RedisDB:       cfg.RedisDB,
		SQLitePath:    cfg.SQLitePath,
	})
	if err != nil {
		return fmt.Errorf("open metadata store: %w", err)
	}

	svc := buildService(cfg, store)
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start service: %w", err)
	}

	go startSystemMetricsUpdater(ctx)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newHandler(svc),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			log.Error(ctx, "HTTP server failed", logger.Error(err))
		}
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	if err := svc.Stop(shutdownCtx); err != nil {
		log.Error(ctx, "service shutdown failed", logger.Error(err))
	}
	closeQuietly(ctx, "metadata store", store)
	if err := shutdownTracer(shutdownCtx); err != nil {
		log.Error(ctx, "tracer shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
	return nil
}

// buildService wires one fetch client per outbound purpose, each with its
// own timeout.
func buildService(cfg *config.Config, store metadata.Store) *app.Service {
	newClient := func(timeout time.Duration) *fetch.Client {
		return fetch.New(
			fetch.WithTimeout(timeout),
			fetch.WithMaxResponseBytes(cfg.MaxResponseBytes),
		)
	}

	return app.New(
		lookup.New(newClient(cfg.LookupTimeout()), cfg.LookupBaseURL, cfg.LookupAPIKey),
		notify.New(newClient(cfg.NotifyTimeout()), cfg.NotifyDeleteURL),
		host.New(newClient(cfg.HostTimeout()), cfg.HostControlURL),
		store,
		app.WithLogger(logger.Get().Named("service")),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(cfg.QueueSize),
		app.WithDedupeSize(cfg.DedupeSize),
		app.WithManagedChannels(cfg.ManagedChannels),
		app.WithEnrichmentOptions(
			enrichment.WithThrottle(enrichment.NewThrottle(cfg.LookupRatePerMinute, cfg.LookupBurst)),
			enrichment.WithMessageLimit(cfg.MessageLimit),
		),
		app.WithIdentityOptions(
			identity.WithGuestPrefix(cfg.GuestPrefix),
			identity.WithMaxAttempts(cfg.GuestMaxAttempts),
			identity.WithMaxSuffix(cfg.GuestMaxSuffix),
			identity.WithNickLen(cfg.NickLen),
			identity.WithServiceNick(cfg.NickServNick),
		),
	)
}

// newHandler registers the API routes and traces every inbound request.
func newHandler(svc *app.Service) http.Handler {
	mux := http.NewServeMux()
	api.NewServer(svc, svc).Register(mux)
	return otelhttp.NewHandler(mux, "servhooks")
}

func closeQuietly(ctx context.Context, name string, c io.Closer) {
	if err := c.Close(); err != nil {
		logger.Get().Warn(ctx, "close failed", logger.String("resource", name), logger.Error(err))
	}
}

// startSystemMetricsUpdater periodically publishes runtime gauges.
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

func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
}

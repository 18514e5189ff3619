package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/attendance/internal/adapters/http/api"
	"github.com/okian/attendance/internal/adapters/http/swagger"
	"github.com/okian/attendance/internal/adapters/http/ws"
	workerpool "github.com/okian/attendance/internal/adapters/mq/worker"
	"github.com/okian/attendance/internal/adapters/notify"
	"github.com/okian/attendance/internal/adapters/repository"
	service "github.com/okian/attendance/internal/app"
	"github.com/okian/attendance/internal/config"
	"github.com/okian/attendance/pkg/logger"
	"github.com/okian/attendance/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func main() {
	// Disable default Go metrics collection to avoid duplicate metrics
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		// Logger isn't configured yet
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.InitWithFormat(cfg.LogFormat); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	log := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	if err := run(ctx, cfg, log); err != nil {
		log.Error(ctx, "attendance service failed", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	store, closeStore, err := repository.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	hub := ws.NewHub(log.Named("ws"))
	go hub.Run(ctx)

	publishers, closePublishers, err := buildPublishers(cfg, log)
	if err != nil {
		return err
	}
	defer closePublishers()

	svc, err := newService(cfg, log, store, append(publishers, hub)...)
	if err != nil {
		return err
	}
	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer svc.Stop()

	go startSystemMetricsUpdater(ctx, metrics.Default().RefreshInterval())

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newMux(ctx, cfg, log, svc, hub),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server",
			logger.String("addr", cfg.Addr),
			logger.String("store", cfg.StoreBackend),
			logger.String("notify", cfg.NotifyBackend),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}
	log.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	log.Info(ctx, "server stopped")
	return nil
}

// newService applies the configured policy to a new service.
func newService(cfg *config.Config, log logger.Logger, store service.SnapshotStore, publishers ...workerpool.Publisher) (*service.Service, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	return service.New(
		service.WithLogger(log.Named("service")),
		service.WithThreshold(cfg.ConfidenceThreshold),
		service.WithCooldown(cfg.Cooldown()),
		service.WithPreventDuplicates(cfg.PreventDuplicateAttendance),
		service.WithLocation(loc),
		service.WithMinCaptures(cfg.MinCaptures),
		service.WithDescriptorLength(cfg.DescriptorLength),
		service.WithSnapshotStore(store),
		service.WithPublishers(publishers...),
		service.WithQueueSize(cfg.QueueSize),
		service.WithWorkerCount(cfg.WorkerCount),
		service.WithDedupeSize(cfg.DedupeSize),
	), nil
}

// buildPublishers connects the configured notification backend.
func buildPublishers(cfg *config.Config, log logger.Logger) ([]workerpool.Publisher, func(), error) {
	switch cfg.NotifyBackend {
	case config.NotifyNATS:
		p, err := notify.NewNATSPublisher(cfg.NATSURL, cfg.NATSSubject)
		if err != nil {
			return nil, func() {}, err
		}
		return []workerpool.Publisher{p}, closer(log, p), nil
	case config.NotifyMQTT:
		p, err := notify.NewMQTTPublisher(notify.MQTTConfig{
			Broker:   cfg.MQTTBroker,
			Topic:    cfg.MQTTTopic,
			ClientID: cfg.MQTTClientID,
		})
		if err != nil {
			return nil, func() {}, err
		}
		return []workerpool.Publisher{p}, closer(log, p), nil
	default:
		return nil, func() {}, nil
	}
}

type namedCloser interface {
	Name() string
	Close() error
}

func closer(log logger.Logger, c namedCloser) func() {
	return func() {
		if err := c.Close(); err != nil {
			log.Warn(context.Background(), "publisher close failed", logger.String("sink", c.Name()), logger.Error(err))
		}
	}
}

// newMux mounts the API, the live feed and the docs.
func newMux(ctx context.Context, cfg *config.Config, log logger.Logger, svc api.Dependencies, feed http.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(svc,
		api.WithLogger(log.Named("api")),
		api.WithMaxBodyBytes(cfg.MaxRequestBytes),
		api.WithFeed(feed),
	).Register(mux)
	return mux
}

// startSystemMetricsUpdater refreshes system gauges until ctx is done.
func startSystemMetricsUpdater(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
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

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/httplog"
	"github.com/marcelsud/webhook-tester/config"
	"github.com/marcelsud/webhook-tester/internal/http/chi"
	"github.com/marcelsud/webhook-tester/internal/origdst"
	"github.com/marcelsud/webhook-tester/live"
	"github.com/marcelsud/webhook-tester/metrics"
	"github.com/marcelsud/webhook-tester/webhook"
	"github.com/marcelsud/webhook-tester/webhook/file"
	"github.com/marcelsud/webhook-tester/webhook/redis"
	"github.com/rs/zerolog"
)

const TIMEOUT = 30 * time.Second

/* main wires the pipeline: normalizer and buffer behind the capture handler,
 * hub and viewer sessions behind /ws, metrics on the admin listener.
 * Shutdown order: listeners stop, viewer sessions end, the buffer flushes
 * what is left, then exporter and Redis close.
 */

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.GetConfig()
	if err != nil {
		return err
	}

	logger := httplog.NewLogger("webhook-tester", httplog.Options{
		JSON:     true,
		LogLevel: cfg.LogLevel,
	})

	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT,
	)
	defer stop()

	fileRepo, err := file.NewRepository(cfg.DataDir, logger)
	if err != nil {
		return err
	}
	writers := []webhook.BatchWriter{fileRepo}

	var (
		redisRepo *redis.Repository
		mirror    *webhook.MirrorWriter
	)
	if cfg.RedisEnabled() {
		redisRepo, err = redis.NewRepository(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RedisStreamMaxLen)
		if err != nil {
			return err
		}
		mirror = webhook.NewMirrorWriter(redisRepo, logger)
		writers = append(writers, mirror)
		logger.Info().Str("addr", cfg.RedisAddr).Str("stream", redis.StreamKey).Msg("mirroring batches to redis")
	}

	buffer := webhook.NewBuffer(webhook.MultiWriter(writers...), cfg.FlushThreshold, logger)
	hub := live.NewHub(cfg.BroadcastCapacity, logger)
	registry := live.NewRegistry(logger)
	service := webhook.NewService(buffer, hub, logger)

	collector := metrics.NewPipelineCollector(buffer, hub, registry)
	if mirror != nil {
		collector.WithMirror(mirror)
	}
	exporter, err := metrics.NewOTelExporter(collector, nil)
	if err != nil {
		return err
	}

	sessionCtx, endSessions := context.WithCancel(context.Background())
	defer endSessions()

	// no ReadTimeout or WriteTimeout: they would outlive the upgrade and cut
	// long-running viewer sessions
	public := &http.Server{
		ReadHeaderTimeout: TIMEOUT,
		Addr:              ":" + cfg.Port,
		Handler: chi.Handlers(sessionCtx, logger, chi.Dependencies{
			Service:  service,
			Hub:      hub,
			Registry: registry,
			Ports: origdst.Resolver{
				Enabled:  cfg.OriginalDstLookup,
				Fallback: cfg.DefaultOriginalPort,
			},
			FrontendDir:  cfg.FrontendDir,
			MaxBodyBytes: cfg.MaxBodyBytes,
		}),
	}
	if cfg.OriginalDstLookup {
		public.ConnContext = origdst.WithConn
	}
	admin := &http.Server{
		ReadTimeout:  TIMEOUT,
		WriteTimeout: TIMEOUT,
		Addr:         ":" + cfg.AdminPort,
		Handler:      chi.AdminHandlers(logger, exporter.ServeHTTP(), registry),
	}

	// Bind before serving so a taken port fails startup
	publicLn, err := net.Listen("tcp", public.Addr)
	if err != nil {
		return fmt.Errorf("binding public listener: %w", err)
	}
	adminLn, err := net.Listen("tcp", admin.Addr)
	if err != nil {
		publicLn.Close()
		return fmt.Errorf("binding admin listener: %w", err)
	}

	errShutdown := make(chan error, 1)
	go shutdown(ctx, logger, []*http.Server{public, admin}, errShutdown)

	serveErr := make(chan error, 2)
	go func() { serveErr <- serve(admin, adminLn) }()
	go func() { serveErr <- serve(public, publicLn) }()

	logger.Info().
		Str("port", cfg.Port).
		Str("admin_port", cfg.AdminPort).
		Str("data_dir", fileRepo.Dir()).
		Int("flush_threshold", cfg.FlushThreshold).
		Msg("webhook tester listening")

	var errs []error
	for i := 0; i < 2; i++ {
		if err := <-serveErr; err != nil {
			errs = append(errs, err)
			stop()
		}
	}
	errs = append(errs, <-errShutdown)

	// Listeners are down; end viewer sessions and persist the remainder
	endSessions()

	ctxTimeout, cancel := context.WithTimeout(context.Background(), TIMEOUT)
	defer cancel()

	if err := buffer.Shutdown(ctxTimeout); err != nil {
		errs = append(errs, fmt.Errorf("flushing buffer: %w", err))
	}
	stats := buffer.Stats()
	logger.Info().
		Int64("persisted", stats.PersistedRecords).
		Int64("dropped", stats.DroppedRecords).
		Msg("buffer drained")

	if err := exporter.Shutdown(ctxTimeout); err != nil {
		errs = append(errs, fmt.Errorf("shutting down metrics: %w", err))
	}
	if redisRepo != nil {
		if err := redisRepo.Close(ctxTimeout); err != nil {
			errs = append(errs, fmt.Errorf("closing redis: %w", err))
		}
	}

	return errors.Join(errs...)
}

func serve(server *http.Server, ln net.Listener) error {
	err := server.Serve(ln)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving on %s: %w", server.Addr, err)
	}
	return nil
}

func shutdown(ctxShutdown context.Context, logger zerolog.Logger, servers []*http.Server, errShutdown chan error) {
	<-ctxShutdown.Done()
	logger.Info().Msg("shutting down servers")

	ctxTimeout, stop := context.WithTimeout(context.Background(), TIMEOUT)
	defer stop()

	var errs []error
	for _, server := range servers {
		switch err := server.Shutdown(ctxTimeout); {
		case err == nil:
		case errors.Is(err, context.DeadlineExceeded):
			errs = append(errs, fmt.Errorf("forcing close of %s", server.Addr))
			server.Close()
		default:
			errs = append(errs, fmt.Errorf("shutting down %s: %w", server.Addr, err))
		}
	}
	errShutdown <- errors.Join(errs...)
}

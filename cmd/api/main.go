package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/carebridge/clinic-scheduling-ai/internal/api/router"
	"github.com/carebridge/clinic-scheduling-ai/internal/availability"
	"github.com/carebridge/clinic-scheduling-ai/internal/booking"
	appconfig "github.com/carebridge/clinic-scheduling-ai/internal/config"
	"github.com/carebridge/clinic-scheduling-ai/internal/conversation"
	"github.com/carebridge/clinic-scheduling-ai/internal/http/handlers"
	"github.com/carebridge/clinic-scheduling-ai/internal/observability/metrics"
	"github.com/carebridge/clinic-scheduling-ai/internal/schedule"
	"github.com/carebridge/clinic-scheduling-ai/pkg/logging"
)

func main() {
	// Local development convenience; a missing .env is not an error.
	_ = godotenv.Load()

	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting clinic scheduling API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"schedule_path", cfg.SchedulePath,
	)

	store, err := schedule.NewStore(cfg.SchedulePath, logger)
	if err != nil {
		logger.Error("failed to load schedule store", "error", err)
		os.Exit(1)
	}

	metricsHandler, schedulingMetrics := setupSchedulingMetrics()

	catalog := schedule.DefaultCatalog()
	engine := availability.NewEngine(store, catalog, cfg.SlotIntervalMinutes)
	transactor := booking.NewTransactor(store, catalog, logger, schedulingMetrics)

	sessions := conversation.NewRegistry(cfg.SessionTTL, logger, schedulingMetrics)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if cfg.SessionReapInterval > 0 {
		sessions.StartReaper(ctx, cfg.SessionReapInterval)
	}

	var transcript conversation.TranscriptStore
	if client := connectRedis(ctx, cfg, logger); client != nil {
		defer client.Close()
		transcript = conversation.NewRedisTranscriptStore(client)
		logger.Info("transcript store enabled", "addr", cfg.RedisAddr)
	}

	orchestrator := conversation.NewOrchestrator(
		engine,
		transactor,
		sessions,
		transcript,
		conversation.DefaultFAQ(),
		logger,
		schedulingMetrics,
	).WithMaxSlots(cfg.MaxSuggestedSlots)

	r := router.New(&router.Config{
		Logger:              logger,
		ConversationHandler: conversation.NewHandler(orchestrator, logger),
		AvailabilityHandler: handlers.NewAvailabilityHandler(engine, logger, schedulingMetrics),
		BookingHandler:      handlers.NewBookingHandler(transactor, logger),
		MetricsHandler:      metricsHandler,
		CORSAllowedOrigins:  cfg.CORSAllowedOrigins,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// setupSchedulingMetrics creates the process-local Prometheus registry and the
// scheduling instrumentation bound to it.
func setupSchedulingMetrics() (http.Handler, *metrics.SchedulingMetrics) {
	promReg := prometheus.NewRegistry()
	promReg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewSchedulingMetrics(promReg)
	return promhttp.HandlerFor(promReg, promhttp.HandlerOpts{}), m
}

// connectRedis dials Redis when configured. Returns nil when no address is set
// or the server is unreachable; transcripts are optional.
func connectRedis(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}
	opts := &redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}
	if cfg.RedisTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unreachable, transcripts disabled", "addr", cfg.RedisAddr, "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

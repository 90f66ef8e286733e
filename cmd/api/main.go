package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/scratchieapp/booking-agent/internal/activity"
	"github.com/scratchieapp/booking-agent/internal/api/router"
	"github.com/scratchieapp/booking-agent/internal/appointments"
	"github.com/scratchieapp/booking-agent/internal/booking"
	"github.com/scratchieapp/booking-agent/internal/calls"
	appconfig "github.com/scratchieapp/booking-agent/internal/config"
	"github.com/scratchieapp/booking-agent/internal/notify"
	"github.com/scratchieapp/booking-agent/internal/observability/metrics"
	"github.com/scratchieapp/booking-agent/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting booking-agent API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	pool := connectPostgresPool(ctx, cfg.DatabaseURL, logger)

	var store booking.WorkflowStore
	var activityLog booking.ActivityLogger
	var appointmentRepo booking.AppointmentCreator
	if pool != nil {
		defer pool.Close()
		store = booking.NewPostgresStore(pool)
		activityLog = activity.NewLog(pool)
		appointmentRepo = appointments.NewRepository(pool)
	} else {
		// Local runs without a database still serve calls; state is lost on
		// restart.
		logger.Warn("no DATABASE_URL configured, using in-memory workflow store")
		store = booking.NewMemoryStore()
	}

	bookingMetrics, metricsHandler := setupMetrics()

	saga := booking.NewSaga(booking.SagaConfig{
		Store:        store,
		Activity:     activityLog,
		Appointments: appointmentRepo,
		Alerter:      setupAlerter(cfg, logger),
		Metrics:      bookingMetrics,
		Logger:       logger,
	})

	handlerCfg := booking.HandlerConfig{
		Saga:    saga,
		Store:   store,
		Metrics: bookingMetrics,
		Logger:  logger,
	}
	if deduper := setupDeduper(ctx, cfg, logger); deduper != nil {
		handlerCfg.Dedupe = deduper
	}
	bookingHandler := booking.NewHandler(handlerCfg)

	r := router.New(&router.Config{
		Logger:             logger,
		BookingHandler:     bookingHandler,
		MetricsHandler:     metricsHandler,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		AdminAuthSecret:    cfg.AdminJWTSecret,
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

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// connectPostgresPool returns a pgx pool, or nil when no URL is configured or
// the database is unreachable.
func connectPostgresPool(ctx context.Context, databaseURL string, logger *logging.Logger) *pgxpool.Pool {
	if databaseURL == "" {
		return nil
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		logger.Error("invalid DATABASE_URL", "error", err)
		return nil
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		logger.Warn("postgres not available", "error", err)
		pool.Close()
		return nil
	}
	logger.Info("connected to postgres")
	return pool
}

// setupMetrics registers the booking collectors on a dedicated registry and
// returns the /metrics handler alongside them.
func setupMetrics() (*metrics.BookingMetrics, http.Handler) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	bookingMetrics := metrics.NewBookingMetrics(registry)
	return bookingMetrics, promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// setupDeduper wires the Redis tool-call deduper when Redis is configured and
// reachable. Dedupe is an optimization, so an unreachable Redis downgrades to
// running without it.
func setupDeduper(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) *calls.Deduper {
	if cfg.RedisAddr == "" {
		return nil
	}
	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available, tool-call dedupe disabled", "error", err)
		_ = client.Close()
		return nil
	}
	logger.Info("tool-call dedupe enabled", "ttl", cfg.ToolCallDedupeTTL)
	return calls.NewDeduper(client, cfg.ToolCallDedupeTTL)
}

// setupAlerter wires the ops email side channel when SendGrid and a
// destination are configured.
func setupAlerter(cfg *appconfig.Config, logger *logging.Logger) booking.Alerter {
	sender := notify.NewSendGridSender(notify.SendGridConfig{
		APIKey:    cfg.SendGridAPIKey,
		FromEmail: cfg.AlertsFromEmail,
		FromName:  cfg.AlertsFromName,
	}, logger)
	if sender == nil {
		return nil
	}
	alerter := notify.NewOpsAlerter(sender, cfg.AlertsToEmail, logger)
	if alerter == nil {
		return nil
	}
	return alerter
}

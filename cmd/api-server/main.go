package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/consultorio-psicologia/booking-admin/internal/api"
	"github.com/consultorio-psicologia/booking-admin/internal/appointment"
	"github.com/consultorio-psicologia/booking-admin/internal/blocking"
	"github.com/consultorio-psicologia/booking-admin/internal/config"
	"github.com/consultorio-psicologia/booking-admin/internal/db"
	"github.com/consultorio-psicologia/booking-admin/internal/eventlog"
	"github.com/consultorio-psicologia/booking-admin/internal/integrations"
	"github.com/consultorio-psicologia/booking-admin/internal/logger"
	redisclient "github.com/consultorio-psicologia/booking-admin/internal/redis"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	log.Info("api-server starting up",
		zap.String("env", cfg.Env),
		zap.String("http_port", cfg.HTTPPort),
		zap.String("timezone", cfg.Timezone),
		zap.String("version", version))

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	if err == nil {
		err = db.EnsureSchema(pgCtx, pgPool)
	}
	cancelPg()
	if err != nil {
		log.Fatal("postgres connection error", zap.Error(err))
	}
	defer pgPool.Close()
	log.Info("connected to Postgres")

	// Connect Redis
	rdb, err := redisclient.NewRedisClient(rootCtx, cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		log.Fatal("redis connection error", zap.Error(err))
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Warn("error closing redis", zap.Error(err))
		}
	}()
	log.Info("connected to Redis")

	events := eventlog.NewRecorder(eventlog.NewPgStore(pgPool), log)

	blockingSvc := blocking.NewService(
		blocking.NewPgRepository(pgPool),
		redisclient.NewRedisLocker(rdb, cfg.LockTTL),
		events,
		log.Named("blocking"),
	)

	appointmentSvc := appointment.NewService(
		appointment.NewPgRepository(pgPool),
		integrations.NewCalendarClient(cfg.CalendarAPIURL, cfg.CalendarAPIKey, cfg.IntegrationTimeout),
		integrations.NewMailer(cfg.NotifyAPIURL, cfg.NotifyAPIKey, cfg.IntegrationTimeout),
		events,
		log.Named("appointment"),
		cfg.IntegrationTimeout,
	)

	router := api.NewRouter(api.RouterConfig{
		Appointments: appointmentSvc,
		Blocking:     blockingSvc,
		Logger:       log.Named("http"),
		HealthChecks: []api.HealthCheck{
			api.PostgresCheck(pgPool.Ping),
			api.RedisCheck(rdb),
		},
		Env:     cfg.Env,
		Version: version,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutting down api-server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}
}

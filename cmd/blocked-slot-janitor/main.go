package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/consultorio-psicologia/booking-admin/internal/blocking"
	"github.com/consultorio-psicologia/booking-admin/internal/config"
	"github.com/consultorio-psicologia/booking-admin/internal/db"
	"github.com/consultorio-psicologia/booking-admin/internal/eventlog"
	"github.com/consultorio-psicologia/booking-admin/internal/logger"
	redisclient "github.com/consultorio-psicologia/booking-admin/internal/redis"
)

// janitorLockKey keeps two janitors from purging at the same time.
const janitorLockKey = "janitor:blocked-slots"

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

	log.Info("blocked-slot janitor starting up",
		zap.String("env", cfg.Env),
		zap.Duration("interval", cfg.WorkerInterval),
		zap.Duration("retention", cfg.BlockedRetention))

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatal("postgres connection error", zap.Error(err))
	}
	defer pgPool.Close()
	log.Info("connected to Postgres")

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

	locker := redisclient.NewRedisLocker(rdb, cfg.LockTTL)
	svc := blocking.NewService(
		blocking.NewPgRepository(pgPool),
		locker,
		eventlog.NewRecorder(eventlog.NewPgStore(pgPool), log),
		log.Named("blocking"),
	)

	// Run once at startup
	runOnce(rootCtx, log, locker, svc, cfg)

	ticker := time.NewTicker(cfg.WorkerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			log.Info("shutdown signal received, stopping janitor")
			return
		case <-ticker.C:
			runOnce(rootCtx, log, locker, svc, cfg)
		}
	}
}

func runOnce(ctx context.Context, log *zap.Logger, locker redisclient.Locker, svc *blocking.Service, cfg config.Config) {
	start := time.Now()
	cutoff := blocking.RetentionCutoff(start, cfg.Location(), cfg.BlockedRetention)

	var purged int64
	err := locker.WithLock(ctx, janitorLockKey, func(ctx context.Context) error {
		n, err := svc.PurgeBefore(ctx, cutoff)
		purged = n
		return err
	})
	switch {
	case errors.Is(err, redisclient.ErrLockNotAcquired):
		log.Info("another janitor is running, skipping")
	case err != nil:
		log.Error("purge run error", zap.Error(err))
	default:
		log.Info("purge run complete",
			zap.String("cutoff", cutoff.Format("2006-01-02")),
			zap.Int64("purged", purged),
			zap.Duration("took", time.Since(start)))
	}
}

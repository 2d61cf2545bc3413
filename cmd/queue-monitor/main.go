package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/medportal/clinic-scheduling/internal/availability"
	"github.com/medportal/clinic-scheduling/internal/config"
	"github.com/medportal/clinic-scheduling/internal/db"
	"github.com/medportal/clinic-scheduling/internal/notify"
	redisclient "github.com/medportal/clinic-scheduling/internal/redis"
	"github.com/medportal/clinic-scheduling/internal/schedule"
)

// The queue monitor republishes per-doctor queue snapshots on a fixed tick so
// waiting-room displays can poll Redis instead of the database. Wait times
// are recomputed each tick; nothing persisted changes.

func main() {
	log := zerolog.New(os.Stderr).With().Timestamp().Str("service", "queue-monitor").Logger()
	log.Info().Msg("queue-monitor starting up")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load error")
	}

	log.Info().Str("env", cfg.Env).Dur("interval", cfg.QueueInterval).Msg("configured")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatal().Err(err).Msg("postgres connection error")
	}
	defer pgPool.Close()
	log.Info().Msg("connected to Postgres")

	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword, cfg.RedisPoolSize)
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection error")
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Warn().Err(err).Msg("error closing redis")
		}
	}()
	log.Info().Msg("connected to Redis")

	locker := redisclient.NewRedisDoctorLocker(rdb, cfg.LockTTL)
	scheduleRepo := schedule.NewPgRepository(pgPool)
	availRepo := availability.NewPgRepository(pgPool)
	availSvc := availability.NewService(availRepo, scheduleRepo, locker, log)
	registry := schedule.NewRegistry(scheduleRepo, scheduleRepo, availSvc, locker, notify.NopTrigger{}, schedule.RegistryConfig{
		WriteRetries: cfg.WriteRetries,
		WaitingAfter: cfg.WaitingAfter,
	}, log)

	mon := &monitor{
		registry: registry,
		rdb:      rdb,
		ttl:      3 * cfg.QueueInterval,
		log:      log,
	}

	// Run once at startup
	mon.runOnce(rootCtx)

	ticker := time.NewTicker(cfg.QueueInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			log.Info().Msg("shutdown signal received, stopping queue monitor")
			return
		case <-ticker.C:
			mon.runOnce(rootCtx)
		}
	}
}

type monitor struct {
	registry *schedule.Registry
	rdb      *redis.Client
	ttl      time.Duration
	log      zerolog.Logger
}

func (m *monitor) runOnce(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()
	today := time.Now().UTC()

	doctors, err := m.registry.ActiveDoctors(runCtx, today)
	if err != nil {
		m.log.Error().Err(err).Msg("list active doctors")
		return
	}

	published := 0
	for _, doctorID := range doctors {
		snap, err := m.registry.Snapshot(runCtx, doctorID, today, schedule.OrderByPriority)
		if err != nil {
			m.log.Warn().Err(err).Str("doctor_id", doctorID.String()).Msg("build queue snapshot")
			continue
		}

		payload, err := json.Marshal(snap)
		if err != nil {
			m.log.Error().Err(err).Str("doctor_id", doctorID.String()).Msg("marshal queue snapshot")
			continue
		}

		key := fmt.Sprintf("queue:doctor:%s", doctorID)
		if err := m.rdb.Set(runCtx, key, payload, m.ttl).Err(); err != nil {
			m.log.Warn().Err(err).Str("doctor_id", doctorID.String()).Msg("publish queue snapshot")
			continue
		}
		published++
	}

	m.log.Info().
		Int("doctors", len(doctors)).
		Int("published", published).
		Dur("took", time.Since(start)).
		Msg("queue refresh complete")
}

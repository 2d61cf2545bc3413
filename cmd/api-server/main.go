package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/medportal/clinic-scheduling/internal/api"
	"github.com/medportal/clinic-scheduling/internal/availability"
	"github.com/medportal/clinic-scheduling/internal/config"
	"github.com/medportal/clinic-scheduling/internal/db"
	"github.com/medportal/clinic-scheduling/internal/notify"
	redisclient "github.com/medportal/clinic-scheduling/internal/redis"
	"github.com/medportal/clinic-scheduling/internal/schedule"
)

const version = "0.3.0"

func main() {
	log := zerolog.New(os.Stderr).With().Timestamp().Str("service", "api-server").Logger()
	log.Info().Msg("api-server starting up")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load error")
	}

	log.Info().Str("env", cfg.Env).Str("http_port", cfg.HTTPPort).Msg("configured")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatal().Err(err).Msg("postgres connection error")
	}
	defer pgPool.Close()
	log.Info().Msg("connected to Postgres")

	// Connect Redis
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

	// Dev runs have no messaging consumer; log events instead of publishing.
	var notifier notify.Trigger = notify.NewRedisTrigger(rdb, log)
	if cfg.Env == "dev" {
		notifier = notify.NewLogTrigger(log)
	}

	scheduleRepo := schedule.NewPgRepository(pgPool)
	availRepo := availability.NewPgRepository(pgPool)

	availSvc := availability.NewService(availRepo, scheduleRepo, locker, log)
	registry := schedule.NewRegistry(scheduleRepo, scheduleRepo, availSvc, locker, notifier, schedule.RegistryConfig{
		TrackRooms:   true,
		WriteRetries: cfg.WriteRetries,
		WaitingAfter: cfg.WaitingAfter,
	}, log)
	calendar := schedule.NewCalendar(scheduleRepo, availSvc)

	router := api.NewRouter(api.RouterConfig{
		Registry:     registry,
		Calendar:     calendar,
		Availability: availSvc,
		PgPool:       pgPool,
		Redis:        rdb,
		Log:          log,
		Env:          cfg.Env,
		Version:      version,
	})

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server error")
		}
	}()

	<-rootCtx.Done()
	log.Info().Msg("shutting down api-server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/opd-desk/internal/config"
	"github.com/jwalitptl/opd-desk/internal/email"
	"github.com/jwalitptl/opd-desk/internal/repository/postgres"
	"github.com/jwalitptl/opd-desk/internal/service/followup"
	"github.com/jwalitptl/opd-desk/internal/worker"
	"github.com/jwalitptl/opd-desk/pkg/logger"
	"github.com/jwalitptl/opd-desk/pkg/metrics"
)

const healthAddr = ":8081"

func setupHealthCheck(ready func(ctx context.Context) error) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		if err := ready(r.Context()); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: healthAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("health check server failed")
			os.Exit(1)
		}
	}()
	return srv
}

func newLocker(cfg config.RedisConfig) followup.Locker {
	if cfg.URL == "" {
		log.Warn().Msg("redis.url not set, digest claims are held in memory and do not survive a restart")
		return followup.NewMemoryLocker()
	}
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid redis.url")
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if cfg.MaxRetries > 0 {
		opts.MaxRetries = cfg.MaxRetries
	}
	return followup.NewRedisLocker(redis.NewClient(opts))
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	logger.NewLogger(&logger.Config{
		Level:      logger.ParseLevel(cfg.Log.Level),
		TimeFormat: time.RFC3339,
		Output:     os.Stdout,
		JSON:       cfg.Log.JSON,
	}).SetGlobal()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	mailer, err := email.NewSMTPService(cfg.SMTP)
	if err != nil {
		log.Fatal().Err(err).Msg("follow-up digests need smtp settings")
	}

	digests := followup.NewService(
		postgres.NewVisitRepository(db),
		postgres.NewUserRepository(db),
		postgres.NewClinicRepository(db),
		mailer,
		newLocker(cfg.Redis),
		metrics.Default(),
	)

	health := setupHealthCheck(db.PingContext)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = health.Shutdown(shutdownCtx)
	}()

	log.Info().Dur("interval", cfg.Worker.Interval).Msg("follow-up digest worker started")
	worker.NewFollowUpDigestWorker(digests, cfg.Worker.Interval).Start(ctx)
	log.Info().Msg("worker stopped")
}

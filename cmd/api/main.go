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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/opd-desk/internal/config"
	authhandler "github.com/jwalitptl/opd-desk/internal/handler/auth"
	clinichandler "github.com/jwalitptl/opd-desk/internal/handler/clinic"
	"github.com/jwalitptl/opd-desk/internal/handler/health"
	invoicehandler "github.com/jwalitptl/opd-desk/internal/handler/invoice"
	opdhandler "github.com/jwalitptl/opd-desk/internal/handler/opd"
	optionhandler "github.com/jwalitptl/opd-desk/internal/handler/option"
	patienthandler "github.com/jwalitptl/opd-desk/internal/handler/patient"
	permissionhandler "github.com/jwalitptl/opd-desk/internal/handler/permission"
	userhandler "github.com/jwalitptl/opd-desk/internal/handler/user"
	visithandler "github.com/jwalitptl/opd-desk/internal/handler/visit"
	"github.com/jwalitptl/opd-desk/internal/middleware"
	"github.com/jwalitptl/opd-desk/internal/repository/postgres"
	"github.com/jwalitptl/opd-desk/internal/router"
	authservice "github.com/jwalitptl/opd-desk/internal/service/auth"
	clinicservice "github.com/jwalitptl/opd-desk/internal/service/clinic"
	invoiceservice "github.com/jwalitptl/opd-desk/internal/service/invoice"
	opdservice "github.com/jwalitptl/opd-desk/internal/service/opd"
	optionservice "github.com/jwalitptl/opd-desk/internal/service/option"
	patientservice "github.com/jwalitptl/opd-desk/internal/service/patient"
	permissionservice "github.com/jwalitptl/opd-desk/internal/service/permission"
	userservice "github.com/jwalitptl/opd-desk/internal/service/user"
	visitservice "github.com/jwalitptl/opd-desk/internal/service/visit"
	"github.com/jwalitptl/opd-desk/pkg/auth"
	"github.com/jwalitptl/opd-desk/pkg/logger"
	"github.com/jwalitptl/opd-desk/pkg/messaging"
	redisbroker "github.com/jwalitptl/opd-desk/pkg/messaging/redis"
	"github.com/jwalitptl/opd-desk/pkg/metrics"
	"github.com/jwalitptl/opd-desk/pkg/security"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
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

	broker, checks := newBroker(ctx, cfg.Redis)
	defer broker.Close()

	m := metrics.Default()

	// Repositories
	userRepo := postgres.NewUserRepository(db)
	clinicRepo := postgres.NewClinicRepository(db)
	patientRepo := postgres.NewPatientRepository(db)
	appointmentRepo := postgres.NewAppointmentRepository(db)
	visitRepo := postgres.NewVisitRepository(db)
	optionRepo := postgres.NewOptionRepository(db)
	invoiceRepo := postgres.NewInvoiceRepository(db)

	// Services
	jwtSvc := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.Expiry())
	hasher := security.NewBcryptHasher(0)
	authSvc := authservice.NewService(userRepo, jwtSvc, hasher)
	userSvc := userservice.NewService(userRepo, clinicRepo, hasher)
	clinicSvc := clinicservice.NewService(clinicRepo, userRepo, userSvc)
	invoiceSvc := invoiceservice.NewService(invoiceRepo, patientRepo, visitRepo, m)
	patientSvc := patientservice.NewService(patientRepo, visitRepo)
	opdSvc := opdservice.NewService(appointmentRepo, patientRepo, visitRepo, m)
	visitSvc := visitservice.NewService(visitRepo, patientRepo, appointmentRepo, m)
	optionSvc := optionservice.NewService(optionRepo, broker, optionservice.Config{
		CacheTTL:        cfg.Options.CacheTTL,
		CleanupInterval: cfg.Options.CleanupInterval,
	}, m)

	go func() {
		if err := optionSvc.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("option invalidation listener stopped")
		}
	}()

	r := router.NewRouter(
		middleware.NewAuthMiddleware(jwtSvc, userRepo),
		router.Handlers{
			Health:     health.NewHandler(db, prometheus.DefaultGatherer, checks...),
			Auth:       authhandler.NewHandler(authSvc),
			Patient:    patienthandler.NewHandler(patientSvc),
			OPD:        opdhandler.NewHandler(opdSvc),
			Visit:      visithandler.NewHandler(visitSvc, authSvc, clinicRepo),
			Option:     optionhandler.NewHandler(optionSvc),
			User:       userhandler.NewHandler(userSvc),
			Permission: permissionhandler.NewHandler(permissionservice.NewService(userRepo, clinicRepo)),
			Clinic:     clinichandler.NewHandler(clinicSvc),
			Invoice:    invoicehandler.NewHandler(invoiceSvc),
		},
		m,
		router.RouterConfig{
			Mode:      cfg.Server.Mode,
			Timeout:   time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
			RateLimit: middleware.RateLimiterConfig{RPS: cfg.RateLimit.RPS, Burst: cfg.RateLimit.Burst},
			CORSConfig: middleware.CORSConfig{
				AllowOrigins: cfg.CORS.AllowedOrigins,
				MaxAge:       cfg.CORS.MaxAge,
			},
		},
	)
	r.Setup()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}

// newBroker connects to redis when configured. A single instance runs fine
// on the in-process broker.
func newBroker(ctx context.Context, cfg config.RedisConfig) (messaging.Broker, []health.Check) {
	if cfg.URL == "" {
		log.Warn().Msg("redis.url not set, option cache invalidation stays in-process")
		return messaging.NewMemoryBroker(), nil
	}

	broker, err := redisbroker.NewRedisBroker(ctx, redisbroker.Config{
		URL:          cfg.URL,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
		PoolSize:     cfg.PoolSize,
	}, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	return broker, []health.Check{{
		Name: "redis",
		Ping: func(ctx context.Context) error { return broker.Client().Ping(ctx).Err() },
	}}
}

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
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/clinic-api/internal/bootstrap"
	"github.com/jwalitptl/clinic-api/internal/config"
	accounthandler "github.com/jwalitptl/clinic-api/internal/handler/account"
	audithandler "github.com/jwalitptl/clinic-api/internal/handler/audit"
	authhandler "github.com/jwalitptl/clinic-api/internal/handler/auth"
	consultationhandler "github.com/jwalitptl/clinic-api/internal/handler/consultation"
	doctorhandler "github.com/jwalitptl/clinic-api/internal/handler/doctor"
	"github.com/jwalitptl/clinic-api/internal/handler/health"
	patienthandler "github.com/jwalitptl/clinic-api/internal/handler/patient"
	prometheushandler "github.com/jwalitptl/clinic-api/internal/handler/prometheus"
	"github.com/jwalitptl/clinic-api/internal/middleware"
	"github.com/jwalitptl/clinic-api/internal/router"
	accountService "github.com/jwalitptl/clinic-api/internal/service/account"
	auditService "github.com/jwalitptl/clinic-api/internal/service/audit"
	authService "github.com/jwalitptl/clinic-api/internal/service/auth"
	bookingService "github.com/jwalitptl/clinic-api/internal/service/booking"
	consultationService "github.com/jwalitptl/clinic-api/internal/service/consultation"
	eventService "github.com/jwalitptl/clinic-api/internal/service/event"
	patientService "github.com/jwalitptl/clinic-api/internal/service/patient"
	scheduleService "github.com/jwalitptl/clinic-api/internal/service/schedule"
	"github.com/jwalitptl/clinic-api/pkg/auth"
	"github.com/jwalitptl/clinic-api/pkg/metrics"
	"github.com/jwalitptl/clinic-api/pkg/monitoring"
	"github.com/jwalitptl/clinic-api/pkg/security"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	logger := bootstrap.NewLogger(cfg.Log, os.Stdout)
	logger.SetGlobal()

	if cfg.JWT.Secret == "" {
		log.Fatal().Msg("jwt.secret must be set")
	}

	if err := monitoring.InitSentry(monitoring.SentryConfig{
		DSN:              cfg.Sentry.DSN,
		Environment:      cfg.Sentry.Environment,
		TracesSampleRate: cfg.Sentry.TracesSampleRate,
	}); err != nil {
		log.Fatal().Err(err).Msg("failed to initialize sentry")
	}
	defer monitoring.Flush(2 * time.Second)

	// Initialize storage
	store, closer, err := bootstrap.OpenStore(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open store")
	}
	defer closer.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetrics(registry, cfg.Metrics.Namespace)

	// Initialize services
	hasher := security.NewBcryptHasher(bcrypt.DefaultCost)
	if created, err := bootstrap.EnsureAdmin(context.Background(), store, hasher, cfg.Admin); err != nil {
		log.Fatal().Err(err).Msg("failed to seed administrator")
	} else if created {
		log.Info().Str("username", cfg.Admin.Username).Msg("administrator account created")
	}

	jwtSvc := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Expiry())
	events := eventService.NewService()

	auditSvc := auditService.NewService(store.Audit())
	zl := logger.Zerolog()
	auditor := auditService.NewAuditLogger(auditSvc, &zl, true)

	authSvc := authService.NewService(store, jwtSvc, hasher, auditor)
	accountSvc := accountService.NewService(store, hasher, auditor)
	scheduleSvc := scheduleService.NewService(store, hasher, events, auditor, m, logger, scheduleService.Config{
		SlotDuration: time.Duration(cfg.Schedule.SlotMinutes) * time.Minute,
		CacheTTL:     cfg.Schedule.CacheTTL,
	})
	patientSvc := patientService.NewService(store, events, auditor)
	bookingSvc := bookingService.NewService(store, events, auditor, m, logger, cfg.Schedule.BookingAttempts)
	consultationSvc := consultationService.NewService(store, events, auditor, m)

	// Initialize handlers
	handlers := router.Handlers{
		Auth:         authhandler.NewHandler(authSvc),
		Account:      accounthandler.NewHandler(accountSvc),
		Audit:        audithandler.NewHandler(auditSvc),
		Doctor:       doctorhandler.NewHandler(scheduleSvc),
		Patient:      patienthandler.NewHandler(patientSvc),
		Consultation: consultationhandler.NewHandler(bookingSvc, consultationSvc),
		Health:       health.NewHandler(store),
	}
	if cfg.Metrics.Enabled {
		handlers.Metrics = prometheushandler.New(registry, cfg.Metrics.Namespace)
	}

	corsConfig := middleware.DefaultCORSConfig()
	if len(cfg.Server.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.Server.AllowedOrigins
	}

	r, err := router.NewRouter(middleware.NewAuthMiddleware(authSvc), handlers, router.RouterConfig{
		Mode:        cfg.Server.Mode,
		RateLimit:   rate.Limit(cfg.Server.RateLimit),
		RateBurst:   cfg.Server.Burst,
		Timeout:     cfg.Server.Timeout(),
		CORSConfig:  corsConfig,
		MetricsPath: cfg.Metrics.Path,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create router")
	}
	r.Setup()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           r.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Nothing outside this process can read the memory store's outbox.
	workersCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()
	if cfg.Database.Driver == "memory" {
		broker, err := bootstrap.NewBroker(cfg, logger)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create broker")
		}
		defer broker.Close()
		go func() {
			if err := bootstrap.RunWorkers(workersCtx, cfg, store, broker, logger, m); err != nil {
				log.Error().Err(err).Msg("in-process workers stopped")
			}
		}()
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Str("store", cfg.Database.Driver).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}
	stopWorkers()
	auditor.Wait()

	log.Info().Msg("server exited")
}

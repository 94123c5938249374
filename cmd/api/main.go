package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/cache"
	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/config"
	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/database"
	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/handlers"
	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/identity"
	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/jobs"
	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/log"
	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/metrics"
	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/notify"
	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/ratelimit"
	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/repository"
	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/server"
	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/service"
	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.NewWithLevel(cfg.Environment, cfg.Logging.Level)

	ctx := context.Background()

	if cfg.Postgres.MigrateOnStart {
		if err := database.Migrate(cfg.Postgres.DSN, logger); err != nil {
			logger.Fatal().Err(err).Msg("failed to migrate database")
		}
	}

	dbPool, err := database.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect postgres")
	}

	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect redis")
	}

	objectStore, err := storage.NewObjectStore(cfg.Storage)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init object store")
	}
	if err := objectStore.EnsureBuckets(ctx); err != nil {
		logger.Warn().Err(err).Msg("ensure buckets failed")
	}

	profiles := repository.NewProfileRepository(dbPool)
	eventsRepo := repository.NewSecurityEventRepository(dbPool)
	verificationsRepo := repository.NewVerificationRepository(dbPool)
	reportsRepo := repository.NewReportRepository(dbPool)
	auditsRepo := repository.NewAuditRepository(dbPool)
	twoFactorRepo := repository.NewTwoFactorRepository(dbPool)

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)
	notifier := notify.NewStreamNotifier(redisClient, cfg.Redis.NotificationStream)

	securityLog := service.NewSecurityLogService(eventsRepo, profiles, notifier, m, cfg.Security, logger)
	twoFactor := service.NewTwoFactorService(twoFactorRepo, cfg.TwoFactor, logger)
	gate := service.NewAccessGate(newVerifier(cfg.Identity), profiles, twoFactor, securityLog, logger)
	verifications := service.NewVerificationService(
		verificationsRepo,
		profiles,
		notifier,
		m,
		cfg.Security.MinRejectionNotes,
		cfg.Notifications.AppURL,
		logger,
	)
	reports := service.NewReportService(reportsRepo, logger)
	audits := service.NewAuditService(auditsRepo, logger)

	handlerSet := handlers.NewHandlerSet(handlers.Deps{
		Log:           logger,
		Environment:   cfg.Environment,
		Gate:          gate,
		SecurityLog:   securityLog,
		TwoFactor:     twoFactor,
		Verifications: verifications,
		Documents:     service.NewDocumentService(objectStore, cfg.Storage.MaxDocumentBytes, logger),
		Reports:       reports,
		Audits:        audits,
		Admin:         service.NewAdminService(profiles, verificationsRepo, reportsRepo, securityLog, logger),
		LoginLimiter:  ratelimit.New(redisClient, cfg.Security.RateLimitCount, cfg.Security.RateLimitWindow, ""),
		StepUpLimiter: ratelimit.New(redisClient, cfg.Security.RateLimitCount, cfg.Security.RateLimitWindow, ""),
		Checks: map[string]handlers.HealthCheck{
			"postgres": dbPool.Ping,
			"redis": func(ctx context.Context) error {
				return redisClient.Ping(ctx).Err()
			},
		},
	})
	httpServer, err := server.NewHTTPServer(cfg, logger, m, registry, handlerSet)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build http server")
	}

	scheduler := jobs.NewScheduler(audits, securityLog, profiles, notifier, cfg.Jobs, logger)
	if err := scheduler.Start(); err != nil {
		logger.Error().Err(err).Msg("scheduler start failed")
	}

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	waitForShutdown(logger, httpServer, scheduler, securityLog, dbPool, redisClient)
}

func newVerifier(cfg config.IdentityConfig) identity.Verifier {
	if cfg.JWTSecret != "" {
		return identity.NewJWTVerifier(cfg.JWTSecret)
	}
	return identity.NewRemoteVerifier(cfg.ProviderURL, cfg.ServiceKey, cfg.Timeout)
}

func waitForShutdown(
	logger zerolog.Logger,
	srv *server.HTTPServer,
	scheduler *jobs.Scheduler,
	securityLog *service.SecurityLogService,
	db *pgxpool.Pool,
	redisClient *redis.Client,
) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	select {
	case <-scheduler.Stop().Done():
	case <-shutdownCtx.Done():
		logger.Warn().Msg("scheduled jobs still running at shutdown")
	}

	// Alerts enqueue onto redis, so wait for them before closing it.
	securityLog.Drain()

	db.Close()
	if err := redisClient.Close(); err != nil {
		logger.Error().Err(err).Msg("redis close error")
	}

	logger.Info().Msg("server exited cleanly")
}

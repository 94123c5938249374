package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/cache"
	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/config"
	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/log"
	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/metrics"
	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/notify"
	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/queue"
	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/tasks"
)

func main() {
	cfg, err := config.LoadWorker()
	if err != nil {
		panic(err)
	}

	logger := log.NewWithLevel(cfg.Environment, cfg.Logging.Level)

	client, err := cache.NewRedisClient(context.Background(), cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connection failed")
	}
	defer client.Close()

	var sender notify.EmailSender
	switch cfg.Notifications.Provider {
	case "sendgrid":
		sender = notify.NewSendGridSender(cfg.Notifications.SendGridAPIKey, cfg.Notifications.FromName, cfg.Notifications.FromAddress)
	default:
		sender = notify.NewLogSender(logger)
	}

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	processor := tasks.NewProcessor(sender, m, logger)
	consumer := queue.NewConsumer(client, queue.Options{
		Stream:        cfg.Redis.NotificationStream,
		Group:         cfg.Redis.ConsumerGroup,
		Consumer:      cfg.Redis.ConsumerName,
		ClaimInterval: cfg.Redis.ClaimInterval,
		MaxDeliveries: cfg.Redis.MaxDeliveries,
	}, logger, processor)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metricsSrv := &http.Server{
		Addr:              cfg.Worker.MetricsAddr,
		Handler:           metrics.Handler(registry),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics server failed")
		}
	}()

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Fatal().Err(err).Msg("consumer stopped unexpectedly")
		}
	}()

	logger.Info().
		Str("stream", cfg.Redis.NotificationStream).
		Str("provider", cfg.Notifications.Provider).
		Msg("notification worker started")

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = metricsSrv.Shutdown(shutdownCtx)

	select {
	case <-done:
	case <-shutdownCtx.Done():
		logger.Warn().Msg("consumer did not stop in time")
	}
}

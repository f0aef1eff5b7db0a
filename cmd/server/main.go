// Package main provides the API server entry point for the portfolio reconciler.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/portfolio-reconciler/internal/api"
	"github.com/portfolio-reconciler/internal/circuitbreaker"
	"github.com/portfolio-reconciler/internal/config"
	"github.com/portfolio-reconciler/internal/logging"
	"github.com/portfolio-reconciler/internal/retry"
	"github.com/portfolio-reconciler/internal/service"
	"github.com/portfolio-reconciler/internal/storage"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize structured logging
	logging.InitGlobalLogger(logging.ParseLogLevel(cfg.Logging.Level), logging.ParseLogFormat(cfg.Logging.Format))
	logger := logging.GetGlobalLogger()
	defer func() { _ = logger.Sync() }()

	logger.WithFields(map[string]interface{}{
		"level":  cfg.Logging.Level,
		"format": cfg.Logging.Format,
	}).Info("Structured logging initialized")

	ctx := context.Background()

	logger.Info("Connecting to databases...")

	postgres, err := storage.NewPostgresDB(ctx, &cfg.Database.Postgres)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Postgres")
	}
	defer postgres.Close()

	healthChecks := []api.HealthCheck{{Name: "postgres", Check: postgres.Ping}}

	var cache service.PortfolioCache
	if cfg.Cache.Enabled {
		redis, err := storage.NewRedisCache(ctx, &cfg.Database.Redis)
		if err != nil {
			logger.WithError(err).Fatal("Failed to connect to Redis")
		}
		defer redis.Close()

		cache = storage.NewPortfolioCache(redis, cfg.Cache.TTL)
		healthChecks = append(healthChecks, api.HealthCheck{Name: "redis", Check: redis.Ping})
	} else {
		logger.Warn("Portfolio cache disabled")
	}

	logger.Info("Database connections established")

	snapshotRepo := storage.NewSnapshotRepository(postgres)

	retryConfig := retry.DefaultRetryConfig()
	retryConfig.MaxAttempts = cfg.Source.RetryAttempts
	retryConfig.InitialDelay = cfg.Source.RetryInitialDelay
	retryConfig.MaxDelay = cfg.Source.RetryMaxDelay

	breaker := circuitbreaker.NewCircuitBreaker(&circuitbreaker.Config{
		Name:             "snapshot-source",
		MaxFailures:      cfg.Source.BreakerMaxFailures,
		Timeout:          cfg.Source.BreakerResetTimeout,
		HalfOpenMaxCalls: 1,
	})

	portfolioService := service.NewPortfolioService(snapshotRepo, cache, &service.PortfolioServiceConfig{
		Options: service.Options{GrowthMultiplier: cfg.Engine.GrowthMultiplier},
		Retry:   retryConfig,
		Breaker: breaker,
		Logger:  logger,
	})

	logger.WithField("growth_multiplier", cfg.Engine.GrowthMultiplier.String()).Info("Services initialized")

	server := api.NewServer(&api.ServerConfig{
		Host:              cfg.Server.Host,
		Port:              cfg.Server.Port,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		MaxBodyBytes:      cfg.Server.MaxBodyBytes,
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		Burst:             cfg.RateLimit.Burst,
	}, portfolioService, logger, healthChecks...)

	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
		return
	}

	logger.Info("Server exited")
}

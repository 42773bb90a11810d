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

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/prohmpiriya/community-portal/backend-portal/internal/clock"
	"github.com/prohmpiriya/community-portal/backend-portal/internal/di"
	"github.com/prohmpiriya/community-portal/backend-portal/internal/service"
	"github.com/prohmpiriya/community-portal/backend-portal/migrations"
	"github.com/prohmpiriya/community-portal/pkg/config"
	"github.com/prohmpiriya/community-portal/pkg/database"
	"github.com/prohmpiriya/community-portal/pkg/kafka"
	"github.com/prohmpiriya/community-portal/pkg/logger"
	"github.com/prohmpiriya/community-portal/pkg/middleware"
	"github.com/prohmpiriya/community-portal/pkg/redis"
	"github.com/prohmpiriya/community-portal/pkg/telemetry"
)

const (
	startupTimeout  = 30 * time.Second
	shutdownTimeout = 10 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(&logger.Config{
		Level:       cfg.App.LogLevel,
		ServiceName: cfg.App.Name,
		Development: cfg.IsDevelopment(),
		OutputPath:  "stdout",
	}); err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg); err != nil {
		logger.Fatal("portal stopped with error", zap.Error(err))
	}
}

func run(cfg *config.Config) error {
	startupCtx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	if _, err := telemetry.Init(startupCtx, &telemetry.Config{
		Enabled:        cfg.OTel.Enabled,
		ServiceName:    cfg.OTel.ServiceName,
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Environment,
		CollectorAddr:  cfg.OTel.CollectorAddr,
		SampleRatio:    cfg.OTel.SampleRatio,
	}); err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := telemetry.Shutdown(ctx); err != nil {
			logger.Warn("telemetry shutdown", zap.Error(err))
		}
	}()

	metrics, err := telemetry.NewPortalMetrics()
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}

	exportLoc, err := cfg.Portal.ExportLocation()
	if err != nil {
		return fmt.Errorf("export timezone: %w", err)
	}

	containerCfg := &di.ContainerConfig{
		NotificationTopic: cfg.Portal.NotificationTopic,
		Clock:             clock.NewSystem(),
		Logger:            logger.Get(),
		Metrics:           metrics,
		ServiceConfig: service.Config{
			MaxTeamMembers:     cfg.Portal.MaxTeamMembers,
			MaxNotesLength:     cfg.Portal.MaxNotesLength,
			TempPasswordLength: cfg.Portal.TempPasswordLength,
			CancellationMarker: cfg.Portal.CancellationMarkerText,
			ExportLocation:     exportLoc,
		},
		JWT: &middleware.JWTConfig{
			Secret: cfg.JWT.Secret,
			Issuer: cfg.JWT.Issuer,
		},
		RateLimit:   middleware.DefaultRateLimitConfig(),
		CORSOrigins: cfg.Server.CORSOrigins,
	}
	containerCfg.RateLimit.RequestsPerSecond = cfg.Portal.RegisterRatePerSecond
	containerCfg.RateLimit.BurstSize = cfg.Portal.RegisterRateBurst

	// Storage
	if cfg.Database.Driver == config.DriverPostgres {
		db, err := database.NewPostgres(startupCtx, database.ConfigFrom(cfg.Database))
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer db.Close()

		if cfg.Database.AutoMigrate {
			if err := migrations.Apply(startupCtx, db.Pool()); err != nil {
				return fmt.Errorf("apply migrations: %w", err)
			}
		}
		containerCfg.DB = db
	} else {
		logger.Warn("using in-memory store, data will not survive a restart")
	}

	// Redis backs the shared registration rate limit
	if cfg.Redis.Enabled {
		rdb, err := redis.NewClient(startupCtx, &redis.Config{
			Host:         cfg.Redis.Host,
			Port:         cfg.Redis.Port,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
			MaxRetries:   3,
		})
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer func() { _ = rdb.Close() }()
		containerCfg.Redis = rdb
	}

	// Kafka carries cancellation notices
	if cfg.Kafka.Enabled {
		producer, err := kafka.NewProducer(startupCtx, kafka.ProducerConfig{
			Brokers:        cfg.Kafka.Brokers,
			ClientID:       cfg.Kafka.ClientID,
			DefaultTopic:   cfg.Portal.NotificationTopic,
			ProduceTimeout: 5 * time.Second,
		})
		if err != nil {
			return fmt.Errorf("connect kafka: %w", err)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := producer.Close(ctx); err != nil {
				logger.Warn("kafka producer close", zap.Error(err))
			}
		}()
		containerCfg.Publisher = producer
	}

	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	container := di.NewContainer(containerCfg)

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      container.Router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	srvErr := make(chan error, 1)
	go func() {
		logger.Info("portal listening", zap.String("addr", server.Addr), zap.String("driver", cfg.Database.Driver))
		srvErr <- server.ListenAndServe()
	}()

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
	case <-stopCtx.Done():
		logger.Info("shutdown signal received, stopping server")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

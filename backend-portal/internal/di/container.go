package di

import (
	"github.com/gin-gonic/gin"

	"github.com/prohmpiriya/community-portal/backend-portal/internal/clock"
	"github.com/prohmpiriya/community-portal/backend-portal/internal/handler"
	"github.com/prohmpiriya/community-portal/backend-portal/internal/repository"
	"github.com/prohmpiriya/community-portal/backend-portal/internal/service"
	"github.com/prohmpiriya/community-portal/pkg/database"
	"github.com/prohmpiriya/community-portal/pkg/logger"
	"github.com/prohmpiriya/community-portal/pkg/middleware"
	"github.com/prohmpiriya/community-portal/pkg/redis"
	"github.com/prohmpiriya/community-portal/pkg/telemetry"
)

// Container holds all dependencies for the portal service
type Container struct {
	// Infrastructure
	DB    *database.PostgresDB
	Redis *redis.Client
	Store *repository.Store

	// Services
	AuditLog      service.AuditLog
	Events        service.EventLifecycleManager
	Registrations service.RegistrationLedger
	Users         service.UserAccountStateMachine
	Exporter      service.Exporter

	// Handlers
	Handlers handler.Handlers
	Router   *gin.Engine
}

// ContainerConfig contains configuration for building the container
type ContainerConfig struct {
	// DB backs the Postgres store. When nil an in-memory store is used.
	DB    *database.PostgresDB
	Redis *redis.Client
	// Publisher delivers cancellation notices. When nil they are only logged.
	Publisher         service.Publisher
	NotificationTopic string

	Clock         clock.Clock
	Logger        *logger.Logger
	Metrics       *telemetry.PortalMetrics
	ServiceConfig service.Config
	JWT           *middleware.JWTConfig
	RateLimit     middleware.RateLimitConfig
	CORSOrigins   []string
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *ContainerConfig) *Container {
	c := &Container{
		DB:    cfg.DB,
		Redis: cfg.Redis,
	}

	log := cfg.Logger
	if log == nil {
		log = logger.Get()
	}

	// Initialize storage
	if cfg.DB != nil {
		c.Store = repository.NewPostgresStore(cfg.DB)
	} else {
		c.Store = repository.NewMemoryStore().Store()
	}

	// Initialize services
	deps := service.Deps{
		Store:   c.Store,
		Clock:   cfg.Clock,
		Logger:  log,
		Metrics: cfg.Metrics,
		Config:  cfg.ServiceConfig,
	}
	var notifier service.Notifier
	if cfg.Publisher != nil {
		notifier = service.NewKafkaNotifier(cfg.Publisher, cfg.NotificationTopic)
	} else {
		notifier = service.NewLogNotifier(log)
	}
	c.AuditLog = service.NewAuditLog(deps)
	c.Events = service.NewEventLifecycleManager(deps, c.AuditLog, notifier)
	c.Registrations = service.NewRegistrationLedger(deps)
	c.Users = service.NewUserAccountStateMachine(deps, c.AuditLog)
	c.Exporter = service.NewExporter(deps)

	// Initialize handlers
	checks := map[string]handler.Check{"database": c.Store.Ping}
	if c.Redis != nil {
		checks["redis"] = c.Redis.HealthCheck
	}
	c.Handlers = handler.Handlers{
		Health:        handler.NewHealthHandler(checks),
		Events:        handler.NewEventHandler(c.Events, cfg.Clock),
		Registrations: handler.NewRegistrationHandler(c.Registrations),
		Users:         handler.NewUserHandler(c.Users),
		Audit:         handler.NewAuditHandler(c.AuditLog),
		Export:        handler.NewExportHandler(c.Exporter),
	}

	rateLimit := cfg.RateLimit
	rateLimit.RedisClient = c.Redis
	c.Router = handler.NewRouter(handler.RouterConfig{
		JWT:                 cfg.JWT,
		Logger:              log,
		CORSOrigins:         cfg.CORSOrigins,
		RegistrationLimiter: middleware.NewLimiter(rateLimit),
		RegistrationRPS:     rateLimit.RequestsPerSecond,
	}, c.Handlers)

	return c
}

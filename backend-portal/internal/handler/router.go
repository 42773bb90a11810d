package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/prohmpiriya/community-portal/backend-portal/internal/domain"
	"github.com/prohmpiriya/community-portal/pkg/logger"
	"github.com/prohmpiriya/community-portal/pkg/middleware"
)

// Handlers groups every HTTP handler mounted by NewRouter
type Handlers struct {
	Health        *HealthHandler
	Events        *EventHandler
	Registrations *RegistrationHandler
	Users         *UserHandler
	Audit         *AuditHandler
	Export        *ExportHandler
}

// RouterConfig configures the HTTP surface
type RouterConfig struct {
	JWT         *middleware.JWTConfig
	Logger      *logger.Logger
	CORSOrigins []string
	// RegistrationLimiter throttles POST registrations; nil disables it
	RegistrationLimiter middleware.Limiter
	RegistrationRPS     int
}

// NewRouter mounts public, authenticated and admin routes
func NewRouter(cfg RouterConfig, h Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(middleware.DefaultCORSConfig(cfg.CORSOrigins...)))
	router.Use(middleware.RequestLogger(middleware.RequestLogConfig{
		Logger:    cfg.Logger,
		SkipPaths: []string{"/health", "/ready"},
	}))

	// Public
	router.GET("/health", h.Health.Health)
	router.GET("/ready", h.Health.Ready)
	router.POST("/api/v1/auth/signup", h.Users.SignUp)

	// Authenticated
	api := router.Group("/api/v1", middleware.JWTMiddleware(cfg.JWT))
	{
		api.GET("/me", h.Users.Me)
		api.GET("/me/registrations", h.Registrations.ListMine)
		api.GET("/users/:id", h.Users.Get)

		api.GET("/events", h.Events.List)
		api.GET("/events/:id", h.Events.Get)

		register := []gin.HandlerFunc{}
		if cfg.RegistrationLimiter != nil {
			register = append(register, middleware.RateLimiter(cfg.RegistrationLimiter, cfg.RegistrationRPS))
		}
		register = append(register, h.Registrations.Register)
		api.POST("/events/:id/registrations", register...)
		api.DELETE("/registrations/:id", h.Registrations.Cancel)
	}

	// Admin
	admin := api.Group("", middleware.RequireRole(string(domain.RoleAdmin)))
	{
		admin.POST("/events", h.Events.Create)
		admin.PATCH("/events/:id", h.Events.Update)
		admin.DELETE("/events/:id", h.Events.Delete)
		admin.POST("/events/:id/close-registration", h.Events.CloseRegistration)
		admin.POST("/events/:id/cancel", h.Events.Cancel)
		admin.GET("/events/:id/registrations", h.Registrations.ListByEvent)
		admin.GET("/events/:id/registrations/export", h.Export.Registrations)

		admin.GET("/users", h.Users.List)
		admin.GET("/users/export", h.Export.Users)
		admin.PATCH("/users/:id/status", h.Users.ChangeStatus)
		admin.PATCH("/users/:id/role", h.Users.ChangeRole)
		admin.POST("/users/:id/reset-password", h.Users.ResetPassword)
		admin.DELETE("/users/:id", h.Users.Delete)

		admin.GET("/audit", h.Audit.ByEntity)
		admin.GET("/audit/actors/:id", h.Audit.ByActor)
	}

	return router
}

package http

import (
	"github.com/gin-gonic/gin"

	"github.com/huangshi/genealogy-api/config"
	"github.com/huangshi/genealogy-api/internal/application"
	"github.com/huangshi/genealogy-api/internal/infrastructure/credentials"
	"github.com/huangshi/genealogy-api/internal/interfaces/http/handlers"
	"github.com/huangshi/genealogy-api/internal/interfaces/http/middleware"
	"github.com/huangshi/genealogy-api/pkg/jwt"
	"github.com/huangshi/genealogy-api/pkg/logger"
)

// Router wraps the Gin engine with application dependencies.
type Router struct {
	engine *gin.Engine
	cfg    *config.Config
}

// RouterDeps contains dependencies needed by the router.
type RouterDeps struct {
	Services    *application.Services
	Credentials *credentials.Store
	JWTManager  *jwt.Manager
	Limiter     *middleware.SlidingWindowLimiter
	RedisHealth handlers.HealthChecker // nil when Redis is unavailable
	Logger      logger.Logger
}

// NewRouter creates and configures the HTTP router.
func NewRouter(cfg *config.Config, deps *RouterDeps) *Router {
	if cfg.Logging.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.NewRequestLoggerMiddleware(deps.Logger).Handler())
	engine.Use(corsMiddleware(cfg.Security.AllowedOrigins))

	authHandler := handlers.NewAuthHandler(
		deps.Credentials,
		deps.JWTManager,
		deps.Limiter,
		cfg.Security,
		cfg.Auth.RequireSignature,
		deps.Logger,
	)
	chatHandler := handlers.NewChatHandler(deps.Services.Chat, deps.Logger)
	sessionHandler := handlers.NewSessionHandler(deps.Services.Sessions, deps.Logger)
	healthHandler := handlers.NewHealthHandler(
		deps.RedisHealth,
		deps.Credentials,
		deps.Services.Sessions,
		deps.Services.Chat,
		cfg.Server.Port,
	)
	docsHandler := handlers.NewDocsHandler()

	gate := middleware.NewAuthMiddleware(
		deps.Credentials,
		deps.JWTManager,
		deps.Limiter,
		cfg.Auth.RequireSignature,
		deps.Logger,
	)

	// Public endpoints
	engine.GET("/api/health", healthHandler.Health)
	engine.GET("/api/docs", docsHandler.Docs)
	engine.GET("/api/models", chatHandler.Models)
	engine.POST("/api/auth/token", authHandler.Token)
	engine.POST("/api/auth/client-token", authHandler.ClientToken)

	// Everything else sits behind the gateway
	protected := engine.Group("/api")
	protected.Use(gate.Gate())
	{
		protected.GET("/auth/status", authHandler.Status)
		protected.POST("/chat", chatHandler.Chat)
		protected.POST("/chat/stream", chatHandler.Stream)
		protected.POST("/conversation", chatHandler.Conversation)
		protected.POST("/models/switch", chatHandler.SwitchModel)
		protected.GET("/session/:id", sessionHandler.Get)
		protected.DELETE("/session/:id", sessionHandler.Delete)
	}

	return &Router{
		engine: engine,
		cfg:    cfg,
	}
}

// Engine returns the underlying Gin engine.
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// corsMiddleware creates a CORS middleware.
func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		allowed := false
		for _, o := range allowedOrigins {
			if o == "*" || o == origin {
				allowed = true
				break
			}
		}

		if allowed {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, X-API-Key, X-Timestamp, X-Signature")
			c.Header("Access-Control-Max-Age", "86400")
		}

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

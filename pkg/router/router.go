package router

import (
	"voxgate/backend/gateway"
	"voxgate/backend/pkg/di"
	"voxgate/backend/pkg/errors"
	"voxgate/backend/pkg/logger"
	"voxgate/backend/pkg/middleware"
	"voxgate/backend/shared/observability"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// Router is the main router for the application.
type Router struct {
	Engine    *gin.Engine
	Container *di.Container
	Logger    *logger.Logger
}

// New creates a new router with the given container.
func New(container *di.Container) *Router {
	// Use the container's logger
	logger.SetGlobal(container.Logger)

	// Initialize Gin router
	engine := gin.New()

	// Use the logger middleware
	engine.Use(logger.Middleware(container.Logger))

	// Add recovery and error-mapping middleware
	engine.Use(errors.RecoveryWithLogger())
	engine.Use(errors.ErrorHandler())

	// Request ID propagation for tracing (spec §7 error propagation:
	// "logged with connection + user context").
	engine.Use(middleware.RequestIDMiddleware())

	return &Router{
		Engine:    engine,
		Container: container,
		Logger:    container.Logger,
	}
}

// SetupRoutes registers every route the gateway exposes (spec §6).
func (r *Router) SetupRoutes() {
	r.Engine.Use(corsMiddleware())

	rlOpts := middleware.DefaultRateLimiterOptions()
	rlOpts.Limit = rate.Limit(r.Container.Config.Security.RateLimit)
	rlOpts.Burst = r.Container.Config.Security.RateLimitBurst
	rateLimiter := middleware.NewRateLimiter(r.Logger, rlOpts)
	r.Engine.Use(rateLimiter.Middleware())

	// C9 Session Bootstrap Endpoint.
	chat := r.Engine.Group("/api/chat")
	{
		chat.POST("/new", r.Container.Bootstrap.CreateChat)
	}

	// Health check (spec §6: GET /api/health -> 200 "Healthy").
	r.Engine.GET("/api/health", gateway.Health)
	r.setupDiagnosticsRoute()

	// Prometheus scrape endpoint (spec §1/§6: served on the same HTTP
	// server as every other route, not a second listener).
	r.Engine.GET("/metrics", gin.WrapH(observability.MetricsHandler()))

	// C10 Connection Acceptor, upgraded at the root path (spec §6).
	r.Engine.GET("/", r.Container.Acceptor.ServeWs)
}

// corsMiddleware creates a middleware function for CORS handling.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		if origin != "*" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		} else {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		}

		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept, Accept-Encoding, X-CSRF-Token, Authorization, Origin")
		c.Writer.Header().Set("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

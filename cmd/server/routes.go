package main

import (
	"github.com/ethosradar/backend/internal/handlers"
	"github.com/ethosradar/backend/internal/middleware"
	"github.com/ethosradar/backend/pkg/logger"
	"github.com/ethosradar/backend/pkg/response"
	"github.com/gin-gonic/gin"
)

// registerRoutes sets up all HTTP routes on the given Gin engine and
// returns the API rate limiter so the caller can stop it.
func registerRoutes(r *gin.Engine, svc *appServices) *middleware.RateLimiter {
	// Middleware
	r.Use(logger.GinLogger("/health", "/metrics"), logger.GinRecovery())
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false
	r.Use(middleware.CORS(svc.cfg.Server.AllowedOrigins...))

	apiLimiter := middleware.NewRateLimiter(svc.cfg.Server.RateLimitRPS, svc.cfg.Server.RateLimitBurst)

	healthHandler := handlers.NewHealthHandler(svc.db, svc.cache, svc.taskQueue, svc.hub, svc.cfg.LLM.Enabled)
	metricsHandler := handlers.NewMetricsHandler(svc.db, svc.taskQueue, svc.hub)
	r.GET("/health", healthHandler.CheckHealth)
	r.GET("/metrics", metricsHandler.Metrics)

	profileHandler := handlers.NewProfileHandler(svc.profiles)
	r4rHandler := handlers.NewR4RHandler(svc.analysis, svc.taskQueue)
	statsHandler := handlers.NewStatsHandler(svc.stats)
	sseHandler := handlers.NewSSEHandler(svc.hub)
	authHandler := handlers.NewAuthHandler(svc.auth)
	adminHandler := handlers.NewAdminHandler(svc.analysis, svc.cache)
	aiUsageHandler := handlers.NewAIUsageHandler(svc.usage)

	// SSE streams are long-lived and stay outside the limiter
	r.GET("/api/events/analyses", sseHandler.StreamAnalysisEvents)

	api := r.Group("/api", apiLimiter.Middleware())
	{
		api.GET("/search", profileHandler.Search)
		api.GET("/users/:userkey", profileHandler.GetProfile)

		api.GET("/r4r/:userkey", r4rHandler.Analyze)
		api.GET("/r4r/:userkey/high-risk", r4rHandler.HighRisk)
		api.POST("/r4r/:userkey/refresh", r4rHandler.Refresh)

		api.GET("/stats", statsHandler.GetStats)

		api.POST("/auth/login", authHandler.Login)

		admin := api.Group("/admin")
		admin.Use(middleware.AuthRequired(), middleware.AdminRequired(), middleware.AuditLog())
		{
			admin.GET("/analysis-logs", adminHandler.ListAnalysisLogs)
			admin.GET("/ai-usage", aiUsageHandler.GetStats)
			admin.DELETE("/cache", adminHandler.PurgeCache)
			admin.DELETE("/cache/:userkey", adminHandler.InvalidateUser)
		}
	}

	r.NoRoute(func(c *gin.Context) {
		response.NotFound(c, "route not found")
	})

	return apiLimiter
}

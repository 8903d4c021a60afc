package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/ethosradar/backend/internal/services"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// HealthHandler reports the state of every subsystem.
type HealthHandler struct {
	db    *gorm.DB
	cache services.Cache
	queue services.TaskQueue
	hub   *services.SSEHub
	llm   bool
}

func NewHealthHandler(db *gorm.DB, cache services.Cache, queue services.TaskQueue, hub *services.SSEHub, llmEnabled bool) *HealthHandler {
	return &HealthHandler{db: db, cache: cache, queue: queue, hub: hub, llm: llmEnabled}
}

// CheckHealth returns the health status of all subsystems.
// GET /health
func (h *HealthHandler) CheckHealth(c *gin.Context) {
	overall := "healthy"
	status := http.StatusOK

	dbStatus := "ok"
	if h.db == nil {
		dbStatus = "disabled"
	} else if sqlDB, err := h.db.DB(); err != nil {
		dbStatus = "error: " + err.Error()
	} else {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := sqlDB.PingContext(ctx); err != nil {
			dbStatus = "error: " + err.Error()
		}
	}
	if dbStatus != "ok" && dbStatus != "disabled" {
		overall = "unhealthy"
		status = http.StatusServiceUnavailable
	}

	queueMode := "sync"
	if h.queue != nil && h.queue.IsAsync() {
		queueMode = "async (Redis)"
	}

	cacheDriver := "none"
	if h.cache != nil {
		cacheDriver = h.cache.Name()
	}

	sseClients := 0
	if h.hub != nil {
		sseClients = h.hub.ClientCount()
	}

	c.JSON(status, gin.H{
		"status":  overall,
		"service": "ethosradar",
		"components": gin.H{
			"database":       dbStatus,
			"cache":          cacheDriver,
			"queue_mode":     queueMode,
			"content_scorer": h.llm,
			"sse_clients":    sseClients,
		},
	})
}

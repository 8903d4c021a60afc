package handlers

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/ethosradar/backend/internal/models"
	"github.com/ethosradar/backend/internal/r4r"
	"github.com/ethosradar/backend/internal/services"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

var startTime = time.Now()

type MetricsHandler struct {
	db    *gorm.DB
	queue services.TaskQueue
	hub   *services.SSEHub
}

func NewMetricsHandler(db *gorm.DB, queue services.TaskQueue, hub *services.SSEHub) *MetricsHandler {
	return &MetricsHandler{db: db, queue: queue, hub: hub}
}

// Metrics returns Prometheus-compatible text format metrics.
// GET /metrics
func (h *MetricsHandler) Metrics(c *gin.Context) {
	var b strings.Builder

	// -- Runtime metrics --
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	writeGauge(&b, "ethosradar_uptime_seconds", "Time since server start in seconds", time.Since(startTime).Seconds())
	writeGauge(&b, "ethosradar_goroutines", "Number of active goroutines", float64(runtime.NumGoroutine()))
	writeGauge(&b, "ethosradar_memory_alloc_bytes", "Current heap allocation in bytes", float64(m.Alloc))
	writeGauge(&b, "ethosradar_gc_runs_total", "Total number of GC runs", float64(m.NumGC))

	if h.hub != nil {
		writeGauge(&b, "ethosradar_sse_active_clients", "Number of active SSE connections", float64(h.hub.ClientCount()))
	}

	queueAsync := 0.0
	if h.queue != nil && h.queue.IsAsync() {
		queueAsync = 1.0
	}
	writeGauge(&b, "ethosradar_queue_async_enabled", "Whether async queue (Redis) is enabled (1=yes, 0=no)", queueAsync)

	if h.db != nil {
		if sqlDB, err := h.db.DB(); err == nil {
			stats := sqlDB.Stats()
			writeGauge(&b, "ethosradar_db_open_connections", "Number of open DB connections", float64(stats.OpenConnections))
			writeGauge(&b, "ethosradar_db_in_use_connections", "Number of in-use DB connections", float64(stats.InUse))
		}

		var total int64
		h.db.Model(&models.AnalysisLog{}).Count(&total)
		writeGauge(&b, "ethosradar_analyses_total", "Total number of recorded analyses", float64(total))

		for _, level := range []r4r.RiskLevel{r4r.RiskLow, r4r.RiskModerate, r4r.RiskHigh} {
			var n int64
			h.db.Model(&models.AnalysisLog{}).Where("risk_level = ?", string(level)).Count(&n)
			writeGauge(&b, "ethosradar_analyses_"+strings.ToLower(string(level)),
				"Number of analyses classified "+string(level), float64(n))
		}

		since24h := time.Now().Add(-24 * time.Hour)
		var aiCalls24h int64
		h.db.Model(&models.AIUsageLog{}).Where("created_at >= ?", since24h).Count(&aiCalls24h)
		writeGauge(&b, "ethosradar_ai_calls_24h", "Content scorer calls in the last 24 hours", float64(aiCalls24h))
	}

	c.Data(200, "text/plain; version=0.0.4; charset=utf-8", []byte(b.String()))
}

func writeGauge(b *strings.Builder, name, help string, value float64) {
	fmt.Fprintf(b, "# HELP %s %s\n", name, help)
	fmt.Fprintf(b, "# TYPE %s gauge\n", name)
	fmt.Fprintf(b, "%s %g\n\n", name, value)
}

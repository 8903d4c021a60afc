package handlers

import (
	"strconv"
	"time"

	"github.com/ethosradar/backend/internal/services"
	"github.com/ethosradar/backend/pkg/response"
	"github.com/gin-gonic/gin"
)

type StatsHandler struct {
	stats *services.StatsService
}

func NewStatsHandler(stats *services.StatsService) *StatsHandler {
	return &StatsHandler{stats: stats}
}

// sinceParam reads ?days=N; missing or zero means all time.
func sinceParam(c *gin.Context) (time.Time, bool) {
	raw := c.Query("days")
	if raw == "" {
		return time.Time{}, true
	}
	days, err := strconv.Atoi(raw)
	if err != nil || days < 0 {
		response.BadRequest(c, "days must be a non-negative integer")
		return time.Time{}, false
	}
	if days == 0 {
		return time.Time{}, true
	}
	return time.Now().AddDate(0, 0, -days), true
}

// GetStats returns analysis statistics
// GET /api/stats?days=
func (h *StatsHandler) GetStats(c *gin.Context) {
	since, ok := sinceParam(c)
	if !ok {
		return
	}

	stats, err := h.stats.GetStats(since)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, stats)
}

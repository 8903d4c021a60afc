package handlers

import (
	"strconv"

	"github.com/ethosradar/backend/internal/services"
	"github.com/ethosradar/backend/pkg/logger"
	"github.com/ethosradar/backend/pkg/response"
	"github.com/gin-gonic/gin"
)

type R4RHandler struct {
	analysis *services.AnalysisService
	queue    services.TaskQueue
}

func NewR4RHandler(analysis *services.AnalysisService, queue services.TaskQueue) *R4RHandler {
	return &R4RHandler{analysis: analysis, queue: queue}
}

func queryBool(c *gin.Context, name string) bool {
	v, _ := strconv.ParseBool(c.Query(name))
	return v
}

// Analyze returns the full R4R analysis
// GET /api/r4r/:userkey?highRisk=&refresh=
func (h *R4RHandler) Analyze(c *gin.Context) {
	userkey, ok := userkeyParam(c)
	if !ok {
		return
	}

	analysis, cached, err := h.analysis.Analyze(c.Request.Context(), userkey, services.AnalysisRequest{
		IncludeHighRisk: queryBool(c, "highRisk"),
		Refresh:         queryBool(c, "refresh"),
		Source:          services.SourceAPI,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	if cached {
		c.Header("X-Cache", "HIT")
	} else {
		c.Header("X-Cache", "MISS")
	}
	response.Success(c, analysis)
}

// HighRisk returns the high-risk reviewers only
// GET /api/r4r/:userkey/high-risk
func (h *R4RHandler) HighRisk(c *gin.Context) {
	userkey, ok := userkeyParam(c)
	if !ok {
		return
	}

	reviewers, err := h.analysis.HighRiskReviewers(c.Request.Context(), userkey, queryBool(c, "refresh"))
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, gin.H{
		"userkey":   userkey,
		"reviewers": reviewers,
		"total":     len(reviewers),
	})
}

// Refresh queues a fresh analysis
// POST /api/r4r/:userkey/refresh
func (h *R4RHandler) Refresh(c *gin.Context) {
	userkey, ok := userkeyParam(c)
	if !ok {
		return
	}

	task := &services.AnalyzeTask{Userkey: userkey, IncludeHighRisk: queryBool(c, "highRisk")}
	if err := h.queue.Enqueue(task); err != nil {
		logger.Warn().Err(err).Str("userkey", userkey).Msg("[R4R] Failed to enqueue refresh")
		response.Error(c, response.NewServerError("failed to queue analysis"))
		return
	}
	h.analysis.MarkQueued(userkey)

	response.Accepted(c, gin.H{
		"userkey": userkey,
		"status":  services.AnalysisQueued,
		"async":   h.queue.IsAsync(),
	})
}

package handlers

import (
	"github.com/ethosradar/backend/internal/services"
	"github.com/ethosradar/backend/pkg/response"
	"github.com/gin-gonic/gin"
)

// AIUsageHandler provides endpoints for content scorer usage statistics.
type AIUsageHandler struct {
	usageService *services.AIUsageService
}

func NewAIUsageHandler(usage *services.AIUsageService) *AIUsageHandler {
	return &AIUsageHandler{usageService: usage}
}

// GetStats returns aggregated AI usage statistics
// GET /api/admin/ai-usage?days=
func (h *AIUsageHandler) GetStats(c *gin.Context) {
	since, ok := sinceParam(c)
	if !ok {
		return
	}

	stats, err := h.usageService.GetStats(since)
	if err != nil {
		response.ServerError(c, "failed to get AI usage stats: "+err.Error())
		return
	}
	providers, err := h.usageService.GetProviderBreakdown(since)
	if err != nil {
		response.ServerError(c, "failed to get provider breakdown: "+err.Error())
		return
	}

	response.Success(c, gin.H{
		"summary":   stats,
		"providers": providers,
	})
}

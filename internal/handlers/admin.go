package handlers

import (
	"strconv"

	"github.com/ethosradar/backend/internal/ethos"
	"github.com/ethosradar/backend/internal/services"
	"github.com/ethosradar/backend/pkg/logger"
	"github.com/ethosradar/backend/pkg/response"
	"github.com/gin-gonic/gin"
)

// AdminHandler exposes analysis history and cache maintenance.
type AdminHandler struct {
	analysis *services.AnalysisService
	cache    services.Cache
}

func NewAdminHandler(analysis *services.AnalysisService, cache services.Cache) *AdminHandler {
	return &AdminHandler{analysis: analysis, cache: cache}
}

// ListAnalysisLogs returns paginated analysis history
// GET /api/admin/analysis-logs?userkey=&risk_level=&page=&page_size=
func (h *AdminHandler) ListAnalysisLogs(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	userkey := c.Query("userkey")
	if userkey != "" {
		key, err := ethos.NormalizeUserkey(userkey)
		if err != nil {
			respondError(c, err)
			return
		}
		userkey = key
	}

	logs, total, err := h.analysis.ListLogs(userkey, c.Query("risk_level"), page, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, gin.H{
		"items":     logs,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// PurgeCache drops every cached payload
// DELETE /api/admin/cache
func (h *AdminHandler) PurgeCache(c *gin.Context) {
	if err := h.cache.Clear(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	logger.Infof("[Admin] %s cache cleared", h.cache.Name())
	response.Success(c, gin.H{"cache": h.cache.Name(), "cleared": true})
}

// InvalidateUser drops the cached payloads of one identity
// DELETE /api/admin/cache/:userkey
func (h *AdminHandler) InvalidateUser(c *gin.Context) {
	userkey, ok := userkeyParam(c)
	if !ok {
		return
	}
	if err := h.analysis.InvalidateUser(c.Request.Context(), userkey); err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, gin.H{"userkey": userkey, "cleared": true})
}

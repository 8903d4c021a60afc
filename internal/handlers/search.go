package handlers

import (
	"strconv"

	"github.com/ethosradar/backend/internal/services"
	"github.com/ethosradar/backend/pkg/response"
	"github.com/gin-gonic/gin"
)

// ProfileHandler serves identity search and profile lookups.
type ProfileHandler struct {
	profiles *services.ProfileService
}

func NewProfileHandler(profiles *services.ProfileService) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

// Search finds identities by name or handle
// GET /api/search?query=&limit=
func (h *ProfileHandler) Search(c *gin.Context) {
	query := c.Query("query")
	if query == "" {
		query = c.Query("q")
	}
	if query == "" {
		response.BadRequest(c, "query is required")
		return
	}
	if len(query) > 100 {
		response.BadRequest(c, "query too long")
		return
	}

	limit, _ := strconv.Atoi(c.Query("limit"))

	users, err := h.profiles.Search(c.Request.Context(), query, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, gin.H{
		"values": users,
		"total":  len(users),
	})
}

// GetProfile returns the identity behind a userkey
// GET /api/users/:userkey
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	userkey, ok := userkeyParam(c)
	if !ok {
		return
	}

	user, err := h.profiles.GetProfile(c.Request.Context(), userkey)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, user)
}

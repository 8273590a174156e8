package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// CommunityHandler exposes the configured community
type CommunityHandler struct {
	state *State
}

func NewCommunityHandler(state *State) *CommunityHandler {
	return &CommunityHandler{state: state}
}

// Get handles GET /api/v1/community
func (h *CommunityHandler) Get(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"horizon":   h.state.Horizon,
		"buildings": h.state.Community,
	})
}

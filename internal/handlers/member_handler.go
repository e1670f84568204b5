package handlers

import (
	"net/http"

	"github.com/ArowuTest/bmd-member-registry/internal/services"
	"github.com/gin-gonic/gin"
)

// MemberHandler serves the read-only member grid
type MemberHandler struct {
	sessions *services.SessionService
}

// NewMemberHandler creates a new MemberHandler
func NewMemberHandler(sessions *services.SessionService) *MemberHandler {
	return &MemberHandler{sessions: sessions}
}

// GetMembers handles GET /members
func (h *MemberHandler) GetMembers(c *gin.Context) {
	if !h.sessions.Loaded() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Registry is still loading. Retry in a moment."})
		return
	}
	members := h.sessions.Roster()
	c.JSON(http.StatusOK, gin.H{
		"members": members,
		"count":   len(members),
	})
}

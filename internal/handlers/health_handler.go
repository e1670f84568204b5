package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegistryStatus reports whether the live member feed is usable
type RegistryStatus interface {
	Loaded() bool
	SubscriptionError() error
}

// HealthHandler handles GET /health
type HealthHandler struct {
	status RegistryStatus
	driver string
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(status RegistryStatus, driver string) *HealthHandler {
	return &HealthHandler{status: status, driver: driver}
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	if err := h.status.SubscriptionError(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "degraded",
			"store":  h.driver,
			"loaded": h.status.Loaded(),
			"error":  err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"store":  h.driver,
		"loaded": h.status.Loaded(),
	})
}

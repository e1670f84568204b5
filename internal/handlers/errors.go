package handlers

import (
	"errors"
	"net/http"

	"github.com/ArowuTest/bmd-member-registry/internal/services"
	"github.com/gin-gonic/gin"
)

// respondError writes err as {"error": ...} with the status its kind maps to.
func respondError(c *gin.Context, err error) {
	var se *services.ServiceError
	if !errors.As(err, &se) {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	if se.Err != nil {
		_ = c.Error(se.Err)
	}
	body := gin.H{"error": se.Message}
	if se.Kind == services.KindConfirmationRequired {
		body["confirmationRequired"] = true
	}
	c.JSON(se.Status(), body)
}

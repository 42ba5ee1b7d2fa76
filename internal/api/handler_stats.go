package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gympulse-backend/internal/auth"
)

// GetStats handles GET /api/stats.
func (h *Handler) GetStats(c *gin.Context) {
	principal, ok := auth.PrincipalID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	stats, err := h.store.Stats(c.Request.Context(), principal, h.now())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to aggregate statistics"})
		return
	}

	c.JSON(http.StatusOK, stats)
}

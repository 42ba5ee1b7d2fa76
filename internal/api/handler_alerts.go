package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gympulse-backend/internal/auth"
	"gympulse-backend/internal/expiry"
)

// GetExpiring handles GET /api/alerts/expiring: the caller's visitors
// classified by expiry urgency, most urgent first.
func (h *Handler) GetExpiring(c *gin.Context) {
	principal, ok := auth.PrincipalID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	visitors, err := h.store.ListVisitors(c.Request.Context(), principal)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load visitors"})
		return
	}

	expiring := expiry.ComputeExpiring(visitors, h.now(), h.monitor.WindowDays())
	c.JSON(http.StatusOK, gin.H{
		"expiring": expiring,
		"count":    len(expiring),
	})
}

// DismissAlerts handles POST /api/alerts/dismiss: suppresses advisories for
// the caller until the dismissal window elapses. Classification output is
// unaffected.
func (h *Handler) DismissAlerts(c *gin.Context) {
	principal, ok := auth.PrincipalID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	h.monitor.Gate().Dismiss(principal)
	c.Status(http.StatusNoContent)
}

// RefreshAlerts handles POST /api/alerts/refresh: clears the suppression
// gate and re-evaluates the caller's collection immediately, firing an
// advisory when it is non-empty.
func (h *Handler) RefreshAlerts(c *gin.Context) {
	principal, ok := auth.PrincipalID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	h.monitor.Gate().Refresh(principal)
	expiring := h.monitor.EvaluateUser(c.Request.Context(), principal)

	c.JSON(http.StatusOK, gin.H{
		"expiring": expiring,
		"count":    len(expiring),
	})
}

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"gympulse-backend/internal/auth"
	"gympulse-backend/internal/expiry"
	"gympulse-backend/internal/metrics"
	"gympulse-backend/internal/model"
	"gympulse-backend/internal/parse"
	"gympulse-backend/internal/store"
)

const dateLayout = "2006-01-02"

type createVisitorRequest struct {
	Name             string `json:"name" binding:"required"`
	Phone            string `json:"phone" binding:"required"`
	StartDate        string `json:"start_date"`
	SubscriptionType string `json:"subscription_type" binding:"required"`
	Duration         int    `json:"duration" binding:"required"`
	Notes            string `json:"notes"`
}

type updateVisitorRequest struct {
	Name             *string `json:"name"`
	Phone            *string `json:"phone"`
	StartDate        *string `json:"start_date"`
	SubscriptionType *string `json:"subscription_type"`
	Duration         *int    `json:"duration"`
	Status           *string `json:"status"`
	Notes            *string `json:"notes"`
}

type renewVisitorRequest struct {
	SubscriptionType *string `json:"subscription_type"`
	Duration         *int    `json:"duration"`
}

// ListVisitors handles GET /api/visitors. Visitors whose expiry date has
// passed are relabeled expired in the response even before the background
// reconciliation writes the row.
func (h *Handler) ListVisitors(c *gin.Context) {
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

	c.JSON(http.StatusOK, relabelLapsed(visitors, h.now()))
}

// CreateVisitor handles POST /api/visitors.
func (h *Handler) CreateVisitor(c *gin.Context) {
	principal, ok := auth.PrincipalID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req createVisitorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	subType := model.SubscriptionType(req.SubscriptionType)
	if !model.ValidSubscriptionType(subType) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown subscription type"})
		return
	}
	if !model.ValidDuration(req.Duration) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "duration must be 1, 3, 6 or 12 months"})
		return
	}

	phone, err := parse.NormalizePhone(req.Phone)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	startDate := h.now()
	if req.StartDate != "" {
		startDate, err = time.Parse(dateLayout, req.StartDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "start_date must be YYYY-MM-DD"})
			return
		}
	}

	visitor := model.Visitor{
		UserID:           principal,
		Name:             req.Name,
		Phone:            phone,
		StartDate:        startDate,
		SubscriptionType: subType,
		Duration:         req.Duration,
		Status:           model.StatusActive,
		Notes:            req.Notes,
	}

	if err := h.store.CreateVisitor(c.Request.Context(), &visitor); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create visitor"})
		return
	}

	metrics.RecordVisitorCreated(string(subType))
	h.monitor.Poke()
	c.JSON(http.StatusCreated, visitor)
}

// UpdateVisitor handles PUT /api/visitors/:id.
func (h *Handler) UpdateVisitor(c *gin.Context) {
	principal, ok := auth.PrincipalID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req updateVisitorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	patch, err := h.buildPatch(req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	visitor, err := h.store.UpdateVisitor(c.Request.Context(), principal, c.Param("id"), patch)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "visitor not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update visitor"})
		return
	}

	h.monitor.Poke()
	c.JSON(http.StatusOK, visitor)
}

// RenewVisitor handles POST /api/visitors/:id/renew. Renewal resets the
// start date to today and the status to active; plan and duration may change
// in the same call.
func (h *Handler) RenewVisitor(c *gin.Context) {
	principal, ok := auth.PrincipalID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	// An empty body is a plain renewal.
	var req renewVisitorRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	today := h.now()
	active := model.StatusActive
	patch := store.VisitorPatch{
		StartDate: &today,
		Status:    &active,
	}

	if req.SubscriptionType != nil {
		subType := model.SubscriptionType(*req.SubscriptionType)
		if !model.ValidSubscriptionType(subType) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown subscription type"})
			return
		}
		patch.SubscriptionType = &subType
	}
	if req.Duration != nil {
		if !model.ValidDuration(*req.Duration) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "duration must be 1, 3, 6 or 12 months"})
			return
		}
		patch.Duration = req.Duration
	}

	visitor, err := h.store.UpdateVisitor(c.Request.Context(), principal, c.Param("id"), patch)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "visitor not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to renew visitor"})
		return
	}

	h.monitor.Poke()
	c.JSON(http.StatusOK, visitor)
}

// DeleteVisitor handles DELETE /api/visitors/:id.
func (h *Handler) DeleteVisitor(c *gin.Context) {
	principal, ok := auth.PrincipalID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	err := h.store.DeleteVisitor(c.Request.Context(), principal, c.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "visitor not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete visitor"})
		return
	}

	h.monitor.Poke()
	c.Status(http.StatusNoContent)
}

func (h *Handler) buildPatch(req updateVisitorRequest) (store.VisitorPatch, error) {
	var patch store.VisitorPatch

	patch.Name = req.Name
	patch.Notes = req.Notes

	if req.Phone != nil {
		phone, err := parse.NormalizePhone(*req.Phone)
		if err != nil {
			return store.VisitorPatch{}, err
		}
		patch.Phone = &phone
	}
	if req.StartDate != nil {
		startDate, err := time.Parse(dateLayout, *req.StartDate)
		if err != nil {
			return store.VisitorPatch{}, errors.New("start_date must be YYYY-MM-DD")
		}
		patch.StartDate = &startDate
	}
	if req.SubscriptionType != nil {
		subType := model.SubscriptionType(*req.SubscriptionType)
		if !model.ValidSubscriptionType(subType) {
			return store.VisitorPatch{}, errors.New("unknown subscription type")
		}
		patch.SubscriptionType = &subType
	}
	if req.Duration != nil {
		if !model.ValidDuration(*req.Duration) {
			return store.VisitorPatch{}, errors.New("duration must be 1, 3, 6 or 12 months")
		}
		patch.Duration = req.Duration
	}
	if req.Status != nil {
		status := model.VisitorStatus(*req.Status)
		switch status {
		case model.StatusActive, model.StatusInactive, model.StatusExpired:
		default:
			return store.VisitorPatch{}, errors.New("unknown status")
		}
		patch.Status = &status
	}

	return patch, nil
}

// relabelLapsed returns a copy of the collection where active visitors past
// their expiry date read as expired. Display-level only; the persisted row
// is the monitor's responsibility.
func relabelLapsed(visitors []model.Visitor, today time.Time) []model.Visitor {
	out := make([]model.Visitor, len(visitors))
	copy(out, visitors)
	for i := range out {
		if out[i].Status != model.StatusActive {
			continue
		}
		if expiry.DaysUntil(expiry.ExpiryDate(out[i]), today) < 0 {
			out[i].Status = model.StatusExpired
		}
	}
	return out
}

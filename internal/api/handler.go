package api

import (
	"github.com/SherClockHolmes/webpush-go"

	"gympulse-backend/internal/expiry"
	"gympulse-backend/internal/store"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store   store.Store
	monitor *expiry.Monitor
	webpush *webpush.Options
	now     expiry.Clock
}

// NewHandler creates a new API handler.
func NewHandler(s store.Store, monitor *expiry.Monitor, webpushOptions *webpush.Options, now expiry.Clock) *Handler {
	return &Handler{
		store:   s,
		monitor: monitor,
		webpush: webpushOptions,
		now:     now,
	}
}

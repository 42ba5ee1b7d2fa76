package store

import (
	"time"

	"gympulse-backend/internal/model"
)

// VisitorPatch is a partial update to a visitor. Nil fields are left
// untouched.
type VisitorPatch struct {
	Name             *string
	Phone            *string
	StartDate        *time.Time
	SubscriptionType *model.SubscriptionType
	Duration         *int
	Status           *model.VisitorStatus
	Notes            *string
}

// columns converts the patch to a gorm update map.
func (p VisitorPatch) columns() map[string]any {
	updates := make(map[string]any)
	if p.Name != nil {
		updates["name"] = *p.Name
	}
	if p.Phone != nil {
		updates["phone"] = *p.Phone
	}
	if p.StartDate != nil {
		updates["start_date"] = *p.StartDate
	}
	if p.SubscriptionType != nil {
		updates["subscription_type"] = *p.SubscriptionType
	}
	if p.Duration != nil {
		updates["duration"] = *p.Duration
	}
	if p.Status != nil {
		updates["status"] = *p.Status
	}
	if p.Notes != nil {
		updates["notes"] = *p.Notes
	}
	return updates
}

// TopVisitor is one row of the longest-subscription leaderboard.
type TopVisitor struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Duration int    `json:"duration"`
}

// Stats is the aggregate view shown on the statistics screen.
type Stats struct {
	Total           int64                            `json:"total"`
	Active          int64                            `json:"active"`
	Inactive        int64                            `json:"inactive"`
	Expired         int64                            `json:"expired"`
	ByType          map[model.SubscriptionType]int64 `json:"subscription_types"`
	NewThisMonth    int64                            `json:"new_this_month"`
	ActiveThisWeek  int64                            `json:"active_this_week"`
	AverageDuration float64                          `json:"average_duration"`
	TopByDuration   []TopVisitor                     `json:"top_by_duration"`
}

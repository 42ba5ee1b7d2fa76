package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SubscriptionType identifies the plan a visitor is subscribed to.
type SubscriptionType string

// VisitorStatus is the persisted lifecycle state of a visitor. It can drift
// from the derived expiry state until the monitor reconciles it.
type VisitorStatus string

const (
	TypeBasic   SubscriptionType = "basic"
	TypePremium SubscriptionType = "premium"
	TypeVIP     SubscriptionType = "vip"

	StatusActive   VisitorStatus = "active"
	StatusInactive VisitorStatus = "inactive"
	StatusExpired  VisitorStatus = "expired"
)

// ValidDurations are the subscription lengths, in months, that can be sold.
var ValidDurations = []int{1, 3, 6, 12}

// Visitor represents a gym member record with a subscription window.
type Visitor struct {
	ID               string           `gorm:"primaryKey;size:36" json:"id"`
	UserID           string           `gorm:"index;size:64;not null" json:"user_id"`
	Name             string           `gorm:"size:128;not null" json:"name"`
	Phone            string           `gorm:"size:32" json:"phone"`
	StartDate        time.Time        `gorm:"not null" json:"start_date"`
	SubscriptionType SubscriptionType `gorm:"size:16;not null" json:"subscription_type"`
	Duration         int              `gorm:"not null" json:"duration"`
	Status           VisitorStatus    `gorm:"size:16;not null;default:active" json:"status"`
	Notes            string           `gorm:"type:text" json:"notes"`
	CreatedAt        time.Time        `gorm:"not null" json:"created_at"`
	UpdatedAt        time.Time        `gorm:"not null" json:"updated_at"`
}

// BeforeCreate assigns an id when the caller did not provide one.
func (v *Visitor) BeforeCreate(tx *gorm.DB) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	return nil
}

// ValidDuration reports whether d is a sellable subscription length.
func ValidDuration(d int) bool {
	for _, valid := range ValidDurations {
		if d == valid {
			return true
		}
	}
	return false
}

// ValidSubscriptionType reports whether t is a known plan.
func ValidSubscriptionType(t SubscriptionType) bool {
	switch t {
	case TypeBasic, TypePremium, TypeVIP:
		return true
	}
	return false
}

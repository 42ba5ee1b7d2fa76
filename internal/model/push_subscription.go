package model

import "time"

// PushSubscription holds the information for a browser push subscription.
// Each subscription belongs to one administrator principal; expiry alerts for
// that principal fan out to all of their subscriptions.
type PushSubscription struct {
	Endpoint  string    `gorm:"primaryKey"`
	UserID    string    `gorm:"index;size:64;not null"`
	P256DH    string    `gorm:"column:p256dh;not null"`
	Auth      string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
}

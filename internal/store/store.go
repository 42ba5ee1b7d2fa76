package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"gympulse-backend/internal/model"
)

// ErrNotFound is returned when a visitor does not exist for the given
// principal.
var ErrNotFound = errors.New("visitor not found")

// Store defines the interface for all database operations. Every visitor
// operation is scoped to the owning principal.
type Store interface {
	ListVisitors(ctx context.Context, userID string) ([]model.Visitor, error)
	GetVisitor(ctx context.Context, userID, id string) (model.Visitor, error)
	CreateVisitor(ctx context.Context, visitor *model.Visitor) error
	UpdateVisitor(ctx context.Context, userID, id string, patch VisitorPatch) (model.Visitor, error)
	DeleteVisitor(ctx context.Context, userID, id string) error
	MarkExpired(ctx context.Context, userID, id string) error
	Stats(ctx context.Context, userID string, now time.Time) (Stats, error)
	ListUserIDs(ctx context.Context) ([]string, error)

	SavePushSubscription(ctx context.Context, sub *model.PushSubscription) error
	GetPushSubscription(ctx context.Context, userID, endpoint string) (model.PushSubscription, error)
	DeletePushSubscription(ctx context.Context, userID, endpoint string) error
	SubscriptionsForUser(ctx context.Context, userID string) ([]model.PushSubscription, error)
	DeleteSubscriptionByEndpoint(ctx context.Context, endpoint string) error
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

// ListVisitors returns the principal's visitors, newest first.
func (s *gormStore) ListVisitors(ctx context.Context, userID string) ([]model.Visitor, error) {
	var visitors []model.Visitor
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&visitors).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list visitors: %w", err)
	}
	return visitors, nil
}

func (s *gormStore) GetVisitor(ctx context.Context, userID, id string) (model.Visitor, error) {
	var visitor model.Visitor
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND id = ?", userID, id).
		First(&visitor).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Visitor{}, ErrNotFound
	}
	if err != nil {
		return model.Visitor{}, fmt.Errorf("failed to fetch visitor %s: %w", id, err)
	}
	return visitor, nil
}

func (s *gormStore) CreateVisitor(ctx context.Context, visitor *model.Visitor) error {
	if err := s.db.WithContext(ctx).Create(visitor).Error; err != nil {
		return fmt.Errorf("failed to create visitor: %w", err)
	}
	return nil
}

// UpdateVisitor applies a partial update and returns the stored row.
func (s *gormStore) UpdateVisitor(ctx context.Context, userID, id string, patch VisitorPatch) (model.Visitor, error) {
	updates := patch.columns()
	if len(updates) == 0 {
		return s.GetVisitor(ctx, userID, id)
	}

	res := s.db.WithContext(ctx).
		Model(&model.Visitor{}).
		Where("user_id = ? AND id = ?", userID, id).
		Updates(updates)
	if res.Error != nil {
		return model.Visitor{}, fmt.Errorf("failed to update visitor %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return model.Visitor{}, ErrNotFound
	}
	return s.GetVisitor(ctx, userID, id)
}

func (s *gormStore) DeleteVisitor(ctx context.Context, userID, id string) error {
	res := s.db.WithContext(ctx).
		Where("user_id = ? AND id = ?", userID, id).
		Delete(&model.Visitor{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete visitor %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkExpired flips a visitor to expired. Used by the monitor's
// reconciliation path; idempotent with respect to already-expired rows.
func (s *gormStore) MarkExpired(ctx context.Context, userID, id string) error {
	err := s.db.WithContext(ctx).
		Model(&model.Visitor{}).
		Where("user_id = ? AND id = ?", userID, id).
		Update("status", model.StatusExpired).Error
	if err != nil {
		return fmt.Errorf("failed to mark visitor %s expired: %w", id, err)
	}
	return nil
}

// Stats aggregates the principal's visitor collection in a handful of
// grouped queries rather than loading every row.
func (s *gormStore) Stats(ctx context.Context, userID string, now time.Time) (Stats, error) {
	stats := Stats{ByType: make(map[model.SubscriptionType]int64)}

	type statusRow struct {
		Status model.VisitorStatus
		Count  int64
	}
	var statusRows []statusRow
	if err := s.db.WithContext(ctx).
		Model(&model.Visitor{}).
		Select("status, COUNT(*) as count").
		Where("user_id = ?", userID).
		Group("status").
		Scan(&statusRows).Error; err != nil {
		return Stats{}, fmt.Errorf("failed to aggregate visitor statuses: %w", err)
	}
	for _, row := range statusRows {
		stats.Total += row.Count
		switch row.Status {
		case model.StatusActive:
			stats.Active = row.Count
		case model.StatusInactive:
			stats.Inactive = row.Count
		case model.StatusExpired:
			stats.Expired = row.Count
		}
	}

	type typeRow struct {
		SubscriptionType model.SubscriptionType
		Count            int64
	}
	var typeRows []typeRow
	if err := s.db.WithContext(ctx).
		Model(&model.Visitor{}).
		Select("subscription_type, COUNT(*) as count").
		Where("user_id = ?", userID).
		Group("subscription_type").
		Scan(&typeRows).Error; err != nil {
		return Stats{}, fmt.Errorf("failed to aggregate subscription types: %w", err)
	}
	for _, row := range typeRows {
		stats.ByType[row.SubscriptionType] = row.Count
	}

	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	if err := s.db.WithContext(ctx).
		Model(&model.Visitor{}).
		Where("user_id = ? AND created_at >= ?", userID, monthStart).
		Count(&stats.NewThisMonth).Error; err != nil {
		return Stats{}, fmt.Errorf("failed to count new visitors this month: %w", err)
	}

	weekAgo := now.AddDate(0, 0, -7)
	if err := s.db.WithContext(ctx).
		Model(&model.Visitor{}).
		Where("user_id = ? AND status = ? AND created_at >= ?", userID, model.StatusActive, weekAgo).
		Count(&stats.ActiveThisWeek).Error; err != nil {
		return Stats{}, fmt.Errorf("failed to count active visitors this week: %w", err)
	}

	var avg struct{ Avg float64 }
	if err := s.db.WithContext(ctx).
		Model(&model.Visitor{}).
		Select("COALESCE(AVG(duration), 0) as avg").
		Where("user_id = ?", userID).
		Scan(&avg).Error; err != nil {
		return Stats{}, fmt.Errorf("failed to average durations: %w", err)
	}
	stats.AverageDuration = avg.Avg

	if err := s.db.WithContext(ctx).
		Model(&model.Visitor{}).
		Select("id, name, duration").
		Where("user_id = ?", userID).
		Order("duration DESC").
		Limit(5).
		Scan(&stats.TopByDuration).Error; err != nil {
		return Stats{}, fmt.Errorf("failed to rank visitors by duration: %w", err)
	}

	return stats, nil
}

// ListUserIDs returns every principal that owns at least one visitor. The
// monitor iterates this set each evaluation cycle.
func (s *gormStore) ListUserIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).
		Model(&model.Visitor{}).
		Distinct("user_id").
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list principals: %w", err)
	}
	return ids, nil
}

// SavePushSubscription inserts or replaces a browser push subscription.
func (s *gormStore) SavePushSubscription(ctx context.Context, sub *model.PushSubscription) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "endpoint"}},
		DoUpdates: clause.AssignmentColumns([]string{"user_id", "p256dh", "auth"}),
	}).Create(sub).Error
	if err != nil {
		return fmt.Errorf("failed to save push subscription: %w", err)
	}
	return nil
}

func (s *gormStore) GetPushSubscription(ctx context.Context, userID, endpoint string) (model.PushSubscription, error) {
	var sub model.PushSubscription
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND endpoint = ?", userID, endpoint).
		First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.PushSubscription{}, ErrNotFound
	}
	if err != nil {
		return model.PushSubscription{}, fmt.Errorf("failed to fetch push subscription: %w", err)
	}
	return sub, nil
}

func (s *gormStore) DeletePushSubscription(ctx context.Context, userID, endpoint string) error {
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND endpoint = ?", userID, endpoint).
		Delete(&model.PushSubscription{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete push subscription: %w", err)
	}
	return nil
}

func (s *gormStore) SubscriptionsForUser(ctx context.Context, userID string) ([]model.PushSubscription, error) {
	var subs []model.PushSubscription
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Find(&subs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list push subscriptions: %w", err)
	}
	return subs, nil
}

// DeleteSubscriptionByEndpoint removes a subscription regardless of owner.
// Used when the push service reports the endpoint gone.
func (s *gormStore) DeleteSubscriptionByEndpoint(ctx context.Context, endpoint string) error {
	err := s.db.WithContext(ctx).
		Delete(&model.PushSubscription{Endpoint: endpoint}).Error
	if err != nil {
		return fmt.Errorf("failed to delete push subscription %s: %w", endpoint, err)
	}
	return nil
}

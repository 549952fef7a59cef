// Package sqlite is an embedded subscription store for local development and
// single-node deployments.
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
	"terangahub.app/push/internal/domain"
)

// pushSubscription is the table row.
type pushSubscription struct {
	UserID    string `gorm:"primaryKey"`
	Endpoint  string `gorm:"not null"`
	P256dh    string `gorm:"column:p256dh;not null"`
	Auth      string `gorm:"not null"`
	UpdatedAt time.Time
}

func (pushSubscription) TableName() string { return "push_subscriptions" }

// Repository is the gorm implementation of domain.SubscriptionRepository.
type Repository struct {
	db *gorm.DB
}

// Open opens (or creates) the database at path and migrates it.
// Use ":memory:" for an ephemeral store.
func Open(path string) (*Repository, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	if err := db.AutoMigrate(&pushSubscription{}); err != nil {
		return nil, fmt.Errorf("migrate push_subscriptions: %w", err)
	}
	return &Repository{db: db}, nil
}

// Close releases the underlying connection.
func (r *Repository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (r *Repository) Upsert(ctx context.Context, userID string, sub domain.Subscription) error {
	row := pushSubscription{
		UserID:    userID,
		Endpoint:  sub.Endpoint,
		P256dh:    sub.Keys.P256dh,
		Auth:      sub.Keys.Auth,
		UpdatedAt: time.Now().UTC(),
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"endpoint", "p256dh", "auth", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("upsert push subscription: %w", err)
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, userID string) (*domain.SubscriptionRecord, error) {
	var row pushSubscription
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNoSubscription
		}
		return nil, fmt.Errorf("get push subscription: %w", err)
	}
	return &domain.SubscriptionRecord{
		UserID: row.UserID,
		Subscription: domain.Subscription{
			Endpoint: row.Endpoint,
			Keys:     domain.Keys{P256dh: row.P256dh, Auth: row.Auth},
		},
		UpdatedAt: row.UpdatedAt,
	}, nil
}

func (r *Repository) DeleteIfEndpoint(ctx context.Context, userID, endpoint string) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND endpoint = ?", userID, endpoint).
		Delete(&pushSubscription{})
	if res.Error != nil {
		return false, fmt.Errorf("delete push subscription: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

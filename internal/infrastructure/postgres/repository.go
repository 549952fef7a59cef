package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"terangahub.app/push/internal/domain"
)

//go:embed schema.sql
var schemaSQL string

// querier is the subset of *pgxpool.Pool the repository needs.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository is the PostgreSQL implementation of domain.SubscriptionRepository.
// It must be built from a service-level pool: it reads every user's row.
type Repository struct {
	db querier
}

// New creates a new postgres Repository. db is normally a *pgxpool.Pool.
func New(db querier) *Repository {
	return &Repository{db: db}
}

// Migrate creates the push_subscriptions table if it does not exist.
func (r *Repository) Migrate(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("migrate push_subscriptions: %w", err)
	}
	return nil
}

// Upsert replaces the subscription of userID in a single statement.
func (r *Repository) Upsert(ctx context.Context, userID string, sub domain.Subscription) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO push_subscriptions (user_id, endpoint, p256dh, auth, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE
		SET endpoint = EXCLUDED.endpoint,
		    p256dh = EXCLUDED.p256dh,
		    auth = EXCLUDED.auth,
		    updated_at = EXCLUDED.updated_at
	`, userID, sub.Endpoint, sub.Keys.P256dh, sub.Keys.Auth, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upsert push subscription: %w", err)
	}
	return nil
}

// Get fetches the subscription of userID.
func (r *Repository) Get(ctx context.Context, userID string) (*domain.SubscriptionRecord, error) {
	var rec domain.SubscriptionRecord
	err := r.db.QueryRow(ctx, `
		SELECT user_id, endpoint, p256dh, auth, updated_at
		FROM push_subscriptions WHERE user_id = $1
	`, userID).Scan(&rec.UserID, &rec.Subscription.Endpoint, &rec.Subscription.Keys.P256dh,
		&rec.Subscription.Keys.Auth, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNoSubscription
		}
		return nil, fmt.Errorf("get push subscription: %w", err)
	}
	return &rec, nil
}

// DeleteIfEndpoint removes the row of userID only while it still holds endpoint.
func (r *Repository) DeleteIfEndpoint(ctx context.Context, userID, endpoint string) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM push_subscriptions WHERE user_id = $1 AND endpoint = $2`, userID, endpoint)
	if err != nil {
		return false, fmt.Errorf("delete push subscription: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

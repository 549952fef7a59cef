package domain

import "context"

// SubscriptionRepository is the port for push subscription persistence.
// Implementations live in infrastructure/postgres and infrastructure/sqlite.
type SubscriptionRepository interface {
	// Upsert stores sub as the single subscription of userID, replacing any prior record.
	Upsert(ctx context.Context, userID string, sub Subscription) error

	// Get returns the subscription of userID, or ErrNoSubscription when none is stored.
	Get(ctx context.Context, userID string) (*SubscriptionRecord, error)

	// DeleteIfEndpoint removes the record of userID only while it still points at endpoint.
	// Reports whether a row was removed.
	DeleteIfEndpoint(ctx context.Context, userID, endpoint string) (bool, error)
}

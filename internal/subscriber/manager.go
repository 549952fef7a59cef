// Package subscriber keeps a device's push subscription alive and makes sure
// the server holds the current copy of it.
package subscriber

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog/log"
	"terangahub.app/push/internal/domain"
	"terangahub.app/push/internal/vapid"
)

// State is the position of a device in the registration flow.
type State int

const (
	StateUnchecked State = iota
	StateNeedsPermission
	StateSubscribing
	StateSubscribed
	StateDisabled
)

func (s State) String() string {
	switch s {
	case StateUnchecked:
		return "unchecked"
	case StateNeedsPermission:
		return "needs_permission"
	case StateSubscribing:
		return "subscribing"
	case StateSubscribed:
		return "subscribed"
	case StateDisabled:
		return "disabled"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Permission is the user's answer to the notification prompt.
type Permission string

const (
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
	PermissionDefault Permission = "default"
)

var (
	ErrNotAuthenticated = errors.New("no signed-in user")
	ErrUnsupported      = errors.New("push notifications are not supported on this device")
	ErrPermissionDenied = errors.New("permission for notifications was denied")
	ErrInFlight         = errors.New("registration already in progress")
	ErrSubscribe        = errors.New("create subscription")
	ErrPersist          = errors.New("save subscription")
)

// Platform is the device's push primitive.
type Platform interface {
	// Supported reports whether the device can receive push messages at all.
	Supported() bool
	// CurrentSubscription returns the existing subscription, or nil when there is none.
	CurrentSubscription(ctx context.Context) (*domain.Subscription, error)
	RequestPermission(ctx context.Context) (Permission, error)
	// Subscribe creates a subscription bound to the application server key.
	Subscribe(ctx context.Context, applicationServerKey []byte) (*domain.Subscription, error)
}

// Writer persists the device subscription server-side, keyed by user.
type Writer interface {
	Upsert(ctx context.Context, userID string, sub domain.Subscription) error
}

// Manager runs the registration flow. At most one flow runs at a time per Manager.
type Manager struct {
	platform  Platform
	writer    Writer
	serverKey []byte
	running   atomic.Bool
}

// New decodes publicKey up front; a malformed key is a configuration error.
func New(platform Platform, writer Writer, publicKey string) (*Manager, error) {
	key, err := vapid.ParsePublicKey(publicKey)
	if err != nil {
		return nil, fmt.Errorf("application server key: %w", err)
	}
	return &Manager{platform: platform, writer: writer, serverKey: key}, nil
}

// Run executes the flow for userID and returns the state it finished in.
// A persist failure leaves the device Subscribed; the error is informational.
func (m *Manager) Run(ctx context.Context, userID string) (State, error) {
	if userID == "" {
		return StateUnchecked, ErrNotAuthenticated
	}
	if !m.running.CompareAndSwap(false, true) {
		return StateUnchecked, ErrInFlight
	}
	defer m.running.Store(false)

	if !m.platform.Supported() {
		return StateDisabled, ErrUnsupported
	}

	sub, err := m.platform.CurrentSubscription(ctx)
	if err != nil {
		// Treat an unreadable subscription as absent and negotiate a new one.
		log.Warn().Err(err).Str("user", userID).Msg("could not read existing push subscription")
		sub = nil
	}

	if sub == nil {
		log.Debug().Str("user", userID).Msg("no push subscription found, requesting permission")

		perm, err := m.platform.RequestPermission(ctx)
		if err != nil {
			return StateDisabled, fmt.Errorf("%w: %v", ErrPermissionDenied, err)
		}
		if perm != PermissionGranted {
			return StateDisabled, ErrPermissionDenied
		}

		sub, err = m.platform.Subscribe(ctx, m.serverKey)
		if err != nil {
			return StateDisabled, fmt.Errorf("%w: %w", ErrSubscribe, err)
		}
		if sub == nil {
			return StateDisabled, fmt.Errorf("%w: platform returned no subscription", ErrSubscribe)
		}
		log.Info().Str("user", userID).Str("endpoint_host", sub.EndpointHost()).Msg("push subscription created")
	}

	// The platform copy is authoritative, so an existing subscription is re-sent every time.
	if err := m.writer.Upsert(ctx, userID, *sub); err != nil {
		return StateSubscribed, fmt.Errorf("%w: %w", ErrPersist, err)
	}
	log.Info().Str("user", userID).Msg("push subscription saved")
	return StateSubscribed, nil
}

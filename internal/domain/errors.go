package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNoSubscription means the recipient has no stored subscription.
	ErrNoSubscription = errors.New("subscription not found for user")
	// ErrSubscriptionGone means the push service reported the endpoint as expired or unsubscribed.
	ErrSubscriptionGone = errors.New("subscription is no longer valid")
	ErrInvalidRequest   = errors.New("invalid request")
)

// Stage names the step of a dispatch that failed.
type Stage string

const (
	StageValidation Stage = "validation"
	StageLookup     Stage = "lookup"
	StageMissing    Stage = "missing"
	StageEncryption Stage = "encryption"
	StageDelivery   Stage = "delivery"
	StageGone       Stage = "gone"
)

// DispatchError is the structured failure of a single dispatch attempt.
type DispatchError struct {
	Stage Stage
	Err   error
}

func (e *DispatchError) Error() string {
	switch e.Stage {
	case StageValidation:
		return fmt.Sprintf("Invalid request: %v", e.Err)
	case StageLookup:
		return fmt.Sprintf("Database error: %v", e.Err)
	case StageMissing:
		return "Subscription not found for user"
	case StageEncryption:
		return fmt.Sprintf("Encryption error: %v", e.Err)
	case StageGone:
		return fmt.Sprintf("Subscription expired: %v", e.Err)
	default:
		return fmt.Sprintf("Delivery error: %v", e.Err)
	}
}

func (e *DispatchError) Unwrap() error { return e.Err }

// Code is a stable machine-readable identifier for callers.
func (e *DispatchError) Code() string {
	switch e.Stage {
	case StageValidation:
		return "invalid_request"
	case StageLookup:
		return "storage_error"
	case StageMissing:
		return "no_subscription"
	case StageEncryption:
		return "encryption_failed"
	case StageGone:
		return "subscription_gone"
	default:
		return "delivery_failed"
	}
}

// StageOf extracts the failed stage from err, or "" if err is not a DispatchError.
func StageOf(err error) Stage {
	var de *DispatchError
	if errors.As(err, &de) {
		return de.Stage
	}
	return ""
}

// EncryptionError marks a failure that happened while encrypting the payload
// or signing the VAPID header, before any network call.
type EncryptionError struct{ Err error }

func (e *EncryptionError) Error() string { return "encrypt push message: " + e.Err.Error() }
func (e *EncryptionError) Unwrap() error { return e.Err }

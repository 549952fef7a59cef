package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"time"
)

// NotificationType identifies which application event produced the notification.
type NotificationType string

const (
	TypeComment NotificationType = "comment"
	TypeLike    NotificationType = "like"
	TypeFollow  NotificationType = "follow"
	TypeMessage NotificationType = "message"
	TypeSystem  NotificationType = "system"
)

// Keys are the per-subscription encryption values issued by the browser.
type Keys struct {
	P256dh string `json:"p256dh" validate:"required"`
	Auth   string `json:"auth" validate:"required"`
}

// Subscription is the serializable form of a browser push subscription.
// Its JSON shape matches PushSubscription.toJSON() on the client.
type Subscription struct {
	Endpoint string `json:"endpoint" validate:"required,url"`
	Keys     Keys   `json:"keys" validate:"required"`
}

// Validate checks that the subscription can be used for delivery.
func (s Subscription) Validate() error {
	if s.Endpoint == "" {
		return fmt.Errorf("%w: endpoint is required", ErrInvalidRequest)
	}
	u, err := url.Parse(s.Endpoint)
	if err != nil || !u.IsAbs() || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
		return fmt.Errorf("%w: endpoint must be an absolute http(s) URL", ErrInvalidRequest)
	}
	if s.Keys.P256dh == "" || s.Keys.Auth == "" {
		return fmt.Errorf("%w: keys.p256dh and keys.auth are required", ErrInvalidRequest)
	}
	return nil
}

// EndpointHost returns the push service host, safe to log.
func (s Subscription) EndpointHost() string {
	u, err := url.Parse(s.Endpoint)
	if err != nil {
		return ""
	}
	return u.Host
}

// SubscriptionRecord is the stored subscription of a single user.
// At most one record exists per UserID; an upsert replaces it.
type SubscriptionRecord struct {
	UserID       string       `json:"user_id"`
	Subscription Subscription `json:"subscription"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// Payload is the structure application events deliver to the client's
// notification display logic.
type Payload struct {
	Title       string           `json:"title"`
	Body        string           `json:"body,omitempty"`
	Type        NotificationType `json:"type,omitempty"`
	ReferenceID string           `json:"reference_id,omitempty"`
	ActorID     string           `json:"actor_id,omitempty"`
	URL         string           `json:"url,omitempty"`
}

// NotificationRequest is a single, ephemeral delivery request.
type NotificationRequest struct {
	TargetUserID string
	// Payload is delivered verbatim as the encrypted message body.
	Payload json.RawMessage
	// SourceEventID is set when the request originates from a Kafka event.
	SourceEventID string
}

// NewNotificationRequest builds a request from a typed payload.
func NewNotificationRequest(userID string, p Payload) (NotificationRequest, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return NotificationRequest{}, fmt.Errorf("marshal payload: %w", err)
	}
	return NotificationRequest{TargetUserID: userID, Payload: b}, nil
}

// Validate enforces a non-empty recipient and a JSON payload.
func (r NotificationRequest) Validate() error {
	if r.TargetUserID == "" {
		return fmt.Errorf("%w: user_id_to_notify is required", ErrInvalidRequest)
	}
	if len(bytes.TrimSpace(r.Payload)) == 0 || bytes.Equal(bytes.TrimSpace(r.Payload), []byte("null")) {
		return fmt.Errorf("%w: notification_payload is required", ErrInvalidRequest)
	}
	if !json.Valid(r.Payload) {
		return fmt.Errorf("%w: notification_payload is not valid JSON", ErrInvalidRequest)
	}
	return nil
}

// Message returns the serialized payload that is encrypted and sent.
func (r NotificationRequest) Message() []byte {
	var buf bytes.Buffer
	if err := json.Compact(&buf, r.Payload); err != nil {
		return r.Payload
	}
	return buf.Bytes()
}

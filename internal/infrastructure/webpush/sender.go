// Package webpush delivers encrypted messages to browser push services.
package webpush

import (
	"context"
	"crypto/ecdh"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"
	"terangahub.app/push/internal/domain"
)

// Config holds the application key pair and delivery options.
type Config struct {
	PublicKey  string
	PrivateKey string
	// Subscriber is the contact the push service can reach the sender at.
	Subscriber string
	TTL        time.Duration
	Urgency    string
	Timeout    time.Duration
}

// Sender implements application.Sender using webpush-go.
type Sender struct {
	cfg    Config
	client *http.Client
}

// New creates a Sender. The HTTP client timeout bounds every delivery.
func New(cfg Config) *Sender {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	cfg.Subscriber = strings.TrimPrefix(cfg.Subscriber, "mailto:")
	return &Sender{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}}
}

// trackingClient records whether the library got as far as the network call,
// which separates encryption failures from transport failures.
type trackingClient struct {
	inner  *http.Client
	called bool
}

func (c *trackingClient) Do(req *http.Request) (*http.Response, error) {
	c.called = true
	return c.inner.Do(req)
}

// Send encrypts message for sub and posts it to the push service once.
func (s *Sender) Send(ctx context.Context, sub domain.Subscription, message []byte) error {
	if err := checkKeys(sub.Keys); err != nil {
		return &domain.EncryptionError{Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	client := &trackingClient{inner: s.client}
	resp, err := webpush.SendNotificationWithContext(ctx, message, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys:     webpush.Keys{P256dh: sub.Keys.P256dh, Auth: sub.Keys.Auth},
	}, &webpush.Options{
		HTTPClient:      client,
		Subscriber:      s.cfg.Subscriber,
		VAPIDPublicKey:  s.cfg.PublicKey,
		VAPIDPrivateKey: s.cfg.PrivateKey,
		TTL:             int(s.cfg.TTL.Seconds()),
		Urgency:         webpush.Urgency(s.cfg.Urgency),
	})
	if err != nil {
		if !client.called {
			return &domain.EncryptionError{Err: err}
		}
		return fmt.Errorf("post to push service: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusGone || resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("push service returned %d: %w", resp.StatusCode, domain.ErrSubscriptionGone)
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("push service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
}

// checkKeys rejects subscription keys that cannot be used for aes128gcm encryption.
func checkKeys(k domain.Keys) error {
	pub, err := decodeKey(k.P256dh)
	if err != nil {
		return fmt.Errorf("p256dh: %w", err)
	}
	if _, err := ecdh.P256().NewPublicKey(pub); err != nil {
		return fmt.Errorf("p256dh: %w", err)
	}
	auth, err := decodeKey(k.Auth)
	if err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	if len(auth) != 16 {
		return fmt.Errorf("auth: want 16 bytes, got %d", len(auth))
	}
	return nil
}

// decodeKey accepts both URL-safe and standard base64, padded or not.
func decodeKey(s string) ([]byte, error) {
	s = strings.TrimRight(s, "=")
	if b, err := base64.RawURLEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	return base64.RawStdEncoding.DecodeString(s)
}

// GenerateKeys creates a new application key pair in the URL-safe form clients expect.
func GenerateKeys() (publicKey, privateKey string, err error) {
	privateKey, publicKey, err = webpush.GenerateVAPIDKeys()
	return publicKey, privateKey, err
}

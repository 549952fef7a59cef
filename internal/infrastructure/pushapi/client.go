// Package pushapi is the HTTP client for the push service API. Devices use it
// to store their subscription; trusted backends use it to invoke the dispatcher.
package pushapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"terangahub.app/push/internal/domain"
)

// Client calls the push service. Token is sent as a bearer credential: an end-user
// token for Upsert, a service-role token for Send.
type Client struct {
	baseURL string
	token   string

	httpClient *http.Client

	// The public key rarely changes; keep it for keyTTL to avoid a request per run.
	mu        sync.RWMutex
	keyTTL    time.Duration
	key       string
	keyExpiry time.Time
}

// New creates a Client with a 10-second request timeout.
func New(baseURL, token string) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		keyTTL:     5 * time.Minute,
	}
}

// APIError is a non-2xx reply from the service.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("push api: status %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("push api: status %d: %s", e.Status, e.Message)
}

// Upsert implements subscriber.Writer against PUT /v1/push-subscriptions.
func (c *Client) Upsert(ctx context.Context, userID string, sub domain.Subscription) error {
	body := map[string]any{"user_id": userID, "subscription": sub}
	return c.do(ctx, http.MethodPut, "/v1/push-subscriptions", body, nil)
}

// Send invokes the dispatcher for userID with payload.
func (c *Client) Send(ctx context.Context, userID string, payload any) error {
	body := map[string]any{
		"user_id_to_notify":    userID,
		"notification_payload": payload,
	}
	return c.do(ctx, http.MethodPost, "/functions/v1/send-push-notification", body, nil)
}

// PublicKey fetches the application server key clients subscribe with.
func (c *Client) PublicKey(ctx context.Context) (string, error) {
	c.mu.RLock()
	if c.key != "" && time.Now().Before(c.keyExpiry) {
		key := c.key
		c.mu.RUnlock()
		return key, nil
	}
	c.mu.RUnlock()

	var out struct {
		PublicKey string `json:"public_key"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/vapid-public-key", nil, &out); err != nil {
		return "", err
	}
	if out.PublicKey == "" {
		return "", fmt.Errorf("push api returned empty public_key")
	}

	c.mu.Lock()
	c.key, c.keyExpiry = out.PublicKey, time.Now().Add(c.keyTTL)
	c.mu.Unlock()
	return out.PublicKey, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var reader io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("push api %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode push api response: %w", err)
	}
	return nil
}

// decodeError understands both the dispatcher reply and echo's {"message": ...}.
func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var body struct {
		Error   string `json:"error"`
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	apiErr := &APIError{Status: resp.StatusCode}
	if json.Unmarshal(raw, &body) == nil {
		apiErr.Code = body.Code
		apiErr.Message = body.Error
		if apiErr.Message == "" {
			apiErr.Message = body.Message
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(raw))
	}
	return apiErr
}

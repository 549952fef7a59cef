package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"terangahub.app/push/internal/application"
	"terangahub.app/push/internal/domain"
	"terangahub.app/push/internal/transport/mw"
)

// UpsertRecorder counts subscription writes. Implementation lives in internal/metrics.
type UpsertRecorder interface {
	ObserveUpsert(err error)
}

// Handler holds all HTTP handler methods.
type Handler struct {
	svc       *application.Service
	hub       *Hub
	rec       UpsertRecorder
	publicKey string
	store     string
}

// NewHandler creates a new Handler. publicKey is served to clients as is;
// store names the subscription backend for /health. rec may be nil.
func NewHandler(svc *application.Service, hub *Hub, rec UpsertRecorder, publicKey, store string) *Handler {
	return &Handler{svc: svc, hub: hub, rec: rec, publicKey: publicKey, store: store}
}

type dispatchRequest struct {
	UserIDToNotify      string          `json:"user_id_to_notify" validate:"required"`
	NotificationPayload json.RawMessage `json:"notification_payload" validate:"required"`
}

type dispatchResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
}

type subscriptionRequest struct {
	UserID       string              `json:"user_id"`
	Subscription domain.Subscription `json:"subscription"`
}

// --- Dispatcher ---

// Dispatch POST /functions/v1/send-push-notification
// Sends exactly one push to the stored subscription of user_id_to_notify.
func (h *Handler) Dispatch(c echo.Context) error {
	var req dispatchRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, invalid("request body must be JSON"))
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, invalid("user_id_to_notify and notification_payload are required"))
	}

	_, err := h.svc.Dispatch(c.Request().Context(), domain.NotificationRequest{
		TargetUserID: req.UserIDToNotify,
		Payload:      req.NotificationPayload,
	})
	if err != nil {
		status := http.StatusInternalServerError
		if domain.StageOf(err) == domain.StageValidation {
			status = http.StatusBadRequest
		}
		code := "delivery_failed"
		var de *domain.DispatchError
		if errors.As(err, &de) {
			code = de.Code()
		}
		return c.JSON(status, dispatchResponse{Error: err.Error(), Code: code})
	}

	return c.JSON(http.StatusOK, dispatchResponse{Success: true, Message: "Push notification sent."})
}

func invalid(msg string) dispatchResponse {
	return dispatchResponse{
		Error: (&domain.DispatchError{Stage: domain.StageValidation, Err: errors.New(msg)}).Error(),
		Code:  "invalid_request",
	}
}

// --- Subscriptions ---

// PutSubscription PUT /v1/push-subscriptions
// The owner is always the token subject; a body user_id naming someone else is refused.
func (h *Handler) PutSubscription(c echo.Context) error {
	userID := mustUserID(c)

	var req subscriptionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "request body must be JSON")
	}
	if req.UserID != "" && req.UserID != userID {
		return echo.NewHTTPError(http.StatusForbidden, "cannot write another user's subscription")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	err := h.svc.SaveSubscription(c.Request().Context(), userID, req.Subscription)
	if h.rec != nil {
		h.rec.ObserveUpsert(err)
	}
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case err != nil:
		log.Error().Err(err).Str("user", userID).Msg("failed to store push subscription")
		return echo.ErrInternalServerError
	}
	return c.NoContent(http.StatusNoContent)
}

// VAPIDPublicKey GET /v1/vapid-public-key
func (h *Handler) VAPIDPublicKey(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"public_key": h.publicKey})
}

// --- SSE Handler ---

// Stream GET /v1/notifications/stream, the in-app fallback channel.
func (h *Handler) Stream(c echo.Context) error {
	userID := mustUserID(c)

	// SSE headers
	w := c.Response()
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable proxy buffering

	sendCh := make(chan []byte, 32)
	client := h.hub.Register(userID, sendCh)
	defer h.hub.Unregister(client)

	fmt.Fprintf(w, "event: connected\ndata: {\"status\":\"ok\"}\n\n")
	w.Flush()

	log.Info().Str("user", userID).Msg("SSE stream opened")

	ctx := c.Request().Context()
	for {
		select {
		case msg, ok := <-sendCh:
			if !ok {
				return nil
			}
			if _, err := w.Write(msg); err != nil {
				return nil
			}
			w.Flush()

		case <-ctx.Done():
			log.Info().Str("user", userID).Msg("SSE stream closed by client")
			return nil
		}
	}
}

// --- Healthcheck ---

// Health GET /health
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":      "ok",
		"store":       h.store,
		"sse_clients": h.hub.ConnectedCount(),
	})
}

// --- Helpers ---

func mustUserID(c echo.Context) string {
	userID, _ := c.Get(mw.UserIDKey).(string)
	return userID
}

package subscriber

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
)

// AuthEventKind mirrors the session changes reported by the auth provider.
type AuthEventKind string

const (
	EventSessionRestored AuthEventKind = "SESSION_RESTORED"
	EventSignedIn        AuthEventKind = "SIGNED_IN"
	EventSignedOut       AuthEventKind = "SIGNED_OUT"
	EventTokenRefreshed  AuthEventKind = "TOKEN_REFRESHED"
)

// AuthEvent is one session transition. UserID is empty for EventSignedOut.
type AuthEvent struct {
	Kind   AuthEventKind
	UserID string
}

// Watch runs the flow once per transition into the authenticated state.
// It returns when events is closed or ctx is done.
func (m *Manager) Watch(ctx context.Context, events <-chan AuthEvent) {
	var current string
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			switch ev.Kind {
			case EventSessionRestored, EventSignedIn:
				if ev.UserID == "" || ev.UserID == current {
					continue
				}
				current = ev.UserID
				m.runAndLog(ctx, ev)
			case EventSignedOut:
				current = ""
			}
		}
	}
}

func (m *Manager) runAndLog(ctx context.Context, ev AuthEvent) {
	state, err := m.Run(ctx, ev.UserID)
	logger := log.With().Str("user", ev.UserID).Str("trigger", string(ev.Kind)).Str("state", state.String()).Logger()

	switch {
	case err == nil:
		logger.Debug().Msg("push registration complete")
	case errors.Is(err, ErrUnsupported), errors.Is(err, ErrPermissionDenied), errors.Is(err, ErrInFlight):
		logger.Warn().Err(err).Msg("push registration skipped")
	default:
		logger.Error().Err(err).Msg("push registration failed")
	}
}

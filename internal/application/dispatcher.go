package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"terangahub.app/push/internal/domain"
)

// Sender is the Web Push delivery primitive.
// It returns domain.ErrSubscriptionGone (wrapped) when the push service reports
// the endpoint as expired, and *domain.EncryptionError when the message could not
// be encrypted.
type Sender interface {
	Send(ctx context.Context, sub domain.Subscription, message []byte) error
}

// InAppNotifier delivers a payload to a user's open app sessions.
// Implementation lives in transport/http/sse_hub.go.
type InAppNotifier interface {
	// Broadcast reports whether at least one session received the payload.
	Broadcast(userID string, payload json.RawMessage) bool
}

// Recorder receives dispatch outcomes. Implementation lives in internal/metrics.
type Recorder interface {
	ObserveDispatch(outcome string, elapsed time.Duration)
	ObservePrune(removed bool)
}

// Options tune the dispatcher.
type Options struct {
	// PruneOnGone removes a stored subscription once the push service reports it gone.
	PruneOnGone bool
}

// Channel is how a notification reached the user.
type Channel string

const (
	ChannelPush  Channel = "push"
	ChannelInApp Channel = "in_app"
)

// DeliveryResult acknowledges a successful delivery.
type DeliveryResult struct {
	DeliveryID   uuid.UUID
	UserID       string
	Channel      Channel
	EndpointHost string
}

// Service holds the notification dispatch use-cases.
type Service struct {
	repo   domain.SubscriptionRepository
	sender Sender
	inApp  InAppNotifier
	rec    Recorder
	opts   Options
}

// NewService creates a new dispatch Service. inApp and rec may be nil.
func NewService(repo domain.SubscriptionRepository, sender Sender, inApp InAppNotifier, rec Recorder, opts Options) *Service {
	return &Service{repo: repo, sender: sender, inApp: inApp, rec: rec, opts: opts}
}

// Dispatch looks up the recipient's subscription and performs exactly one push delivery.
// Every failure is returned as a *domain.DispatchError; nothing is retried.
func (s *Service) Dispatch(ctx context.Context, req domain.NotificationRequest) (*DeliveryResult, error) {
	start := time.Now()
	id := uuid.New()

	res, err := s.dispatch(ctx, id, req)

	outcome := "success"
	if err != nil {
		outcome = string(domain.StageOf(err))
	}
	if s.rec != nil {
		s.rec.ObserveDispatch(outcome, time.Since(start))
	}

	if err != nil {
		log.Warn().Err(err).
			Str("delivery_id", id.String()).
			Str("user", req.TargetUserID).
			Str("stage", outcome).
			Msg("push dispatch failed")
		return nil, err
	}

	log.Info().
		Str("delivery_id", id.String()).
		Str("user", res.UserID).
		Str("endpoint_host", res.EndpointHost).
		Dur("elapsed", time.Since(start)).
		Msg("push notification sent")
	return res, nil
}

func (s *Service) dispatch(ctx context.Context, id uuid.UUID, req domain.NotificationRequest) (*DeliveryResult, error) {
	if err := req.Validate(); err != nil {
		return nil, &domain.DispatchError{Stage: domain.StageValidation, Err: err}
	}

	rec, err := s.repo.Get(ctx, req.TargetUserID)
	if err != nil {
		if errors.Is(err, domain.ErrNoSubscription) {
			return nil, &domain.DispatchError{Stage: domain.StageMissing, Err: err}
		}
		return nil, &domain.DispatchError{Stage: domain.StageLookup, Err: err}
	}
	if rec == nil {
		return nil, &domain.DispatchError{Stage: domain.StageMissing, Err: domain.ErrNoSubscription}
	}

	sub := rec.Subscription
	if err := s.sender.Send(ctx, sub, req.Message()); err != nil {
		var encErr *domain.EncryptionError
		switch {
		case errors.As(err, &encErr):
			return nil, &domain.DispatchError{Stage: domain.StageEncryption, Err: err}
		case errors.Is(err, domain.ErrSubscriptionGone):
			s.prune(ctx, req.TargetUserID, sub)
			return nil, &domain.DispatchError{Stage: domain.StageGone, Err: err}
		default:
			return nil, &domain.DispatchError{Stage: domain.StageDelivery, Err: err}
		}
	}

	return &DeliveryResult{
		DeliveryID:   id,
		UserID:       req.TargetUserID,
		Channel:      ChannelPush,
		EndpointHost: sub.EndpointHost(),
	}, nil
}

// prune invalidates a stale record. It only removes the row while it still holds
// the endpoint that failed, so a re-subscribe that raced the delivery survives.
func (s *Service) prune(ctx context.Context, userID string, sub domain.Subscription) {
	if !s.opts.PruneOnGone {
		return
	}
	removed, err := s.repo.DeleteIfEndpoint(ctx, userID, sub.Endpoint)
	if err != nil {
		log.Error().Err(err).Str("user", userID).Msg("failed to prune expired push subscription")
		return
	}
	if s.rec != nil {
		s.rec.ObservePrune(removed)
	}
	log.Info().Str("user", userID).Bool("removed", removed).Str("endpoint_host", sub.EndpointHost()).
		Msg("expired push subscription pruned")
}

// Notify is the event-driven entry point. It dispatches a push and, when the user
// has no usable subscription, falls back to any open in-app session.
func (s *Service) Notify(ctx context.Context, req domain.NotificationRequest) (*DeliveryResult, error) {
	res, err := s.Dispatch(ctx, req)
	if err == nil {
		return res, nil
	}

	stage := domain.StageOf(err)
	if s.inApp == nil || (stage != domain.StageMissing && stage != domain.StageGone) {
		return nil, err
	}
	if !s.inApp.Broadcast(req.TargetUserID, req.Message()) {
		return nil, err
	}

	log.Debug().Str("user", req.TargetUserID).Str("stage", string(stage)).Msg("push unavailable, delivered in-app")
	return &DeliveryResult{
		DeliveryID: uuid.New(),
		UserID:     req.TargetUserID,
		Channel:    ChannelInApp,
	}, nil
}

// SaveSubscription validates and upserts a subscription for userID.
// This is the server half of the device registration flow.
func (s *Service) SaveSubscription(ctx context.Context, userID string, sub domain.Subscription) error {
	if userID == "" {
		return fmt.Errorf("%w: user id is required", domain.ErrInvalidRequest)
	}
	if err := sub.Validate(); err != nil {
		return err
	}
	if err := s.repo.Upsert(ctx, userID, sub); err != nil {
		return fmt.Errorf("upsert subscription: %w", err)
	}
	log.Info().Str("user", userID).Str("endpoint_host", sub.EndpointHost()).Msg("push subscription stored")
	return nil
}

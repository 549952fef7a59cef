package kafka

import (
	"context"

	"github.com/rs/zerolog/log"
	"terangahub.app/push/internal/application"
	"terangahub.app/push/internal/domain"
	"terangahub.app/push/internal/kafka/registry"

	// Blank import triggers init() in each handler file,
	// registering all event handlers into the registry.
	_ "terangahub.app/push/internal/kafka/handlers"
)

// Notifier is satisfied by *application.Service.
type Notifier interface {
	Notify(ctx context.Context, req domain.NotificationRequest) (*application.DeliveryResult, error)
}

// Deduper claims source event ids. Implementation lives in infrastructure/redis.
type Deduper interface {
	FirstSeen(ctx context.Context, eventID string) (bool, error)
}

// EventRecorder receives per-event results. Implementation lives in internal/metrics.
type EventRecorder interface {
	ObserveEvent(topic, result string)
}

// Event results.
const (
	ResultSkipped   = "skipped"
	ResultDuplicate = "duplicate"
	ResultDelivered = "delivered"
	ResultFailed    = "failed"
)

// Processor turns one Kafka record into at most one notification.
type Processor struct {
	notifier Notifier
	dedupe   Deduper
	rec      EventRecorder
}

// NewProcessor creates a Processor. dedupe and rec may be nil.
func NewProcessor(n Notifier, dedupe Deduper, rec EventRecorder) *Processor {
	return &Processor{notifier: n, dedupe: dedupe, rec: rec}
}

// Process dispatches a record to the registered handler, then notifies the recipient.
// It never returns an error: failures are logged and counted.
func (p *Processor) Process(ctx context.Context, topic string, value []byte) string {
	result := p.process(ctx, topic, value)
	if p.rec != nil {
		p.rec.ObserveEvent(topic, result)
	}
	return result
}

func (p *Processor) process(ctx context.Context, topic string, value []byte) string {
	// push-commands doesn't use eventType routing
	req := registry.DispatchDirect(topic, value)
	if req == nil {
		req = registry.Dispatch(topic, value)
	}
	if req == nil {
		log.Debug().Str("topic", topic).Msg("no handler matched, skipping")
		return ResultSkipped
	}

	if p.dedupe != nil && req.SourceEventID != "" {
		first, err := p.dedupe.FirstSeen(ctx, req.SourceEventID)
		if err != nil {
			log.Warn().Err(err).Str("source_event_id", req.SourceEventID).Msg("dedupe unavailable, delivering anyway")
		} else if !first {
			log.Debug().Str("source_event_id", req.SourceEventID).Msg("duplicate event, skipping")
			return ResultDuplicate
		}
	}

	res, err := p.notifier.Notify(ctx, *req)
	if err != nil {
		log.Error().Err(err).
			Str("topic", topic).
			Str("user", req.TargetUserID).
			Str("source_event_id", req.SourceEventID).
			Msg("failed to notify from kafka event")
		return ResultFailed
	}

	log.Debug().Str("user", res.UserID).Str("channel", string(res.Channel)).Msg("kafka event delivered")
	return ResultDelivered
}

package kafka_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"terangahub.app/push/internal/application"
	"terangahub.app/push/internal/domain"
	"terangahub.app/push/internal/kafka"
)

type fakeNotifier struct {
	err  error
	reqs []domain.NotificationRequest
}

func (f *fakeNotifier) Notify(_ context.Context, req domain.NotificationRequest) (*application.DeliveryResult, error) {
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return nil, f.err
	}
	return &application.DeliveryResult{UserID: req.TargetUserID, Channel: application.ChannelPush}, nil
}

type memDeduper struct {
	seen map[string]bool
	err  error
}

func (d *memDeduper) FirstSeen(_ context.Context, id string) (bool, error) {
	if d.err != nil {
		return false, d.err
	}
	if d.seen[id] {
		return false, nil
	}
	d.seen[id] = true
	return true, nil
}

type countingRecorder map[string]int

func (c countingRecorder) ObserveEvent(topic, result string) { c[topic+"/"+result]++ }

var comment = []byte(`{"eventType":"COMMENT_CREATED","eventId":"evt-7","payload":{"recipientId":"author","actorId":"fan","actorName":"Awa","postId":"p1"}}`)

func TestProcess_DeliversOncePerEvent(t *testing.T) {
	n := &fakeNotifier{}
	rec := countingRecorder{}
	p := kafka.NewProcessor(n, &memDeduper{seen: map[string]bool{}}, rec)

	assert.Equal(t, kafka.ResultDelivered, p.Process(context.Background(), "social-events", comment))
	assert.Equal(t, kafka.ResultDuplicate, p.Process(context.Background(), "social-events", comment))

	require.Len(t, n.reqs, 1)
	assert.Equal(t, "author", n.reqs[0].TargetUserID)
	assert.Equal(t, 1, rec["social-events/delivered"])
	assert.Equal(t, 1, rec["social-events/duplicate"])
}

func TestProcess_DedupeOutageFailsOpen(t *testing.T) {
	n := &fakeNotifier{}
	p := kafka.NewProcessor(n, &memDeduper{err: errors.New("redis down")}, nil)

	assert.Equal(t, kafka.ResultDelivered, p.Process(context.Background(), "social-events", comment))
	assert.Len(t, n.reqs, 1)
}

func TestProcess_UnknownEventIsSkipped(t *testing.T) {
	n := &fakeNotifier{}
	p := kafka.NewProcessor(n, nil, nil)

	assert.Equal(t, kafka.ResultSkipped, p.Process(context.Background(), "social-events", []byte(`{"eventType":"POST_DELETED"}`)))
	assert.Equal(t, kafka.ResultSkipped, p.Process(context.Background(), "unknown-topic", []byte(`{}`)))
	assert.Empty(t, n.reqs)
}

func TestProcess_NotifyFailureIsCountedNotRetried(t *testing.T) {
	n := &fakeNotifier{err: &domain.DispatchError{Stage: domain.StageDelivery, Err: errors.New("503")}}
	p := kafka.NewProcessor(n, nil, nil)

	assert.Equal(t, kafka.ResultFailed, p.Process(context.Background(), "social-events", comment))
	assert.Len(t, n.reqs, 1)
}

func TestProcess_DirectCommand(t *testing.T) {
	n := &fakeNotifier{}
	p := kafka.NewProcessor(n, nil, nil)

	res := p.Process(context.Background(), "push-commands", []byte(`{"commandId":"c1","userId":"u1","payload":{"title":"hi"}}`))
	assert.Equal(t, kafka.ResultDelivered, res)
	require.Len(t, n.reqs, 1)
	assert.JSONEq(t, `{"title":"hi"}`, string(n.reqs[0].Payload))
}

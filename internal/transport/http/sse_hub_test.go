package http

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHub_BroadcastReachesOnlyTheUser(t *testing.T) {
	h := NewHub()
	mine := make(chan []byte, 1)
	other := make(chan []byte, 1)
	c := h.Register("u1", mine)
	h.Register("u2", other)

	assert.True(t, h.Broadcast("u1", json.RawMessage(`{"title":"hi"}`)))
	assert.Equal(t, "event: notification\ndata: {\"title\":\"hi\"}\n\n", string(<-mine))
	assert.Empty(t, other)

	h.Unregister(c)
	assert.False(t, h.Broadcast("u1", json.RawMessage(`{}`)))
	assert.Equal(t, 1, h.ConnectedCount())
}

func TestHub_FullBufferIsNotDelivered(t *testing.T) {
	h := NewHub()
	ch := make(chan []byte, 1)
	h.Register("u1", ch)

	assert.True(t, h.Broadcast("u1", json.RawMessage(`1`)))
	assert.False(t, h.Broadcast("u1", json.RawMessage(`2`)))
}

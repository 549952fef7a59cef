package registry_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"terangahub.app/push/internal/domain"
	"terangahub.app/push/internal/kafka/registry"
)

func makeJSON(v any) []byte {
	b, _ := json.Marshal(v)
	return b
}

func TestRegisterAndDispatch(t *testing.T) {
	called := false
	registry.Register("test-topic", "TEST_EVENT", func(data []byte) *domain.NotificationRequest {
		called = true
		return &domain.NotificationRequest{TargetUserID: "u1"}
	})

	result := registry.Dispatch("test-topic", makeJSON(map[string]string{
		"eventType": "TEST_EVENT",
	}))

	assert.True(t, called)
	require.NotNil(t, result)
	assert.Equal(t, "u1", result.TargetUserID)
}

func TestDispatch_UnknownEvent_ReturnsNil(t *testing.T) {
	result := registry.Dispatch("test-topic", makeJSON(map[string]string{
		"eventType": "UNKNOWN_EVENT_XYZ",
	}))
	assert.Nil(t, result)
}

func TestDispatch_InvalidJSON_ReturnsNil(t *testing.T) {
	assert.Nil(t, registry.Dispatch("test-topic", []byte("not json")))
}

func TestDispatchDirect(t *testing.T) {
	registry.Register("direct-topic", "", func(data []byte) *domain.NotificationRequest {
		return &domain.NotificationRequest{TargetUserID: "direct"}
	})

	result := registry.DispatchDirect("direct-topic", []byte(`{}`))
	require.NotNil(t, result)
	assert.Equal(t, "direct", result.TargetUserID)
	assert.Nil(t, registry.DispatchDirect("other-topic", []byte(`{}`)))
}

func TestRegister_DuplicatePanics(t *testing.T) {
	registry.Register("dupe-topic", "DUPE_EVENT", func(_ []byte) *domain.NotificationRequest { return nil })
	assert.Panics(t, func() {
		registry.Register("dupe-topic", "DUPE_EVENT", func(_ []byte) *domain.NotificationRequest { return nil })
	})
}

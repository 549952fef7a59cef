package redis_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"terangahub.app/push/internal/infrastructure/redis"
)

func TestNew_UnreachableServerFails(t *testing.T) {
	d, err := redis.New("127.0.0.1:1", "", 0, time.Hour)
	assert.Nil(t, d)
	assert.ErrorContains(t, err, "redis ping 127.0.0.1:1")
}

package messages_test

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"terangahub.app/push/internal/messages"
)

func TestBuilders(t *testing.T) {
	title, body := messages.Comment("awa")
	assert.Equal(t, "New comment", title)
	assert.Equal(t, "awa commented on your post", body)

	_, body = messages.Like("")
	assert.Equal(t, "Someone liked your post", body)

	title, body = messages.Follow("moussa")
	assert.Equal(t, "New follower", title)
	assert.Equal(t, "moussa started following you", body)
}

func TestMessagePreviewIsTruncated(t *testing.T) {
	title, body := messages.Message("fatou", strings.Repeat("é", 500))
	assert.Equal(t, "New message from fatou", title)
	assert.Equal(t, 120, utf8.RuneCountInString(body))
	assert.True(t, strings.HasSuffix(body, "…"))

	_, body = messages.Message("fatou", "salaam")
	assert.Equal(t, "salaam", body)
}

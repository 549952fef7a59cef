package webpush_test

import (
	"context"
	"crypto/ecdh"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"terangahub.app/push/internal/domain"
	"terangahub.app/push/internal/infrastructure/webpush"
	"terangahub.app/push/internal/vapid"
)

func deviceKeys(t *testing.T) domain.Keys {
	t.Helper()
	priv, err := ecdh.P256().GenerateKey(rand.Reader)
	require.NoError(t, err)
	auth := make([]byte, 16)
	_, err = rand.Read(auth)
	require.NoError(t, err)
	return domain.Keys{
		P256dh: base64.RawURLEncoding.EncodeToString(priv.PublicKey().Bytes()),
		Auth:   base64.RawURLEncoding.EncodeToString(auth),
	}
}

func newSender(t *testing.T, timeout time.Duration) *webpush.Sender {
	t.Helper()
	pub, priv, err := webpush.GenerateKeys()
	require.NoError(t, err)
	return webpush.New(webpush.Config{
		PublicKey:  pub,
		PrivateKey: priv,
		Subscriber: "mailto:ops@terangahub.app",
		TTL:        24 * time.Hour,
		Urgency:    "normal",
		Timeout:    timeout,
	})
}

type pushService struct {
	status int
	delay  time.Duration
	hits   atomic.Int32
	header atomic.Value
	body   atomic.Value
}

func (p *pushService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.hits.Add(1)
	p.header.Store(r.Header.Clone())
	b, _ := io.ReadAll(r.Body)
	p.body.Store(b)
	if p.delay > 0 {
		time.Sleep(p.delay)
	}
	w.WriteHeader(p.status)
	_, _ = w.Write([]byte("push service says no"))
}

func TestGenerateKeys_PublicKeyIsUsableByClients(t *testing.T) {
	pub, priv, err := webpush.GenerateKeys()
	require.NoError(t, err)
	assert.NotEmpty(t, priv)
	_, err = vapid.ParsePublicKey(pub)
	assert.NoError(t, err)
}

func TestSend_Created(t *testing.T) {
	ps := &pushService{status: http.StatusCreated}
	srv := httptest.NewServer(ps)
	defer srv.Close()

	sub := domain.Subscription{Endpoint: srv.URL + "/push/abc", Keys: deviceKeys(t)}
	err := newSender(t, 2*time.Second).Send(context.Background(), sub, []byte(`{"title":"New comment"}`))
	require.NoError(t, err)

	assert.Equal(t, int32(1), ps.hits.Load())
	h := ps.header.Load().(http.Header)
	assert.Equal(t, "aes128gcm", h.Get("Content-Encoding"))
	assert.Equal(t, "86400", h.Get("TTL"))
	assert.True(t, strings.HasPrefix(h.Get("Authorization"), "vapid t="))
	body := ps.body.Load().([]byte)
	assert.NotContains(t, string(body), "New comment", "payload must be encrypted")
}

func TestSend_GoneAndNotFoundAreStale(t *testing.T) {
	for _, status := range []int{http.StatusGone, http.StatusNotFound} {
		srv := httptest.NewServer(&pushService{status: status})
		sub := domain.Subscription{Endpoint: srv.URL + "/push/abc", Keys: deviceKeys(t)}

		err := newSender(t, 2*time.Second).Send(context.Background(), sub, []byte(`{}`))
		assert.ErrorIs(t, err, domain.ErrSubscriptionGone, "status %d", status)
		srv.Close()
	}
}

func TestSend_OtherStatusIsDeliveryError(t *testing.T) {
	srv := httptest.NewServer(&pushService{status: http.StatusTooManyRequests})
	defer srv.Close()
	sub := domain.Subscription{Endpoint: srv.URL + "/push/abc", Keys: deviceKeys(t)}

	err := newSender(t, 2*time.Second).Send(context.Background(), sub, []byte(`{}`))
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrSubscriptionGone)
	assert.Contains(t, err.Error(), "429")
	assert.Contains(t, err.Error(), "push service says no")
}

func TestSend_BadKeysFailBeforeNetwork(t *testing.T) {
	ps := &pushService{status: http.StatusCreated}
	srv := httptest.NewServer(ps)
	defer srv.Close()

	for name, keys := range map[string]domain.Keys{
		"garbage p256dh": {P256dh: "not a key", Auth: deviceKeys(t).Auth},
		"short auth":     {P256dh: deviceKeys(t).P256dh, Auth: "AAAA"},
	} {
		t.Run(name, func(t *testing.T) {
			sub := domain.Subscription{Endpoint: srv.URL + "/push/abc", Keys: keys}
			err := newSender(t, time.Second).Send(context.Background(), sub, []byte(`{}`))
			var encErr *domain.EncryptionError
			assert.ErrorAs(t, err, &encErr)
		})
	}
	assert.Zero(t, ps.hits.Load())
}

func TestSend_TimeoutIsDeliveryError(t *testing.T) {
	srv := httptest.NewServer(&pushService{status: http.StatusCreated, delay: 500 * time.Millisecond})
	defer srv.Close()
	sub := domain.Subscription{Endpoint: srv.URL + "/push/abc", Keys: deviceKeys(t)}

	err := newSender(t, 50*time.Millisecond).Send(context.Background(), sub, []byte(`{}`))
	require.Error(t, err)
	var encErr *domain.EncryptionError
	assert.False(t, errors.As(err, &encErr))
	assert.NotErrorIs(t, err, domain.ErrSubscriptionGone)
}

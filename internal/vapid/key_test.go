package vapid_test

import (
	"crypto/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"terangahub.app/push/internal/vapid"
)

const appPublicKey = "BMZtsjLVAlMgYB235iT7OoA2sJL7fUhGXa9flptCnGVcLosNjg6xKwtA-LEAN_Tdw_zbukNTqp0gIiHteOiu8Gc"

func TestDecodePublicKey_AppKey(t *testing.T) {
	require.True(t, strings.ContainsAny(appPublicKey, "-_"))

	raw, err := vapid.DecodePublicKey(appPublicKey)
	require.NoError(t, err)
	assert.Len(t, raw, vapid.PublicKeySize)
	assert.Equal(t, byte(0x04), raw[0])

	parsed, err := vapid.ParsePublicKey(appPublicKey)
	require.NoError(t, err)
	assert.Equal(t, raw, parsed)
}

func TestDecodePublicKey_RoundTripAllLengths(t *testing.T) {
	for n := 1; n <= 96; n++ {
		raw := make([]byte, n)
		_, err := rand.Read(raw)
		require.NoError(t, err)

		encoded := vapid.EncodePublicKey(raw)
		assert.NotContains(t, encoded, "=")

		decoded, err := vapid.DecodePublicKey(encoded)
		require.NoError(t, err, "length %d", n)
		assert.Equal(t, raw, decoded, "length %d", n)
		assert.Equal(t, encoded, vapid.EncodePublicKey(decoded))
	}
}

func TestDecodePublicKey_AcceptsPaddedInput(t *testing.T) {
	raw := []byte{0xfb, 0xff, 0xbf}
	decoded, err := vapid.DecodePublicKey("-_-_")
	require.NoError(t, err)
	assert.Equal(t, raw, decoded)

	decoded, err = vapid.DecodePublicKey("AQ==")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01}, decoded)
}

func TestDecodePublicKey_Malformed(t *testing.T) {
	for _, in := range []string{"", "   ", "not base64!", "A"} {
		_, err := vapid.DecodePublicKey(in)
		assert.ErrorIs(t, err, vapid.ErrMalformedKey, "input %q", in)
	}
}

func TestParsePublicKey_WrongSize(t *testing.T) {
	_, err := vapid.ParsePublicKey(vapid.EncodePublicKey([]byte{0x04, 0x01, 0x02}))
	assert.ErrorIs(t, err, vapid.ErrMalformedKey)

	assert.Panics(t, func() { vapid.MustParsePublicKey("AQ") })
	assert.NotPanics(t, func() { vapid.MustParsePublicKey(appPublicKey) })
}

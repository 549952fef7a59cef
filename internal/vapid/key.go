// Package vapid converts the application's push public key between the
// URL-safe text form distributed to clients and the raw bytes the browser
// subscription call expects.
package vapid

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// PublicKeySize is the length of an uncompressed P-256 point.
const PublicKeySize = 65

var ErrMalformedKey = errors.New("malformed application server key")

// DecodePublicKey decodes a URL-safe, possibly unpadded base64 string.
// Padding is restored to a multiple of four and '-' / '_' are mapped to
// '+' / '/' before standard decoding.
func DecodePublicKey(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: empty key", ErrMalformedKey)
	}
	if pad := (4 - len(s)%4) % 4; pad > 0 {
		s += strings.Repeat("=", pad)
	}
	s = strings.NewReplacer("-", "+", "_", "/").Replace(s)

	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedKey, err)
	}
	return raw, nil
}

// EncodePublicKey renders raw bytes in the unpadded URL-safe form.
func EncodePublicKey(raw []byte) string {
	return base64.RawURLEncoding.EncodeToString(raw)
}

// ParsePublicKey decodes s and checks that it is an uncompressed P-256 point.
func ParsePublicKey(s string) ([]byte, error) {
	raw, err := DecodePublicKey(s)
	if err != nil {
		return nil, err
	}
	if len(raw) != PublicKeySize || raw[0] != 0x04 {
		return nil, fmt.Errorf("%w: want %d-byte uncompressed point, got %d bytes", ErrMalformedKey, PublicKeySize, len(raw))
	}
	return raw, nil
}

// MustParsePublicKey is ParsePublicKey for keys baked into configuration.
// A malformed key is a deployment error, so it panics.
func MustParsePublicKey(s string) []byte {
	raw, err := ParsePublicKey(s)
	if err != nil {
		panic(err)
	}
	return raw
}

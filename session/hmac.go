package session

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
)

// Callback authentication errors.
var (
	// ErrMissingSecret is returned when no callback secret is configured.
	// Inbound callbacks are never accepted without one.
	ErrMissingSecret = errors.New("no callback secret configured")
	// ErrBadSignature is returned when a callback signature does not match.
	ErrBadSignature = errors.New("callback signature mismatch")
)

// Sign computes the HMAC-SHA256 signature over the exact raw body, encoded
// as unpadded base64url.
func Sign(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// Verify checks signature against the expected HMAC of body using a
// constant-time comparison.
func Verify(secret, body []byte, signature string) bool {
	expected := Sign(secret, body)
	return hmac.Equal([]byte(expected), []byte(signature))
}

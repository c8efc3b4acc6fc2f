package order

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// pickupAlphabet omits characters that are easy to misread on a small
// terminal display (0/O, 1/I/L).
const pickupAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

const (
	accessTokenBytes = 32
	pickupCodeLength = 8
)

// NewAccessToken returns a URL-safe random token suitable for embedding in a
// QR code. 256 bits of entropy make collisions a non-event; the unique
// constraint on the column is the backstop.
func NewAccessToken() (string, error) {
	buf := make([]byte, accessTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate access token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// NewPickupCode returns a short human-enterable code for manual pickup when a
// patient cannot present the QR code.
func NewPickupCode() (string, error) {
	buf := make([]byte, pickupCodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate pickup code: %w", err)
	}
	code := make([]byte, pickupCodeLength)
	for i, b := range buf {
		code[i] = pickupAlphabet[int(b)%len(pickupAlphabet)]
	}
	return string(code), nil
}

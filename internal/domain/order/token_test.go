package order

import (
	"strings"
	"testing"
)

func TestNewAccessToken(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		tok, err := NewAccessToken()
		if err != nil {
			t.Fatalf("mint: %v", err)
		}
		// 32 bytes in unpadded base64url.
		if len(tok) != 43 {
			t.Fatalf("token length = %d, want 43", len(tok))
		}
		if strings.ContainsAny(tok, "+/=") {
			t.Fatalf("token not URL-safe: %q", tok)
		}
		if seen[tok] {
			t.Fatalf("duplicate token minted: %q", tok)
		}
		seen[tok] = true
	}
}

func TestNewPickupCode(t *testing.T) {
	code, err := NewPickupCode()
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if len(code) != pickupCodeLength {
		t.Fatalf("code length = %d, want %d", len(code), pickupCodeLength)
	}
	for _, r := range code {
		if !strings.ContainsRune(pickupAlphabet, r) {
			t.Fatalf("code %q contains %q outside the alphabet", code, r)
		}
	}
}

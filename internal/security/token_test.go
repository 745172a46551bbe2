package security

import (
	"testing"
	"time"
)

func TestNewTemporaryToken(t *testing.T) {
	tok, err := NewTemporaryToken()

	if err != nil {
		t.Fatalf("NewTemporaryToken returned error: %v", err)
	}

	// 20 random bytes, hex encoded
	if len(tok.Plain) != 40 {
		t.Fatalf("plain token length = %d, want 40", len(tok.Plain))
	}

	if tok.Hash == tok.Plain {
		t.Fatalf("stored hash must not equal the plain token")
	}

	if tok.Hash != HashToken(tok.Plain) {
		t.Fatalf("hash is not the digest of the plain token")
	}

	window := time.Until(tok.ExpiresAt)

	if window <= 19*time.Minute || window > TemporaryTokenTTL {
		t.Fatalf("expiry window = %v, want about %v", window, TemporaryTokenTTL)
	}
}

func TestNewTemporaryTokenUnique(t *testing.T) {
	a, err := NewTemporaryToken()
	if err != nil {
		t.Fatalf("NewTemporaryToken returned error: %v", err)
	}

	b, err := NewTemporaryToken()
	if err != nil {
		t.Fatalf("NewTemporaryToken returned error: %v", err)
	}

	if a.Plain == b.Plain {
		t.Fatalf("two generated tokens were identical")
	}
}

func TestValidateToken(t *testing.T) {
	tok, err := NewTemporaryToken()
	if err != nil {
		t.Fatalf("NewTemporaryToken returned error: %v", err)
	}

	now := time.Now().UTC()

	if !ValidateToken(tok.Plain, tok.Hash, tok.ExpiresAt, now) {
		t.Fatalf("fresh token did not validate")
	}

	// wrong token, same window
	if ValidateToken("deadbeef", tok.Hash, tok.ExpiresAt, now) {
		t.Fatalf("wrong token validated")
	}

	// right token, expired window
	if ValidateToken(tok.Plain, tok.Hash, tok.ExpiresAt, tok.ExpiresAt.Add(time.Second)) {
		t.Fatalf("expired token validated")
	}

	// expiry boundary: now == expiry is already expired
	if ValidateToken(tok.Plain, tok.Hash, tok.ExpiresAt, tok.ExpiresAt) {
		t.Fatalf("token validated exactly at expiry")
	}
}

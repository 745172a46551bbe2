package security

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"time"
)

// TemporaryTokenTTL is the validity window for single-use verification and
// password-reset tokens.
const TemporaryTokenTTL = 20 * time.Minute

const temporaryTokenBytes = 20

// TemporaryToken is a single-use, time-boxed secret. Plain goes to the user
// (embedded in a URL) exactly once; only Hash and ExpiresAt are persisted.
type TemporaryToken struct {
	Plain     string
	Hash      string
	ExpiresAt time.Time
}

// NewTemporaryToken generates a fresh random token pair.
func NewTemporaryToken() (TemporaryToken, error) {
	buf := make([]byte, temporaryTokenBytes)

	_, err := rand.Read(buf)

	if err != nil {
		return TemporaryToken{}, err
	}

	plain := hex.EncodeToString(buf)

	return TemporaryToken{
		Plain:     plain,
		Hash:      HashToken(plain),
		ExpiresAt: time.Now().UTC().Add(TemporaryTokenTTL),
	}, nil
}

// HashToken computes the deterministic at-rest digest of a plain token.
func HashToken(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:])
}

// ValidateToken reports whether the plain token supplied by a user matches the
// stored hash and is still inside its window. Both checks must pass; callers
// surface the same generic outcome whichever one failed.
func ValidateToken(plain, storedHash string, expiry time.Time, now time.Time) bool {
	digest := HashToken(plain)

	match := subtle.ConstantTimeCompare([]byte(digest), []byte(storedHash)) == 1

	return match && expiry.After(now)
}

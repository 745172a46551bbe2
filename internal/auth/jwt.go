package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is the single failure surfaced by verification. Expired,
// malformed and badly-signed tokens all collapse into it so callers cannot
// leak the reason to the end user.
var ErrInvalidToken = errors.New("invalid token")

// AccessClaims is the compact claim set carried by short-lived access tokens.
type AccessClaims struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// refreshClaims carry the subject only. Minimal on purpose: a leaked refresh
// token exposes nothing beyond the user id.
type refreshClaims struct {
	jwt.RegisteredClaims
}

// Signer issues and verifies the two JWT families. Access and refresh tokens
// are signed with distinct secrets.
type Signer struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

func NewSigner(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *Signer {
	return &Signer{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

func (s *Signer) IssueAccessToken(userID, email, username string) (string, error) {
	now := time.Now().UTC()

	claims := AccessClaims{
		Email:    email,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString(s.accessSecret)
}

func (s *Signer) IssueRefreshToken(userID string) (string, error) {
	now := time.Now().UTC()

	claims := refreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.refreshTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString(s.refreshSecret)
}

// VerifyAccessToken checks signature and expiry against the access secret.
func (s *Signer) VerifyAccessToken(raw string) (*AccessClaims, error) {
	claims := &AccessClaims{}

	err := s.parse(raw, claims, s.accessSecret)

	if err != nil {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// VerifyRefreshToken checks signature and expiry against the refresh secret
// and returns the subject.
func (s *Signer) VerifyRefreshToken(raw string) (string, error) {
	claims := &refreshClaims{}

	err := s.parse(raw, claims, s.refreshSecret)

	if err != nil {
		return "", ErrInvalidToken
	}

	if claims.Subject == "" {
		return "", ErrInvalidToken
	}

	return claims.Subject, nil
}

func (s *Signer) parse(raw string, claims jwt.Claims, secret []byte) error {
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		// Enforce HS256
		_, ok := t.Method.(*jwt.SigningMethodHMAC)

		if !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	})

	if err != nil {
		return err
	}

	if !token.Valid {
		return ErrInvalidToken
	}

	return nil
}

// HashRefreshToken computes the deterministic at-rest digest of a refresh
// token (HMAC keyed with the refresh secret). The raw token is never stored.
func (s *Signer) HashRefreshToken(raw string) string {
	h := hmac.New(sha256.New, s.refreshSecret)
	h.Write([]byte(raw))
	return hex.EncodeToString(h.Sum(nil))
}

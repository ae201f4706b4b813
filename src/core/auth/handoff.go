package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/hkdf"
)

const handoffAudience = "ragbot-admin"

var (
	ErrInvalidHandoff = errors.New("invalid or expired hand-off token")
	ErrMissingSecret  = errors.New("hand-off secret is empty")
)

// Handoff issues and verifies the short-lived token that carries a
// successful login from the user host to the admin host.
type Handoff struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

type handoffClaims struct {
	jwt.RegisteredClaims
}

// NewHandoff signs with secret. Both hosts must be built with the same secret.
func NewHandoff(secret string, ttl time.Duration) (*Handoff, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &Handoff{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// DeriveSecret derives a hand-off secret from the admin credential
// configuration. Hosts started from the same config derive the same key.
func DeriveSecret(username, credential string) (string, error) {
	if credential == "" {
		return "", ErrMissingSecret
	}
	r := hkdf.New(sha256.New, []byte(credential), []byte(username), []byte(handoffAudience))
	key := make([]byte, 32)
	if _, err := io.ReadFull(r, key); err != nil {
		return "", fmt.Errorf("derive hand-off secret failed: %w", err)
	}
	return hex.EncodeToString(key), nil
}

// WithTimeFunc replaces the clock, used by tests
func (h *Handoff) WithTimeFunc(now func() time.Time) *Handoff {
	h.now = now
	return h
}

func (h *Handoff) Issue(username string) (string, error) {
	now := h.now()
	jti := make([]byte, 8)
	if _, err := rand.Read(jti); err != nil {
		return "", fmt.Errorf("generate token id failed: %w", err)
	}

	claims := handoffClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			Audience:  jwt.ClaimStrings{handoffAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(h.ttl)),
			ID:        hex.EncodeToString(jti),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(h.secret)
	if err != nil {
		return "", fmt.Errorf("sign hand-off token failed: %w", err)
	}
	return token, nil
}

// Verify returns the username carried by a valid token
func (h *Handoff) Verify(token string) (string, error) {
	claims := &handoffClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return h.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(handoffAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(h.now),
	)
	if err != nil || !parsed.Valid {
		return "", fmt.Errorf("%w: %v", ErrInvalidHandoff, err)
	}
	if claims.Subject == "" {
		return "", ErrInvalidHandoff
	}
	return claims.Subject, nil
}

package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenTTL is the lifetime of issued access tokens
const DefaultTokenTTL = 24 * time.Hour

// minKeySize is the smallest accepted HMAC signing key, in bytes
const minKeySize = 32

// Issuer signs and validates HS256 access tokens.
type Issuer struct {
	key    []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// IssuerOption configures an Issuer
type IssuerOption func(*Issuer)

// WithTokenTTL sets the lifetime of issued tokens
func WithTokenTTL(ttl time.Duration) IssuerOption {
	return func(i *Issuer) {
		if ttl > 0 {
			i.ttl = ttl
		}
	}
}

// WithClock sets the clock used for issuing and validating tokens
func WithClock(now func() time.Time) IssuerOption {
	return func(i *Issuer) {
		i.now = now
	}
}

// NewIssuer creates an issuer signing with key. A nil key generates a
// random one, which invalidates tokens across restarts.
func NewIssuer(key []byte, issuer string, opts ...IssuerOption) (*Issuer, error) {
	if key == nil {
		key = make([]byte, minKeySize)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("failed to generate signing key: %w", err)
		}
	}
	if len(key) < minKeySize {
		return nil, fmt.Errorf("signing key must be at least %d bytes, got %d", minKeySize, len(key))
	}
	i := &Issuer{key: key, issuer: issuer, ttl: DefaultTokenTTL, now: time.Now}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

// Issue returns a signed token for subject.
func (i *Issuer) Issue(subject string) (string, error) {
	if subject == "" {
		return "", errors.New("subject is required")
	}
	now := i.now()
	claims := jwt.RegisteredClaims{
		Issuer:    i.issuer,
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken verifies the signature, issuer and expiry of token.
func (i *Issuer) ValidateToken(_ context.Context, token string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	_, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return i.key, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	return claims, nil
}

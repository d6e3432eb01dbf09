package credentials

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

// expiryLeeway treats tokens about to expire as already expired.
const expiryLeeway = 30 * time.Second

// Provider is the credential provider handed to the HTTP transport. It reads
// the token from its Store, caches it until expiry and forgets the cache when
// the token is replaced or cleared.
type Provider struct {
	store Store
	now   func() time.Time

	mu     sync.Mutex
	source oauth2.TokenSource
}

var _ oauth2.TokenSource = (*Provider)(nil)

// NewProvider returns a provider backed by store.
func NewProvider(store Store) *Provider {
	p := &Provider{store: store, now: time.Now}
	p.reset()
	return p
}

func (p *Provider) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.source = oauth2.ReuseTokenSource(nil, &storeSource{store: p.store, now: p.now})
}

// Token implements oauth2.TokenSource. It returns an error wrapping
// ErrNoToken when no usable token is stored.
func (p *Provider) Token() (*oauth2.Token, error) {
	p.mu.Lock()
	src := p.source
	p.mu.Unlock()
	return src.Token()
}

// Save stores a new token.
func (p *Provider) Save(token string) error {
	defer p.reset()
	return p.store.Save(token)
}

// Clear removes the stored token.
func (p *Provider) Clear() error {
	defer p.reset()
	return p.store.Clear()
}

// storeSource converts stored tokens into oauth2 tokens.
type storeSource struct {
	store Store
	now   func() time.Time
}

func (s *storeSource) Token() (*oauth2.Token, error) {
	raw, err := s.store.Load()
	if err != nil {
		return nil, err
	}
	tok := &oauth2.Token{AccessToken: raw, TokenType: "Bearer"}
	if exp, ok := Expiry(raw); ok {
		if !exp.After(s.now().Add(expiryLeeway)) {
			return nil, fmt.Errorf("%w: token expired at %s", ErrNoToken, exp.Format(time.RFC3339))
		}
		tok.Expiry = exp
	}
	return tok, nil
}

// Expiry extracts the exp claim of a JWT without verifying its signature.
// Opaque tokens report no expiry.
func Expiry(raw string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// IsNoToken reports whether err means that no token is available.
func IsNoToken(err error) bool {
	return errors.Is(err, ErrNoToken)
}

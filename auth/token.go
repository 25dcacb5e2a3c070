package auth

import (
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the JWT claims minted for API requests.
type Claims struct {
	// Tenant scopes the token to one tenant. Empty for tenant-list requests.
	Tenant string `json:"tenant,omitempty"`
	jwt.RegisteredClaims
}

// TokenConfig configures a TokenSigner.
type TokenConfig struct {
	// Key is the HS256 shared secret. Required.
	Key []byte

	// Subject is the sub claim. Default: "tenantview".
	Subject string

	// Issuer is the iss claim (optional).
	Issuer string

	// Audience is the aud claim (optional).
	Audience string

	// TTL is the token lifetime. Default: 5 minutes.
	TTL time.Duration

	// Leeway is how long before expiry a cached token is replaced.
	// Default: 30 seconds.
	Leeway time.Duration

	// Now overrides the clock. Default: time.Now.
	Now func() time.Time
}

type cachedToken struct {
	raw       string
	expiresAt time.Time
}

// TokenSigner mints and caches short-lived bearer tokens per tenant.
type TokenSigner struct {
	config TokenConfig

	mu     sync.Mutex
	tokens map[string]cachedToken
}

// NewTokenSigner creates a signer. It fails when the key is empty.
func NewTokenSigner(config TokenConfig) (*TokenSigner, error) {
	if len(config.Key) == 0 {
		return nil, ErrMissingSigningKey
	}
	if config.Subject == "" {
		config.Subject = "tenantview"
	}
	if config.TTL <= 0 {
		config.TTL = 5 * time.Minute
	}
	if config.Leeway <= 0 || config.Leeway >= config.TTL {
		config.Leeway = min(30*time.Second, config.TTL/2)
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	return &TokenSigner{
		config: config,
		tokens: make(map[string]cachedToken),
	}, nil
}

// Token returns a signed token for tenant, reusing a cached one until it is
// within Leeway of expiring.
func (s *TokenSigner) Token(tenant string) (string, error) {
	now := s.config.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if tok, ok := s.tokens[tenant]; ok && now.Add(s.config.Leeway).Before(tok.expiresAt) {
		return tok.raw, nil
	}

	expiresAt := now.Add(s.config.TTL)
	claims := Claims{
		Tenant: tenant,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   s.config.Subject,
			Issuer:    s.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	if s.config.Audience != "" {
		claims.Audience = jwt.ClaimStrings{s.config.Audience}
	}

	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.config.Key)
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}

	s.tokens[tenant] = cachedToken{raw: raw, expiresAt: expiresAt}
	return raw, nil
}

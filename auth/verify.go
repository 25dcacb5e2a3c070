package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Method indicates how a request was authenticated.
type Method string

const (
	MethodJWT    Method = "jwt"
	MethodAPIKey Method = "api_key"
)

// Identity is the verified caller of a request.
type Identity struct {
	Principal string
	// Tenant is the tenant a token is scoped to; empty means unscoped.
	Tenant    string
	Method    Method
}

// CanAccess reports whether the identity may read tenant's data.
func (id Identity) CanAccess(tenant string) bool {
	return id.Tenant == "" || id.Tenant == tenant
}

// Verifier checks bearer tokens signed with a shared HS256 key and API keys
// against a set of SHA-256 hashes.
type Verifier struct {
	key       []byte
	issuer    string
	keyHashes map[string]string // hex hash -> principal
}

// NewVerifier creates a Verifier. A nil key disables bearer tokens.
func NewVerifier(key []byte, issuer string) *Verifier {
	return &Verifier{
		key:       key,
		issuer:    issuer,
		keyHashes: make(map[string]string),
	}
}

// AddAPIKey registers a plaintext API key for principal. Only its hash is kept.
func (v *Verifier) AddAPIKey(key, principal string) {
	v.keyHashes[HashKey(key)] = principal
}

// HashKey returns the SHA-256 hex digest of an API key.
func HashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// Verify authenticates r by its bearer token or, failing that, its API key.
func (v *Verifier) Verify(r *http.Request) (Identity, error) {
	if header := r.Header.Get(HeaderAuthorization); header != "" {
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || len(v.key) == 0 {
			return Identity{}, ErrInvalidCredentials
		}
		return v.verifyToken(strings.TrimSpace(raw))
	}

	if key := r.Header.Get(HeaderAPIKey); key != "" {
		return v.verifyAPIKey(key)
	}

	return Identity{}, ErrMissingCredentials
}

func (v *Verifier) verifyToken(raw string) (Identity, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return v.key, nil
	}, opts...)
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		return Identity{}, ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenMalformed):
		return Identity{}, ErrTokenMalformed
	default:
		return Identity{}, ErrInvalidCredentials
	}

	return Identity{
		Principal: claims.Subject,
		Tenant:    claims.Tenant,
		Method:    MethodJWT,
	}, nil
}

func (v *Verifier) verifyAPIKey(key string) (Identity, error) {
	hash := HashKey(key)
	for stored, principal := range v.keyHashes {
		if subtle.ConstantTimeCompare([]byte(stored), []byte(hash)) == 1 {
			return Identity{Principal: principal, Method: MethodAPIKey}, nil
		}
	}
	return Identity{}, ErrInvalidCredentials
}

// Package auth derives the caller identity from bearer tokens. Ledger
// operations trust only the identity produced here, never a user id taken
// from a request body.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"ledger/internal/cache"
	"ledger/internal/core"
)

const (
	tokenCacheSize = 1024
	tokenCacheTTL  = 5 * time.Minute
	signingMethod  = "HS256"
	// MinSecretLength is the shortest HMAC secret the guard accepts.
	MinSecretLength = 32
)

var ErrWeakSecret = fmt.Errorf("jwt secret must be at least %d characters", MinSecretLength)

type claims struct {
	jwt.RegisteredClaims
}

// Guard verifies HS256 bearer tokens. Verified tokens are remembered until
// they expire so repeated requests skip the signature check.
type Guard struct {
	secret []byte
	issuer string
	tokens *cache.LRUCache[string]
	now    func() time.Time
}

func NewGuard(secret, issuer string) (*Guard, error) {
	if len(secret) < MinSecretLength {
		return nil, ErrWeakSecret
	}
	return &Guard{
		secret: []byte(secret),
		issuer: issuer,
		tokens: cache.NewLRUCache[string](tokenCacheSize, tokenCacheTTL),
		now:    time.Now,
	}, nil
}

// Tokens exposes the verified-token cache so it can be swept periodically.
func (g *Guard) Tokens() *cache.LRUCache[string] {
	return g.tokens
}

// Authenticate returns the user id carried by credential. Every failure is an
// Unauthorized ledger error.
func (g *Guard) Authenticate(credential string) (string, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return "", core.ErrMissingIdentity
	}
	if userID, ok := g.tokens.Get(credential); ok {
		return userID, nil
	}

	var parsed claims
	_, err := jwt.ParseWithClaims(credential, &parsed, func(*jwt.Token) (any, error) {
		return g.secret, nil
	},
		jwt.WithValidMethods([]string{signingMethod}),
		jwt.WithIssuer(g.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(g.now),
	)
	if err != nil {
		return "", mapJWTError(err)
	}
	if strings.TrimSpace(parsed.Subject) == "" {
		return "", core.Unauthorized("token subject is required")
	}

	g.tokens.SetUntil(credential, parsed.Subject, parsed.ExpiresAt.Time)
	return parsed.Subject, nil
}

func mapJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return core.Unauthorized("token is expired")
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return core.Unauthorized("token signature is invalid")
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return core.Unauthorized("token issuer mismatch")
	case errors.Is(err, jwt.ErrTokenRequiredClaimMissing):
		return core.Unauthorized("token exp is required")
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		return core.Unauthorized("token alg is invalid")
	case errors.Is(err, jwt.ErrTokenMalformed):
		return core.Unauthorized("token is malformed")
	default:
		return core.Unauthorized("token is invalid")
	}
}

// Issuer signs tokens the Guard accepts. Used by the dev CLI and tests.
type Issuer struct {
	secret []byte
	issuer string
	now    func() time.Time
}

func NewIssuer(secret, issuer string) (*Issuer, error) {
	if len(secret) < MinSecretLength {
		return nil, ErrWeakSecret
	}
	return &Issuer{secret: []byte(secret), issuer: issuer, now: time.Now}, nil
}

func (i *Issuer) Sign(userID string, ttl time.Duration) (string, error) {
	if strings.TrimSpace(userID) == "" {
		return "", errors.New("user id is required")
	}
	now := i.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{RegisteredClaims: jwt.RegisteredClaims{
		Issuer:    i.issuer,
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		ID:        core.NewID(),
	}})
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

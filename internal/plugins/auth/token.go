package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token lifetimes. The federated path gets a deliberately shorter window:
// those identities are asserted by an external provider, so we limit how
// long a single assertion is trusted.
const (
	// TokenTTL is the lifetime of a standard session token.
	TokenTTL = 30 * 24 * time.Hour

	// FederatedTokenTTL is the reduced lifetime for federated logins.
	FederatedTokenTTL = time.Hour
)

// ErrInvalidToken is returned by Verify for every failure mode -- bad
// signature, malformed structure, unexpected algorithm, or expiry. The
// caller cannot distinguish them, so the response can't be used as an
// oracle for probing tokens.
var ErrInvalidToken = errors.New("invalid or expired token")

// Claims are the session token claims: the stable identity reference plus
// the registered time claims (iat, exp).
type Claims struct {
	jwt.RegisteredClaims
}

// TokenService issues and verifies signed, time-limited bearer tokens.
// It is pure computation over the process-wide signing secret: no storage,
// no revocation, no blocking.
type TokenService struct {
	secret []byte
}

// NewTokenService creates a token service with the given signing secret.
// The secret is validated at config load; by the time we get here it is
// guaranteed non-empty.
func NewTokenService(secret string) *TokenService {
	return &TokenService{secret: []byte(secret)}
}

// Issue creates a signed HS256 token for the given identity with the given
// lifetime. Expiry is absolute wall-clock from issuance, not sliding.
func (t *TokenService) Issue(userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// Verify checks a token's signature and expiry and returns the verified
// claims, whose Subject is the identity id. Every failure collapses into
// ErrInvalidToken.
func (t *TokenService) Verify(token string) (*Claims, error) {
	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return &claims, nil
}

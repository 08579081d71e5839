package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/assetdeck/api/internal/domain"
)

const tokenIssuer = "assetdeck-api"

var (
	// ErrTokenInvalid is returned when a token fails signature or claim validation.
	ErrTokenInvalid = errors.New("auth: token invalid")
	// ErrTokenExpired is returned when a token is past its expiry.
	ErrTokenExpired = errors.New("auth: token expired")
)

// Claims carries the JWT payload for API access tokens.
type Claims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies API access tokens with an HMAC secret.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer constructs a TokenIssuer. The secret must be non-empty.
func NewTokenIssuer(secret string, ttl time.Duration) (*TokenIssuer, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("auth: signing secret is required")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// WithClock overrides the issuer clock (tests).
func (t *TokenIssuer) WithClock(clock func() time.Time) *TokenIssuer {
	if clock != nil {
		t.now = clock
	}
	return t
}

// Issue mints a signed token for the identity.
func (t *TokenIssuer) Issue(identity Identity) (string, time.Time, error) {
	if t == nil {
		return "", time.Time{}, errors.New("auth: issuer not initialised")
	}
	if !identity.Valid() {
		return "", time.Time{}, errors.New("auth: identity uid is required")
	}

	now := t.now()
	expiresAt := now.Add(t.ttl)
	claims := Claims{
		Email: identity.Email,
		Role:  string(identity.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   identity.UID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify validates the token and returns the embedded identity.
func (t *TokenIssuer) Verify(tokenString string) (Identity, error) {
	if t == nil {
		return Identity{}, errors.New("auth: issuer not initialised")
	}
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return Identity{}, ErrTokenInvalid
	}

	// Registered-claim checks run against the issuer clock below, so the
	// parser only verifies the signature and algorithm.
	var claims Claims
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	_, err := parser.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		return t.secret, nil
	})
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	now := t.now()
	if claims.ExpiresAt == nil || !now.Before(claims.ExpiresAt.Time) {
		return Identity{}, ErrTokenExpired
	}
	if claims.NotBefore != nil && now.Before(claims.NotBefore.Time) {
		return Identity{}, ErrTokenInvalid
	}
	if claims.Issuer != tokenIssuer {
		return Identity{}, ErrTokenInvalid
	}

	identity := Identity{
		UID:   strings.TrimSpace(claims.Subject),
		Email: strings.TrimSpace(claims.Email),
		Role:  domain.Role(strings.TrimSpace(claims.Role)),
	}
	if !identity.Valid() {
		return Identity{}, ErrTokenInvalid
	}
	if identity.Role == "" {
		identity.Role = domain.RoleUser
	}
	return identity, nil
}

// Package auth provides the credential primitives of the embedded store:
// access tokens (HS256 JWTs shaped like the hosted backend's) and bcrypt
// password hashing.
//
// TOKEN SHAPE:
// The hosted backend issues JWTs whose "sub" claim is the user's UUID and
// whose "email" claim carries the sign-in address. The embedded store issues
// the same shape, so session handling above the store does not care which
// backend produced a token. ReadClaims decodes either kind without a key.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/xid"
)

const (
	// Issuer is the "iss" claim of embedded-store tokens.
	Issuer = "easychef"

	// DefaultTokenTTL matches the hosted backend's default access token lifetime.
	DefaultTokenTTL = time.Hour
)

// Claims are the JWT claims of a session access token.
type Claims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// TokenService signs and validates access tokens with a shared secret.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenService(secret string) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	return &TokenService{secret: []byte(secret), ttl: DefaultTokenTTL}, nil
}

// Generate issues a token for userID valid for the default TTL.
// It returns the signed token and its expiry.
func (s *TokenService) Generate(userID, email string) (string, time.Time, error) {
	return s.GenerateWithDuration(userID, email, s.ttl)
}

// GenerateWithDuration is Generate with an explicit lifetime. A negative
// duration yields an already expired token, which tests rely on.
func (s *TokenService) GenerateWithDuration(userID, email string, d time.Duration) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(d)

	c := Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        xid.New().String(),
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			Issuer:    Issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("auth: signing token: %w", err)
	}

	// The JWT carries whole seconds; report the same instant to callers.
	return signed, expiresAt.Truncate(time.Second), nil
}

// ErrTokenExpired is returned by Validate for a well-signed token past its
// expiry, which a caller can reissue.
var ErrTokenExpired = errors.New("auth: token expired")

// Validate verifies signature, issuer and expiry and returns the claims.
func (s *TokenService) Validate(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&Claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("auth: invalid token claims")
	}
	if c.Subject == "" {
		return nil, fmt.Errorf("auth: token has no subject")
	}

	return c, nil
}

// ReadClaims decodes a token's claims WITHOUT verifying its signature.
//
// Only use this on tokens the client received from its own backend over TLS,
// to learn the user id and expiry of a restored session. Never use it to make
// an authorization decision.
func ReadClaims(tokenStr string) (*Claims, error) {
	c := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenStr, c); err != nil {
		return nil, fmt.Errorf("auth: reading token claims: %w", err)
	}
	if c.Subject == "" {
		return nil, fmt.Errorf("auth: token has no subject")
	}
	return c, nil
}

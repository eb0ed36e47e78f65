// Package auth mints and validates the bearer tokens that guard the control
// surface. This is a leaf package with no domain dependencies.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultJWTExpiry is the token lifetime used when none is given.
const DefaultJWTExpiry = 24 * time.Hour

// Issuer is written into and required on every token.
const Issuer = "ragtool"

// ErrNoSecret is returned when signing or parsing without a secret.
var ErrNoSecret = errors.New("auth secret is empty")

// Claims represents the JWT claims for ragtool. Subject names the operator
// or client the token was minted for.
type Claims struct {
	jwt.RegisteredClaims
}

// GenerateJWT creates an HS256 token for subject that expires after ttl.
// A non-positive ttl means DefaultJWTExpiry.
func GenerateJWT(secret []byte, subject string, ttl time.Duration) (string, error) {
	if len(secret) == 0 {
		return "", ErrNoSecret
	}
	if subject == "" {
		return "", fmt.Errorf("subject is empty")
	}
	if ttl <= 0 {
		ttl = DefaultJWTExpiry
	}

	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign JWT: %w", err)
	}
	return signed, nil
}

// ParseJWT validates tokenString against secret and returns its claims.
// Expired, malformed, foreign-issuer and non-HMAC tokens are rejected.
func ParseJWT(secret []byte, tokenString string) (*Claims, error) {
	if len(secret) == 0 {
		return nil, ErrNoSecret
	}
	if tokenString == "" {
		return nil, fmt.Errorf("token is empty")
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		// reject algorithm substitution
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	}, jwt.WithIssuer(Issuer), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("failed to parse JWT: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid JWT claims or signature")
	}
	return claims, nil
}

// Package auth provides password hashing and bearer-token issuance for the
// HTTP API.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"gazette/internal/config"
)

// ErrTokenExpired is returned for structurally valid tokens past their expiry.
var ErrTokenExpired = errors.New("token has expired")

// ErrTokenInvalid is returned for malformed or wrongly signed tokens.
var ErrTokenInvalid = errors.New("invalid token")

// HashPassword hashes a plaintext password with bcrypt at the default cost.
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

// VerifyPassword reports whether the plaintext password matches the hash.
func VerifyPassword(hashedPassword, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password)) == nil
}

// TokenIssuer issues and verifies HS256 bearer tokens whose subject claim is
// the user id.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenIssuer builds an issuer from configuration.
func NewTokenIssuer(cfg config.Auth) (*TokenIssuer, error) {
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("auth.jwt_secret is required. Set JWT_SECRET_KEY or auth.jwt_secret in the config file")
	}

	return &TokenIssuer{
		secret: []byte(cfg.JWTSecret),
		ttl:    config.Duration(cfg.TokenTTL, 30*time.Minute),
	}, nil
}

// Issue signs a token for the given user id.
func (t *TokenIssuer) Issue(userID string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
	})

	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return signed, nil
}

// Verify parses a token and returns its subject. Expired tokens map to
// ErrTokenExpired, everything else wrong maps to ErrTokenInvalid.
func (t *TokenIssuer) Verify(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", ErrTokenInvalid
	}

	if claims.Subject == "" {
		return "", ErrTokenInvalid
	}

	return claims.Subject, nil
}

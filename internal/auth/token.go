// Package auth inspects session tokens and decides access to protected
// views. The client never holds the signing secret, so tokens are decoded
// without verification; the server remains the only authority.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// Claims is the payload the API puts in its access tokens.
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// TokenInfo is what the client can learn from a token without the secret.
type TokenInfo struct {
	UserID    string
	Email     string
	Role      string
	ExpiresAt time.Time
}

// Expired reports whether the token had expired at now. Tokens without an
// exp claim never expire client-side.
func (i TokenInfo) Expired(now time.Time) bool {
	return !i.ExpiresAt.IsZero() && !now.Before(i.ExpiresAt)
}

var parser = jwt.NewParser()

// InspectToken decodes a token's claims without verifying its signature.
func InspectToken(token string) (TokenInfo, error) {
	return InspectTokenAt(token, time.Now())
}

// InspectTokenAt is InspectToken with an explicit clock.
func InspectTokenAt(token string, now time.Time) (TokenInfo, error) {
	if token == "" {
		return TokenInfo{}, ErrInvalidToken
	}

	var claims Claims
	if _, _, err := parser.ParseUnverified(token, &claims); err != nil {
		return TokenInfo{}, ErrInvalidToken
	}

	info := TokenInfo{
		UserID: claims.UserID,
		Email:  claims.Email,
		Role:   claims.Role,
	}
	if info.UserID == "" {
		info.UserID = claims.Subject
	}
	if claims.ExpiresAt != nil {
		info.ExpiresAt = claims.ExpiresAt.Time
	}
	if info.Expired(now) {
		return info, ErrExpiredToken
	}
	return info, nil
}

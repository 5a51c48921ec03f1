// internal/pkg/jwt/claims.go
package jwt

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenType discriminates access tokens from refresh tokens.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Claims represents the JWT claims
type Claims struct {
	UserID     int64     `json:"userId"`
	Username   string    `json:"username"`
	SessionID  *int64    `json:"sessionId,omitempty"`
	Type       TokenType `json:"type"`
	Generation int       `json:"gen,omitempty"` // session refresh count at issue time
	jwt.RegisteredClaims
}

// Subject is what a token is issued for.
type Subject struct {
	UserID     int64
	Username   string
	SessionID  *int64
	Generation int
}

// HasSession reports whether the token is bound to a server-side session.
func (c *Claims) HasSession() bool {
	return c.SessionID != nil
}

// IsExpired reports whether now is at or past the expiry.
func (c *Claims) IsExpired(now time.Time) bool {
	if c.ExpiresAt == nil {
		return true
	}
	return !now.Before(c.ExpiresAt.Time)
}

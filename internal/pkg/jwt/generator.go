// internal/pkg/jwt/generator.go
package jwt

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type Generator struct {
	secret     []byte
	issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	now        func() time.Time
}

func NewGenerator(secret []byte, issuer string, accessTTL, refreshTTL time.Duration) *Generator {
	return &Generator{
		secret:     secret,
		issuer:     issuer,
		AccessTTL:  accessTTL,
		RefreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// Generate signs a token of the given kind. The output depends only on the
// subject, the secret and the clock, so two calls in the same second with the
// same subject yield the same string.
func (g *Generator) Generate(kind TokenType, sub Subject) (string, time.Time, error) {
	if len(g.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("jwt generator has empty secret")
	}

	var ttl time.Duration
	switch kind {
	case TokenTypeAccess:
		ttl = g.AccessTTL
	case TokenTypeRefresh:
		ttl = g.RefreshTTL
	default:
		return "", time.Time{}, fmt.Errorf("unknown token type %q", kind)
	}

	now := g.now().Truncate(time.Second)
	expiresAt := now.Add(ttl)

	claims := &Claims{
		UserID:     sub.UserID,
		Username:   sub.Username,
		SessionID:  sub.SessionID,
		Type:       kind,
		Generation: sub.Generation,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    g.issuer,
			Subject:   sub.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(g.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign %s token: %w", kind, err)
	}
	return signed, expiresAt, nil
}

// GenerateAccessToken generates a short-lived access token
func (g *Generator) GenerateAccessToken(sub Subject) (string, time.Time, error) {
	return g.Generate(TokenTypeAccess, sub)
}

// GenerateRefreshToken generates a refresh token (longer TTL)
func (g *Generator) GenerateRefreshToken(sub Subject) (string, time.Time, error) {
	return g.Generate(TokenTypeRefresh, sub)
}

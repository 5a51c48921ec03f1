// internal/middleware/auth_middleware.go
package middleware

import (
	"context"
	"strings"

	"mailadmin-service/internal/domain/auth"
	xerrors "mailadmin-service/internal/pkg/errors"
	"mailadmin-service/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

const principalKey = "principal"

// TokenValidator turns an access token into the caller's principal.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*auth.Principal, error)
}

type AuthMiddleware struct {
	validator TokenValidator
}

func NewAuthMiddleware(validator TokenValidator) *AuthMiddleware {
	return &AuthMiddleware{validator: validator}
}

// Auth requires a valid bearer token and stores the principal on the context.
func (m *AuthMiddleware) Auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := BearerToken(c)
		if token == "" {
			response.FromError(c, xerrors.ErrTokenMissing)
			c.Abort()
			return
		}

		principal, err := m.validator.ValidateToken(c.Request.Context(), token)
		if err != nil {
			response.FromError(c, err)
			c.Abort()
			return
		}

		c.Set(principalKey, principal)
		c.Next()
	}
}

// BearerToken extracts the token from "Authorization: Bearer <token>".
func BearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

// internal/middleware/helpers.go
package middleware

import (
	"mailadmin-service/internal/domain/auth"
	"mailadmin-service/internal/pkg/requestinfo"

	"github.com/gin-gonic/gin"
)

// GetPrincipal returns the principal stored by Auth.
func GetPrincipal(c *gin.Context) (*auth.Principal, bool) {
	v, exists := c.Get(principalKey)
	if !exists {
		return nil, false
	}
	p, ok := v.(*auth.Principal)
	return p, ok && p != nil
}

// MustGetPrincipal gets the principal from context or panics
func MustGetPrincipal(c *gin.Context) *auth.Principal {
	p, ok := GetPrincipal(c)
	if !ok {
		panic("principal not found in context")
	}
	return p
}

// RequestInfo captures the client metadata of the current request.
func RequestInfo(c *gin.Context) requestinfo.Info {
	return requestinfo.FromRequest(c.Request)
}

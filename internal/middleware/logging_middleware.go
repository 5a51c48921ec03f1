// internal/middleware/logging_middleware.go
package middleware

import (
	"time"

	"mailadmin-service/internal/pkg/requestinfo"

	"github.com/gin-gonic/gin"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

const (
	requestIDKey    = "request_id"
	requestIDHeader = "X-Request-ID"
)

// LoggingMiddleware tags each request with an id and logs it on completion.
// An inbound X-Request-ID is kept.
func LoggingMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = ulid.Make().String()
		}
		c.Set(requestIDKey, requestID)
		c.Header(requestIDHeader, requestID)

		c.Next()

		fields := []zap.Field{
			zap.String("request_id", requestID),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", requestinfo.ClientIP(c.Request)),
		}
		if p, ok := GetPrincipal(c); ok {
			fields = append(fields, zap.Int64("user_id", p.UserID))
		}

		switch status := c.Writer.Status(); {
		case status >= 500:
			logger.Error("request completed", fields...)
		case status >= 400:
			logger.Warn("request completed", fields...)
		default:
			logger.Info("request completed", fields...)
		}
	}
}

// RequestID returns the id assigned by LoggingMiddleware.
func RequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

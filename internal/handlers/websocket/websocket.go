// internal/handlers/websocket/websocket.go
package websocket

import (
	"net/http"
	"strings"

	"mailadmin-service/internal/middleware"
	xerrors "mailadmin-service/internal/pkg/errors"
	"mailadmin-service/internal/pkg/response"
	ws "mailadmin-service/internal/websocket"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type WebSocketHandler struct {
	hub      *ws.Hub
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewWebSocketHandler accepts upgrades from the given origins; "*" or an empty list allows any.
func NewWebSocketHandler(hub *ws.Hub, allowedOrigins []string, logger *zap.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		logger: logger,
	}
}

// HandleConnection authenticates the caller and upgrades the connection.
func (h *WebSocketHandler) HandleConnection(c *gin.Context) {
	token := h.extractToken(c)
	if token == "" {
		response.FromError(c, xerrors.ErrTokenMissing)
		return
	}

	principal, err := h.hub.AuthenticateClient(c.Request.Context(), token)
	if err != nil {
		h.logger.Warn("websocket authentication failed",
			zap.Error(err),
			zap.String("ip", c.ClientIP()),
		)
		response.FromError(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed",
			zap.Error(err),
			zap.String("ip", c.ClientIP()),
		)
		return
	}

	client := ws.NewClient(h.hub, conn, *principal, middleware.RequestInfo(c))
	if !h.hub.Attach(client) {
		_ = conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()
}

// extractToken prefers the Authorization header and falls back to the token query parameter,
// since browsers cannot set headers on a websocket handshake.
func (h *WebSocketHandler) extractToken(c *gin.Context) string {
	if token := middleware.BearerToken(c); token != "" {
		return token
	}
	return c.Query("token")
}

// GetStats returns the caller's own websocket connection count.
func (h *WebSocketHandler) GetStats(c *gin.Context) {
	p := middleware.MustGetPrincipal(c)
	response.Success(c, http.StatusOK, "WebSocket stats", gin.H{
		"userConnections": h.hub.GetConnectedClients(p.UserID),
	})
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[strings.TrimRight(o, "/")] = true
	}
	if len(set) == 0 {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || set[strings.TrimRight(origin, "/")]
	}
}

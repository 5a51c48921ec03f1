// internal/app/router.go
package app

import (
	"net/http"

	auditHandler "mailadmin-service/internal/handlers/audit"
	authHandler "mailadmin-service/internal/handlers/auth"
	orgHandler "mailadmin-service/internal/handlers/organisation"
	sessionHandler "mailadmin-service/internal/handlers/session"
	wsHandler "mailadmin-service/internal/handlers/websocket"
	"mailadmin-service/internal/middleware"
	"mailadmin-service/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

type Handlers struct {
	AuthHandler         *authHandler.AuthHandler
	SessionHandler      *sessionHandler.SessionHandler
	AuditHandler        *auditHandler.AuditHandler
	OrganisationHandler *orgHandler.OrganisationHandler
	WSHandler           *wsHandler.WebSocketHandler
	AuthMiddleware      *middleware.AuthMiddleware
}

func SetupRouter(r *gin.Engine, h *Handlers) {
	api := r.Group("/api/v1")

	// ==================== Health Check ====================
	api.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, "Service is healthy", gin.H{"status": "ok"})
	})

	// ==================== WebSocket ====================
	api.GET("/ws", h.WSHandler.HandleConnection)
	api.GET("/ws/stats", h.AuthMiddleware.Auth(), h.WSHandler.GetStats)

	// ==================== Public Auth Routes ====================
	authPublic := api.Group("/auth")
	{
		authPublic.POST("/register", h.AuthHandler.Register)
		authPublic.POST("/login", h.AuthHandler.Login)
		authPublic.POST("/refresh", h.AuthHandler.RefreshToken)
	}

	// ==================== Authenticated Auth Routes ====================
	authProtected := api.Group("/auth")
	authProtected.Use(h.AuthMiddleware.Auth())
	{
		authProtected.POST("/logout", h.AuthHandler.Logout)
		authProtected.GET("/me", h.AuthHandler.GetMe)
		authProtected.POST("/change-password", h.AuthHandler.ChangePassword)
	}

	// ==================== Sessions ====================
	sessions := api.Group("/sessions")
	sessions.Use(h.AuthMiddleware.Auth())
	{
		sessions.GET("", h.SessionHandler.ListAll)
		sessions.GET("/current", h.SessionHandler.GetCurrent)
		sessions.GET("/active", h.SessionHandler.ListActive)
		sessions.GET("/:id", h.SessionHandler.GetByID)
		sessions.POST("/status", h.SessionHandler.UpdateStatus)
	}

	// ==================== Audit Logs ====================
	auditLogs := api.Group("/audit-logs")
	auditLogs.Use(h.AuthMiddleware.Auth())
	{
		auditLogs.GET("", h.AuditHandler.List)
		auditLogs.GET("/sessions/:id", h.AuditHandler.ListForSession)
	}

	// ==================== Organisations ====================
	orgs := api.Group("/organisations")
	orgs.Use(h.AuthMiddleware.Auth())
	{
		orgs.POST("", h.OrganisationHandler.Create)
		orgs.GET("", h.OrganisationHandler.List)
		orgs.GET("/:id", h.OrganisationHandler.Get)
		orgs.PUT("/:id", h.OrganisationHandler.Update)
		orgs.DELETE("/:id", h.OrganisationHandler.Delete)
		orgs.POST("/:id/activate", h.OrganisationHandler.Activate)
		orgs.POST("/:id/deactivate", h.OrganisationHandler.Deactivate)
	}

	r.NoRoute(func(c *gin.Context) {
		response.Error(c, http.StatusNotFound, "Route not found", response.ErrorItem{
			Code:    "NOT_FOUND",
			Message: "no route for " + c.Request.Method + " " + c.Request.URL.Path,
		})
	})
}

// internal/app/wire.go
package app

import (
	"context"
	"fmt"

	"mailadmin-service/internal/config"
	"mailadmin-service/internal/domain/auth"
	auditHandler "mailadmin-service/internal/handlers/audit"
	authHandler "mailadmin-service/internal/handlers/auth"
	orgHandler "mailadmin-service/internal/handlers/organisation"
	sessionHandler "mailadmin-service/internal/handlers/session"
	wsHandler "mailadmin-service/internal/handlers/websocket"
	"mailadmin-service/internal/middleware"
	"mailadmin-service/internal/pkg/jwt"
	"mailadmin-service/internal/pkg/password"
	"mailadmin-service/internal/repository"
	auditUsecase "mailadmin-service/internal/service/audit"
	authUsecase "mailadmin-service/internal/service/auth"
	orgUsecase "mailadmin-service/internal/service/organisation"
	sessionUsecase "mailadmin-service/internal/service/session"
	"mailadmin-service/internal/websocket"
	wsHandlers "mailadmin-service/internal/websocket/handler"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Components is the wired application minus its listeners and background loops.
type Components struct {
	Engine   *gin.Engine
	Hub      *websocket.Hub
	Reaper   *sessionUsecase.Reaper
	Auth     *authUsecase.AuthService
	Sessions *sessionUsecase.SessionService
}

type validatorFunc func(ctx context.Context, token string) (*auth.Principal, error)

func (f validatorFunc) ValidateToken(ctx context.Context, token string) (*auth.Principal, error) {
	return f(ctx, token)
}

// Wire builds services, handlers and routes on top of store. limiter may be nil.
func Wire(cfg *config.AppConfig, logger *zap.Logger, store repository.Store, limiter authUsecase.LoginLimiter) (*Components, error) {
	jwtManager, err := jwt.NewManager(cfg.JWT())
	if err != nil {
		return nil, fmt.Errorf("failed to build JWT manager: %w", err)
	}

	// The hub authenticates through the auth service, which in turn notifies the hub.
	var authService *authUsecase.AuthService
	hub := websocket.NewHub(validatorFunc(func(ctx context.Context, token string) (*auth.Principal, error) {
		return authService.ValidateToken(ctx, token)
	}), logger)

	// ----- Services -----
	authService = authUsecase.NewAuthService(
		store,
		jwtManager,
		password.NewHasher(cfg.BcryptCost),
		limiter,
		hub,
		logger,
		authUsecase.Options{RevokeSessionsOnPasswordChange: cfg.RevokeSessionsOnPasswordChange},
	)
	sessionService := sessionUsecase.NewSessionService(store, logger)
	auditService := auditUsecase.NewAuditService(store, logger)
	orgService := orgUsecase.NewOrganisationService(store, logger)
	reaper := sessionUsecase.NewReaper(store, hub, logger)

	hub.RegisterHandler(wsHandlers.NewSessionStatusHandler(sessionService))

	// ----- Handlers -----
	handlers := &Handlers{
		AuthHandler:         authHandler.NewAuthHandler(authService, logger),
		SessionHandler:      sessionHandler.NewSessionHandler(sessionService),
		AuditHandler:        auditHandler.NewAuditHandler(auditService),
		OrganisationHandler: orgHandler.NewOrganisationHandler(orgService),
		WSHandler:           wsHandler.NewWebSocketHandler(hub, cfg.CORSOrigins, logger),
		AuthMiddleware:      middleware.NewAuthMiddleware(authService),
	}

	engine := gin.New()
	engine.Use(
		middleware.RecoveryMiddleware(logger),
		middleware.LoggingMiddleware(logger),
		middleware.CORSMiddleware(cfg.CORSOrigins),
	)
	SetupRouter(engine, handlers)

	return &Components{
		Engine:   engine,
		Hub:      hub,
		Reaper:   reaper,
		Auth:     authService,
		Sessions: sessionService,
	}, nil
}

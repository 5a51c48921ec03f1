// internal/service/auth/service.go
package auth

import (
	"context"
	"time"

	"mailadmin-service/internal/pkg/jwt"
	"mailadmin-service/internal/pkg/password"
	"mailadmin-service/internal/repository"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	tokenTypeBearer     = "Bearer"
	defaultLogoutReason = "User logout"
)

// LoginLimiter throttles login attempts per client and identifier.
type LoginLimiter interface {
	CheckLoginAttempt(ctx context.Context, ip, identifier string) (bool, int64, error)
	ResetLoginAttempts(ctx context.Context, ip, identifier string) error
}

// SessionNotifier is told about sessions ended by a logout after the change is committed.
type SessionNotifier interface {
	SessionsRevoked(userID int64, sessionIDs []int64, reason string)
}

type Options struct {
	// RevokeSessionsOnPasswordChange ends every other session of the user on a password change.
	RevokeSessionsOnPasswordChange bool
}

type AuthService struct {
	store    repository.Store
	tokens   *jwt.Manager
	hasher   *password.Hasher
	limiter  LoginLimiter
	notifier SessionNotifier
	logger   *zap.Logger
	opts     Options
	tracer   trace.Tracer
	now      func() time.Time
}

// NewAuthService wires the orchestrator. limiter and notifier may be nil.
func NewAuthService(
	store repository.Store,
	tokens *jwt.Manager,
	hasher *password.Hasher,
	limiter LoginLimiter,
	notifier SessionNotifier,
	logger *zap.Logger,
	opts Options,
) *AuthService {
	return &AuthService{
		store:    store,
		tokens:   tokens,
		hasher:   hasher,
		limiter:  limiter,
		notifier: notifier,
		logger:   logger,
		opts:     opts,
		tracer:   otel.Tracer("mailadmin-service/service/auth"),
		now:      time.Now,
	}
}

// SetClock replaces the time source of the service and its token codec.
func (s *AuthService) SetClock(now func() time.Time) {
	s.now = now
	s.tokens.SetClock(now)
}

func (s *AuthService) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, name)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (s *AuthService) notifyRevoked(userID int64, ids []int64, reason string) {
	if s.notifier == nil || len(ids) == 0 {
		return
	}
	s.notifier.SessionsRevoked(userID, ids, reason)
}

// internal/service/audit/service.go
package audit

import (
	"context"
	"errors"
	"fmt"

	"mailadmin-service/internal/domain/audit"
	"mailadmin-service/internal/domain/auth"
	xerrors "mailadmin-service/internal/pkg/errors"
	"mailadmin-service/internal/repository"

	"go.uber.org/zap"
)

const defaultLimit = 50

// AuditService exposes a user's own audit trail.
type AuditService struct {
	store  repository.Store
	logger *zap.Logger
}

func NewAuditService(store repository.Store, logger *zap.Logger) *AuditService {
	return &AuditService{store: store, logger: logger}
}

// ListMine returns the caller's audit entries, newest first.
func (s *AuditService) ListMine(ctx context.Context, principal *auth.Principal, q audit.ListQuery) ([]audit.EntryResponse, error) {
	if principal == nil {
		return nil, xerrors.ErrTokenMissing
	}
	if err := validateRange(q); err != nil {
		return nil, err
	}

	userID := principal.UserID
	f := filterFrom(q)
	f.UserID = &userID

	entries, err := s.store.Repos().Audit.Search(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("failed to search audit logs: %w", err)
	}
	return audit.NewEntryResponses(entries), nil
}

// ListForSession returns the entries recorded against one of the caller's sessions.
func (s *AuditService) ListForSession(ctx context.Context, principal *auth.Principal, sessionID int64, q audit.ListQuery) ([]audit.EntryResponse, error) {
	if principal == nil {
		return nil, xerrors.ErrTokenMissing
	}
	if err := validateRange(q); err != nil {
		return nil, err
	}

	r := s.store.Repos()
	sess, err := r.Sessions.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, xerrors.ErrNotFound) {
			return nil, xerrors.New(xerrors.KindNotFound, "Session not found")
		}
		return nil, err
	}
	if sess.UserID != principal.UserID {
		s.logger.Warn("audit access to foreign session denied",
			zap.Int64("user_id", principal.UserID),
			zap.Int64("session_id", sessionID),
		)
		return nil, xerrors.New(xerrors.KindForbidden, "Session does not belong to user")
	}

	f := filterFrom(q)
	f.SessionID = &sessionID

	entries, err := r.Audit.Search(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("failed to search audit logs: %w", err)
	}
	return audit.NewEntryResponses(entries), nil
}

func filterFrom(q audit.ListQuery) audit.Filter {
	limit := q.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	return audit.Filter{
		Actions:    q.Actions,
		EntityType: q.EntityType,
		EntityID:   q.EntityID,
		From:       q.From,
		To:         q.To,
		Limit:      limit,
		Offset:     q.Offset,
	}
}

func validateRange(q audit.ListQuery) error {
	if q.From != nil && q.To != nil && q.To.Before(*q.From) {
		return xerrors.New(xerrors.KindValidation, "'to' must not be before 'from'")
	}
	return nil
}

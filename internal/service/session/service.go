// internal/service/session/service.go
package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"mailadmin-service/internal/domain/auth"
	"mailadmin-service/internal/domain/session"
	xerrors "mailadmin-service/internal/pkg/errors"
	"mailadmin-service/internal/pkg/requestinfo"
	"mailadmin-service/internal/repository"

	"go.uber.org/zap"
)

const statusCheckDescription = "Session status checked"

var (
	errNoSessionClaim  = xerrors.New(xerrors.KindNotFound, "Session ID not found in token")
	errSessionInactive = xerrors.New(xerrors.KindSessionInactive, "Session not found or inactive")
	errNotOwner        = xerrors.New(xerrors.KindForbidden, "Session does not belong to user")
)

// SessionService answers the caller's questions about their own sessions.
// Reads of an active session also record a status check on it.
type SessionService struct {
	store  repository.Store
	logger *zap.Logger
	now    func() time.Time
}

func NewSessionService(store repository.Store, logger *zap.Logger) *SessionService {
	return &SessionService{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

func (s *SessionService) SetClock(now func() time.Time) {
	s.now = now
}

// GetCurrent returns the session bound to the caller's token.
func (s *SessionService) GetCurrent(ctx context.Context, principal *auth.Principal, info requestinfo.Info) (*session.SessionResponse, error) {
	if principal == nil {
		return nil, xerrors.ErrTokenMissing
	}
	if !principal.HasSession() {
		return nil, errNoSessionClaim
	}

	var resp *session.SessionResponse
	err := s.store.WithTx(ctx, func(r repository.Repositories) error {
		now := s.now()
		sess, err := r.Sessions.FindActiveByID(ctx, *principal.SessionID, now)
		if err != nil {
			if errors.Is(err, xerrors.ErrNotFound) {
				return errSessionInactive
			}
			return err
		}
		if sess.UserID != principal.UserID {
			s.logger.Warn("session ownership mismatch",
				zap.Int64("user_id", principal.UserID),
				zap.Int64("session_id", sess.ID),
				zap.Int64("owner_id", sess.UserID),
			)
			return errNotOwner
		}
		if err := checkStatus(ctx, r, sess, info, now); err != nil {
			return err
		}
		resp, err = build(ctx, r, sess)
		return err
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// GetByID returns one of the caller's sessions in any state.
func (s *SessionService) GetByID(ctx context.Context, principal *auth.Principal, id int64, info requestinfo.Info) (*session.SessionResponse, error) {
	if principal == nil {
		return nil, xerrors.ErrTokenMissing
	}

	var resp *session.SessionResponse
	err := s.store.WithTx(ctx, func(r repository.Repositories) error {
		sess, err := r.Sessions.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, xerrors.ErrNotFound) {
				return xerrors.New(xerrors.KindNotFound, "Session not found")
			}
			return err
		}
		if sess.UserID != principal.UserID {
			return errNotOwner
		}
		now := s.now()
		if sess.IsUsable(now) {
			if err := checkStatus(ctx, r, sess, info, now); err != nil {
				return err
			}
		}
		resp, err = build(ctx, r, sess)
		return err
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// ListAll returns every session of the caller, newest login first.
func (s *SessionService) ListAll(ctx context.Context, principal *auth.Principal) ([]*session.SessionResponse, error) {
	if principal == nil {
		return nil, xerrors.ErrTokenMissing
	}

	r := s.store.Repos()
	sessions, err := r.Sessions.FindAllByUser(ctx, principal.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	out := make([]*session.SessionResponse, 0, len(sessions))
	for _, sess := range sessions {
		resp, err := build(ctx, r, sess)
		if err != nil {
			return nil, err
		}
		out = append(out, resp)
	}
	return out, nil
}

// ListActive returns the caller's active sessions and records a status check on each.
func (s *SessionService) ListActive(ctx context.Context, principal *auth.Principal, info requestinfo.Info) ([]*session.SessionResponse, error) {
	if principal == nil {
		return nil, xerrors.ErrTokenMissing
	}

	var out []*session.SessionResponse
	err := s.store.WithTx(ctx, func(r repository.Repositories) error {
		now := s.now()
		sessions, err := r.Sessions.FindActiveByUser(ctx, principal.UserID, now)
		if err != nil {
			return fmt.Errorf("failed to list active sessions: %w", err)
		}
		out = make([]*session.SessionResponse, 0, len(sessions))
		for _, sess := range sessions {
			if err := checkStatus(ctx, r, sess, info, now); err != nil {
				return err
			}
			resp, err := build(ctx, r, sess)
			if err != nil {
				return err
			}
			out = append(out, resp)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateStatus records a status check on the caller's current session.
func (s *SessionService) UpdateStatus(ctx context.Context, principal *auth.Principal, info requestinfo.Info) error {
	if principal == nil {
		return xerrors.ErrTokenMissing
	}
	if !principal.HasSession() {
		return errNoSessionClaim
	}

	return s.store.WithTx(ctx, func(r repository.Repositories) error {
		now := s.now()
		sess, err := r.Sessions.FindActiveByID(ctx, *principal.SessionID, now)
		if err != nil {
			if errors.Is(err, xerrors.ErrNotFound) {
				return errSessionInactive
			}
			return err
		}
		if sess.UserID != principal.UserID {
			return errNotOwner
		}
		return checkStatus(ctx, r, sess, info, now)
	})
}

// checkStatus touches sess and appends a STATUS_CHECK activity. sess is
// updated in place so the response reflects the new timestamps.
func checkStatus(ctx context.Context, r repository.Repositories, sess *session.Session, info requestinfo.Info, now time.Time) error {
	if err := r.Sessions.Touch(ctx, sess.ID, now); err != nil {
		return err
	}
	sess.LastActivityAt = now
	sess.StatusCheckedAt = now

	a := &session.Activity{
		SessionID:         sess.ID,
		ActivityType:      session.ActivityStatusCheck,
		Description:       sql.NullString{String: statusCheckDescription, Valid: true},
		IPAddress:         sql.NullString{String: info.IPAddress, Valid: info.IPAddress != ""},
		UserAgent:         sql.NullString{String: info.UserAgent, Valid: info.UserAgent != ""},
		ActivityTimestamp: now,
	}
	if err := r.Activities.Append(ctx, a); err != nil {
		return fmt.Errorf("failed to record session activity: %w", err)
	}
	return nil
}

func build(ctx context.Context, r repository.Repositories, sess *session.Session) (*session.SessionResponse, error) {
	activities, err := r.Activities.FindBySession(ctx, sess.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session activities: %w", err)
	}
	return session.NewSessionResponse(sess, activities), nil
}

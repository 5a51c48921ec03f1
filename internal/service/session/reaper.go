// internal/service/session/reaper.go
package session

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"mailadmin-service/internal/domain/audit"
	"mailadmin-service/internal/domain/session"
	"mailadmin-service/internal/repository"

	"go.uber.org/zap"
)

const expiredReason = "Session expired"

// ExpiryNotifier is told about each session the reaper ends.
type ExpiryNotifier interface {
	SessionExpired(userID, sessionID int64)
}

// Reaper deactivates sessions whose expiry has passed while still marked active.
type Reaper struct {
	store    repository.Store
	notifier ExpiryNotifier
	logger   *zap.Logger
	now      func() time.Time
}

// NewReaper builds a reaper. notifier may be nil.
func NewReaper(store repository.Store, notifier ExpiryNotifier, logger *zap.Logger) *Reaper {
	return &Reaper{
		store:    store,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

func (r *Reaper) SetClock(now func() time.Time) {
	r.now = now
}

type expired struct {
	userID    int64
	sessionID int64
}

// ExpireStale ends every session that expired before now and returns how many it ended.
func (r *Reaper) ExpireStale(ctx context.Context, now time.Time) (int, error) {
	var ended []expired

	err := r.store.WithTx(ctx, func(repos repository.Repositories) error {
		ended = ended[:0]
		stale, err := repos.Sessions.FindExpired(ctx, now)
		if err != nil {
			return fmt.Errorf("failed to find expired sessions: %w", err)
		}

		for _, sess := range stale {
			if _, err := repos.Users.LockByID(ctx, sess.UserID); err != nil {
				return fmt.Errorf("failed to lock user %d: %w", sess.UserID, err)
			}
			changed, err := repos.Sessions.Deactivate(ctx, sess.ID, expiredReason, now)
			if err != nil {
				return err
			}
			if !changed {
				continue
			}

			if err := repos.Activities.Append(ctx, &session.Activity{
				SessionID:         sess.ID,
				ActivityType:      session.ActivitySessionExpired,
				Description:       sql.NullString{String: expiredReason, Valid: true},
				ActivityTimestamp: now,
			}); err != nil {
				return fmt.Errorf("failed to record session activity: %w", err)
			}
			if err := repos.Audit.Append(ctx, &audit.Entry{
				UserID:      sql.NullInt64{Int64: sess.UserID, Valid: true},
				SessionID:   sql.NullInt64{Int64: sess.ID, Valid: true},
				Action:      audit.ActionSessionExpired,
				EntityType:  sql.NullString{String: audit.EntitySession, Valid: true},
				EntityID:    sql.NullInt64{Int64: sess.ID, Valid: true},
				Description: sql.NullString{String: expiredReason, Valid: true},
				Timestamp:   now,
			}); err != nil {
				return fmt.Errorf("failed to write audit log: %w", err)
			}
			if _, err := repos.Users.ClearSessionPointer(ctx, sess.UserID, sess.ID, now); err != nil {
				return err
			}

			ended = append(ended, expired{userID: sess.UserID, sessionID: sess.ID})
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if r.notifier != nil {
		for _, e := range ended {
			r.notifier.SessionExpired(e.userID, e.sessionID)
		}
	}
	if len(ended) > 0 {
		r.logger.Info("expired sessions reaped", zap.Int("count", len(ended)))
	}
	return len(ended), nil
}

// Run calls ExpireStale every interval until ctx is cancelled.
func (r *Reaper) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	r.logger.Info("session reaper started", zap.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("session reaper stopped")
			return
		case <-ticker.C:
			if _, err := r.ExpireStale(ctx, r.now()); err != nil && ctx.Err() == nil {
				r.logger.Error("failed to reap expired sessions", zap.Error(err))
			}
		}
	}
}

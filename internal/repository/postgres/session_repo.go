// internal/repository/postgres/session_repo.go
package postgres

import (
	"context"
	"fmt"
	"time"

	"mailadmin-service/internal/domain/session"
)

type SessionRepository struct {
	db DBTX
}

func NewSessionRepository(db DBTX) *SessionRepository {
	return &SessionRepository{db: db}
}

const sessionColumns = `
	id, user_id, session_token, ip_address, user_agent, device_info, browser_info, location,
	login_at, last_activity_at, status_checked_at, expires_at, logout_at, logout_reason,
	is_active, refresh_count, created_at, updated_at`

func scanSession(row rowScanner) (*session.Session, error) {
	var s session.Session
	err := row.Scan(
		&s.ID, &s.UserID, &s.SessionToken, &s.IPAddress, &s.UserAgent, &s.DeviceInfo, &s.BrowserInfo, &s.Location,
		&s.LoginAt, &s.LastActivityAt, &s.StatusCheckedAt, &s.ExpiresAt, &s.LogoutAt, &s.LogoutReason,
		&s.IsActive, &s.RefreshCount, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SessionRepository) querySessions(ctx context.Context, op, query string, args ...any) ([]*session.Session, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to %s: %w", op, err)
	}
	defer rows.Close()

	sessions := []*session.Session{}
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to %s: %w", op, err)
	}
	return sessions, nil
}

// Create stores a new active session with a zero refresh count.
func (r *SessionRepository) Create(ctx context.Context, s *session.Session) error {
	query := `
		INSERT INTO sessions (user_id, session_token, ip_address, user_agent, device_info, browser_info,
		                      location, login_at, last_activity_at, status_checked_at, expires_at,
		                      is_active, refresh_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, TRUE, 0)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		s.UserID, s.SessionToken, s.IPAddress, s.UserAgent, s.DeviceInfo, s.BrowserInfo,
		s.Location, s.LoginAt, s.LastActivityAt, s.StatusCheckedAt, s.ExpiresAt,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return mapErr(err, "Session not found", "create session")
	}
	s.IsActive = true
	s.RefreshCount = 0
	return nil
}

func (r *SessionRepository) FindByID(ctx context.Context, id int64) (*session.Session, error) {
	query := `SELECT` + sessionColumns + ` FROM sessions WHERE id = $1`
	s, err := scanSession(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapErr(err, "Session not found", "find session")
	}
	return s, nil
}

func (r *SessionRepository) FindActiveByID(ctx context.Context, id int64, now time.Time) (*session.Session, error) {
	query := `SELECT` + sessionColumns + ` FROM sessions WHERE id = $1 AND is_active = TRUE AND expires_at > $2`
	s, err := scanSession(r.db.QueryRow(ctx, query, id, now))
	if err != nil {
		return nil, mapErr(err, "Session not found or inactive", "find active session")
	}
	return s, nil
}

func (r *SessionRepository) FindActiveByToken(ctx context.Context, token string, now time.Time) (*session.Session, error) {
	query := `SELECT` + sessionColumns + ` FROM sessions WHERE session_token = $1 AND is_active = TRUE AND expires_at > $2`
	s, err := scanSession(r.db.QueryRow(ctx, query, token, now))
	if err != nil {
		return nil, mapErr(err, "Session not found or inactive", "find session by token")
	}
	return s, nil
}

func (r *SessionRepository) FindAllByUser(ctx context.Context, userID int64) ([]*session.Session, error) {
	query := `SELECT` + sessionColumns + ` FROM sessions WHERE user_id = $1 ORDER BY login_at DESC, id DESC`
	return r.querySessions(ctx, "list sessions", query, userID)
}

func (r *SessionRepository) FindActiveByUser(ctx context.Context, userID int64, now time.Time) ([]*session.Session, error) {
	query := `SELECT` + sessionColumns + `
		FROM sessions
		WHERE user_id = $1 AND is_active = TRUE AND expires_at > $2
		ORDER BY login_at DESC, id DESC`
	return r.querySessions(ctx, "list active sessions", query, userID, now)
}

// Deactivate reports whether this call changed the row. An already inactive session is left untouched.
func (r *SessionRepository) Deactivate(ctx context.Context, id int64, reason string, at time.Time) (bool, error) {
	query := `
		UPDATE sessions
		SET is_active = FALSE, logout_at = $2, logout_reason = $3, updated_at = $2
		WHERE id = $1 AND is_active = TRUE
	`
	tag, err := r.db.Exec(ctx, query, id, at, reason)
	if err != nil {
		return false, fmt.Errorf("failed to deactivate session: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return true, nil
	}

	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM sessions WHERE id = $1)`, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check session: %w", err)
	}
	if !exists {
		return false, notFoundErr("Session not found")
	}
	return false, nil
}

func (r *SessionRepository) DeactivateAll(ctx context.Context, userID int64, reason string, at time.Time) ([]int64, error) {
	query := `
		UPDATE sessions
		SET is_active = FALSE, logout_at = $2, logout_reason = $3, updated_at = $2
		WHERE user_id = $1 AND is_active = TRUE
		RETURNING id
	`
	rows, err := r.db.Query(ctx, query, userID, at, reason)
	if err != nil {
		return nil, fmt.Errorf("failed to deactivate sessions: %w", err)
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan session id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to deactivate sessions: %w", err)
	}
	return ids, nil
}

// Touch records activity on an active, unexpired session.
func (r *SessionRepository) Touch(ctx context.Context, id int64, now time.Time) error {
	query := `
		UPDATE sessions
		SET last_activity_at = $2, status_checked_at = $2, updated_at = $2
		WHERE id = $1 AND is_active = TRUE AND expires_at > $2
	`
	tag, err := r.db.Exec(ctx, query, id, now)
	if err != nil {
		return fmt.Errorf("failed to touch session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return notFoundErr("Session not found or inactive")
	}
	return nil
}

// RecordRefresh touches the session and bumps its refresh count, returning the new count.
func (r *SessionRepository) RecordRefresh(ctx context.Context, id int64, now time.Time) (int, error) {
	query := `
		UPDATE sessions
		SET last_activity_at = $2, status_checked_at = $2, updated_at = $2, refresh_count = refresh_count + 1
		WHERE id = $1 AND is_active = TRUE AND expires_at > $2
		RETURNING refresh_count
	`
	var count int
	if err := r.db.QueryRow(ctx, query, id, now).Scan(&count); err != nil {
		return 0, mapErr(err, "Session not found or inactive", "record refresh")
	}
	return count, nil
}

func (r *SessionRepository) FindExpired(ctx context.Context, now time.Time) ([]*session.Session, error) {
	query := `SELECT` + sessionColumns + `
		FROM sessions
		WHERE is_active = TRUE AND expires_at < $1
		ORDER BY expires_at ASC, id ASC`
	return r.querySessions(ctx, "find expired sessions", query, now)
}

// internal/domain/session/entity.go
package session

import (
	"database/sql"
	"time"
)

// Activity types recorded against a session.
const (
	ActivitySessionCreated = "SESSION_CREATED"
	ActivityTokenRefreshed = "TOKEN_REFRESHED"
	ActivityActivityCheck  = "ACTIVITY_CHECK"
	ActivityStatusCheck    = "STATUS_CHECK"
	ActivityLogout         = "LOGOUT"
	ActivitySessionExpired = "SESSION_EXPIRED"
)

// Session is one authenticated login instance. Once IsActive is false the
// row is never written again.
type Session struct {
	ID              int64          `json:"id" db:"id"`
	UserID          int64          `json:"user_id" db:"user_id"`
	SessionToken    string         `json:"session_token" db:"session_token"`
	IPAddress       sql.NullString `json:"ip_address" db:"ip_address"`
	UserAgent       sql.NullString `json:"user_agent" db:"user_agent"`
	DeviceInfo      sql.NullString `json:"device_info" db:"device_info"`
	BrowserInfo     sql.NullString `json:"browser_info" db:"browser_info"`
	Location        sql.NullString `json:"location" db:"location"`
	LoginAt         time.Time      `json:"login_at" db:"login_at"`
	LastActivityAt  time.Time      `json:"last_activity_at" db:"last_activity_at"`
	StatusCheckedAt time.Time      `json:"status_checked_at" db:"status_checked_at"`
	ExpiresAt       time.Time      `json:"expires_at" db:"expires_at"`
	LogoutAt        sql.NullTime   `json:"logout_at" db:"logout_at"`
	LogoutReason    sql.NullString `json:"logout_reason" db:"logout_reason"`
	IsActive        bool           `json:"is_active" db:"is_active"`
	RefreshCount    int            `json:"refresh_count" db:"refresh_count"`
	CreatedAt       time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at" db:"updated_at"`
}

// IsUsable reports whether the session is active and not past its expiry.
func (s *Session) IsUsable(now time.Time) bool {
	return s.IsActive && now.Before(s.ExpiresAt)
}

// Activity is an append-only lifecycle event of a session.
type Activity struct {
	ID                int64          `json:"id" db:"id"`
	SessionID         int64          `json:"session_id" db:"session_id"`
	ActivityType      string         `json:"activity_type" db:"activity_type"`
	Description       sql.NullString `json:"description" db:"description"`
	IPAddress         sql.NullString `json:"ip_address" db:"ip_address"`
	UserAgent         sql.NullString `json:"user_agent" db:"user_agent"`
	ActivityTimestamp time.Time      `json:"activity_timestamp" db:"activity_timestamp"`
}

// internal/domain/audit/entity.go
package audit

import (
	"database/sql"
	"time"
)

// Audit actions
const (
	ActionUserRegistered  = "USER_REGISTERED"
	ActionUserLogin       = "USER_LOGIN"
	ActionSessionCreated  = "SESSION_CREATED"
	ActionTokenRefreshed  = "TOKEN_REFRESHED"
	ActionUserLogout      = "USER_LOGOUT"
	ActionPasswordChanged = "PASSWORD_CHANGED"
	ActionSessionExpired  = "SESSION_EXPIRED"
)

// Entity types referenced by audit entries
const (
	EntityUser    = "User"
	EntitySession = "Session"
)

// Entry is one security-relevant action. User and session references are weak.
type Entry struct {
	ID            int64          `json:"id" db:"id"`
	UserID        sql.NullInt64  `json:"user_id" db:"user_id"`
	SessionID     sql.NullInt64  `json:"session_id" db:"session_id"`
	Action        string         `json:"action" db:"action"`
	EntityType    sql.NullString `json:"entity_type" db:"entity_type"`
	EntityID      sql.NullInt64  `json:"entity_id" db:"entity_id"`
	Description   sql.NullString `json:"description" db:"description"`
	IPAddress     sql.NullString `json:"ip_address" db:"ip_address"`
	UserAgent     sql.NullString `json:"user_agent" db:"user_agent"`
	RequestMethod sql.NullString `json:"request_method" db:"request_method"`
	RequestURL    sql.NullString `json:"request_url" db:"request_url"`
	Timestamp     time.Time      `json:"timestamp" db:"timestamp"`
}

// Filter narrows audit searches. Zero values mean "any".
type Filter struct {
	UserID     *int64
	SessionID  *int64
	Actions    []string
	EntityType string
	EntityID   *int64
	From       *time.Time
	To         *time.Time
	Limit      int
	Offset     int
}

// internal/domain/auth/entity.go
package auth

import (
	"database/sql"
	"time"
)

// User is an account of the mail administration application.
type User struct {
	ID               int64          `json:"id" db:"id"`
	Username         string         `json:"username" db:"username"`
	Email            string         `json:"email" db:"email"`
	PasswordHash     string         `json:"-" db:"password"`
	FirstName        sql.NullString `json:"first_name" db:"first_name"`
	LastName         sql.NullString `json:"last_name" db:"last_name"`
	Phone            sql.NullString `json:"phone" db:"phone"`
	IsActive         bool           `json:"is_active" db:"is_active"`
	IsEmailVerified  bool           `json:"is_email_verified" db:"is_email_verified"`
	OrganisationID   sql.NullInt64  `json:"organisation_id" db:"organisation_id"`
	CurrentSessionID sql.NullInt64  `json:"current_session_id" db:"current_session_id"` // null or an active session of this user
	AccessToken      sql.NullString `json:"-" db:"access_token"`
	RefreshToken     sql.NullString `json:"-" db:"refresh_token"`
	CreatedAt        time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at" db:"updated_at"`
}

// TokenState is the user's session pointer together with the cached token pair.
type TokenState struct {
	CurrentSessionID sql.NullInt64
	AccessToken      sql.NullString
	RefreshToken     sql.NullString
}

// ClearedTokenState drops the pointer and both cached tokens.
func ClearedTokenState() TokenState {
	return TokenState{}
}

// Principal is the authenticated caller of a request, derived from a verified access token.
type Principal struct {
	UserID    int64
	Username  string
	SessionID *int64
	Token     string
}

// HasSession reports whether the principal's token is bound to a session.
func (p *Principal) HasSession() bool {
	return p != nil && p.SessionID != nil
}

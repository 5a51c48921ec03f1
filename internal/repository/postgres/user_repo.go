// internal/repository/postgres/user_repo.go
package postgres

import (
	"context"
	"fmt"
	"time"

	"mailadmin-service/internal/domain/auth"
)

type UserRepository struct {
	db DBTX
}

func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `
	id, username, email, password, first_name, last_name, phone,
	is_active, is_email_verified, organisation_id, current_session_id,
	access_token, refresh_token, created_at, updated_at`

func scanUser(row rowScanner) (*auth.User, error) {
	var u auth.User
	err := row.Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.Phone,
		&u.IsActive, &u.IsEmailVerified, &u.OrganisationID, &u.CurrentSessionID,
		&u.AccessToken, &u.RefreshToken, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Create inserts a user and fills in the generated fields.
func (r *UserRepository) Create(ctx context.Context, u *auth.User) error {
	query := `
		INSERT INTO users (username, email, password, first_name, last_name, phone,
		                   is_active, is_email_verified, organisation_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		u.Username, u.Email, u.PasswordHash, u.FirstName, u.LastName, u.Phone,
		u.IsActive, u.IsEmailVerified, u.OrganisationID,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	return mapErr(err, "User not found", "create user")
}

func (r *UserRepository) FindByID(ctx context.Context, id int64) (*auth.User, error) {
	query := `SELECT` + userColumns + ` FROM users WHERE id = $1`
	u, err := scanUser(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapErr(err, "User not found", "find user")
	}
	return u, nil
}

func (r *UserRepository) FindActiveByUsername(ctx context.Context, username string) (*auth.User, error) {
	query := `SELECT` + userColumns + ` FROM users WHERE username = $1 AND is_active = TRUE`
	u, err := scanUser(r.db.QueryRow(ctx, query, username))
	if err != nil {
		return nil, mapErr(err, "User not found", "find user by username")
	}
	return u, nil
}

// FindActiveByUsernameOrEmail matches the identifier against the username first, then the email.
func (r *UserRepository) FindActiveByUsernameOrEmail(ctx context.Context, identifier string) (*auth.User, error) {
	query := `SELECT` + userColumns + `
		FROM users
		WHERE (username = $1 OR LOWER(email) = LOWER($1)) AND is_active = TRUE
		ORDER BY (username = $1) DESC
		LIMIT 1`
	u, err := scanUser(r.db.QueryRow(ctx, query, identifier))
	if err != nil {
		return nil, mapErr(err, "User not found", "find user by identifier")
	}
	return u, nil
}

func (r *UserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)`, username).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check username: %w", err)
	}
	return exists, nil
}

func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE LOWER(email) = LOWER($1))`, email).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check email: %w", err)
	}
	return exists, nil
}

func (r *UserRepository) LockByID(ctx context.Context, id int64) (*auth.User, error) {
	query := `SELECT` + userColumns + ` FROM users WHERE id = $1 FOR UPDATE`
	u, err := scanUser(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapErr(err, "User not found", "lock user")
	}
	return u, nil
}

func (r *UserRepository) UpdateTokenState(ctx context.Context, id int64, state auth.TokenState, now time.Time) error {
	query := `
		UPDATE users
		SET current_session_id = $1, access_token = $2, refresh_token = $3, updated_at = $4
		WHERE id = $5
	`
	tag, err := r.db.Exec(ctx, query, state.CurrentSessionID, state.AccessToken, state.RefreshToken, now, id)
	if err != nil {
		return fmt.Errorf("failed to update token state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return notFoundErr("User not found")
	}
	return nil
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id int64, hash string, now time.Time) error {
	tag, err := r.db.Exec(ctx, `UPDATE users SET password = $1, updated_at = $2 WHERE id = $3`, hash, now, id)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return notFoundErr("User not found")
	}
	return nil
}

func (r *UserRepository) ClearSessionPointer(ctx context.Context, userID, sessionID int64, now time.Time) (bool, error) {
	query := `
		UPDATE users
		SET current_session_id = NULL, access_token = NULL, refresh_token = NULL, updated_at = $1
		WHERE id = $2 AND current_session_id = $3
	`
	tag, err := r.db.Exec(ctx, query, now, userID, sessionID)
	if err != nil {
		return false, fmt.Errorf("failed to clear session pointer: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

package memory

import (
	"context"
	"strings"
	"time"

	"mailadmin-service/internal/domain/auth"
)

type userRepo struct{ *base }

func (r *userRepo) Create(ctx context.Context, u *auth.User) error {
	return r.do(ctx, func(st *state) error {
		for _, existing := range st.users {
			if existing.Username == u.Username {
				return conflict("duplicate value violates users_username_key")
			}
			if strings.EqualFold(existing.Email, u.Email) {
				return conflict("duplicate value violates users_email_key")
			}
		}
		st.nextUserID++
		now := r.store.now()
		u.ID = st.nextUserID
		u.CreatedAt = now
		u.UpdatedAt = now
		v := *u
		st.users[u.ID] = &v
		return nil
	})
}

func (r *userRepo) find(ctx context.Context, match func(u *auth.User) bool) (*auth.User, error) {
	var found *auth.User
	err := r.do(ctx, func(st *state) error {
		for _, u := range st.users {
			if match(u) {
				v := *u
				found = &v
				return nil
			}
		}
		return notFound("User not found")
	})
	return found, err
}

func (r *userRepo) FindByID(ctx context.Context, id int64) (*auth.User, error) {
	return r.find(ctx, func(u *auth.User) bool { return u.ID == id })
}

func (r *userRepo) FindActiveByUsername(ctx context.Context, username string) (*auth.User, error) {
	return r.find(ctx, func(u *auth.User) bool { return u.IsActive && u.Username == username })
}

func (r *userRepo) FindActiveByUsernameOrEmail(ctx context.Context, identifier string) (*auth.User, error) {
	if u, err := r.FindActiveByUsername(ctx, identifier); err == nil {
		return u, nil
	}
	return r.find(ctx, func(u *auth.User) bool { return u.IsActive && strings.EqualFold(u.Email, identifier) })
}

func (r *userRepo) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	_, err := r.find(ctx, func(u *auth.User) bool { return u.Username == username })
	return err == nil, ctx.Err()
}

func (r *userRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := r.find(ctx, func(u *auth.User) bool { return strings.EqualFold(u.Email, email) })
	return err == nil, ctx.Err()
}

// LockByID is a plain read; the store lock already serialises transactions.
func (r *userRepo) LockByID(ctx context.Context, id int64) (*auth.User, error) {
	return r.FindByID(ctx, id)
}

func (r *userRepo) update(ctx context.Context, id int64, fn func(u *auth.User)) error {
	return r.do(ctx, func(st *state) error {
		u, ok := st.users[id]
		if !ok {
			return notFound("User not found")
		}
		fn(u)
		return nil
	})
}

func (r *userRepo) UpdateTokenState(ctx context.Context, id int64, ts auth.TokenState, now time.Time) error {
	return r.update(ctx, id, func(u *auth.User) {
		u.CurrentSessionID = ts.CurrentSessionID
		u.AccessToken = ts.AccessToken
		u.RefreshToken = ts.RefreshToken
		u.UpdatedAt = now
	})
}

func (r *userRepo) UpdatePassword(ctx context.Context, id int64, hash string, now time.Time) error {
	return r.update(ctx, id, func(u *auth.User) {
		u.PasswordHash = hash
		u.UpdatedAt = now
	})
}

func (r *userRepo) ClearSessionPointer(ctx context.Context, userID, sessionID int64, now time.Time) (bool, error) {
	cleared := false
	err := r.do(ctx, func(st *state) error {
		u, ok := st.users[userID]
		if !ok || !u.CurrentSessionID.Valid || u.CurrentSessionID.Int64 != sessionID {
			return nil
		}
		cleared = true
		ts := auth.ClearedTokenState()
		u.CurrentSessionID = ts.CurrentSessionID
		u.AccessToken = ts.AccessToken
		u.RefreshToken = ts.RefreshToken
		u.UpdatedAt = now
		return nil
	})
	return cleared, err
}

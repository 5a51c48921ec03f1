package memory

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"mailadmin-service/internal/domain/session"
)

type sessionRepo struct{ *base }

func (r *sessionRepo) Create(ctx context.Context, s *session.Session) error {
	return r.do(ctx, func(st *state) error {
		for _, existing := range st.sessions {
			if existing.SessionToken == s.SessionToken {
				return conflict("duplicate value violates sessions_session_token_key")
			}
		}
		if _, ok := st.users[s.UserID]; !ok {
			return notFound("User not found")
		}
		st.nextSessionID++
		now := r.store.now()
		s.ID = st.nextSessionID
		s.IsActive = true
		s.RefreshCount = 0
		s.CreatedAt = now
		s.UpdatedAt = now
		v := *s
		st.sessions[s.ID] = &v
		return nil
	})
}

func (r *sessionRepo) FindByID(ctx context.Context, id int64) (*session.Session, error) {
	var found *session.Session
	err := r.do(ctx, func(st *state) error {
		s, ok := st.sessions[id]
		if !ok {
			return notFound("Session not found")
		}
		v := *s
		found = &v
		return nil
	})
	return found, err
}

func (r *sessionRepo) FindActiveByID(ctx context.Context, id int64, now time.Time) (*session.Session, error) {
	s, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.IsUsable(now) {
		return nil, notFound("Session not found or inactive")
	}
	return s, nil
}

func (r *sessionRepo) FindActiveByToken(ctx context.Context, token string, now time.Time) (*session.Session, error) {
	list, err := r.filter(ctx, func(s *session.Session) bool {
		return s.SessionToken == token && s.IsUsable(now)
	})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, notFound("Session not found or inactive")
	}
	return list[0], nil
}

// filter returns copies of matching sessions, newest login first.
func (r *sessionRepo) filter(ctx context.Context, match func(s *session.Session) bool) ([]*session.Session, error) {
	out := []*session.Session{}
	err := r.do(ctx, func(st *state) error {
		for _, s := range st.sessions {
			if match(s) {
				v := *s
				out = append(out, &v)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].LoginAt.Equal(out[j].LoginAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].LoginAt.After(out[j].LoginAt)
	})
	return out, err
}

func (r *sessionRepo) FindAllByUser(ctx context.Context, userID int64) ([]*session.Session, error) {
	return r.filter(ctx, func(s *session.Session) bool { return s.UserID == userID })
}

func (r *sessionRepo) FindActiveByUser(ctx context.Context, userID int64, now time.Time) ([]*session.Session, error) {
	return r.filter(ctx, func(s *session.Session) bool { return s.UserID == userID && s.IsUsable(now) })
}

func deactivate(s *session.Session, reason string, at time.Time) {
	s.IsActive = false
	s.LogoutAt = sql.NullTime{Time: at, Valid: true}
	s.LogoutReason = sql.NullString{String: reason, Valid: reason != ""}
	s.UpdatedAt = at
}

func (r *sessionRepo) Deactivate(ctx context.Context, id int64, reason string, at time.Time) (bool, error) {
	changed := false
	err := r.do(ctx, func(st *state) error {
		s, ok := st.sessions[id]
		if !ok {
			return notFound("Session not found")
		}
		if !s.IsActive {
			return nil
		}
		deactivate(s, reason, at)
		changed = true
		return nil
	})
	return changed, err
}

func (r *sessionRepo) DeactivateAll(ctx context.Context, userID int64, reason string, at time.Time) ([]int64, error) {
	ids := []int64{}
	err := r.do(ctx, func(st *state) error {
		for _, s := range st.sessions {
			if s.UserID == userID && s.IsActive {
				deactivate(s, reason, at)
				ids = append(ids, s.ID)
			}
		}
		return nil
	})
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, err
}

func (r *sessionRepo) Touch(ctx context.Context, id int64, now time.Time) error {
	_, err := r.touch(ctx, id, now, false)
	return err
}

func (r *sessionRepo) RecordRefresh(ctx context.Context, id int64, now time.Time) (int, error) {
	return r.touch(ctx, id, now, true)
}

func (r *sessionRepo) touch(ctx context.Context, id int64, now time.Time, refresh bool) (int, error) {
	count := 0
	err := r.do(ctx, func(st *state) error {
		s, ok := st.sessions[id]
		if !ok || !s.IsUsable(now) {
			return notFound("Session not found or inactive")
		}
		s.LastActivityAt = now
		s.StatusCheckedAt = now
		s.UpdatedAt = now
		if refresh {
			s.RefreshCount++
		}
		count = s.RefreshCount
		return nil
	})
	return count, err
}

func (r *sessionRepo) FindExpired(ctx context.Context, now time.Time) ([]*session.Session, error) {
	list, err := r.filter(ctx, func(s *session.Session) bool { return s.IsActive && s.ExpiresAt.Before(now) })
	sort.Slice(list, func(i, j int) bool {
		if list[i].ExpiresAt.Equal(list[j].ExpiresAt) {
			return list[i].ID < list[j].ID
		}
		return list[i].ExpiresAt.Before(list[j].ExpiresAt)
	})
	return list, err
}

package memory

import (
	"context"
	"sort"
	"time"

	"mailadmin-service/internal/domain/audit"
	"mailadmin-service/internal/domain/session"
)

type activityRepo struct{ *base }

func (r *activityRepo) Append(ctx context.Context, a *session.Activity) error {
	return r.do(ctx, func(st *state) error {
		if _, ok := st.sessions[a.SessionID]; !ok {
			return notFound("Session not found")
		}
		st.nextActivityID++
		a.ID = st.nextActivityID
		v := *a
		st.activities = append(st.activities, &v)
		return nil
	})
}

func (r *activityRepo) list(ctx context.Context, match func(a *session.Activity) bool) ([]*session.Activity, error) {
	out := []*session.Activity{}
	err := r.do(ctx, func(st *state) error {
		for _, a := range st.activities {
			if match(a) {
				v := *a
				out = append(out, &v)
			}
		}
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ActivityTimestamp.Equal(out[j].ActivityTimestamp) {
			return out[i].ID > out[j].ID
		}
		return out[i].ActivityTimestamp.After(out[j].ActivityTimestamp)
	})
	return out, err
}

func (r *activityRepo) FindBySession(ctx context.Context, sessionID int64) ([]*session.Activity, error) {
	return r.list(ctx, func(a *session.Activity) bool { return a.SessionID == sessionID })
}

func (r *activityRepo) FindBySessionAndType(ctx context.Context, sessionID int64, activityType string) ([]*session.Activity, error) {
	return r.list(ctx, func(a *session.Activity) bool {
		return a.SessionID == sessionID && a.ActivityType == activityType
	})
}

type auditRepo struct{ *base }

func (r *auditRepo) Append(ctx context.Context, e *audit.Entry) error {
	return r.do(ctx, func(st *state) error {
		st.nextAuditID++
		e.ID = st.nextAuditID
		v := *e
		st.audit = append(st.audit, &v)
		return nil
	})
}

func (r *auditRepo) FindByUser(ctx context.Context, userID int64) ([]*audit.Entry, error) {
	return r.Search(ctx, audit.Filter{UserID: &userID})
}

func (r *auditRepo) FindBySession(ctx context.Context, sessionID int64) ([]*audit.Entry, error) {
	return r.Search(ctx, audit.Filter{SessionID: &sessionID})
}

func (r *auditRepo) FindByAction(ctx context.Context, action string) ([]*audit.Entry, error) {
	return r.Search(ctx, audit.Filter{Actions: []string{action}})
}

func (r *auditRepo) FindByEntity(ctx context.Context, entityType string, entityID int64) ([]*audit.Entry, error) {
	return r.Search(ctx, audit.Filter{EntityType: entityType, EntityID: &entityID})
}

func (r *auditRepo) FindByDateRange(ctx context.Context, from, to time.Time) ([]*audit.Entry, error) {
	return r.Search(ctx, audit.Filter{From: &from, To: &to})
}

func (r *auditRepo) Search(ctx context.Context, f audit.Filter) ([]*audit.Entry, error) {
	out := []*audit.Entry{}
	err := r.do(ctx, func(st *state) error {
		for _, e := range st.audit {
			if matches(e, f) {
				v := *e
				out = append(out, &v)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].ID > out[j].ID
		}
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	if f.Limit > 0 {
		if f.Offset >= len(out) {
			return []*audit.Entry{}, nil
		}
		end := f.Offset + f.Limit
		if end > len(out) {
			end = len(out)
		}
		out = out[f.Offset:end]
	}
	return out, nil
}

func matches(e *audit.Entry, f audit.Filter) bool {
	if f.UserID != nil && (!e.UserID.Valid || e.UserID.Int64 != *f.UserID) {
		return false
	}
	if f.SessionID != nil && (!e.SessionID.Valid || e.SessionID.Int64 != *f.SessionID) {
		return false
	}
	if len(f.Actions) > 0 {
		found := false
		for _, a := range f.Actions {
			if a == e.Action {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.EntityType != "" && e.EntityType.String != f.EntityType {
		return false
	}
	if f.EntityID != nil && (!e.EntityID.Valid || e.EntityID.Int64 != *f.EntityID) {
		return false
	}
	if f.From != nil && e.Timestamp.Before(*f.From) {
		return false
	}
	if f.To != nil && e.Timestamp.After(*f.To) {
		return false
	}
	return true
}

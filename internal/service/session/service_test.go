package session

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"mailadmin-service/internal/domain/audit"
	"mailadmin-service/internal/domain/auth"
	"mailadmin-service/internal/domain/session"
	xerrors "mailadmin-service/internal/pkg/errors"
	"mailadmin-service/internal/pkg/requestinfo"
	"mailadmin-service/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	t0   = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	info = requestinfo.Info{IPAddress: "192.0.2.10", UserAgent: "curl/8"}
)

func newStore(t *testing.T) *memory.Store {
	t.Helper()
	store := memory.NewStore()
	store.SetClock(func() time.Time { return t0 })
	return store
}

func seedUser(t *testing.T, store *memory.Store, username string) *auth.User {
	t.Helper()
	u := &auth.User{Username: username, Email: username + "@example.com", PasswordHash: "x", IsActive: true}
	require.NoError(t, store.Repos().Users.Create(context.Background(), u))
	return u
}

func seedSession(t *testing.T, store *memory.Store, userID int64, loginAt time.Time, ttl time.Duration) *session.Session {
	t.Helper()
	s := &session.Session{
		UserID:          userID,
		SessionToken:    fmt.Sprintf("tok-%d-%d", userID, loginAt.UnixNano()),
		LoginAt:         loginAt,
		LastActivityAt:  loginAt,
		StatusCheckedAt: loginAt,
		ExpiresAt:       loginAt.Add(ttl),
	}
	require.NoError(t, store.Repos().Sessions.Create(context.Background(), s))
	return s
}

func principalFor(u *auth.User, sessionID *int64) *auth.Principal {
	return &auth.Principal{UserID: u.ID, Username: u.Username, SessionID: sessionID}
}

func newService(store *memory.Store, now time.Time) *SessionService {
	svc := NewSessionService(store, zap.NewNop())
	svc.SetClock(func() time.Time { return now })
	return svc
}

func TestGetCurrentRecordsStatusCheck(t *testing.T) {
	store := newStore(t)
	alice := seedUser(t, store, "alice")
	sess := seedSession(t, store, alice.ID, t0, time.Hour)
	now := t0.Add(10 * time.Minute)

	resp, err := newService(store, now).GetCurrent(context.Background(), principalFor(alice, &sess.ID), info)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, resp.ID)
	assert.Equal(t, now, resp.LastActivityAt)
	assert.Equal(t, now, resp.StatusCheckedAt)
	require.Len(t, resp.Activities, 1)
	assert.Equal(t, session.ActivityStatusCheck, resp.Activities[0].ActivityType)
	assert.Equal(t, "Session status checked", resp.Activities[0].Description)
	assert.Equal(t, "192.0.2.10", resp.Activities[0].IPAddress)
}

func TestGetCurrentErrors(t *testing.T) {
	store := newStore(t)
	alice := seedUser(t, store, "alice")
	bob := seedUser(t, store, "bob")
	bobs := seedSession(t, store, bob.ID, t0, time.Hour)
	stale := seedSession(t, store, alice.ID, t0, time.Minute)
	svc := newService(store, t0.Add(5*time.Minute))
	ctx := context.Background()

	_, err := svc.GetCurrent(ctx, principalFor(alice, nil), info)
	assert.Equal(t, xerrors.KindNotFound, xerrors.KindOf(err))
	assert.EqualError(t, err, "Session ID not found in token")

	_, err = svc.GetCurrent(ctx, principalFor(alice, &stale.ID), info)
	assert.Equal(t, xerrors.KindSessionInactive, xerrors.KindOf(err))

	_, err = svc.GetCurrent(ctx, principalFor(alice, &bobs.ID), info)
	assert.Equal(t, xerrors.KindForbidden, xerrors.KindOf(err))
	assert.EqualError(t, err, "Session does not belong to user")

	_, err = svc.GetCurrent(ctx, nil, info)
	assert.Equal(t, xerrors.KindTokenMissing, xerrors.KindOf(err))
}

func TestGetByIDTouchesOnlyActive(t *testing.T) {
	store := newStore(t)
	alice := seedUser(t, store, "alice")
	active := seedSession(t, store, alice.ID, t0, time.Hour)
	ended := seedSession(t, store, alice.ID, t0.Add(time.Second), time.Hour)
	ctx := context.Background()
	_, err := store.Repos().Sessions.Deactivate(ctx, ended.ID, "User logout", t0.Add(time.Minute))
	require.NoError(t, err)

	svc := newService(store, t0.Add(10*time.Minute))
	p := principalFor(alice, &active.ID)

	resp, err := svc.GetByID(ctx, p, ended.ID, info)
	require.NoError(t, err)
	assert.False(t, resp.IsActive)
	assert.Equal(t, "User logout", resp.LogoutReason)
	assert.Empty(t, resp.Activities)

	resp, err = svc.GetByID(ctx, p, active.ID, info)
	require.NoError(t, err)
	assert.Len(t, resp.Activities, 1)

	_, err = svc.GetByID(ctx, p, 999, info)
	assert.Equal(t, xerrors.KindNotFound, xerrors.KindOf(err))
}

func TestListAllAndActive(t *testing.T) {
	store := newStore(t)
	alice := seedUser(t, store, "alice")
	bob := seedUser(t, store, "bob")
	first := seedSession(t, store, alice.ID, t0, time.Hour)
	second := seedSession(t, store, alice.ID, t0.Add(time.Minute), time.Hour)
	seedSession(t, store, bob.ID, t0, time.Hour)
	ctx := context.Background()
	_, err := store.Repos().Sessions.Deactivate(ctx, first.ID, "User logout", t0.Add(2*time.Minute))
	require.NoError(t, err)

	svc := newService(store, t0.Add(5*time.Minute))
	p := principalFor(alice, &second.ID)

	all, err := svc.ListAll(ctx, p)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, second.ID, all[0].ID)
	assert.Equal(t, first.ID, all[1].ID)
	assert.Empty(t, all[0].Activities, "listing all sessions records nothing")

	active, err := svc.ListActive(ctx, p, info)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, second.ID, active[0].ID)
	assert.Len(t, active[0].Activities, 1)
}

func TestUpdateStatus(t *testing.T) {
	store := newStore(t)
	alice := seedUser(t, store, "alice")
	sess := seedSession(t, store, alice.ID, t0, time.Hour)
	ctx := context.Background()
	now := t0.Add(3 * time.Minute)

	require.NoError(t, newService(store, now).UpdateStatus(ctx, principalFor(alice, &sess.ID), info))

	got, err := store.Repos().Sessions.FindByID(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, now, got.StatusCheckedAt)

	err = newService(store, t0.Add(2*time.Hour)).UpdateStatus(ctx, principalFor(alice, &sess.ID), info)
	assert.Equal(t, xerrors.KindSessionInactive, xerrors.KindOf(err))
}

type expiryRecorder struct {
	calls [][2]int64
}

func (e *expiryRecorder) SessionExpired(userID, sessionID int64) {
	e.calls = append(e.calls, [2]int64{userID, sessionID})
}

func TestReaperExpiresStaleSessions(t *testing.T) {
	store := newStore(t)
	alice := seedUser(t, store, "alice")
	stale := seedSession(t, store, alice.ID, t0, time.Minute)
	fresh := seedSession(t, store, alice.ID, t0.Add(time.Second), time.Hour)
	ctx := context.Background()

	tx := store.Repos()
	require.NoError(t, tx.Users.UpdateTokenState(ctx, alice.ID, auth.TokenState{
		CurrentSessionID: nullInt(stale.ID),
	}, t0))

	rec := &expiryRecorder{}
	reaper := NewReaper(store, rec, zap.NewNop())
	now := t0.Add(10 * time.Minute)

	n, err := reaper.ExpireStale(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, [][2]int64{{alice.ID, stale.ID}}, rec.calls)

	got, err := tx.Sessions.FindByID(ctx, stale.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
	assert.Equal(t, "Session expired", got.LogoutReason.String)

	stillActive, err := tx.Sessions.FindByID(ctx, fresh.ID)
	require.NoError(t, err)
	assert.True(t, stillActive.IsActive)

	user, err := tx.Users.FindByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.False(t, user.CurrentSessionID.Valid)

	activities, err := tx.Activities.FindBySessionAndType(ctx, stale.ID, session.ActivitySessionExpired)
	require.NoError(t, err)
	assert.Len(t, activities, 1)
	entries, err := tx.Audit.FindByAction(ctx, audit.ActionSessionExpired)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	n, err = reaper.ExpireStale(ctx, now)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestReaperRunStopsOnCancel(t *testing.T) {
	store := newStore(t)
	reaper := NewReaper(store, nil, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		reaper.Run(ctx, 10*time.Millisecond)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reaper did not stop")
	}
}

func nullInt(v int64) sql.NullInt64 {
	return sql.NullInt64{Int64: v, Valid: true}
}

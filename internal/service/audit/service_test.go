package audit

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"mailadmin-service/internal/domain/audit"
	"mailadmin-service/internal/domain/auth"
	"mailadmin-service/internal/domain/session"
	xerrors "mailadmin-service/internal/pkg/errors"
	"mailadmin-service/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var t0 = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

type fixture struct {
	store   *memory.Store
	alice   *auth.User
	bob     *auth.User
	session *session.Session
}

func seed(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	r := store.Repos()

	alice := &auth.User{Username: "alice", Email: "alice@example.com", PasswordHash: "x", IsActive: true}
	bob := &auth.User{Username: "bob", Email: "bob@example.com", PasswordHash: "x", IsActive: true}
	require.NoError(t, r.Users.Create(ctx, alice))
	require.NoError(t, r.Users.Create(ctx, bob))

	sess := &session.Session{UserID: alice.ID, SessionToken: "s1", LoginAt: t0, LastActivityAt: t0, StatusCheckedAt: t0, ExpiresAt: t0.Add(time.Hour)}
	require.NoError(t, r.Sessions.Create(ctx, sess))

	add := func(userID, sessionID int64, action string, at time.Time) {
		require.NoError(t, r.Audit.Append(ctx, &audit.Entry{
			UserID:    sql.NullInt64{Int64: userID, Valid: true},
			SessionID: sql.NullInt64{Int64: sessionID, Valid: sessionID != 0},
			Action:    action,
			Timestamp: at,
		}))
	}
	add(alice.ID, 0, audit.ActionUserRegistered, t0)
	add(alice.ID, sess.ID, audit.ActionSessionCreated, t0.Add(time.Second))
	add(alice.ID, sess.ID, audit.ActionTokenRefreshed, t0.Add(time.Minute))
	add(bob.ID, 0, audit.ActionUserRegistered, t0)

	return &fixture{store: store, alice: alice, bob: bob, session: sess}
}

func TestListMine(t *testing.T) {
	f := seed(t)
	svc := NewAuditService(f.store, zap.NewNop())
	p := &auth.Principal{UserID: f.alice.ID}

	all, err := svc.ListMine(context.Background(), p, audit.ListQuery{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, audit.ActionTokenRefreshed, all[0].Action)

	filtered, err := svc.ListMine(context.Background(), p, audit.ListQuery{Actions: []string{audit.ActionUserRegistered}})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, f.alice.ID, *filtered[0].UserID)

	paged, err := svc.ListMine(context.Background(), p, audit.ListQuery{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, paged, 1)
	assert.Equal(t, audit.ActionSessionCreated, paged[0].Action)
}

func TestListMineRejectsInvertedRange(t *testing.T) {
	f := seed(t)
	svc := NewAuditService(f.store, zap.NewNop())
	from, to := t0.Add(time.Hour), t0

	_, err := svc.ListMine(context.Background(), &auth.Principal{UserID: f.alice.ID}, audit.ListQuery{From: &from, To: &to})
	assert.Equal(t, xerrors.KindValidation, xerrors.KindOf(err))
}

func TestListForSession(t *testing.T) {
	f := seed(t)
	svc := NewAuditService(f.store, zap.NewNop())
	ctx := context.Background()

	entries, err := svc.ListForSession(ctx, &auth.Principal{UserID: f.alice.ID}, f.session.ID, audit.ListQuery{})
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	_, err = svc.ListForSession(ctx, &auth.Principal{UserID: f.bob.ID}, f.session.ID, audit.ListQuery{})
	assert.Equal(t, xerrors.KindForbidden, xerrors.KindOf(err))

	_, err = svc.ListForSession(ctx, &auth.Principal{UserID: f.alice.ID}, 404, audit.ListQuery{})
	assert.Equal(t, xerrors.KindNotFound, xerrors.KindOf(err))

	_, err = svc.ListForSession(ctx, nil, f.session.ID, audit.ListQuery{})
	assert.Equal(t, xerrors.KindTokenMissing, xerrors.KindOf(err))
}

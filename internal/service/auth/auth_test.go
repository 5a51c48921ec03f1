package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"mailadmin-service/internal/domain/audit"
	"mailadmin-service/internal/domain/auth"
	"mailadmin-service/internal/domain/organisation"
	"mailadmin-service/internal/domain/session"
	xerrors "mailadmin-service/internal/pkg/errors"
	"mailadmin-service/internal/pkg/jwt"
	"mailadmin-service/internal/pkg/password"
	"mailadmin-service/internal/pkg/requestinfo"
	"mailadmin-service/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "test-secret-key-that-is-long-enough-for-hs256"

var reqInfo = requestinfo.Info{IPAddress: "10.0.0.1", UserAgent: "test-agent", Method: "POST", URL: "/api/v1/auth/login"}

type clock struct {
	mu  sync.Mutex
	cur time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cur
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.cur = c.cur.Add(d)
	c.mu.Unlock()
}

type recordingNotifier struct {
	userID  int64
	ids     []int64
	reasons []string
}

func (n *recordingNotifier) SessionsRevoked(userID int64, ids []int64, reason string) {
	n.userID = userID
	n.ids = append(n.ids, ids...)
	n.reasons = append(n.reasons, reason)
}

type stubLimiter struct {
	allowed bool
	resets  int
}

func (l *stubLimiter) CheckLoginAttempt(context.Context, string, string) (bool, int64, error) {
	return l.allowed, 0, nil
}

func (l *stubLimiter) ResetLoginAttempts(context.Context, string, string) error {
	l.resets++
	return nil
}

type fixture struct {
	svc      *AuthService
	store    *memory.Store
	clock    *clock
	notifier *recordingNotifier
}

func newFixture(t *testing.T, limiter LoginLimiter, opts Options) *fixture {
	t.Helper()
	tokens, err := jwt.NewManager(jwt.Config{Secret: testSecret, Issuer: "mailadmin", AccessTTL: time.Hour, RefreshTTL: 24 * time.Hour})
	require.NoError(t, err)

	clk := &clock{cur: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
	store := memory.NewStore()
	store.SetClock(clk.Now)
	notifier := &recordingNotifier{}

	svc := NewAuthService(store, tokens, password.NewHasher(4), limiter, notifier, zap.NewNop(), opts)
	svc.SetClock(clk.Now)
	return &fixture{svc: svc, store: store, clock: clk, notifier: notifier}
}

func (f *fixture) register(t *testing.T, username string) *auth.AuthResponse {
	t.Helper()
	resp, err := f.svc.Register(context.Background(), &auth.RegisterRequest{
		Username: username,
		Email:    username + "@example.com",
		Password: "correct-horse",
	}, reqInfo)
	require.NoError(t, err)
	return resp
}

func (f *fixture) principal(t *testing.T, accessToken string) *auth.Principal {
	t.Helper()
	p, err := f.svc.ValidateToken(context.Background(), accessToken)
	require.NoError(t, err)
	return p
}

func assertKind(t *testing.T, err error, kind xerrors.Kind, message string) {
	t.Helper()
	require.Error(t, err)
	appErr, ok := xerrors.As(err)
	require.True(t, ok, "expected *xerrors.Error, got %T", err)
	assert.Equal(t, kind, appErr.Kind)
	if message != "" {
		assert.Equal(t, message, appErr.Message)
	}
}

func TestRegisterIssuesSession(t *testing.T) {
	f := newFixture(t, nil, Options{})
	ctx := context.Background()

	resp := f.register(t, "alice")

	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, int64(3600), resp.ExpiresIn)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEqual(t, resp.AccessToken, resp.RefreshToken)
	assert.Equal(t, "alice", resp.User.Username)
	require.NotNil(t, resp.Session)
	assert.True(t, resp.Session.IsActive)
	assert.Equal(t, f.clock.Now().Add(24*time.Hour), resp.Session.ExpiresAt)
	require.Len(t, resp.Session.Activities, 1)
	assert.Equal(t, session.ActivitySessionCreated, resp.Session.Activities[0].ActivityType)
	assert.Equal(t, "Session created on login", resp.Session.Activities[0].Description)

	user, err := f.store.Repos().Users.FindByID(ctx, resp.User.ID)
	require.NoError(t, err)
	assert.Equal(t, resp.Session.ID, user.CurrentSessionID.Int64)
	assert.Equal(t, resp.RefreshToken, user.RefreshToken.String)
	assert.NotEqual(t, "correct-horse", user.PasswordHash)

	entries, err := f.store.Repos().Audit.FindByUser(ctx, resp.User.ID)
	require.NoError(t, err)
	actions := make([]string, 0, len(entries))
	for _, e := range entries {
		actions = append(actions, e.Action)
	}
	assert.ElementsMatch(t, []string{audit.ActionUserRegistered, audit.ActionSessionCreated}, actions)
}

func TestRegisterConflicts(t *testing.T) {
	f := newFixture(t, nil, Options{})
	f.register(t, "alice")

	_, err := f.svc.Register(context.Background(), &auth.RegisterRequest{
		Username: "alice", Email: "other@example.com", Password: "correct-horse",
	}, reqInfo)
	assertKind(t, err, xerrors.KindConflict, "Username already exists")

	_, err = f.svc.Register(context.Background(), &auth.RegisterRequest{
		Username: "bob", Email: "ALICE@example.com", Password: "correct-horse",
	}, reqInfo)
	assertKind(t, err, xerrors.KindConflict, "Email already exists")
}

func TestRegisterRejectsOverlongPassword(t *testing.T) {
	f := newFixture(t, nil, Options{})

	_, err := f.svc.Register(context.Background(), &auth.RegisterRequest{
		Username: "alice",
		Email:    "alice@example.com",
		Password: strings.Repeat("a", 80),
	}, reqInfo)
	assertKind(t, err, xerrors.KindValidation, "")

	exists, err := f.store.Repos().Users.ExistsByUsername(context.Background(), "alice")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRegisterOrganisation(t *testing.T) {
	f := newFixture(t, nil, Options{})
	ctx := context.Background()

	missing := int64(99)
	_, err := f.svc.Register(ctx, &auth.RegisterRequest{
		Username: "alice", Email: "alice@example.com", Password: "correct-horse", OrganisationID: &missing,
	}, reqInfo)
	assertKind(t, err, xerrors.KindNotFound, "Organisation not found")

	_, err = f.store.Repos().Users.FindActiveByUsername(ctx, "alice")
	assert.True(t, errors.Is(err, xerrors.ErrNotFound), "failed registration must not leave a user behind")

	org := &organisation.Organisation{Name: "Acme", IsActive: true}
	require.NoError(t, f.store.Repos().Organisations.Create(ctx, org))

	resp, err := f.svc.Register(ctx, &auth.RegisterRequest{
		Username: "alice", Email: "alice@example.com", Password: "correct-horse", OrganisationID: &org.ID,
	}, reqInfo)
	require.NoError(t, err)
	require.NotNil(t, resp.User.OrganisationID)
	assert.Equal(t, org.ID, *resp.User.OrganisationID)
	assert.Equal(t, "Acme", resp.User.OrganisationName)
}

func TestLogin(t *testing.T) {
	limiter := &stubLimiter{allowed: true}
	f := newFixture(t, limiter, Options{})
	registered := f.register(t, "alice")

	resp, err := f.svc.Login(context.Background(), &auth.LoginRequest{
		UsernameOrEmail: "alice@example.com",
		Password:        "correct-horse",
		DeviceInfo:      "laptop",
	}, reqInfo)
	require.NoError(t, err)
	assert.NotEqual(t, registered.Session.ID, resp.Session.ID)
	assert.Equal(t, "laptop", resp.Session.DeviceInfo)
	assert.Equal(t, "10.0.0.1", resp.Session.IPAddress)
	assert.Equal(t, 1, limiter.resets)

	user, err := f.store.Repos().Users.FindByID(context.Background(), resp.User.ID)
	require.NoError(t, err)
	assert.Equal(t, resp.Session.ID, user.CurrentSessionID.Int64)
}

func TestLoginFailuresLookAlike(t *testing.T) {
	f := newFixture(t, nil, Options{})
	f.register(t, "alice")

	_, err := f.svc.Login(context.Background(), &auth.LoginRequest{UsernameOrEmail: "alice", Password: "wrong-password"}, reqInfo)
	assertKind(t, err, xerrors.KindAuthentication, "Invalid username or password")

	_, err = f.svc.Login(context.Background(), &auth.LoginRequest{UsernameOrEmail: "nobody", Password: "correct-horse"}, reqInfo)
	assertKind(t, err, xerrors.KindAuthentication, "Invalid username or password")
}

func TestLoginRateLimited(t *testing.T) {
	f := newFixture(t, &stubLimiter{allowed: false}, Options{})
	f.register(t, "alice")

	_, err := f.svc.Login(context.Background(), &auth.LoginRequest{UsernameOrEmail: "alice", Password: "correct-horse"}, reqInfo)
	assertKind(t, err, xerrors.KindRateLimited, "")
}

func TestRefreshToken(t *testing.T) {
	f := newFixture(t, nil, Options{})
	ctx := context.Background()
	reg := f.register(t, "alice")

	f.clock.Advance(time.Minute)
	pair, err := f.svc.RefreshToken(ctx, &auth.RefreshTokenRequest{RefreshToken: reg.RefreshToken}, reqInfo)
	require.NoError(t, err)
	assert.NotEqual(t, reg.RefreshToken, pair.RefreshToken)
	assert.NotEqual(t, reg.AccessToken, pair.AccessToken)
	assert.Equal(t, "Bearer", pair.TokenType)

	sess, err := f.store.Repos().Sessions.FindByID(ctx, reg.Session.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, sess.RefreshCount)
	assert.Equal(t, f.clock.Now(), sess.LastActivityAt)

	refreshed, err := f.store.Repos().Activities.FindBySessionAndType(ctx, sess.ID, session.ActivityTokenRefreshed)
	require.NoError(t, err)
	assert.Len(t, refreshed, 1)

	// the superseded refresh token is no longer the cached one
	_, err = f.svc.RefreshToken(ctx, &auth.RefreshTokenRequest{RefreshToken: reg.RefreshToken}, reqInfo)
	assertKind(t, err, xerrors.KindTokenMismatch, "Refresh token mismatch")

	p := f.principal(t, pair.AccessToken)
	require.NotNil(t, p.SessionID)
	assert.Equal(t, reg.Session.ID, *p.SessionID)
}

func TestRefreshConcurrentReuse(t *testing.T) {
	f := newFixture(t, nil, Options{})
	reg := f.register(t, "alice")

	const workers = 8
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		wins     int
		mismatch int
		others   []error
	)
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := f.svc.RefreshToken(context.Background(), &auth.RefreshTokenRequest{RefreshToken: reg.RefreshToken}, reqInfo)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case xerrors.KindOf(err) == xerrors.KindTokenMismatch:
				mismatch++
			default:
				others = append(others, err)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Empty(t, others)
	assert.Equal(t, 1, wins)
	assert.Equal(t, workers-1, mismatch)

	sess, err := f.store.Repos().Sessions.FindByID(context.Background(), reg.Session.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, sess.RefreshCount)
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	f := newFixture(t, nil, Options{})
	reg := f.register(t, "alice")

	_, err := f.svc.RefreshToken(context.Background(), &auth.RefreshTokenRequest{RefreshToken: reg.AccessToken}, reqInfo)
	assertKind(t, err, xerrors.KindTokenTypeMismatch, "")
}

func TestRefreshAfterLogout(t *testing.T) {
	f := newFixture(t, nil, Options{})
	reg := f.register(t, "alice")
	p := f.principal(t, reg.AccessToken)

	require.NoError(t, f.svc.Logout(context.Background(), p, nil, reqInfo))

	_, err := f.svc.RefreshToken(context.Background(), &auth.RefreshTokenRequest{RefreshToken: reg.RefreshToken}, reqInfo)
	assertKind(t, err, xerrors.KindTokenMismatch, "")
}

func TestLogoutSingle(t *testing.T) {
	f := newFixture(t, nil, Options{})
	ctx := context.Background()
	reg := f.register(t, "alice")
	p := f.principal(t, reg.AccessToken)

	require.NoError(t, f.svc.Logout(ctx, p, &auth.LogoutRequest{}, reqInfo))

	sess, err := f.store.Repos().Sessions.FindByID(ctx, reg.Session.ID)
	require.NoError(t, err)
	assert.False(t, sess.IsActive)
	assert.Equal(t, "User logout", sess.LogoutReason.String)

	user, err := f.store.Repos().Users.FindByID(ctx, reg.User.ID)
	require.NoError(t, err)
	assert.False(t, user.CurrentSessionID.Valid)
	assert.False(t, user.AccessToken.Valid)
	assert.False(t, user.RefreshToken.Valid)

	logouts, err := f.store.Repos().Activities.FindBySessionAndType(ctx, sess.ID, session.ActivityLogout)
	require.NoError(t, err)
	assert.Len(t, logouts, 1)

	assert.Equal(t, reg.User.ID, f.notifier.userID)
	assert.Equal(t, []int64{reg.Session.ID}, f.notifier.ids)

	_, err = f.svc.ValidateToken(ctx, reg.AccessToken)
	assertKind(t, err, xerrors.KindSessionInactive, "")
}

func TestLogoutSingleKeepsOtherSessions(t *testing.T) {
	f := newFixture(t, nil, Options{})
	ctx := context.Background()
	reg := f.register(t, "alice")
	f.clock.Advance(time.Second)
	second, err := f.svc.Login(ctx, &auth.LoginRequest{UsernameOrEmail: "alice", Password: "correct-horse"}, reqInfo)
	require.NoError(t, err)
	require.NotEqual(t, reg.Session.SessionToken, second.Session.SessionToken)

	p := f.principal(t, second.AccessToken)
	require.NoError(t, f.svc.Logout(ctx, p, &auth.LogoutRequest{LogoutAllSessions: false}, reqInfo))

	active, err := f.store.Repos().Sessions.FindActiveByUser(ctx, reg.User.ID, f.clock.Now())
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, reg.Session.ID, active[0].ID)
	assert.Equal(t, []int64{second.Session.ID}, f.notifier.ids)

	f.principal(t, reg.AccessToken)
	_, err = f.svc.ValidateToken(ctx, second.AccessToken)
	assertKind(t, err, xerrors.KindSessionInactive, "")
}

func TestLogoutAllSessions(t *testing.T) {
	f := newFixture(t, nil, Options{})
	ctx := context.Background()
	reg := f.register(t, "alice")
	second, err := f.svc.Login(ctx, &auth.LoginRequest{UsernameOrEmail: "alice", Password: "correct-horse"}, reqInfo)
	require.NoError(t, err)

	p := f.principal(t, second.AccessToken)
	require.NoError(t, f.svc.Logout(ctx, p, &auth.LogoutRequest{LogoutAllSessions: true, LogoutReason: "lost device"}, reqInfo))

	active, err := f.store.Repos().Sessions.FindActiveByUser(ctx, reg.User.ID, f.clock.Now())
	require.NoError(t, err)
	assert.Empty(t, active)
	assert.Equal(t, []int64{reg.Session.ID, second.Session.ID}, f.notifier.ids)
	assert.Equal(t, []string{"lost device"}, f.notifier.reasons)

	logoutAudit, err := f.store.Repos().Audit.FindByAction(ctx, audit.ActionUserLogout)
	require.NoError(t, err)
	assert.Len(t, logoutAudit, 1)
}

func TestLogoutRequiresPrincipal(t *testing.T) {
	f := newFixture(t, nil, Options{})
	err := f.svc.Logout(context.Background(), nil, nil, reqInfo)
	assertKind(t, err, xerrors.KindTokenMissing, "")
}

func TestGetCurrentUserTouchesSession(t *testing.T) {
	f := newFixture(t, nil, Options{})
	ctx := context.Background()
	reg := f.register(t, "alice")
	p := f.principal(t, reg.AccessToken)

	f.clock.Advance(5 * time.Minute)
	me, err := f.svc.GetCurrentUser(ctx, p, reqInfo)
	require.NoError(t, err)
	assert.Equal(t, "alice", me.Username)

	sess, err := f.store.Repos().Sessions.FindByID(ctx, reg.Session.ID)
	require.NoError(t, err)
	assert.Equal(t, f.clock.Now(), sess.LastActivityAt)

	checks, err := f.store.Repos().Activities.FindBySessionAndType(ctx, sess.ID, session.ActivityActivityCheck)
	require.NoError(t, err)
	require.Len(t, checks, 1)
	assert.Equal(t, "User activity checked", checks[0].Description.String)
}

func TestGetCurrentUserRejectsForeignSession(t *testing.T) {
	f := newFixture(t, nil, Options{})
	alice := f.register(t, "alice")
	bob := f.register(t, "bob")

	p := f.principal(t, alice.AccessToken)
	foreign := bob.Session.ID
	p.SessionID = &foreign

	_, err := f.svc.GetCurrentUser(context.Background(), p, reqInfo)
	assertKind(t, err, xerrors.KindForbidden, "Session does not belong to user")
}

func TestChangePassword(t *testing.T) {
	f := newFixture(t, nil, Options{})
	ctx := context.Background()
	reg := f.register(t, "alice")
	p := f.principal(t, reg.AccessToken)

	err := f.svc.ChangePassword(ctx, p, &auth.ChangePasswordRequest{CurrentPassword: "nope", NewPassword: "new-password"}, reqInfo)
	assertKind(t, err, xerrors.KindAuthentication, "Current password is incorrect")

	require.NoError(t, f.svc.ChangePassword(ctx, p, &auth.ChangePasswordRequest{CurrentPassword: "correct-horse", NewPassword: "new-password"}, reqInfo))

	_, err = f.svc.Login(ctx, &auth.LoginRequest{UsernameOrEmail: "alice", Password: "correct-horse"}, reqInfo)
	assertKind(t, err, xerrors.KindAuthentication, "")
	_, err = f.svc.Login(ctx, &auth.LoginRequest{UsernameOrEmail: "alice", Password: "new-password"}, reqInfo)
	require.NoError(t, err)

	// sessions survive by default
	_, err = f.svc.ValidateToken(ctx, reg.AccessToken)
	require.NoError(t, err)
	assert.Empty(t, f.notifier.ids)
}

func TestChangePasswordRevokesOtherSessions(t *testing.T) {
	f := newFixture(t, nil, Options{RevokeSessionsOnPasswordChange: true})
	ctx := context.Background()
	reg := f.register(t, "alice")
	other, err := f.svc.Login(ctx, &auth.LoginRequest{UsernameOrEmail: "alice", Password: "correct-horse"}, reqInfo)
	require.NoError(t, err)

	p := f.principal(t, reg.AccessToken)
	require.NoError(t, f.svc.ChangePassword(ctx, p, &auth.ChangePasswordRequest{CurrentPassword: "correct-horse", NewPassword: "new-password"}, reqInfo))

	_, err = f.svc.ValidateToken(ctx, reg.AccessToken)
	require.NoError(t, err)
	_, err = f.svc.ValidateToken(ctx, other.AccessToken)
	assertKind(t, err, xerrors.KindSessionInactive, "")
	assert.Equal(t, []int64{other.Session.ID}, f.notifier.ids)

	user, err := f.store.Repos().Users.FindByID(ctx, reg.User.ID)
	require.NoError(t, err)
	assert.False(t, user.CurrentSessionID.Valid, "pointer named the revoked session")
}

func TestValidateToken(t *testing.T) {
	f := newFixture(t, nil, Options{})
	reg := f.register(t, "alice")

	_, err := f.svc.ValidateToken(context.Background(), "")
	assertKind(t, err, xerrors.KindTokenMissing, "")

	_, err = f.svc.ValidateToken(context.Background(), reg.RefreshToken)
	assertKind(t, err, xerrors.KindTokenTypeMismatch, "")

	f.clock.Advance(2 * time.Hour)
	_, err = f.svc.ValidateToken(context.Background(), reg.AccessToken)
	assertKind(t, err, xerrors.KindTokenExpired, "")
}

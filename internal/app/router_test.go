package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"mailadmin-service/internal/config"
	wstypes "mailadmin-service/internal/domain/websocket"
	"mailadmin-service/internal/repository/memory"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Errors  []struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details map[string]string `json:"details"`
	} `json:"errors"`
}

type authData struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	TokenType    string `json:"tokenType"`
	User         struct {
		ID       int64  `json:"id"`
		Username string `json:"username"`
	} `json:"user"`
	Session struct {
		ID         int64 `json:"id"`
		IsActive   bool  `json:"isActive"`
		Activities []struct {
			ActivityType string `json:"activityType"`
		} `json:"activities"`
	} `json:"session"`
}

func testConfig() *config.AppConfig {
	return &config.AppConfig{
		HTTPAddr:            ":0",
		Env:                 "test",
		CORSOrigins:         []string{"*"},
		JWTSecret:           config.DevJWTSecret,
		JWTIssuer:           "mailadmin",
		JWTAccessTTL:        time.Hour,
		JWTRefreshTTL:       24 * time.Hour,
		BcryptCost:          4,
		LoginMaxAttempts:    5,
		LoginWindow:         time.Minute,
		SessionReapInterval: time.Minute,
	}
}

func newTestApp(t *testing.T) *Components {
	t.Helper()
	comps, err := Wire(testConfig(), zap.NewNop(), memory.NewStore(), nil)
	require.NoError(t, err)
	return comps
}

func do(t *testing.T, h http.Handler, method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec, env
}

func register(t *testing.T, h http.Handler, username string) authData {
	t.Helper()
	rec, env := do(t, h, http.MethodPost, "/api/v1/auth/register", "", map[string]interface{}{
		"username": username,
		"email":    username + "@example.com",
		"password": "correct-horse",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var data authData
	require.NoError(t, json.Unmarshal(env.Data, &data))
	return data
}

func TestHealth(t *testing.T) {
	app := newTestApp(t)
	rec, env := do(t, app.Engine, http.MethodGet, "/api/v1/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestAuthFlow(t *testing.T) {
	app := newTestApp(t)
	h := app.Engine

	reg := register(t, h, "alice")
	assert.Equal(t, "Bearer", reg.TokenType)
	assert.True(t, reg.Session.IsActive)
	require.Len(t, reg.Session.Activities, 1)
	assert.Equal(t, "SESSION_CREATED", reg.Session.Activities[0].ActivityType)

	rec, env := do(t, h, http.MethodGet, "/api/v1/auth/me", reg.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(env.Data), `"username":"alice"`)

	rec, _ = do(t, h, http.MethodGet, "/api/v1/sessions/current", reg.AccessToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, env = do(t, h, http.MethodPost, "/api/v1/auth/refresh", "", map[string]string{"refreshToken": reg.RefreshToken})
	require.Equal(t, http.StatusOK, rec.Code)
	var pair authData
	require.NoError(t, json.Unmarshal(env.Data, &pair))
	assert.NotEqual(t, reg.RefreshToken, pair.RefreshToken)

	rec, env = do(t, h, http.MethodPost, "/api/v1/auth/refresh", "", map[string]string{"refreshToken": reg.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Len(t, env.Errors, 1)
	assert.Equal(t, "TOKEN_MISMATCH", env.Errors[0].Code)

	rec, _ = do(t, h, http.MethodPost, "/api/v1/auth/logout", pair.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, env = do(t, h, http.MethodGet, "/api/v1/auth/me", pair.AccessToken, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Len(t, env.Errors, 1)
	assert.Equal(t, "SESSION_INACTIVE", env.Errors[0].Code)
}

func TestLoginErrors(t *testing.T) {
	app := newTestApp(t)
	register(t, app.Engine, "alice")

	rec, env := do(t, app.Engine, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"usernameOrEmail": "alice", "password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid username or password", env.Message)

	rec, env = do(t, app.Engine, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"username": "al", "email": "not-an-email", "password": "short",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, env.Success)
	assert.GreaterOrEqual(t, len(env.Errors), 3)
	for _, item := range env.Errors {
		assert.Equal(t, "VALIDATION_ERROR", item.Code)
	}

	rec, env = do(t, app.Engine, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"username": "carol", "email": "carol@example.com", "password": strings.Repeat("a", 80),
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.Len(t, env.Errors, 1)
	assert.Equal(t, "VALIDATION_ERROR", env.Errors[0].Code)
	assert.Equal(t, "max", env.Errors[0].Details["rule"])

	rec, env = do(t, app.Engine, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"username": "alice", "email": "other@example.com", "password": "correct-horse",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Username already exists", env.Message)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	app := newTestApp(t)
	for _, path := range []string{"/api/v1/auth/me", "/api/v1/sessions", "/api/v1/audit-logs", "/api/v1/organisations"} {
		rec, env := do(t, app.Engine, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
		require.Len(t, env.Errors, 1, path)
		assert.Equal(t, "TOKEN_MISSING", env.Errors[0].Code, path)
	}

	rec, env := do(t, app.Engine, http.MethodGet, "/api/v1/auth/me", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "TOKEN_INVALID", env.Errors[0].Code)
}

func TestSessionsAndAuditRoutes(t *testing.T) {
	app := newTestApp(t)
	h := app.Engine
	alice := register(t, h, "alice")
	bob := register(t, h, "bob")

	rec, env := do(t, h, http.MethodGet, "/api/v1/sessions/active", alice.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var sessions []struct {
		ID     int64 `json:"id"`
		UserID int64 `json:"userId"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &sessions))
	require.Len(t, sessions, 1)
	assert.Equal(t, alice.User.ID, sessions[0].UserID)

	rec, _ = do(t, h, http.MethodGet, "/api/v1/sessions/"+itoa(bob.Session.ID), alice.AccessToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = do(t, h, http.MethodGet, "/api/v1/sessions/abc", alice.AccessToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, h, http.MethodPost, "/api/v1/sessions/status", alice.AccessToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, env = do(t, h, http.MethodGet, "/api/v1/audit-logs?action=USER_REGISTERED", alice.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var entries []struct {
		Action string `json:"action"`
		UserID int64  `json:"userId"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, alice.User.ID, entries[0].UserID)

	rec, _ = do(t, h, http.MethodGet, "/api/v1/audit-logs/sessions/"+itoa(bob.Session.ID), alice.AccessToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestOrganisationRoutes(t *testing.T) {
	app := newTestApp(t)
	h := app.Engine
	alice := register(t, h, "alice")

	rec, env := do(t, h, http.MethodPost, "/api/v1/organisations", alice.AccessToken, map[string]string{
		"name": "Acme", "domain": "acme.io",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var org struct {
		ID       int64  `json:"id"`
		Name     string `json:"name"`
		IsActive bool   `json:"isActive"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &org))
	assert.True(t, org.IsActive)

	rec, _ = do(t, h, http.MethodPost, "/api/v1/organisations", alice.AccessToken, map[string]string{"name": "Acme"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, _ = do(t, h, http.MethodPost, "/api/v1/organisations/"+itoa(org.ID)+"/deactivate", alice.AccessToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, env = do(t, h, http.MethodGet, "/api/v1/organisations?active=true", alice.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, string(env.Data))

	rec, _ = do(t, h, http.MethodDelete, "/api/v1/organisations/"+itoa(org.ID), alice.AccessToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = do(t, h, http.MethodGet, "/api/v1/organisations/"+itoa(org.ID), alice.AccessToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWebSocketSessionEvents(t *testing.T) {
	app := newTestApp(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go app.Hub.Run(ctx)

	srv := httptest.NewServer(app.Engine)
	defer srv.Close()

	alice := register(t, app.Engine, "alice")
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/ws?token=" + alice.AccessToken

	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/api/v1/ws?token=bogus", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	read := func() wstypes.WSMessage {
		t.Helper()
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		var msg wstypes.WSMessage
		require.NoError(t, conn.ReadJSON(&msg))
		return msg
	}

	assert.Equal(t, wstypes.EventTypeConnected, read().Type)
	assert.Equal(t, 1, app.Hub.GetConnectedClients(alice.User.ID))

	bob := register(t, app.Engine, "bob")
	rec, env := do(t, app.Engine, http.MethodGet, "/api/v1/ws/stats", bob.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"userConnections":0}`, string(env.Data))
	rec, env = do(t, app.Engine, http.MethodGet, "/api/v1/ws/stats", alice.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"userConnections":1}`, string(env.Data))

	require.NoError(t, conn.WriteJSON(map[string]string{"type": string(wstypes.EventTypeSessionStatus)}))
	status := read()
	assert.Equal(t, wstypes.EventTypeSessionStatus, status.Type)

	rec, _ = do(t, app.Engine, http.MethodPost, "/api/v1/auth/logout", alice.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, wstypes.EventTypeSessionRevoked, read().Type)
	assert.Equal(t, wstypes.EventTypeForceLogout, read().Type)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "expected close frame, got %v", err)
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}

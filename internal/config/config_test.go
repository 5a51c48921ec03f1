package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8000", cfg.HTTPAddr)
	assert.Equal(t, "mailadmin", cfg.JWTIssuer)
	assert.Equal(t, time.Hour, cfg.JWTAccessTTL)
	assert.Equal(t, 168*time.Hour, cfg.JWTRefreshTTL)
	assert.Equal(t, 10, cfg.BcryptCost)
	assert.Equal(t, int64(5), cfg.LoginMaxAttempts)
	assert.Equal(t, 15*time.Minute, cfg.LoginWindow)
	assert.Equal(t, 5*time.Minute, cfg.SessionReapInterval)
	assert.False(t, cfg.RevokeSessionsOnPasswordChange)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Equal(t, DevJWTSecret, cfg.JWT().Secret)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("JWT_ACCESS_TTL", "15m")
	t.Setenv("BCRYPT_COST", "12")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("REVOKE_SESSIONS_ON_PASSWORD_CHANGE", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, 15*time.Minute, cfg.JWTAccessTTL)
	assert.Equal(t, 12, cfg.BcryptCost)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.True(t, cfg.RevokeSessionsOnPasswordChange)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"short secret", map[string]string{"JWT_SECRET": "short"}},
		{"default secret in production", map[string]string{"APP_ENV": "production"}},
		{"bcrypt cost out of range", map[string]string{"BCRYPT_COST": "40"}},
		{"bad duration", map[string]string{"JWT_REFRESH_TTL": "soon"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

// Package config loads application settings from the environment using Viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"mailadmin-service/internal/pkg/jwt"

	"github.com/spf13/viper"
)

// DevJWTSecret is the development signing secret. Production refuses it.
const DevJWTSecret = "your-secret-key-must-be-at-least-256-bits-long-for-hs256-algorithm"

type AppConfig struct {
	// Server
	HTTPAddr    string   `mapstructure:"HTTP_ADDR"`
	Env         string   `mapstructure:"APP_ENV"`
	LogLevel    string   `mapstructure:"LOG_LEVEL"`
	CORSOrigins []string `mapstructure:"CORS_ORIGINS"`

	// Storage
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32  `mapstructure:"DB_MAX_CONNS"`
	AutoMigrate bool   `mapstructure:"AUTO_MIGRATE"`
	RedisAddr   string `mapstructure:"REDIS_ADDR"`
	RedisPass   string `mapstructure:"REDIS_PASS"`
	RedisDB     int    `mapstructure:"REDIS_DB"`

	// JWT
	JWTSecret     string        `mapstructure:"JWT_SECRET"`
	JWTIssuer     string        `mapstructure:"JWT_ISSUER"`
	JWTAccessTTL  time.Duration `mapstructure:"JWT_ACCESS_TTL"`
	JWTRefreshTTL time.Duration `mapstructure:"JWT_REFRESH_TTL"`

	// Auth
	BcryptCost                     int           `mapstructure:"BCRYPT_COST"`
	LoginMaxAttempts               int64         `mapstructure:"LOGIN_MAX_ATTEMPTS"`
	LoginWindow                    time.Duration `mapstructure:"LOGIN_WINDOW"`
	RevokeSessionsOnPasswordChange bool          `mapstructure:"REVOKE_SESSIONS_ON_PASSWORD_CHANGE"`
	SessionReapInterval            time.Duration `mapstructure:"SESSION_REAP_INTERVAL"`
}

// Load reads the environment into AppConfig and validates it.
func Load() (*AppConfig, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8000")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("AUTO_MIGRATE", false)
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASS", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("JWT_SECRET", DevJWTSecret)
	v.SetDefault("JWT_ISSUER", "mailadmin")
	v.SetDefault("JWT_ACCESS_TTL", "1h")
	v.SetDefault("JWT_REFRESH_TTL", "168h")
	v.SetDefault("BCRYPT_COST", 10)
	v.SetDefault("LOGIN_MAX_ATTEMPTS", 5)
	v.SetDefault("LOGIN_WINDOW", "15m")
	v.SetDefault("REVOKE_SESSIONS_ON_PASSWORD_CHANGE", false)
	v.SetDefault("SESSION_REAP_INTERVAL", "5m")

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg.CORSOrigins = splitList(cfg.CORSOrigins)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *AppConfig) validate() error {
	if c.HTTPAddr == "" {
		return errors.New("config: HTTP_ADDR must be set")
	}
	if len(c.JWTSecret) < 32 {
		return errors.New("config: JWT_SECRET must be at least 32 bytes")
	}
	if c.IsProduction() && c.JWTSecret == DevJWTSecret {
		return errors.New("config: JWT_SECRET must be changed when APP_ENV=production")
	}
	if c.JWTAccessTTL <= 0 || c.JWTRefreshTTL <= 0 {
		return errors.New("config: JWT_ACCESS_TTL and JWT_REFRESH_TTL must be positive")
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return errors.New("config: BCRYPT_COST must be between 4 and 31")
	}
	if c.LoginMaxAttempts <= 0 || c.LoginWindow <= 0 {
		return errors.New("config: LOGIN_MAX_ATTEMPTS and LOGIN_WINDOW must be positive")
	}
	if c.SessionReapInterval <= 0 {
		return errors.New("config: SESSION_REAP_INTERVAL must be positive")
	}
	return nil
}

func (c *AppConfig) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// JWT returns the token codec settings.
func (c *AppConfig) JWT() jwt.Config {
	return jwt.Config{
		Secret:     c.JWTSecret,
		Issuer:     c.JWTIssuer,
		AccessTTL:  c.JWTAccessTTL,
		RefreshTTL: c.JWTRefreshTTL,
	}
}

// splitList accepts both a single comma separated value and an already split list.
func splitList(in []string) []string {
	out := []string{}
	for _, item := range in {
		for _, p := range strings.Split(item, ",") {
			if s := strings.TrimSpace(p); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

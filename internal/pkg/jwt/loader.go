// internal/pkg/jwt/loader.go
package jwt

import (
	"fmt"
	"time"
)

const (
	DefaultAccessTTL  = time.Hour
	DefaultRefreshTTL = 7 * 24 * time.Hour
	minSecretLength   = 32
)

type Config struct {
	Secret     string
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

type Manager struct {
	Generator *Generator
	Verifier  *Verifier
}

func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.Secret) < minSecretLength {
		return nil, fmt.Errorf("jwt secret must be at least %d bytes for HS256", minSecretLength)
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = DefaultAccessTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = DefaultRefreshTTL
	}

	secret := []byte(cfg.Secret)
	return &Manager{
		Generator: NewGenerator(secret, cfg.Issuer, cfg.AccessTTL, cfg.RefreshTTL),
		Verifier:  NewVerifier(secret, cfg.Issuer),
	}, nil
}

// SetClock replaces the time source of both halves.
func (m *Manager) SetClock(now func() time.Time) {
	m.Generator.now = now
	m.Verifier.now = now
}

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("AUTH_SESSION_TTL_MINUTES", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, cfg.Auth.SessionTTL())
	assert.Equal(t, time.Hour, cfg.Auth.SessionRetention())
	assert.Equal(t, 0, cfg.Auth.AccessTokenTTLMinutes)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("AUTH_SESSION_TTL_MINUTES", "15")
	t.Setenv("RATE_LIMIT_WINDOW_SECONDS", "5")
	t.Setenv("APP_PORT", "9090")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 15*time.Minute, cfg.Auth.SessionTTL())
	assert.Equal(t, 5*time.Second, cfg.RateLimit.Window())
	assert.Equal(t, "0.0.0.0:9090", cfg.App.Addr())
}

func TestLoadRejectsDevSecretInProduction(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("AUTH_JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadInvalidRedisDB(t *testing.T) {
	t.Setenv("REDIS_DB", "abc")

	_, err := Load()
	require.Error(t, err)
}

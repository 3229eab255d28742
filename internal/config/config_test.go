package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadDefaults(t *testing.T) {
	cfg, err := Read()
	require.NoError(t, err)

	assert.Equal(t, "8000", cfg.HTTP.Port)
	assert.Equal(t, DriverSQLite, cfg.Store.Driver)
	assert.Equal(t, "./data/todo.db", cfg.Store.Path)
	assert.Equal(t, 10*time.Second, cfg.HTTP.ReadTimeout.Duration())
	assert.Equal(t, time.Minute, cfg.RateLimit.Window.Duration())
}

func TestReadOverrides(t *testing.T) {
	t.Setenv("APP_PORT", "9090")
	t.Setenv("TODO_API_KEY", "secret")
	t.Setenv("HTTP_IDLE_TIMEOUT", "5")
	t.Setenv("CORS_ORIGINS", "http://a.test,http://b.test")

	cfg, err := Read()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.HTTP.Port)
	assert.Equal(t, "secret", cfg.Auth.APIKey)
	assert.Equal(t, 5*time.Second, cfg.HTTP.IdleTimeout.Duration())
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.HTTP.CORSOrigins)
}

func TestReadPostgresRequiresURL(t *testing.T) {
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "")

	_, err := Read()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestReadUnknownDriver(t *testing.T) {
	t.Setenv("DB_DRIVER", "mysql")

	_, err := Read()
	require.Error(t, err)
}

func TestParseDuration(t *testing.T) {
	cases := []struct {
		in   string
		want time.Duration
		ok   bool
	}{
		{"10", 10 * time.Second, true},
		{"10s", 10 * time.Second, true},
		{"'5m'", 5 * time.Minute, true},
		{`"2h"`, 2 * time.Hour, true},
		{"", 0, false},
		{"soon", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseDuration(tc.in)
		if !tc.ok {
			assert.Error(t, err, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

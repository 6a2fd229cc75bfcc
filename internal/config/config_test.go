package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nsridhar76/go-ordermgmt/internal/config"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("SECRET_KEY", "secret")
	t.Setenv("REFRESH_SECRET_KEY", "refresh-secret")
	t.Setenv("DATABASE_URL", "postgres://localhost/orders")
}

func TestLoad_defaults(t *testing.T) {
	setRequired(t)

	c, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, ":8000", c.HTTPAddr)
	assert.Equal(t, ":9090", c.GRPCAddr)
	assert.Equal(t, config.StoreDriverPostgres, c.StoreDriver)
	assert.Equal(t, config.EventSystemLocal, c.EventSystem)
	assert.Equal(t, 30*time.Minute, c.AccessTokenTTL)
	assert.Equal(t, 7*24*time.Hour, c.RefreshTokenTTL)
	assert.Equal(t, 5*time.Second, c.EventHandlerTimeout)
	assert.Equal(t, 1000, c.EventHistorySize)
	assert.Equal(t, time.Hour, c.CacheTTL)
	assert.Equal(t, "info", c.LogLevel)
}

func TestLoad_overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("EVENT_SYSTEM", "none")
	t.Setenv("EVENT_HISTORY_SIZE", "0")
	t.Setenv("CACHE_TTL", "90s")

	c, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, config.StoreDriverMemory, c.StoreDriver)
	assert.Equal(t, config.EventSystemNone, c.EventSystem)
	assert.Equal(t, 0, c.EventHistorySize)
	assert.Equal(t, 90*time.Second, c.CacheTTL)
}

func TestLoad_invalid(t *testing.T) {
	testCases := []struct {
		Name string
		Key  string
		Val  string
	}{
		{"unknown driver", "STORE_DRIVER", "mongo"},
		{"unknown event system", "EVENT_SYSTEM", "kafka"},
		{"negative history", "EVENT_HISTORY_SIZE", "-1"},
		{"bad duration", "CACHE_TTL", "soon"},
		{"missing database url", "DATABASE_URL", ""},
	}

	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			setRequired(t)
			t.Setenv(tc.Key, tc.Val)

			_, err := config.Load()
			assert.Error(t, err)
		})
	}
}

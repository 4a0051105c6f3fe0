package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 8090, cfg.API.Port)
	assert.Equal(t, "0.0.0.0", cfg.API.Host)
	assert.False(t, cfg.API.TLS)
	assert.Equal(t, 50, cfg.API.RateLimit.RequestsPerSecond)
	assert.Equal(t, 100, cfg.API.RateLimit.Burst)
	assert.Equal(t, 30*time.Second, cfg.Stats.PublishInterval)
	assert.Equal(t, 1024, cfg.Geo.CacheSize)
	assert.True(t, cfg.Simulation.Enabled)
	assert.Equal(t, 8*time.Second, cfg.Simulation.SSH.MinInterval)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Empty(t, cfg.Notifications.Channels)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	t.Setenv("SENTINEL_API_PORT", "9100")
	t.Setenv("SENTINEL_SIMULATION_ENABLED", "false")
	t.Setenv("SENTINEL_LOG_LEVEL", "debug")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.API.Port)
	assert.False(t, cfg.Simulation.Enabled)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestValidateRejectsBadValues(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	base, err := LoadConfig()
	require.NoError(t, err)

	bad := *base
	bad.API.Port = 0
	assert.Error(t, validate(&bad))

	bad = *base
	bad.API.RateLimit.RequestsPerSecond = 0
	assert.Error(t, validate(&bad))

	bad = *base
	bad.Stats.PublishInterval = 0
	assert.Error(t, validate(&bad))

	bad = *base
	bad.Simulation.HTTP.MaxInterval = bad.Simulation.HTTP.MinInterval - time.Second
	assert.Error(t, validate(&bad))
}

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Defaults(t *testing.T) {
	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, "8081", cfg.APIServerPort)
	assert.Empty(t, cfg.RedisLocationsChannel)
	assert.Equal(t, SettingsFile, cfg.SettingsBackend)
	assert.Equal(t, 100000, cfg.MaxPointCount)
	assert.Equal(t, 4096, cfg.CompactThreshold)
	assert.Equal(t, EnvProd, cfg.Env)
	assert.False(t, cfg.UsesRedis())
}

func TestNew_FromEnvironment(t *testing.T) {
	t.Setenv("API_SERVER_PORT", "9000")
	t.Setenv("REDIS_LOCATIONS_CHANNEL", "gps:samples")
	t.Setenv("DATA_DIR", "/var/lib/tracker")
	t.Setenv("TRACK_MAX_POINTS", "500")
	t.Setenv("ENV", "dev")

	cfg, err := New()
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.APIServerPort)
	assert.Equal(t, "/var/lib/tracker", cfg.DataDir)
	assert.Equal(t, 500, cfg.MaxPointCount)
	assert.Equal(t, EnvDev, cfg.Env)
	assert.Equal(t, "gps:samples", cfg.RedisLocationsChannel)
	assert.True(t, cfg.UsesRedis())
}

func TestNew_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"env", "ENV", "staging"},
		{"settings backend", "SETTINGS_BACKEND", "etcd"},
		{"max points", "TRACK_MAX_POINTS", "0"},
		{"compaction threshold", "TRACK_COMPACT_THRESHOLD", "-1"},
		{"not a number", "TRACK_MAX_POINTS", "lots"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := New()
			assert.Error(t, err)
		})
	}
}

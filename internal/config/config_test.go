package config

import (
	"testing"
	"time"

	"nyassess/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configEnv = []string{
	"PORT", "GIN_MODE", "DATA_ROOT", "LOAD_CONCURRENCY", "WATCH_ENABLED",
	"WATCH_DEBOUNCE", "EXPORT_DIR", "DATABASE_URL", "LOG_LEVEL",
}

func clearEnv(t *testing.T) {
	for _, k := range configEnv {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "release", cfg.Server.GinMode)
	assert.Equal(t, "data/state_score_public_districtarc", cfg.Data.Root)
	assert.Equal(t, 4, cfg.Data.LoadConcurrency)
	assert.False(t, cfg.Watch.Enabled)
	assert.Equal(t, 500*time.Millisecond, cfg.Watch.Debounce)
	assert.Equal(t, "public/ny-assessments-public", cfg.Export.Dir)
	assert.Empty(t, cfg.Export.DatabaseURL)
	assert.Equal(t, "INFO", cfg.Log.Level)
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("DATA_ROOT", "/srv/data")
	t.Setenv("LOAD_CONCURRENCY", "8")
	t.Setenv("WATCH_ENABLED", "true")
	t.Setenv("WATCH_DEBOUNCE", "2s")
	t.Setenv("DATABASE_URL", "postgres://localhost/nyassess")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "/srv/data", cfg.Data.Root)
	assert.Equal(t, 8, cfg.Data.LoadConcurrency)
	assert.True(t, cfg.Watch.Enabled)
	assert.Equal(t, 2*time.Second, cfg.Watch.Debounce)
	assert.Equal(t, "postgres://localhost/nyassess", cfg.Export.DatabaseURL)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"LOAD_CONCURRENCY", "many"},
		{"LOAD_CONCURRENCY", "0"},
		{"WATCH_ENABLED", "sometimes"},
		{"WATCH_DEBOUNCE", "soon"},
		{"WATCH_DEBOUNCE", "-1s"},
		{"PORT", "http"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			require.Error(t, err)
			assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

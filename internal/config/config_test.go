package config

import (
	"testing"
	"time"

	"github.com/RishiKendai/argus/internal/detector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("MONGO_URI", "mongodb://localhost:27017")
	t.Setenv("MONGO_DB_NAME", "argus")
	t.Setenv("JWT_SECRET", "test-secret")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 5, cfg.WindowSize)
	assert.Equal(t, 0.7, cfg.SimilarityThreshold)
	assert.Equal(t, 4, cfg.TreeOrder)
	assert.Equal(t, "localhost:6379", cfg.RedisHost)
	assert.Equal(t, 24*time.Hour, cfg.StreamRetentionDuration)
	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("WINDOW_SIZE", "9")
	t.Setenv("SIMILARITY_THRESHOLD", "0.85")
	t.Setenv("TREE_ORDER", "8")
	t.Setenv("STREAM_RETENTION_DURATION", "48")

	cfg, err := Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 9, cfg.WindowSize)
	assert.Equal(t, 0.85, cfg.SimilarityThreshold)
	assert.Equal(t, 8, cfg.TreeOrder)
	assert.Equal(t, 48*time.Hour, cfg.StreamRetentionDuration)
}

func TestValidateRejectsBadEngineParameters(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"zero window", "WINDOW_SIZE", "0"},
		{"threshold above one", "SIMILARITY_THRESHOLD", "1.5"},
		{"tree order too small", "TREE_ORDER", "2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(tt.key, tt.value)

			cfg, err := Load()
			require.NoError(t, err)
			assert.ErrorIs(t, cfg.Validate(), detector.ErrInvalidConfig)
		})
	}
}

func TestValidateRequiresInfraSettings(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("JWT_SECRET", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Error(t, cfg.Validate())
}

func TestDetectorOptionsProjection(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	opts := cfg.DetectorOptions()
	assert.Equal(t, cfg.WindowSize, opts.WindowSize)
	assert.Equal(t, cfg.SimilarityThreshold, opts.SimilarityThreshold)
	assert.Equal(t, cfg.TreeOrder, opts.TreeOrder)
}

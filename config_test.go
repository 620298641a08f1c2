package featurekit_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/featurekit"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := featurekit.DefaultConfig()
	assert.Equal(t, "https://us.i.posthog.com", cfg.Host)
	assert.Equal(t, 20, cfg.FlushAt)
	assert.Equal(t, 100, cfg.MaxBatchSize)
	assert.Equal(t, 30*time.Second, cfg.FeatureFlagPollInterval)
	assert.Equal(t, 50_000, cfg.FeatureFlagSentCacheSizeLimit)
	assert.True(t, cfg.SendFeatureFlagEvents)
	assert.False(t, cfg.OnlyEvaluateLocally)
}

// Mutates the process environment, not parallel.
func TestLoadConfig(t *testing.T) {
	t.Setenv("FEATUREKIT_PROJECT_API_KEY", "phc_env")
	t.Setenv("FEATUREKIT_FLUSH_AT", "5")
	t.Setenv("FEATUREKIT_FEATURE_FLAG_POLL_INTERVAL", "1m")
	t.Setenv("FEATUREKIT_ONLY_EVALUATE_LOCALLY", "true")

	cfg, err := featurekit.LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "phc_env", cfg.ProjectAPIKey)
	assert.Equal(t, 5, cfg.FlushAt)
	assert.Equal(t, 100, cfg.MaxBatchSize)
	assert.Equal(t, time.Minute, cfg.FeatureFlagPollInterval)
	assert.True(t, cfg.OnlyEvaluateLocally)
	assert.True(t, cfg.SendFeatureFlagEvents)

	t.Setenv("FEATUREKIT_FLUSH_AT", "many")
	_, err = featurekit.LoadConfig()
	assert.Error(t, err)
}

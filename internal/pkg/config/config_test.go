package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("POSTGRES_PASSWORD", "secret")
	t.Setenv("JWT_SECRET_KEY", "secret")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 50.0, cfg.Crossings.ZoneSizeMeters)
	assert.Equal(t, 10*time.Minute, cfg.Crossings.CoLocationWindow)
	assert.Equal(t, time.Hour, cfg.Crossings.DedupWindow)
	assert.Equal(t, 24*time.Hour, cfg.Crossings.RetentionHorizon)
	assert.Equal(t, ListingPerLook, cfg.Crossings.ListingMode)
}

func TestLoadRequiresSecrets(t *testing.T) {
	t.Setenv("POSTGRES_PASSWORD", "")
	t.Setenv("JWT_SECRET_KEY", "secret")
	_, err := Load()
	require.Error(t, err)

	t.Setenv("POSTGRES_PASSWORD", "secret")
	t.Setenv("JWT_SECRET_KEY", "")
	_, err = Load()
	require.Error(t, err)
}

func TestLoadRejectsUnknownListingMode(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CROSSING_LISTING_MODE", "per-zone")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CROSSING_LISTING_MODE")
}

func TestLoadRejectsDedupShorterThanCoLocation(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CROSSING_COLOCATION_WINDOW", "2h")
	t.Setenv("CROSSING_DEDUP_WINDOW", "90m")

	_, err := Load()
	require.Error(t, err)
}

// The crossings pair index buckets by hour, so a sub-hour dedup window would
// let the index silently drop crossings the window considers independent.
func TestLoadRejectsSubHourDedupWindow(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CROSSING_COLOCATION_WINDOW", "10m")
	t.Setenv("CROSSING_DEDUP_WINDOW", "30m")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CROSSING_DEDUP_WINDOW")
}

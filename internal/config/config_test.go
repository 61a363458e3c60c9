package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCreatesDefaultOnFirstRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "etc", "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	again, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}

func TestLoadNormalizesPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
listen: ":9000"
site_url: "https://example.com/"
week_start: tuesday
og:
  enabled: false
  width: 800
import:
  feeds:
    - id: gophers
      name: Gophers
      url: https://example.com/gophers.ics
      tags: [Go]
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Listen)
	assert.Equal(t, "https://example.com", cfg.SiteURL)
	assert.Equal(t, "sunday", cfg.WeekStart)
	assert.Equal(t, 4, cfg.RelatedLimit)
	assert.Equal(t, "@every 60s", cfg.Revalidate)
	assert.False(t, cfg.OG.Enabled)
	assert.Equal(t, 800, cfg.OG.Width)
	assert.Equal(t, 630, cfg.OG.Height)
	assert.Equal(t, 90, cfg.Import.HorizonDays)

	feed, ok := cfg.Feed("gophers")
	require.True(t, ok)
	assert.Equal(t, []string{"Go"}, feed.Tags)
	_, ok = cfg.Feed("missing")
	assert.False(t, ok)
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen: [unclosed"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadEmptyPath(t *testing.T) {
	_, err := Load("")
	assert.EqualError(t, err, "config path is empty")
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("TECHEVENTS_LISTEN", ":7070")
	t.Setenv("TECHEVENTS_DATA_FILE", "/srv/events.json")
	t.Setenv("TECHEVENTS_SITE_URL", "https://staging.example.com/")
	t.Setenv("TECHEVENTS_LOG_LEVEL", "debug")

	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.Listen)
	assert.Equal(t, "/srv/events.json", cfg.DataFile)
	assert.Equal(t, "https://staging.example.com", cfg.SiteURL)
	assert.Equal(t, "debug", cfg.LogLevel)

	// Overrides are runtime only.
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), ":7070")
}

func TestHelpers(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, time.Sunday, cfg.WeekStartDay())
	cfg.WeekStart = "monday"
	assert.Equal(t, time.Monday, cfg.WeekStartDay())

	assert.Equal(t, 20*time.Second, cfg.OGTimeout())
	assert.Equal(t, time.Hour, cfg.OGCacheTTL())

	cfg.Timezone = "UTC"
	assert.Equal(t, time.UTC, cfg.Location())
	cfg.Timezone = "Not/AZone"
	assert.Equal(t, time.UTC, cfg.Location())
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := DefaultConfig()
	cfg.Import.Feeds = append(cfg.Import.Feeds, FeedConfig{ID: "a", Name: "A", URL: "https://example.com/a.ics", Tags: []string{"Go"}})
	require.NoError(t, cfg.Save(path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

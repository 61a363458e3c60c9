package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// FeedConfig describes an external ICS feed imported into the events file.
type FeedConfig struct {
	// ID is an internal identifier used for de-dup and logging.
	ID string `yaml:"id" json:"id"`
	// Name becomes the organizer name of imported events.
	Name string `yaml:"name" json:"name"`
	// URL is the ICS subscription endpoint.
	URL string `yaml:"url" json:"url"`
	// EventURL is used as the event link when a VEVENT carries no URL.
	EventURL string `yaml:"event_url" json:"event_url"`
	// Tags are added to every event imported from this feed.
	Tags []string `yaml:"tags" json:"tags"`
}

// ImportConfig controls ICS feed imports.
type ImportConfig struct {
	// Cron schedules imports while serving. Empty disables scheduled imports.
	Cron string `yaml:"cron" json:"cron"`
	// HorizonDays bounds recurring event expansion.
	HorizonDays int `yaml:"horizon_days" json:"horizon_days"`
	// CacheDir stores fetched feed bodies with their validators.
	CacheDir string       `yaml:"cache_dir" json:"cache_dir"`
	Feeds    []FeedConfig `yaml:"feeds" json:"feeds"`
}

// OGConfig controls social card rendering through headless Chrome.
type OGConfig struct {
	Enabled              bool `yaml:"enabled" json:"enabled"`
	ChromeTimeoutSeconds int  `yaml:"chrome_timeout_seconds" json:"chrome_timeout_seconds"`
	Width                int  `yaml:"width" json:"width"`
	Height               int  `yaml:"height" json:"height"`
	CacheTTLSeconds      int  `yaml:"cache_ttl_seconds" json:"cache_ttl_seconds"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address.
	Listen string `yaml:"listen" json:"listen"`

	// SiteURL is the public base URL used for share links, sitemap and OG images.
	SiteURL  string `yaml:"site_url" json:"site_url"`
	SiteName string `yaml:"site_name" json:"site_name"`

	// DataFile is the JSON events collection.
	DataFile string `yaml:"data_file" json:"data_file"`

	// Timezone is the IANA zone used for new events and for date filters.
	Timezone string `yaml:"timezone" json:"timezone"`

	// WeekStart is "sunday" (default) or "monday"; it bounds "this week" stats.
	WeekStart string `yaml:"week_start" json:"week_start"`

	// Revalidate is a cron spec for reloading the events file (e.g. "@every 60s").
	Revalidate string `yaml:"revalidate" json:"revalidate"`

	RelatedLimit   int    `yaml:"related_limit" json:"related_limit"`
	OrganizerEmail string `yaml:"organizer_email" json:"organizer_email"`
	LogLevel       string `yaml:"log_level" json:"log_level"`

	OG     OGConfig     `yaml:"og" json:"og"`
	Import ImportConfig `yaml:"import" json:"import"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:         "127.0.0.1:8080",
		SiteURL:        "https://events.eudia.com",
		SiteName:       "Tech Events",
		DataFile:       "data/events.json",
		Timezone:       "America/Los_Angeles",
		WeekStart:      "sunday",
		Revalidate:     "@every 60s",
		RelatedLimit:   4,
		OrganizerEmail: "events@eudia.com",
		LogLevel:       "info",
		OG: OGConfig{
			Enabled:              true,
			ChromeTimeoutSeconds: 20,
			Width:                1200,
			Height:               630,
			CacheTTLSeconds:      3600,
		},
		Import: ImportConfig{
			HorizonDays: 90,
			CacheDir:    "cache/feeds",
			Feeds:       []FeedConfig{},
		},
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	def := DefaultConfig()

	if c.Listen == "" {
		c.Listen = def.Listen
	}
	if c.SiteURL == "" {
		c.SiteURL = def.SiteURL
	}
	c.SiteURL = strings.TrimRight(c.SiteURL, "/")
	if c.SiteName == "" {
		c.SiteName = def.SiteName
	}
	if c.DataFile == "" {
		c.DataFile = def.DataFile
	}
	if c.Timezone == "" {
		c.Timezone = def.Timezone
	}
	switch c.WeekStart {
	case "monday", "sunday":
	default:
		c.WeekStart = def.WeekStart
	}
	if c.Revalidate == "" {
		c.Revalidate = def.Revalidate
	}
	if c.RelatedLimit <= 0 {
		c.RelatedLimit = def.RelatedLimit
	}
	if c.OrganizerEmail == "" {
		c.OrganizerEmail = def.OrganizerEmail
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}

	if c.OG.ChromeTimeoutSeconds <= 0 {
		c.OG.ChromeTimeoutSeconds = def.OG.ChromeTimeoutSeconds
	}
	if c.OG.Width <= 0 {
		c.OG.Width = def.OG.Width
	}
	if c.OG.Height <= 0 {
		c.OG.Height = def.OG.Height
	}
	if c.OG.CacheTTLSeconds <= 0 {
		c.OG.CacheTTLSeconds = def.OG.CacheTTLSeconds
	}

	if c.Import.HorizonDays <= 0 {
		c.Import.HorizonDays = def.Import.HorizonDays
	}
	if c.Import.CacheDir == "" {
		c.Import.CacheDir = def.Import.CacheDir
	}
	if c.Import.Feeds == nil {
		c.Import.Feeds = []FeedConfig{}
	}
}

// Location resolves Timezone, falling back to UTC for unknown zones.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// WeekStartDay returns the configured first day of the week.
func (c *Config) WeekStartDay() time.Weekday {
	if c.WeekStart == "monday" {
		return time.Monday
	}
	return time.Sunday
}

func (c *Config) OGTimeout() time.Duration {
	return time.Duration(c.OG.ChromeTimeoutSeconds) * time.Second
}

func (c *Config) OGCacheTTL() time.Duration {
	return time.Duration(c.OG.CacheTTLSeconds) * time.Second
}

// Feed looks up an import feed by ID.
func (c *Config) Feed(id string) (FeedConfig, bool) {
	for _, f := range c.Import.Feeds {
		if f.ID == id {
			return f, true
		}
	}
	return FeedConfig{}, false
}

// applyEnvOverrides lets deployments override a few settings without editing
// the file.
func applyEnvOverrides(c *Config) {
	if v := os.Getenv("TECHEVENTS_LISTEN"); v != "" {
		c.Listen = v
	}
	if v := os.Getenv("TECHEVENTS_DATA_FILE"); v != "" {
		c.DataFile = v
	}
	if v := os.Getenv("TECHEVENTS_SITE_URL"); v != "" {
		c.SiteURL = strings.TrimRight(v, "/")
	}
	if v := os.Getenv("TECHEVENTS_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults
//
// Environment overrides are applied last in both cases and are never saved.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			saveErr := Save(path, cfg)
			applyEnvOverrides(cfg)
			return cfg, saveErr
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()
	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".techevents-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

func (c *Config) Save(path string) error {
	return Save(path, c)
}

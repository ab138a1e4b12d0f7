package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults applied by Normalize.
const (
	DefaultListen     = "127.0.0.1:8080"
	DefaultTimezone   = "UTC"
	DefaultWeekStart  = "monday"
	DefaultRevalidate = "*/15 * * * *"
	DefaultEventsFile = "events.yaml"
	DefaultLinksFile  = "links.yaml"
	DefaultRiskWindow = 2
	DefaultLogLevel   = "info"
)

// ICSConfig describes a single ICS calendar feed. Exactly one of URL or Path
// is expected; URL wins when both are set.
type ICSConfig struct {
	// ID is an internal identifier used as the event ID prefix and in logs.
	ID string `yaml:"id" json:"id"`
	// Name is a human-friendly label.
	Name string `yaml:"name" json:"name"`
	// URL is the ICS subscription endpoint.
	URL string `yaml:"url,omitempty" json:"url,omitempty"`
	// Path is a local .ics file.
	Path string `yaml:"path,omitempty" json:"path,omitempty"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for `tourcal serve`.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA zone timed events are bucketed into days with.
	Timezone string `yaml:"timezone" json:"timezone"`

	// WeekStart is the first column of week and month grids:
	//   - "monday" (default)
	//   - "sunday"
	WeekStart string `yaml:"week_start" json:"week_start"`

	// Revalidate is the cron schedule for background conflict checks.
	Revalidate string `yaml:"revalidate" json:"revalidate"`

	// EventsFile is a YAML or JSON list of events. Relative paths resolve
	// against the config file's directory.
	EventsFile string `yaml:"events_file" json:"events_file"`

	// LinksFile is where dependency links are persisted.
	LinksFile string `yaml:"links_file" json:"links_file"`

	// RiskWindowDays is how far a show may be from a travel day before the
	// travel is flagged as isolated.
	RiskWindowDays int `yaml:"risk_window_days" json:"risk_window_days"`

	LogLevel string `yaml:"log_level" json:"log_level"`

	// ICS is the list of calendar feeds merged with EventsFile.
	ICS []ICSConfig `yaml:"ics" json:"ics"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all
	// endpoints except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:         DefaultListen,
		Timezone:       DefaultTimezone,
		WeekStart:      DefaultWeekStart,
		Revalidate:     DefaultRevalidate,
		EventsFile:     DefaultEventsFile,
		LinksFile:      DefaultLinksFile,
		RiskWindowDays: DefaultRiskWindow,
		LogLevel:       DefaultLogLevel,
		ICS:            []ICSConfig{},
	}
}

// Normalize fills in missing or invalid values with defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = DefaultListen
	}
	if c.Timezone == "" {
		c.Timezone = DefaultTimezone
	}
	switch strings.ToLower(c.WeekStart) {
	case "monday", "sunday":
		c.WeekStart = strings.ToLower(c.WeekStart)
	default:
		c.WeekStart = DefaultWeekStart
	}
	if c.Revalidate == "" {
		c.Revalidate = DefaultRevalidate
	}
	if c.EventsFile == "" {
		c.EventsFile = DefaultEventsFile
	}
	if c.LinksFile == "" {
		c.LinksFile = DefaultLinksFile
	}
	if c.RiskWindowDays <= 0 {
		c.RiskWindowDays = DefaultRiskWindow
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.ICS == nil {
		c.ICS = []ICSConfig{}
	}
	for i := range c.ICS {
		if c.ICS[i].ID == "" {
			c.ICS[i].ID = fmt.Sprintf("ics%d", i+1)
		}
	}
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Resolve returns p relative to the directory holding the config file at
// configPath. Absolute paths and empty strings are returned unchanged.
func Resolve(configPath, p string) string {
	if p == "" || filepath.IsAbs(p) || configPath == "" {
		return p
	}
	return filepath.Join(filepath.Dir(configPath), p)
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written with 0600
//     perms and returned.
//   - Otherwise the YAML is decoded and normalized.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes cfg to path atomically via a temp file + rename, with the
// final file at 0600 and its directory at 0700.
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

	tmp, err := os.CreateTemp(dir, ".tourcal-config-*.tmp")
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

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}

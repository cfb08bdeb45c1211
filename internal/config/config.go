package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	appLog "calsuite/internal/log"
)

const (
	defaultListen      = "127.0.0.1:8080"
	defaultLogLevel    = "info"
	defaultRefreshCron = "*/15 * * * *"
	defaultExportCron  = "0 * * * *"
	defaultHorizonDays = 30
	defaultCacheDir    = "./var/ics-cache"
	defaultExportDir   = "./var/export"
	defaultCalendar    = "Default"
	defaultTimezone    = "America/New_York"
)

// EventConfig seeds one event. A timed event sets Start and End; an all-day
// event sets Date. Weekdays with Repeat or Until turns either into a series.
type EventConfig struct {
	Subject string `yaml:"subject" json:"subject"`

	Start string `yaml:"start,omitempty" json:"start,omitempty"` // YYYY-MM-DDThh:mm
	End   string `yaml:"end,omitempty" json:"end,omitempty"`
	Date  string `yaml:"date,omitempty" json:"date,omitempty"` // YYYY-MM-DD, all-day

	Weekdays string `yaml:"weekdays,omitempty" json:"weekdays,omitempty"` // e.g. "MWF"
	Repeat   int    `yaml:"repeat,omitempty" json:"repeat,omitempty"`
	Until    string `yaml:"until,omitempty" json:"until,omitempty"`

	Location    string `yaml:"location,omitempty" json:"location,omitempty"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	// Status is "public" (default) or "private".
	Status string `yaml:"status,omitempty" json:"status,omitempty"`
}

// IsSeries reports whether the entry describes a recurring event.
func (e EventConfig) IsSeries() bool {
	return e.Weekdays != "" || e.Repeat != 0 || e.Until != ""
}

// ICSConfig describes a single ICS subscription imported into a calendar.
type ICSConfig struct {
	// URL is the ICS endpoint, or a local file path.
	URL string `yaml:"url" json:"url"`
	// ID is an internal identifier used for caching and logging.
	ID string `yaml:"id" json:"id"`
	// Name is a human-friendly label.
	Name string `yaml:"name,omitempty" json:"name,omitempty"`
}

// CalendarConfig is one calendar of the suite.
type CalendarConfig struct {
	Name     string        `yaml:"name" json:"name"`
	Timezone string        `yaml:"timezone" json:"timezone"`
	Events   []EventConfig `yaml:"events,omitempty" json:"events,omitempty"`
	ICS      []ICSConfig   `yaml:"ics,omitempty" json:"ics,omitempty"`
}

// ExportConfig controls the periodic ICS export.
type ExportConfig struct {
	// Dir receives one <calendar>.ics per calendar. Empty disables export.
	Dir string `yaml:"dir" json:"dir"`
	// Cron is a standard five-field schedule.
	Cron string `yaml:"cron" json:"cron"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"-"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// Active names the calendar in use at startup.
	Active string `yaml:"active" json:"active"`

	// RefreshCron schedules re-imports of every ICS subscription.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// HorizonDays is how far ahead recurring subscription events are
	// expanded.
	HorizonDays int `yaml:"horizon_days" json:"horizon_days"`

	// CacheDir holds the HTTP cache of ICS subscriptions.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`

	Calendars []CalendarConfig `yaml:"calendars" json:"calendars"`

	Export ExportConfig `yaml:"export" json:"export"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration: one empty
// Default calendar in America/New_York.
func DefaultConfig() *Config {
	return &Config{
		Listen:      defaultListen,
		LogLevel:    defaultLogLevel,
		Active:      defaultCalendar,
		RefreshCron: defaultRefreshCron,
		HorizonDays: defaultHorizonDays,
		CacheDir:    defaultCacheDir,
		Calendars: []CalendarConfig{
			{Name: defaultCalendar, Timezone: defaultTimezone},
		},
		Export: ExportConfig{
			Dir:  defaultExportDir,
			Cron: defaultExportCron,
		},
	}
}

// Normalize fills in missing/zero values with defaults so that partially
// filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
	if c.RefreshCron == "" {
		c.RefreshCron = defaultRefreshCron
	}
	if c.HorizonDays <= 0 {
		c.HorizonDays = defaultHorizonDays
	}
	if c.CacheDir == "" {
		c.CacheDir = defaultCacheDir
	}
	if c.Export.Cron == "" {
		c.Export.Cron = defaultExportCron
	}
	if len(c.Calendars) == 0 {
		c.Calendars = []CalendarConfig{{Name: defaultCalendar, Timezone: defaultTimezone}}
	}
	for i := range c.Calendars {
		if c.Calendars[i].Timezone == "" {
			c.Calendars[i].Timezone = defaultTimezone
		}
		for j := range c.Calendars[i].ICS {
			if c.Calendars[i].ICS[j].ID == "" {
				c.Calendars[i].ICS[j].ID = fmt.Sprintf("%s-%d", c.Calendars[i].Name, j+1)
			}
		}
	}
	if c.Active == "" {
		c.Active = c.Calendars[0].Name
	}
}

// Validate checks what Normalize cannot repair: log level, cron schedules
// and calendar names. Time zones and event fields are checked when the
// suite is built from the config.
func (c *Config) Validate() error {
	if _, err := appLog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if _, err := cron.ParseStandard(c.RefreshCron); err != nil {
		return fmt.Errorf("config: refresh %q: %w", c.RefreshCron, err)
	}
	if _, err := cron.ParseStandard(c.Export.Cron); err != nil {
		return fmt.Errorf("config: export.cron %q: %w", c.Export.Cron, err)
	}

	seen := make(map[string]bool, len(c.Calendars))
	for i, cal := range c.Calendars {
		if cal.Name == "" {
			return fmt.Errorf("config: calendars[%d] has no name", i)
		}
		if seen[cal.Name] {
			return fmt.Errorf("config: calendar %q defined twice", cal.Name)
		}
		seen[cal.Name] = true
	}
	if !seen[c.Active] {
		return fmt.Errorf("config: active calendar %q is not defined", c.Active)
	}
	return nil
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
//   - normalize defaults and validate
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
			appLog.Info("config created with defaults", "path", path)
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

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

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return WriteFileAtomic(path, data)
}

// WriteFileAtomic writes data to a temp file next to path, then renames it
// over path with 0600 permissions. Readers never see a partial file.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	// Ensure we clean up temp file on error.
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}

	// Flush and close before chmod/rename.
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

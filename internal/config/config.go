package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ErrEmptyPath is returned by Load and Save when no path is given.
var ErrEmptyPath = errors.New("config path is empty")

// Environment overrides applied by Load after the file is read.
const (
	EnvListen = "STUDYCAL_LISTEN"
	EnvDBDSN  = "STUDYCAL_DB_DSN"
)

// ICSConfig describes a single ICS subscription source.
type ICSConfig struct {
	// URL is the ICS subscription endpoint.
	URL string `yaml:"url" json:"url"`
	// ID is an internal identifier used for de-dup and logging.
	ID string `yaml:"id" json:"id"`
	// Name is a human-friendly label shown in the UI.
	Name string `yaml:"name" json:"name"`
	// Kind selects which record type feed events become:
	// "schedule" (default) or "exam".
	Kind string `yaml:"kind" json:"kind"`
	// CourseID attaches feed events to a course.
	CourseID string `yaml:"course_id,omitempty" json:"course_id,omitempty"`
}

// StoreConfig selects where source records are loaded from.
type StoreConfig struct {
	// Driver is "file" (default) or "postgres".
	Driver string `yaml:"driver" json:"driver"`
	// Path is the YAML records file for the file driver.
	Path string `yaml:"path" json:"path"`
	// DSN is the Postgres connection string for the postgres driver.
	DSN string `yaml:"dsn,omitempty" json:"-"`
	// UserID scopes Postgres queries to one student.
	UserID string `yaml:"user_id,omitempty" json:"user_id,omitempty"`
	// Migrate applies embedded schema migrations on startup.
	Migrate bool `yaml:"migrate" json:"migrate"`
}

// LayoutConfig holds week view geometry.
type LayoutConfig struct {
	PixelsPerHour   float64 `yaml:"pixels_per_hour" json:"pixels_per_hour"`
	MinHeight       float64 `yaml:"min_height" json:"min_height"`
	VisibleFromHour int     `yaml:"visible_from_hour" json:"visible_from_hour"`
	VisibleToHour   int     `yaml:"visible_to_hour" json:"visible_to_hour"`
}

// RuleConfig is one row of the conflict severity table.
type RuleConfig struct {
	A               string  `yaml:"a" json:"a"`
	B               string  `yaml:"b" json:"b"`
	MinOverlapRatio float64 `yaml:"min_overlap_ratio,omitempty" json:"min_overlap_ratio,omitempty"`
	Severity        string  `yaml:"severity" json:"severity"`
}

// ConflictConfig is the conflict severity policy.
type ConflictConfig struct {
	// BufferMinutes is the minimum gap wanted between consecutive classes
	// or exams. Smaller gaps are minor conflicts. 0 disables the check.
	BufferMinutes int `yaml:"buffer_minutes" json:"buffer_minutes"`
	// BufferTypes lists the event types the buffer applies to.
	BufferTypes []string `yaml:"buffer_types" json:"buffer_types"`
	// MajorityRatio is the overlap share from which two exams are critical.
	MajorityRatio float64 `yaml:"majority_ratio" json:"majority_ratio"`
	// EarliestHour/LatestHour bound the free-slot search for suggestions.
	EarliestHour int `yaml:"earliest_hour" json:"earliest_hour"`
	LatestHour   int `yaml:"latest_hour" json:"latest_hour"`
	// Rules replaces the built-in severity table when non-empty.
	Rules []RuleConfig `yaml:"rules,omitempty" json:"rules,omitempty"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the Web UI/API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the Web UI and API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA timezone used as canonical display zone.
	Timezone string `yaml:"timezone" json:"timezone"`

	// WeekStart controls which weekday is treated as the first day of the week
	// in calendar views. Supported values:
	//   - "monday" (default)
	//   - "sunday"
	WeekStart string `yaml:"week_start" json:"week_start"`

	// RefreshCron is a cron-style schedule string (e.g. "*/15 * * * *")
	// used for periodic recomputation.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// HorizonDays is the number of days the refresh job looks ahead.
	HorizonDays int `yaml:"horizon_days" json:"horizon_days"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// ExamMinutes is the nominal exam duration when a record has none.
	ExamMinutes int `yaml:"exam_minutes" json:"exam_minutes"`

	// CacheDir holds the ICS HTTP cache.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`

	Store    StoreConfig    `yaml:"store" json:"store"`
	Layout   LayoutConfig   `yaml:"layout" json:"layout"`
	Conflict ConflictConfig `yaml:"conflict" json:"conflict"`

	// ICS is the list of subscribed ICS sources.
	ICS []ICSConfig `yaml:"ics" json:"ics"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:      "127.0.0.1:8080",
		Timezone:    "UTC",
		WeekStart:   "monday",
		RefreshCron: "*/15 * * * *",
		HorizonDays: 14,
		LogLevel:    "info",
		ExamMinutes: 120,
		CacheDir:    "./var/ics-cache",
		Store: StoreConfig{
			Driver: "file",
			Path:   "./var/records.yaml",
		},
		Layout: LayoutConfig{
			PixelsPerHour:   60,
			MinHeight:       20,
			VisibleFromHour: 0,
			VisibleToHour:   24,
		},
		Conflict: ConflictConfig{
			BufferMinutes: 0,
			BufferTypes:   []string{"schedule", "exam"},
			MajorityRatio: 0.5,
			EarliestHour:  7,
			LatestHour:    22,
		},
		ICS:       []ICSConfig{},
		BasicAuth: nil,
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	d := DefaultConfig()

	if c.Listen == "" {
		c.Listen = d.Listen
	}
	if c.Timezone == "" {
		c.Timezone = d.Timezone
	}
	switch c.WeekStart {
	case "monday", "sunday":
		// ok
	default:
		// Unknown value; fall back to monday to avoid surprising layouts.
		c.WeekStart = "monday"
	}
	if c.RefreshCron == "" {
		c.RefreshCron = d.RefreshCron
	}
	if c.HorizonDays <= 0 {
		c.HorizonDays = d.HorizonDays
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
	if c.ExamMinutes <= 0 {
		c.ExamMinutes = d.ExamMinutes
	}
	if c.CacheDir == "" {
		c.CacheDir = d.CacheDir
	}

	switch c.Store.Driver {
	case "file", "postgres":
	default:
		c.Store.Driver = "file"
	}
	if c.Store.Driver == "file" && c.Store.Path == "" {
		c.Store.Path = d.Store.Path
	}

	if c.Layout.PixelsPerHour <= 0 {
		c.Layout.PixelsPerHour = d.Layout.PixelsPerHour
	}
	if c.Layout.MinHeight <= 0 {
		c.Layout.MinHeight = d.Layout.MinHeight
	}
	if c.Layout.VisibleToHour <= 0 || c.Layout.VisibleToHour > 24 {
		c.Layout.VisibleToHour = 24
	}
	if c.Layout.VisibleFromHour < 0 || c.Layout.VisibleFromHour >= c.Layout.VisibleToHour {
		c.Layout.VisibleFromHour = 0
	}

	if c.Conflict.BufferMinutes < 0 {
		c.Conflict.BufferMinutes = 0
	}
	if c.Conflict.BufferTypes == nil {
		c.Conflict.BufferTypes = d.Conflict.BufferTypes
	}
	if c.Conflict.MajorityRatio <= 0 || c.Conflict.MajorityRatio > 1 {
		c.Conflict.MajorityRatio = d.Conflict.MajorityRatio
	}
	if c.Conflict.LatestHour <= 0 || c.Conflict.LatestHour > 24 {
		c.Conflict.LatestHour = d.Conflict.LatestHour
	}
	if c.Conflict.EarliestHour < 0 || c.Conflict.EarliestHour >= c.Conflict.LatestHour {
		c.Conflict.EarliestHour = d.Conflict.EarliestHour
	}

	if c.ICS == nil {
		c.ICS = []ICSConfig{}
	}
	for i := range c.ICS {
		if c.ICS[i].Kind != "exam" {
			c.ICS[i].Kind = "schedule"
		}
	}
}

// applyEnv overrides selected fields from the environment.
func (c *Config) applyEnv() {
	if v := os.Getenv(EnvListen); v != "" {
		c.Listen = v
	}
	if v := os.Getenv(EnvDBDSN); v != "" {
		c.Store.DSN = v
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
// Environment overrides are applied last.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, ErrEmptyPath
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
			cfg.applyEnv()
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()
	cfg.applyEnv()

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
		return ErrEmptyPath
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

	return writeAtomic(dir, path, data)
}

// writeAtomic writes data to a temp file in dir and renames it over path.
func writeAtomic(dir, path string, data []byte) error {
	tmp, err := os.CreateTemp(dir, ".studycal-config-*.tmp")
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

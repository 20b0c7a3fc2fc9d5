/*
config.go - Server configuration

PURPOSE:
  Collects everything the server needs to start: listen address, document
  store, export path, time zone, iCal refresh settings, optional Redis
  notifications, CORS origins and calendar display options.

PRECEDENCE (highest wins):
  1. Defaults
  2. Config file (JSON with comments and trailing commas)
  3. JOTTICK_* environment variables
  4. CLI flags (applied by cmd/server after Load)

EXAMPLE FILE:
  {
    // where the household lives
    "store": {"backend": "sqlite", "path": "jottick.db"},
    "time_zone": "Europe/Paris",
    "ical": {"refresh_interval": "30m"},
    "calendar": {"show": {"completed": true}},
  }

SEE ALSO:
  - cmd/server/main.go: Flags and startup
  - views/options.go: Calendar toggles and colors
*/
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/tailscale/hujson"
	"github.com/warp/jottick/ical"
	"github.com/warp/jottick/views"
)

var (
	ErrConfigFileNotFound = errors.New("config file not found")
	ErrConfigInvalid      = errors.New("invalid config")
)

// Store backends.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

type StoreConfig struct {
	Backend       string `json:"backend"`
	Path          string `json:"path"`
	KeepRevisions int    `json:"keep_revisions"`
}

type ICalConfig struct {
	// RefreshInterval of zero disables the background refresh.
	RefreshInterval Duration `json:"refresh_interval"`
	MaxInstances    int      `json:"max_instances"`
	Timeout         Duration `json:"timeout"`
}

type RedisConfig struct {
	URL     string `json:"url"` // empty disables Redis notifications
	Channel string `json:"channel"`
}

type Config struct {
	Addr        string               `json:"addr"`
	Store       StoreConfig          `json:"store"`
	ExportPath  string               `json:"export_path"`
	TimeZone    string               `json:"time_zone"`
	ICal        ICalConfig           `json:"ical"`
	Redis       RedisConfig          `json:"redis"`
	CORSOrigins []string             `json:"cors_origins"`
	Calendar    views.CalendarConfig `json:"calendar"`
}

func Default() Config {
	return Config{
		Addr: ":8080",
		Store: StoreConfig{
			Backend:       BackendFile,
			Path:          "jottick.json",
			KeepRevisions: 20,
		},
		ExportPath: "jottick.ics",
		ICal: ICalConfig{
			RefreshInterval: Duration(time.Hour),
			MaxInstances:    ical.DefaultMaxInstances,
			Timeout:         Duration(ical.DefaultFetchTimeout),
		},
		Redis:       RedisConfig{Channel: "jottick:events"},
		CORSOrigins: []string{"*"},
		Calendar:    views.DefaultCalendarConfig(),
	}
}

// Load applies the config file (optional when path is empty) and env on top
// of the defaults, then validates.
func Load(path string, env []string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return Config{}, fmt.Errorf("%w: %s", ErrConfigFileNotFound, path)
			}
			return Config{}, fmt.Errorf("read %s: %w", path, err)
		}
		if err := Parse(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("%w %s: %w", ErrConfigInvalid, path, err)
		}
	}
	if err := applyEnv(&cfg, env); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Parse overlays JSONC data onto cfg. Keys absent from data keep their value.
func Parse(data []byte, cfg *Config) error {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return fmt.Errorf("invalid JSONC: %w", err)
	}
	if err := json.Unmarshal(standardized, cfg); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

// =============================================================================
// ENVIRONMENT
// =============================================================================

func applyEnv(cfg *Config, env []string) error {
	vars := envMap(env)
	getenv := func(key, fallback string) string {
		if v := vars[key]; v != "" {
			return v
		}
		return fallback
	}

	cfg.Addr = getenv("JOTTICK_ADDR", cfg.Addr)
	cfg.Store.Backend = getenv("JOTTICK_STORE", cfg.Store.Backend)
	cfg.Store.Path = getenv("JOTTICK_STORE_PATH", cfg.Store.Path)
	cfg.ExportPath = getenv("JOTTICK_EXPORT_PATH", cfg.ExportPath)
	cfg.TimeZone = getenv("JOTTICK_TIME_ZONE", cfg.TimeZone)
	cfg.Redis.URL = getenv("JOTTICK_REDIS_URL", cfg.Redis.URL)
	cfg.Redis.Channel = getenv("JOTTICK_REDIS_CHANNEL", cfg.Redis.Channel)
	if v := vars["JOTTICK_CORS_ORIGINS"]; v != "" {
		cfg.CORSOrigins = SplitList(v)
	}
	if v := vars["JOTTICK_KEEP_REVISIONS"]; v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: JOTTICK_KEEP_REVISIONS: %w", ErrConfigInvalid, err)
		}
		cfg.Store.KeepRevisions = n
	}
	if v := vars["JOTTICK_ICAL_REFRESH"]; v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: JOTTICK_ICAL_REFRESH: %w", ErrConfigInvalid, err)
		}
		cfg.ICal.RefreshInterval = Duration(d)
	}
	return nil
}

func envMap(env []string) map[string]string {
	out := make(map[string]string, len(env))
	for _, e := range env {
		if k, v, ok := strings.Cut(e, "="); ok && strings.HasPrefix(k, "JOTTICK_") {
			out[k] = v
		}
	}
	return out
}

// SplitList splits a comma separated list, dropping blanks.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// =============================================================================
// VALIDATION
// =============================================================================

func (c Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrConfigInvalid, fmt.Sprintf(format, args...))
	}
	if c.Addr == "" {
		return invalid("addr must not be empty")
	}
	switch c.Store.Backend {
	case BackendMemory:
	case BackendFile, BackendSQLite:
		if c.Store.Path == "" {
			return invalid("store.path is required for the %s backend", c.Store.Backend)
		}
	default:
		return invalid("unknown store backend %q (want memory, file or sqlite)", c.Store.Backend)
	}
	if c.Store.KeepRevisions < 1 {
		return invalid("store.keep_revisions must be at least 1")
	}
	if _, err := c.Location(); err != nil {
		return invalid("time_zone: %v", err)
	}
	if c.ICal.RefreshInterval < 0 {
		return invalid("ical.refresh_interval must not be negative")
	}
	if c.ICal.RefreshInterval > 0 && c.ICal.RefreshInterval.Std() < time.Minute {
		return invalid("ical.refresh_interval must be at least 1m")
	}
	if c.ICal.MaxInstances < 1 {
		return invalid("ical.max_instances must be at least 1")
	}
	if c.ICal.Timeout <= 0 {
		return invalid("ical.timeout must be positive")
	}
	for _, v := range c.Calendar.Colors {
		if !validColor(v) {
			return invalid("calendar color %q is not #RRGGBB", v)
		}
	}
	return nil
}

// Location resolves TimeZone; empty means the host zone.
func (c Config) Location() (*time.Location, error) {
	if c.TimeZone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.TimeZone)
}

func validColor(s string) bool {
	if len(s) != 7 || s[0] != '#' {
		return false
	}
	for _, r := range s[1:] {
		if !strings.ContainsRune("0123456789abcdefABCDEF", r) {
			return false
		}
	}
	return true
}

// Format renders cfg as indented JSON.
func Format(cfg Config) (string, error) {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to format config: %w", err)
	}
	return string(data), nil
}

// =============================================================================
// DURATION
// =============================================================================

// Duration reads and writes Go duration strings ("30m", "1h").
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("duration must be a string like \"30m\": %w", err)
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

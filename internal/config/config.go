// Package config provides persistent settings for the prayer-times CLI and
// the environment configuration of the alarm daemon.
//
// Settings are stored as JSON at ~/.config/prayer-times/config.json
// (XDG-compliant). The merge priority is: CLI flags > config file > defaults.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/smokyabdulrahman/athan/internal/method"
	"github.com/smokyabdulrahman/athan/internal/prayer"
	"github.com/smokyabdulrahman/athan/internal/schedule"
)

const (
	configDirName  = "prayer-times"
	configFileName = "config.json"

	// fileVersion 1 stores local method IDs. Unversioned files hold Al
	// Adhan method numbers.
	fileVersion = 1
)

// Location used when nothing is configured and detection fails.
const (
	DefaultLatitude  = 43.467
	DefaultLongitude = -80.517
)

// ValidKeys lists all config keys that can be set via `config set`.
var ValidKeys = []string{
	"city", "country",
	"latitude", "longitude",
	"altitude", "pressure", "temperature",
	"timezone",
	"method", "school",
	"rounding", "offset_minutes", "pre_alert_minutes",
	"time_format",
	"prayers",
	"cache_dir",
}

// Config holds all user-configurable settings.
// Nil and empty values mean "not set" (use defaults or auto-detect).
type Config struct {
	Version         int      `json:"version,omitempty"`
	City            string   `json:"city,omitempty"`
	Country         string   `json:"country,omitempty"`
	Latitude        *float64 `json:"latitude,omitempty"`
	Longitude       *float64 `json:"longitude,omitempty"`
	Altitude        *float64 `json:"altitude,omitempty"`
	Pressure        *float64 `json:"pressure,omitempty"`
	Temperature     *float64 `json:"temperature,omitempty"`
	Timezone        string   `json:"timezone,omitempty"`
	Method          *int     `json:"method,omitempty"` // pointer so we can distinguish "not set" from 0
	School          *int     `json:"school,omitempty"` // 0 Shafi, 1 Hanafi
	Rounding        string   `json:"rounding,omitempty"`
	OffsetMinutes   *int     `json:"offset_minutes,omitempty"`
	PreAlertMinutes *int     `json:"pre_alert_minutes,omitempty"`
	TimeFormat      string   `json:"time_format,omitempty"` // "12h" or "24h"
	Prayers         string   `json:"prayers,omitempty"`     // comma-separated list
	CacheDir        string   `json:"cache_dir,omitempty"`
}

// Defaults returns a Config with all default values applied.
// Method and school -1 mean "pick from the region, then the method".
func Defaults() Config {
	m := -1
	school := -1
	return Config{
		Method:     &m,
		School:     &school,
		Rounding:   schedule.DefaultRounding.String(),
		TimeFormat: "24h",
	}
}

// Dir returns the config directory path.
// It respects $XDG_CONFIG_HOME if set, otherwise uses ~/.config/.
func Dir() (string, error) {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, configDirName), nil
}

// Path returns the full path to the config file.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileName), nil
}

// Load reads the config file from disk.
// If the file does not exist, it returns an empty Config (not an error).
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom reads the config from a specific file path.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	if err := cfg.upgrade(); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return &cfg, nil
}

// upgrade maps the Al Adhan method number of an unversioned file onto the
// local method table.
func (c *Config) upgrade() error {
	if c.Version >= fileVersion {
		return nil
	}
	if c.Method != nil {
		m, err := method.Builtin.ByAlAdhanID(*c.Method)
		if err != nil {
			return fmt.Errorf("method %d has no local equivalent; run `prayer-times methods` and `prayer-times config set method <name>`", *c.Method)
		}
		c.Method = &m.ID
	}
	c.Version = fileVersion
	return nil
}

// Save writes the config to disk, creating the directory if needed.
func (c *Config) Save() error {
	path, err := Path()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

// SaveTo writes the config to a specific file path.
func (c *Config) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create config directory %s: %w", dir, err)
	}

	out := *c
	out.Version = fileVersion
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Reset deletes the config file.
func Reset() error {
	path, err := Path()
	if err != nil {
		return err
	}
	return ResetAt(path)
}

// ResetAt deletes the config file at a specific path.
func ResetAt(path string) error {
	err := os.Remove(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete config file: %w", err)
	}
	return nil
}

// field binds a config key to its accessor and validating setter.
type field struct {
	get func(*Config) string
	set func(*Config, string) error
}

func stringField(ptr func(*Config) *string) field {
	return field{
		get: func(c *Config) string { return *ptr(c) },
		set: func(c *Config, v string) error { *ptr(c) = v; return nil },
	}
}

func floatField(key string, lo, hi float64, ptr func(*Config) **float64) field {
	return field{
		get: func(c *Config) string {
			if v := *ptr(c); v != nil {
				return strconv.FormatFloat(*v, 'f', -1, 64)
			}
			return ""
		},
		set: func(c *Config, value string) error {
			v, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return fmt.Errorf("invalid %s %q: must be a number", key, value)
			}
			if v < lo || v > hi {
				return fmt.Errorf("invalid %s %q: must be between %g and %g", key, value, lo, hi)
			}
			*ptr(c) = &v
			return nil
		},
	}
}

func intField(key string, lo, hi int, ptr func(*Config) **int) field {
	return field{
		get: func(c *Config) string { return formatInt(*ptr(c)) },
		set: func(c *Config, value string) error {
			v, err := strconv.Atoi(value)
			if err != nil {
				return fmt.Errorf("invalid %s %q: must be an integer", key, value)
			}
			if v < lo || v > hi {
				return fmt.Errorf("invalid %s %q: must be between %d and %d", key, value, lo, hi)
			}
			*ptr(c) = &v
			return nil
		},
	}
}

func formatInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

var fields = map[string]field{
	"city":              stringField(func(c *Config) *string { return &c.City }),
	"country":           stringField(func(c *Config) *string { return &c.Country }),
	"cache_dir":         stringField(func(c *Config) *string { return &c.CacheDir }),
	"latitude":          floatField("latitude", -90, 90, func(c *Config) **float64 { return &c.Latitude }),
	"longitude":         floatField("longitude", -180, 180, func(c *Config) **float64 { return &c.Longitude }),
	"altitude":          floatField("altitude", -500, 9000, func(c *Config) **float64 { return &c.Altitude }),
	"pressure":          floatField("pressure", 300, 1100, func(c *Config) **float64 { return &c.Pressure }),
	"temperature":       floatField("temperature", -90, 60, func(c *Config) **float64 { return &c.Temperature }),
	"offset_minutes":    intField("offset_minutes", -120, 120, func(c *Config) **int { return &c.OffsetMinutes }),
	"pre_alert_minutes": intField("pre_alert_minutes", 0, 180, func(c *Config) **int { return &c.PreAlertMinutes }),
	"timezone": {
		get: func(c *Config) string { return c.Timezone },
		set: func(c *Config, value string) error {
			if _, err := time.LoadLocation(value); err != nil || value == "" {
				return fmt.Errorf("invalid timezone %q: must be an IANA name like \"Europe/London\"", value)
			}
			c.Timezone = value
			return nil
		},
	},
	"method": {
		get: func(c *Config) string { return formatInt(c.Method) },
		set: func(c *Config, value string) error {
			id, err := strconv.Atoi(value)
			if err != nil {
				m, err := method.Builtin.ByName(value)
				if err != nil {
					return fmt.Errorf("invalid method %q: must be a method ID or name", value)
				}
				id = m.ID
			}
			if _, err := method.Lookup(id); err != nil {
				return fmt.Errorf("invalid method %q: must be between 0 and %d", value, method.Builtin.Len()-1)
			}
			c.Method = &id
			return nil
		},
	},
	"school": {
		get: func(c *Config) string { return formatInt(c.School) },
		set: func(c *Config, value string) error {
			switch value {
			case "0", "1":
				v := int(value[0] - '0')
				c.School = &v
				return nil
			}
			return fmt.Errorf("invalid school %q: must be 0 (Shafi) or 1 (Hanafi)", value)
		},
	},
	"rounding": {
		get: func(c *Config) string { return c.Rounding },
		set: func(c *Config, value string) error {
			r, err := schedule.ParseRounding(value)
			if err != nil {
				return err
			}
			c.Rounding = r.String()
			return nil
		},
	},
	"time_format": {
		get: func(c *Config) string { return c.TimeFormat },
		set: func(c *Config, value string) error {
			if value != "12h" && value != "24h" {
				return fmt.Errorf("invalid time_format %q: must be \"12h\" or \"24h\"", value)
			}
			c.TimeFormat = value
			return nil
		},
	},
	"prayers": {
		get: func(c *Config) string { return c.Prayers },
		set: func(c *Config, value string) error {
			for _, n := range strings.Split(value, ",") {
				if n = strings.TrimSpace(n); !slices.Contains(prayer.AllPrayerNames, n) {
					return fmt.Errorf("invalid prayer name %q in prayers list", n)
				}
			}
			c.Prayers = value
			return nil
		},
	},
}

// Set parses value into key. An invalid value leaves c unchanged.
func (c *Config) Set(key, value string) error {
	f, ok := fields[key]
	if !ok {
		return fmt.Errorf("unknown config key %q; valid keys: %s", key, strings.Join(ValidKeys, ", "))
	}
	return f.set(c, value)
}

// Get returns the string form of key, empty when unset.
func (c *Config) Get(key string) (string, error) {
	f, ok := fields[key]
	if !ok {
		return "", fmt.Errorf("unknown config key %q", key)
	}
	return f.get(c), nil
}

// MethodOrDefault returns the method value, falling back to the given default.
func (c *Config) MethodOrDefault(def int) int {
	if c.Method != nil {
		return *c.Method
	}
	return def
}

// SchoolOrDefault returns the school value, falling back to the given default.
func (c *Config) SchoolOrDefault(def int) int {
	if c.School != nil {
		return *c.School
	}
	return def
}

// OffsetOrZero returns the manual minute offset.
func (c *Config) OffsetOrZero() int {
	if c.OffsetMinutes != nil {
		return *c.OffsetMinutes
	}
	return 0
}

// PreAlertOrZero returns the pre-alert lead in minutes.
func (c *Config) PreAlertOrZero() int {
	if c.PreAlertMinutes != nil {
		return *c.PreAlertMinutes
	}
	return 0
}

package config

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
)

// Defaults applied by SetDefaults.
const (
	DefaultInitialDelay       = "5s"
	DefaultRecurringDelay     = "1s"
	DefaultBusyTimeout        = "5s"
	DefaultStatisticsInterval = "5s"
	DefaultSettingsDebounce   = "200ms"
	DefaultLatestTitleCount   = 3
)

// TrackerConfig controls process polling.
type TrackerConfig struct {
	InitialDelay   string   `yaml:"initial_delay,omitempty" toml:"initial_delay,omitempty" jsonschema:"description=Delay before the first poll (default: 5s)"`
	RecurringDelay string   `yaml:"recurring_delay,omitempty" toml:"recurring_delay,omitempty" jsonschema:"description=Delay between polls (default: 1s)"`
	Exclude        []string `yaml:"exclude,omitempty" toml:"exclude,omitempty" jsonschema:"description=Extra glob patterns for executables that are never reported"`
	IncludeSelf    bool     `yaml:"include_self,omitempty" toml:"include_self,omitempty" jsonschema:"description=Report the tracker's own process (default: false)"`
}

// DatabaseConfig locates the session store.
type DatabaseConfig struct {
	Path        string `yaml:"path,omitempty" toml:"path,omitempty" jsonschema:"description=Path to the SQLite database (default: $XDG_STATE_HOME/proctrack/proctrack.db)"`
	BusyTimeout string `yaml:"busy_timeout,omitempty" toml:"busy_timeout,omitempty" jsonschema:"description=How long a write waits for a locked database (default: 5s)"`
}

// DaemonConfig holds configuration for the tracker daemon.
type DaemonConfig struct {
	StatisticsInterval string `yaml:"statistics_interval,omitempty" toml:"statistics_interval,omitempty" jsonschema:"description=How often statistics are recomputed (default: 5s)"`
	SettingsDebounce   string `yaml:"settings_debounce,omitempty" toml:"settings_debounce,omitempty" jsonschema:"description=Debounce window for settings file changes (default: 200ms)"`
}

// StatisticsConfig controls statistics presentation.
type StatisticsConfig struct {
	LatestTitleCount *int `yaml:"latest_title_count,omitempty" toml:"latest_title_count,omitempty" jsonschema:"minimum=0,description=Number of distinct recent titles shown per group (default: 3)"`
}

// Config represents the proctrack.yml configuration
type Config struct {
	Tracker    TrackerConfig    `yaml:"tracker,omitempty" toml:"tracker,omitempty" jsonschema:"description=Process polling"`
	Database   DatabaseConfig   `yaml:"database,omitempty" toml:"database,omitempty" jsonschema:"description=Session store"`
	Daemon     DaemonConfig     `yaml:"daemon,omitempty" toml:"daemon,omitempty" jsonschema:"description=Tracker daemon"`
	Statistics StatisticsConfig `yaml:"statistics,omitempty" toml:"statistics,omitempty" jsonschema:"description=Statistics presentation"`

	// Extensions captures all other top-level keys for extensibility.
	Extensions map[string]interface{} `yaml:",inline" toml:"-" jsonschema:"-"`
}

// SetDefaults sets default values for configuration
func (c *Config) SetDefaults() {
	if c.Tracker.InitialDelay == "" {
		c.Tracker.InitialDelay = DefaultInitialDelay
	}
	if c.Tracker.RecurringDelay == "" {
		c.Tracker.RecurringDelay = DefaultRecurringDelay
	}
	if c.Database.BusyTimeout == "" {
		c.Database.BusyTimeout = DefaultBusyTimeout
	}
	if c.Daemon.StatisticsInterval == "" {
		c.Daemon.StatisticsInterval = DefaultStatisticsInterval
	}
	if c.Daemon.SettingsDebounce == "" {
		c.Daemon.SettingsDebounce = DefaultSettingsDebounce
	}
	if c.Statistics.LatestTitleCount == nil {
		n := DefaultLatestTitleCount
		c.Statistics.LatestTitleCount = &n
	}
}

// InitialDelay returns the configured first-poll delay.
func (c *Config) InitialDelay() time.Duration {
	return durationOr(c.Tracker.InitialDelay, DefaultInitialDelay)
}

// RecurringDelay returns the configured delay between polls.
func (c *Config) RecurringDelay() time.Duration {
	return durationOr(c.Tracker.RecurringDelay, DefaultRecurringDelay)
}

// BusyTimeout returns the database busy timeout.
func (c *Config) BusyTimeout() time.Duration {
	return durationOr(c.Database.BusyTimeout, DefaultBusyTimeout)
}

// StatisticsInterval returns how often the daemon recomputes statistics.
func (c *Config) StatisticsInterval() time.Duration {
	return durationOr(c.Daemon.StatisticsInterval, DefaultStatisticsInterval)
}

// SettingsDebounce returns the settings watcher debounce window.
func (c *Config) SettingsDebounce() time.Duration {
	return durationOr(c.Daemon.SettingsDebounce, DefaultSettingsDebounce)
}

// LatestTitleCount returns the number of recent titles reported per group.
func (c *Config) LatestTitleCount() int {
	if c.Statistics.LatestTitleCount == nil {
		return DefaultLatestTitleCount
	}
	return *c.Statistics.LatestTitleCount
}

// durationOr parses value, falling back to def when it is empty or invalid.
// Validate reports invalid values before anything reads them.
func durationOr(value, def string) time.Duration {
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	d, _ := time.ParseDuration(def)
	return d
}

// UnmarshalExtension decodes a specific extension's configuration from the
// loaded proctrack.yml into the provided target struct. The target must be a
// pointer. A missing key leaves the target untouched.
//
// Example:
//
//	var logCfg logging.Config
//	err := cfg.UnmarshalExtension("logging", &logCfg)
func (c *Config) UnmarshalExtension(key string, target interface{}) error {
	extensionConfig, ok := c.Extensions[key]
	if !ok {
		return nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		TagName:          "yaml",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create mapstructure decoder: %w", err)
	}

	if err := decoder.Decode(extensionConfig); err != nil {
		return fmt.Errorf("failed to decode extension config for '%s': %w", key, err)
	}

	return nil
}

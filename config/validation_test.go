package config

import (
	"testing"

	"github.com/grovetools/proctrack/errors"
	"github.com/stretchr/testify/assert"
)

func TestValidate(t *testing.T) {
	negative := -2

	tests := []struct {
		name   string
		mutate func(c *Config)
		field  string
	}{
		{"defaults are valid", func(c *Config) {}, ""},
		{"initial delay", func(c *Config) { c.Tracker.InitialDelay = "-1s" }, "tracker.initial_delay"},
		{"recurring delay", func(c *Config) { c.Tracker.RecurringDelay = "fast" }, "tracker.recurring_delay"},
		{"busy timeout", func(c *Config) { c.Database.BusyTimeout = "0" }, "database.busy_timeout"},
		{"statistics interval", func(c *Config) { c.Daemon.StatisticsInterval = "1 minute" }, "daemon.statistics_interval"},
		{"settings debounce", func(c *Config) { c.Daemon.SettingsDebounce = "0ms" }, "daemon.settings_debounce"},
		{"empty exclude", func(c *Config) { c.Tracker.Exclude = []string{""} }, "tracker.exclude"},
		{"malformed exclude", func(c *Config) { c.Tracker.Exclude = []string{"a[b"} }, "tracker.exclude"},
		{"negative title count", func(c *Config) { c.Statistics.LatestTitleCount = &negative }, "statistics.latest_title_count"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			cfg.SetDefaults()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, errors.ErrCodeConfigValidation))
			pe, ok := err.(*errors.ProcTrackError)
			if assert.True(t, ok) {
				assert.Equal(t, tt.field, pe.Details["field"])
			}
		})
	}
}

package config

import (
	"fmt"
	"time"

	"github.com/grovetools/proctrack/errors"
	"github.com/moby/patternmatcher"
)

// Validate checks if the configuration is valid. It expects SetDefaults to
// have run.
func (c *Config) Validate() error {
	durations := []struct {
		field string
		value string
	}{
		{"tracker.initial_delay", c.Tracker.InitialDelay},
		{"tracker.recurring_delay", c.Tracker.RecurringDelay},
		{"database.busy_timeout", c.Database.BusyTimeout},
		{"daemon.statistics_interval", c.Daemon.StatisticsInterval},
		{"daemon.settings_debounce", c.Daemon.SettingsDebounce},
	}
	for _, d := range durations {
		if err := validateDuration(d.field, d.value); err != nil {
			return err
		}
	}

	for _, pattern := range c.Tracker.Exclude {
		if err := validateExcludePattern(pattern); err != nil {
			return errors.Wrap(err, errors.ErrCodeConfigValidation, fmt.Sprintf("invalid exclude pattern '%s'", pattern)).
				WithDetail("field", "tracker.exclude")
		}
	}

	if c.Statistics.LatestTitleCount != nil && *c.Statistics.LatestTitleCount < 0 {
		return errors.New(errors.ErrCodeConfigValidation, "statistics.latest_title_count cannot be negative").
			WithDetail("field", "statistics.latest_title_count")
	}

	return nil
}

func validateDuration(field, value string) error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeConfigValidation, fmt.Sprintf("%s is not a duration: %q", field, value)).
			WithDetail("field", field)
	}
	if d <= 0 {
		return errors.New(errors.ErrCodeConfigValidation, fmt.Sprintf("%s must be positive", field)).
			WithDetail("field", field)
	}
	return nil
}

func validateExcludePattern(pattern string) error {
	if pattern == "" {
		return fmt.Errorf("pattern is empty")
	}
	_, err := patternmatcher.New([]string{pattern})
	return err
}

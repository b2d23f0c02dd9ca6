package collector

import (
	"context"
	"time"

	"github.com/grovetools/proctrack/internal/daemon/store"
	"github.com/grovetools/proctrack/internal/recorder"
	"github.com/grovetools/proctrack/internal/watcher"
	"github.com/grovetools/proctrack/settings"
	"github.com/sirupsen/logrus"
)

// SettingsCollector applies live settings (recurring delay and the recording
// toggle) to the running tracker whenever the settings store changes.
type SettingsCollector struct {
	settings *settings.Store
	watcher  *watcher.Watcher
	recorder *recorder.Recorder
	fallback time.Duration
	logger   *logrus.Entry
}

// NewSettingsCollector creates a SettingsCollector. fallback is the recurring
// delay used when the setting is absent.
func NewSettingsCollector(s *settings.Store, w *watcher.Watcher, rec *recorder.Recorder, fallback time.Duration, logger *logrus.Entry) *SettingsCollector {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &SettingsCollector{
		settings: s,
		watcher:  w,
		recorder: rec,
		fallback: fallback,
		logger:   logger,
	}
}

// Name returns the collector's name.
func (c *SettingsCollector) Name() string { return "settings" }

// Run applies the current settings, then every change until ctx is done.
func (c *SettingsCollector) Run(ctx context.Context, st *store.Store, updates chan<- store.Update) error {
	// Only the latest version matters; older pending ones are dropped.
	changes := make(chan settings.Settings, 1)
	unsubscribe := c.settings.Subscribe(func(s settings.Settings) {
		select {
		case <-changes:
		default:
		}
		changes <- s
	})
	defer unsubscribe()

	current, err := c.settings.Load()
	if err != nil {
		c.logger.WithError(err).Warn("Failed to load settings, using defaults")
		current = settings.Settings{}
	}
	c.apply(ctx, current, updates)

	for {
		select {
		case <-ctx.Done():
			return nil
		case s := <-changes:
			c.apply(ctx, s, updates)
		}
	}
}

func (c *SettingsCollector) apply(ctx context.Context, s settings.Settings, updates chan<- store.Update) {
	delay := s.Seconds(settings.KeyRecurringDelay, c.fallback)
	if delay != c.watcher.RecurringDelay() {
		c.watcher.SetRecurringDelay(delay)
		c.logger.WithField("recurring_delay", delay).Info("Recurring delay updated")
	}

	recording := s.Bool(settings.KeyRecording, false)
	if c.recorder != nil {
		if err := c.recorder.SetEnabled(ctx, recording, c.watcher.Current); err != nil {
			c.logger.WithError(err).Error("Failed to apply recording setting")
		}
		recording = c.recorder.Enabled()
	}

	send(ctx, updates, store.Update{
		Type:   store.UpdateStatus,
		Source: c.Name(),
		Payload: store.RecordingPayload{
			Recording:      recording,
			RecurringDelay: delay.Seconds(),
		},
	})
}

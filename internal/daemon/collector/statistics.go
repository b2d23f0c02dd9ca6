package collector

import (
	"context"
	"time"

	"github.com/grovetools/proctrack/internal/daemon/store"
	"github.com/grovetools/proctrack/internal/stats"
	"github.com/grovetools/proctrack/pkg/models"
	"github.com/sirupsen/logrus"
)

// FilterSource returns the persisted per-group statistics filters.
type FilterSource func() map[int64]models.StatisticsFilter

// StatisticsCollector recomputes group statistics on an interval and after
// every completed poll.
type StatisticsCollector struct {
	aggregator *stats.Aggregator
	filters    FilterSource
	interval   time.Duration
	logger     *logrus.Entry
}

// NewStatisticsCollector creates a StatisticsCollector. If interval is 0,
// defaults to 5 seconds.
func NewStatisticsCollector(agg *stats.Aggregator, filters FilterSource, interval time.Duration, logger *logrus.Entry) *StatisticsCollector {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if filters == nil {
		filters = func() map[int64]models.StatisticsFilter { return nil }
	}
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &StatisticsCollector{
		aggregator: agg,
		filters:    filters,
		interval:   interval,
		logger:     logger,
	}
}

// Name returns the collector's name.
func (c *StatisticsCollector) Name() string { return "statistics" }

// Run starts the aggregation loop.
func (c *StatisticsCollector) Run(ctx context.Context, st *store.Store, updates chan<- store.Update) error {
	sub := st.Subscribe()
	defer st.Unsubscribe(sub)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	compute := func() {
		start := time.Now()
		result, err := c.aggregator.Aggregate(ctx, stats.Request{Stored: c.filters()})
		if err != nil {
			if ctx.Err() == nil {
				c.logger.WithError(err).Warn("Failed to aggregate statistics")
			}
			return
		}
		if d := time.Since(start); d > 500*time.Millisecond {
			c.logger.WithField("duration", d).Warn("Slow statistics aggregation detected")
		}
		send(ctx, updates, store.Update{
			Type:    store.UpdateStatistics,
			Source:  c.Name(),
			Payload: result,
		})
	}

	compute()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			compute()
		case u, ok := <-sub:
			if !ok {
				return nil
			}
			switch u.Type {
			case store.UpdateListUpdate, store.UpdateSettingsReload:
				compute()
			}
		}
	}
}

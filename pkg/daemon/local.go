package daemon

import (
	"context"
	"sync"

	"github.com/grovetools/proctrack/config"
	"github.com/grovetools/proctrack/errors"
	"github.com/grovetools/proctrack/internal/daemon/store"
	"github.com/grovetools/proctrack/internal/db"
	"github.com/grovetools/proctrack/internal/stats"
	"github.com/grovetools/proctrack/pkg/models"
	"github.com/grovetools/proctrack/pkg/paths"
	"github.com/grovetools/proctrack/pkg/process"
	"github.com/grovetools/proctrack/settings"
	"github.com/sirupsen/logrus"
)

// LocalClient implements Client by calling library functions directly.
// This is used when the daemon is not running, providing the same API
// but executing all operations in-process. The database is opened on first use.
type LocalClient struct {
	cfg      *config.Config
	settings *settings.Store
	logger   *logrus.Entry

	mu      sync.Mutex
	db      *db.DB
	service *StatisticsService
}

// NewLocalClient creates a new LocalClient. A nil cfg uses the defaults.
func NewLocalClient(cfg *config.Config) *LocalClient {
	if cfg == nil {
		cfg, _ = config.Default()
	}
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	return &LocalClient{
		cfg:      cfg,
		settings: settings.Open(""),
		logger:   logrus.NewEntry(logger),
	}
}

func (c *LocalClient) statistics() (*StatisticsService, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.service != nil {
		return c.service, nil
	}
	database, err := db.Open(c.cfg.Database.Path, c.cfg.BusyTimeout())
	if err != nil {
		return nil, err
	}
	c.db = database
	agg := stats.New(database, stats.WithLatestTitleCount(c.latestTitleCount()))
	c.service = NewStatisticsService(database, agg, c.settings)
	return c.service, nil
}

// latestTitleCount prefers the runtime setting over the config file.
func (c *LocalClient) latestTitleCount() int {
	st, err := c.settings.Load()
	if err != nil {
		return c.cfg.LatestTitleCount()
	}
	return st.Int(settings.KeyLatestTitleCount, c.cfg.LatestTitleCount())
}

// Status reports tracking as stopped together with the stored settings.
func (c *LocalClient) Status(ctx context.Context) (*Status, error) {
	st, err := c.settings.Load()
	if err != nil {
		return nil, err
	}
	return &Status{
		Tracking:       store.TrackingStopped,
		Recording:      st.Bool(settings.KeyRecording, false),
		RecurringDelay: st.Seconds(settings.KeyRecurringDelay, c.cfg.RecurringDelay()).Seconds(),
	}, nil
}

// Processes runs a single provider poll.
func (c *LocalClient) Processes(ctx context.Context) (models.Snapshot, error) {
	provider, err := process.New(process.Options{
		Exclude:     c.cfg.Tracker.Exclude,
		IncludeSelf: c.cfg.Tracker.IncludeSelf,
		Logger:      c.logger,
	})
	if err != nil {
		return nil, err
	}
	if pf, ok := provider.(process.Preflighter); ok {
		if err := pf.Preflight(); err != nil {
			return nil, err
		}
	}
	return provider.Poll(ctx)
}

// Statistics aggregates straight from the database.
func (c *LocalClient) Statistics(ctx context.Context, q StatisticsQuery) ([]models.GroupStatistics, error) {
	service, err := c.statistics()
	if err != nil {
		return nil, err
	}
	return service.Statistics(ctx, q.Group, q.Filter)
}

// StreamState returns an error for LocalClient since streaming is only available via daemon.
func (c *LocalClient) StreamState(ctx context.Context) (<-chan Event, error) {
	return nil, errors.DaemonNotRunning(paths.SocketPath()).
		WithDetail("hint", "start the daemon for real-time updates")
}

// GetConfig returns an error for LocalClient since config is only available via daemon.
func (c *LocalClient) GetConfig(ctx context.Context) (*RunningConfig, error) {
	return nil, errors.DaemonNotRunning(paths.SocketPath())
}

// IsRunning returns false since this is the local fallback client.
func (c *LocalClient) IsRunning() bool {
	return false
}

// Close releases the database if it was opened.
func (c *LocalClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db == nil {
		return nil
	}
	err := c.db.Close()
	c.db = nil
	c.service = nil
	return err
}

// Ensure LocalClient implements Client interface.
var _ Client = (*LocalClient)(nil)

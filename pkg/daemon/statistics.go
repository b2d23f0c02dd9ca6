package daemon

import (
	"context"

	"github.com/grovetools/proctrack/internal/db"
	"github.com/grovetools/proctrack/internal/stats"
	"github.com/grovetools/proctrack/pkg/models"
	"github.com/grovetools/proctrack/settings"
)

// StatisticsService resolves group references and stored filters before
// aggregating. The daemon serves it on /api/statistics and LocalClient
// calls it directly.
type StatisticsService struct {
	db         *db.DB
	aggregator *stats.Aggregator
	settings   *settings.Store
}

// NewStatisticsService creates a StatisticsService. settingsStore may be nil,
// in which case no stored filters apply.
func NewStatisticsService(database *db.DB, agg *stats.Aggregator, settingsStore *settings.Store) *StatisticsService {
	return &StatisticsService{db: database, aggregator: agg, settings: settingsStore}
}

// Statistics aggregates one group (by name or id) or, when group is empty,
// every group.
func (s *StatisticsService) Statistics(ctx context.Context, group string, filter models.StatisticsFilter) ([]models.GroupStatistics, error) {
	req := stats.Request{Filter: filter, Stored: s.StoredFilters()}
	if group != "" {
		g, err := s.db.ResolveGroup(ctx, group)
		if err != nil {
			return nil, err
		}
		req.GroupID = g.ID
	}
	return s.aggregator.Aggregate(ctx, req)
}

// StoredFilters returns the per-group filters from settings. A settings file
// that cannot be read contributes no filters.
func (s *StatisticsService) StoredFilters() map[int64]models.StatisticsFilter {
	if s.settings == nil {
		return nil
	}
	st, err := s.settings.Load()
	if err != nil {
		return nil
	}
	return st.Filters()
}

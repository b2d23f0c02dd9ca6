// Package stats computes per-group runtime statistics from recorded sessions.
package stats

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/grovetools/proctrack/pkg/models"
)

const DefaultLatestTitleCount = 3

// Source is the read model the aggregator queries.
type Source interface {
	ListGroups(ctx context.Context) ([]models.Group, error)
	ListSessions(ctx context.Context, groupID int64) ([]models.SessionView, error)
}

// Request selects groups and filters for one aggregation.
type Request struct {
	// GroupID limits the result to one group. Zero means all groups.
	GroupID int64
	// Filter, when non-zero, applies to every requested group and overrides
	// the stored per-group filters.
	Filter models.StatisticsFilter
	// Stored holds the persisted per-group filters.
	Stored map[int64]models.StatisticsFilter
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithLatestTitleCount sets how many distinct recent titles each group reports.
func WithLatestTitleCount(n int) Option {
	return func(a *Aggregator) { a.latestTitles = n }
}

// WithNow replaces the clock used to measure open sessions.
func WithNow(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

// Aggregator recomputes statistics on every call; nothing is cached.
type Aggregator struct {
	source       Source
	latestTitles int
	now          func() time.Time
}

// New creates an aggregator over source.
func New(source Source, opts ...Option) *Aggregator {
	a := &Aggregator{
		source:       source,
		latestTitles: DefaultLatestTitleCount,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Aggregate returns statistics for the requested groups, ordered by group id.
func (a *Aggregator) Aggregate(ctx context.Context, req Request) ([]models.GroupStatistics, error) {
	groups, err := a.source.ListGroups(ctx)
	if err != nil {
		return nil, err
	}

	now := a.now().UnixMilli()
	out := make([]models.GroupStatistics, 0, len(groups))
	for _, g := range groups {
		if req.GroupID != 0 && g.ID != req.GroupID {
			continue
		}
		sessions, err := a.source.ListSessions(ctx, g.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, a.group(g, sessions, resolveFilter(req, g.ID), now))
	}
	return out, nil
}

func resolveFilter(req Request, groupID int64) models.StatisticsFilter {
	if !req.Filter.IsZero() {
		return req.Filter
	}
	return req.Stored[groupID]
}

func (a *Aggregator) group(g models.Group, sessions []models.SessionView, filter models.StatisticsFilter, now int64) models.GroupStatistics {
	st := models.GroupStatistics{
		GroupID:    g.ID,
		GroupName:  g.Name,
		ViewOffset: g.ViewOffset,
		Filtered:   !filter.IsZero(),
		Sessions:   []models.SessionView{},
	}

	intervals := make([]Interval, 0, len(sessions))
	for _, s := range sessions {
		if g.ViewOffset > 0 && s.StartedAt < g.ViewOffset {
			continue
		}
		if !matches(s, filter, now) {
			continue
		}

		end := now
		if s.StoppedAt != nil {
			end = *s.StoppedAt
		} else {
			st.Active = true
		}
		s.Elapsed = s.Duration(now)
		intervals = append(intervals, Interval{Start: s.StartedAt, End: end})
		st.Sessions = append(st.Sessions, s)
	}

	st.GroupRuntime, st.OverlapAnomaly = Union(intervals)
	st.LatestTitles = latestTitles(st.Sessions, a.latestTitles)
	return st
}

// matches applies the free-text and time bounds. Open sessions end now.
func matches(s models.SessionView, f models.StatisticsFilter, now int64) bool {
	if f.From > 0 && s.StartedAt < f.From {
		return false
	}
	if f.To > 0 {
		end := now
		if s.StoppedAt != nil {
			end = *s.StoppedAt
		}
		if end > f.To {
			return false
		}
	}
	if f.Query != "" {
		q := strings.ToLower(f.Query)
		for _, tc := range s.TitleHistory {
			if strings.Contains(strings.ToLower(tc.Title), q) {
				return true
			}
		}
		return false
	}
	return true
}

// latestTitles returns up to n distinct titles, most recent first.
func latestTitles(sessions []models.SessionView, n int) []string {
	if n <= 0 {
		return nil
	}
	// Collected newest-first so ties on ChangedAt keep the later entry ahead.
	var changes []models.TitleChange
	for i := len(sessions) - 1; i >= 0; i-- {
		history := sessions[i].TitleHistory
		for j := len(history) - 1; j >= 0; j-- {
			changes = append(changes, history[j])
		}
	}
	sort.SliceStable(changes, func(i, j int) bool { return changes[i].ChangedAt > changes[j].ChangedAt })

	seen := make(map[string]struct{}, n)
	var out []string
	for _, tc := range changes {
		if tc.Title == "" {
			continue
		}
		if _, dup := seen[tc.Title]; dup {
			continue
		}
		seen[tc.Title] = struct{}{}
		out = append(out, tc.Title)
		if len(out) == n {
			break
		}
	}
	return out
}

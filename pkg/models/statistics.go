package models

// OverlapAnomaly flags a group total that may be inaccurate because session
// intervals were recorded out of chronological order.
type OverlapAnomaly string

const (
	OverlapNone       OverlapAnomaly = ""
	OverlapUndercount OverlapAnomaly = "possible-undercount"
	OverlapOvercount  OverlapAnomaly = "possible-overcount"
)

// StatisticsFilter narrows which sessions contribute to statistics.
// Zero values mean "no bound".
type StatisticsFilter struct {
	Query string `json:"query,omitempty" yaml:"query,omitempty" mapstructure:"query"`
	From  int64  `json:"from,omitempty" yaml:"from,omitempty" mapstructure:"from"` // startedAt >= From (epoch ms)
	To    int64  `json:"to,omitempty" yaml:"to,omitempty" mapstructure:"to"`       // stoppedAt <= To (epoch ms)
}

// IsZero reports whether the filter applies no constraint.
func (f StatisticsFilter) IsZero() bool {
	return f.Query == "" && f.From == 0 && f.To == 0
}

// SessionView is a session as presented in statistics.
type SessionView struct {
	TrackingSession
	RuleType    RuleType `json:"rule_type,omitempty"`
	RulePattern string   `json:"rule_pattern,omitempty"`
	Elapsed     int64    `json:"elapsed"` // ms
}

// GroupStatistics is the aggregated runtime of one group.
type GroupStatistics struct {
	GroupID        int64          `json:"group_id"`
	GroupName      string         `json:"group_name"`
	ViewOffset     int64          `json:"view_offset,omitempty"`
	GroupRuntime   int64          `json:"group_runtime"` // ms, union of session intervals
	Active         bool           `json:"active"`
	Filtered       bool           `json:"filtered"`
	OverlapAnomaly OverlapAnomaly `json:"overlap_anomaly,omitempty"`
	LatestTitles   []string       `json:"latest_titles,omitempty"`
	Sessions       []SessionView  `json:"sessions"`
}

package models

// TrackingSession is one interval during which a process instance matched a rule.
// At most one open session (StoppedAt == nil) exists per (RuleID, ProcessID, ProcessStartTime).
type TrackingSession struct {
	ID               string        `json:"id" db:"id"`
	Seq              int64         `json:"seq" db:"seq"`
	RuleID           int64         `json:"rule_id" db:"rule_id"`
	GroupID          int64         `json:"group_id" db:"group_id"`
	ProcessID        int           `json:"process_id" db:"process_id"`
	ProcessStartTime int64         `json:"process_start_time" db:"process_start_time"`
	Executable       string        `json:"executable" db:"executable"`
	StartedAt        int64         `json:"started_at" db:"started_at"`           // epoch ms
	StoppedAt        *int64        `json:"stopped_at,omitempty" db:"stopped_at"` // epoch ms, nil while open
	TitleHistory     []TitleChange `json:"title_history,omitempty" db:"-"`
}

// Open reports whether the session is still running.
func (s *TrackingSession) Open() bool {
	return s.StoppedAt == nil
}

// Duration returns the session length in ms, counting open sessions up to now.
func (s *TrackingSession) Duration(now int64) int64 {
	end := now
	if s.StoppedAt != nil {
		end = *s.StoppedAt
	}
	if end < s.StartedAt {
		return 0
	}
	return end - s.StartedAt
}

// TitleChange is one entry of a session's append-only title history.
type TitleChange struct {
	SessionID string `json:"session_id,omitempty" db:"session_id"`
	ChangedAt int64  `json:"changed_at" db:"changed_at"` // epoch ms
	Title     string `json:"title" db:"title"`
}

// SessionKey is the lookup key for an open session.
type SessionKey struct {
	RuleID           int64
	ProcessID        int
	ProcessStartTime int64
}

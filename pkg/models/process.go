package models

import "sort"

// ProcessRecord is one running, windowed process as reported by a provider.
// A running instance is identified by (ID, StartTime) because PIDs are reused.
type ProcessRecord struct {
	ID          int    `json:"id"`
	Executable  string `json:"executable"`
	WindowTitle string `json:"window_title"`
	StartTime   int64  `json:"start_time"` // epoch seconds
}

// InstanceKey identifies a process instance across polls.
type InstanceKey struct {
	ID        int
	StartTime int64
}

// Key returns the instance key for the record.
func (p ProcessRecord) Key() InstanceKey {
	return InstanceKey{ID: p.ID, StartTime: p.StartTime}
}

// Snapshot is one full enumeration of trackable processes, in provider order.
type Snapshot []ProcessRecord

// Clone returns an independent copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	if s == nil {
		return nil
	}
	out := make(Snapshot, len(s))
	copy(out, s)
	return out
}

// ByID returns the snapshot indexed by PID.
func (s Snapshot) ByID() map[int]ProcessRecord {
	m := make(map[int]ProcessRecord, len(s))
	for _, p := range s {
		m[p.ID] = p
	}
	return m
}

// SortedByID returns a copy of the snapshot ordered by PID.
func (s Snapshot) SortedByID() Snapshot {
	out := s.Clone()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ChangeSet is the derived difference between two snapshots.
// TitleChangedNew and TitleChangedOld are paired by index.
type ChangeSet struct {
	Added           []ProcessRecord `json:"added,omitempty"`
	Removed         []ProcessRecord `json:"removed,omitempty"`
	TitleChangedNew []ProcessRecord `json:"title_changed_new,omitempty"`
	TitleChangedOld []ProcessRecord `json:"title_changed_old,omitempty"`
}

// Empty reports whether no change was detected.
func (c ChangeSet) Empty() bool {
	return len(c.Added) == 0 && len(c.Removed) == 0 && len(c.TitleChangedNew) == 0
}

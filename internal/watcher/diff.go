package watcher

import "github.com/grovetools/proctrack/pkg/models"

// Diff compares two snapshots by process instance. Added and TitleChanged
// follow the order of current, Removed follows the order of previous.
// Identical content in any order yields an empty change set, and a nil
// previous marks everything added. A PID seen again with another start time
// is a new process: the old record is removed and the new one added.
func Diff(previous, current models.Snapshot) models.ChangeSet {
	var cs models.ChangeSet

	prev := previous.ByID()
	live := make(map[models.InstanceKey]struct{}, len(current))
	for _, p := range current {
		live[p.Key()] = struct{}{}
		old, ok := prev[p.ID]
		switch {
		case !ok || old.StartTime != p.StartTime:
			cs.Added = append(cs.Added, p)
		case old.WindowTitle != p.WindowTitle:
			cs.TitleChangedNew = append(cs.TitleChangedNew, p)
			cs.TitleChangedOld = append(cs.TitleChangedOld, old)
		}
	}

	for _, p := range previous {
		if _, ok := live[p.Key()]; !ok {
			cs.Removed = append(cs.Removed, p)
		}
	}
	return cs
}

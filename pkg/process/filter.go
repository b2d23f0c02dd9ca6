package process

import (
	"strings"

	"github.com/grovetools/proctrack/errors"
	"github.com/grovetools/proctrack/pkg/models"
	"github.com/moby/patternmatcher"
)

// baseDenylist holds system and shell windows that are never worth tracking:
// task manager, the PowerShell host running our own query, the text input
// host, the desktop window manager and the NVIDIA overlay.
var baseDenylist = []string{
	"taskmgr.exe",
	"powershell.exe",
	"textinputhost.exe",
	"dwm.exe",
	"nvidia share.exe",
}

// ExclusionFilter drops processes that must never appear in a snapshot.
// Executable names are compared case-insensitively against glob patterns.
type ExclusionFilter struct {
	matcher *patternmatcher.PatternMatcher
	selfPID int
}

// NewExclusionFilter compiles the denylist and any extra patterns.
func NewExclusionFilter(denylist, extra []string) (*ExclusionFilter, error) {
	patterns := make([]string, 0, len(denylist)+len(extra))
	for _, p := range denylist {
		patterns = append(patterns, strings.ToLower(p))
	}
	for _, p := range extra {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		patterns = append(patterns, strings.ToLower(p))
	}

	pm, err := patternmatcher.New(patterns)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigValidation, "invalid exclude pattern").
			WithDetail("patterns", extra)
	}
	return &ExclusionFilter{matcher: pm}, nil
}

// ExcludeSelf drops the tracker's own process.
func (f *ExclusionFilter) ExcludeSelf(pid int) {
	f.selfPID = pid
}

// Excluded reports whether the record must be dropped.
func (f *ExclusionFilter) Excluded(p models.ProcessRecord) bool {
	if f.selfPID != 0 && p.ID == f.selfPID {
		return true
	}
	name := strings.ToLower(p.Executable)
	if name == "" {
		return false
	}
	matched, err := f.matcher.MatchesOrParentMatches(name)
	if err != nil {
		return false
	}
	return matched
}

// Apply returns the records that pass the filter, preserving order.
func (f *ExclusionFilter) Apply(snapshot models.Snapshot) models.Snapshot {
	out := make(models.Snapshot, 0, len(snapshot))
	for _, p := range snapshot {
		if !f.Excluded(p) {
			out = append(out, p)
		}
	}
	return out
}

// defaultDenylist returns the base denylist plus platform-specific entries.
func defaultDenylist() []string {
	list := make([]string, 0, len(baseDenylist)+len(platformDenylist))
	list = append(list, baseDenylist...)
	return append(list, platformDenylist...)
}

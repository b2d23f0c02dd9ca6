package stats

import (
	"sort"

	"github.com/grovetools/proctrack/pkg/models"
)

// Interval is a half-open [Start, End) span in epoch ms.
type Interval struct {
	Start int64
	End   int64
}

// Union returns the covered length of intervals, processed in the given
// (insertion) order. Each interval only adds the part not already covered.
// An interval that starts before one already seen means sessions were not
// recorded chronologically; the total is still the exact union, but the
// result carries an anomaly so callers can warn about it: undercount when the
// late interval overlaps earlier ones, overcount when it is disjoint.
func Union(intervals []Interval) (int64, models.OverlapAnomaly) {
	var (
		merged   []Interval
		total    int64
		maxStart int64
		seen     bool
		anomaly  = models.OverlapNone
	)

	for _, iv := range intervals {
		if iv.End < iv.Start {
			iv.End = iv.Start
		}

		covered := coveredBy(merged, iv)
		total += (iv.End - iv.Start) - covered

		if seen && iv.Start < maxStart {
			if covered > 0 {
				anomaly = models.OverlapUndercount
			} else if anomaly == models.OverlapNone {
				anomaly = models.OverlapOvercount
			}
		}
		if !seen || iv.Start > maxStart {
			maxStart = iv.Start
		}
		seen = true

		merged = insertMerged(merged, iv)
	}
	return total, anomaly
}

// coveredBy returns how much of iv is already covered by merged, which is
// sorted and non-overlapping.
func coveredBy(merged []Interval, iv Interval) int64 {
	var covered int64
	for _, m := range merged {
		if m.Start >= iv.End {
			break
		}
		lo, hi := max(m.Start, iv.Start), min(m.End, iv.End)
		if hi > lo {
			covered += hi - lo
		}
	}
	return covered
}

func insertMerged(merged []Interval, iv Interval) []Interval {
	merged = append(merged, iv)
	sort.Slice(merged, func(i, j int) bool { return merged[i].Start < merged[j].Start })

	out := merged[:0]
	for _, m := range merged {
		if n := len(out); n > 0 && m.Start <= out[n-1].End {
			if m.End > out[n-1].End {
				out[n-1].End = m.End
			}
			continue
		}
		out = append(out, m)
	}
	return out
}

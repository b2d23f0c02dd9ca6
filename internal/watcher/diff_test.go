package watcher

import (
	"testing"

	"github.com/grovetools/proctrack/pkg/models"
	"github.com/stretchr/testify/assert"
)

func rec(id int, exe, title string) models.ProcessRecord {
	return models.ProcessRecord{ID: id, Executable: exe, WindowTitle: title, StartTime: int64(1000 + id)}
}

func TestDiff(t *testing.T) {
	tests := []struct {
		name       string
		previous   models.Snapshot
		current    models.Snapshot
		added      []int
		removed    []int
		changedNew []string
		changedOld []string
	}{
		{
			name:    "first poll marks everything added",
			current: models.Snapshot{rec(1, "a", "A"), rec(2, "b", "B")},
			added:   []int{1, 2},
		},
		{
			name:     "same content in another order",
			previous: models.Snapshot{rec(1, "a", "A"), rec(2, "b", "B"), rec(3, "c", "C")},
			current:  models.Snapshot{rec(3, "c", "C"), rec(1, "a", "A"), rec(2, "b", "B")},
		},
		{
			name:       "added removed and changed",
			previous:   models.Snapshot{rec(1, "a", "A"), rec(2, "b", "B")},
			current:    models.Snapshot{rec(2, "b", "B2"), rec(3, "c", "C")},
			added:      []int{3},
			removed:    []int{1},
			changedNew: []string{"B2"},
			changedOld: []string{"B"},
		},
		{
			name:     "everything removed",
			previous: models.Snapshot{rec(1, "a", "A")},
			current:  models.Snapshot{},
			removed:  []int{1},
		},
		{
			name:       "empty title transitions count as a change",
			previous:   models.Snapshot{rec(1, "a", "")},
			current:    models.Snapshot{rec(1, "a", "Ready")},
			changedNew: []string{"Ready"},
			changedOld: []string{""},
		},
		{
			name:     "reused pid is removed and added",
			previous: models.Snapshot{rec(1, "a", "A"), rec(10, "foo.exe", "Foo")},
			current: models.Snapshot{
				rec(1, "a", "A"),
				{ID: 10, Executable: "foo.exe", WindowTitle: "Foo", StartTime: 2000},
			},
			added:   []int{10},
			removed: []int{10},
		},
		{
			name:     "reused pid with another title is not a title change",
			previous: models.Snapshot{rec(10, "foo.exe", "Foo")},
			current:  models.Snapshot{{ID: 10, Executable: "bar.exe", WindowTitle: "Bar", StartTime: 2000}},
			added:    []int{10},
			removed:  []int{10},
		},
	}

	ids := func(records []models.ProcessRecord) []int {
		var out []int
		for _, r := range records {
			out = append(out, r.ID)
		}
		return out
	}
	titles := func(records []models.ProcessRecord) []string {
		var out []string
		for _, r := range records {
			out = append(out, r.WindowTitle)
		}
		return out
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cs := Diff(tt.previous, tt.current)
			assert.Equal(t, tt.added, ids(cs.Added))
			assert.Equal(t, tt.removed, ids(cs.Removed))
			assert.Equal(t, tt.changedNew, titles(cs.TitleChangedNew))
			assert.Equal(t, tt.changedOld, titles(cs.TitleChangedOld))
			assert.Len(t, cs.TitleChangedOld, len(cs.TitleChangedNew))
		})
	}
}

func TestDiffIdempotent(t *testing.T) {
	s := models.Snapshot{rec(5, "e", "E"), rec(1, "a", "A"), rec(9, "i", "I")}
	assert.True(t, Diff(s, s).Empty())
	assert.True(t, Diff(s, s.SortedByID()).Empty())
}

func TestDiffPairsByIndex(t *testing.T) {
	previous := models.Snapshot{rec(1, "a", "one"), rec(2, "b", "two"), rec(3, "c", "three")}
	current := models.Snapshot{rec(3, "c", "THREE"), rec(1, "a", "ONE")}

	cs := Diff(previous, current)
	for i := range cs.TitleChangedNew {
		assert.Equal(t, cs.TitleChangedNew[i].ID, cs.TitleChangedOld[i].ID)
	}
	assert.Equal(t, []models.ProcessRecord{rec(2, "b", "two")}, cs.Removed)
}

func TestDiffReusedPIDKeepsBothInstances(t *testing.T) {
	first := models.ProcessRecord{ID: 10, Executable: "foo.exe", WindowTitle: "Foo", StartTime: 1000}
	second := first
	second.StartTime = 2000

	cs := Diff(models.Snapshot{first}, models.Snapshot{second})
	assert.Equal(t, []models.ProcessRecord{second}, cs.Added)
	assert.Equal(t, []models.ProcessRecord{first}, cs.Removed)
	assert.Empty(t, cs.TitleChangedNew)
}

package process

import (
	"testing"

	"github.com/grovetools/proctrack/errors"
	"github.com/grovetools/proctrack/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExclusionFilter(t *testing.T) {
	filter, err := NewExclusionFilter(baseDenylist, []string{"steam*.exe", "  "})
	require.NoError(t, err)
	filter.ExcludeSelf(4242)

	tests := []struct {
		name     string
		record   models.ProcessRecord
		excluded bool
	}{
		{"denylisted", models.ProcessRecord{ID: 1, Executable: "dwm.exe"}, true},
		{"denylisted any case", models.ProcessRecord{ID: 2, Executable: "TaskMgr.EXE"}, true},
		{"name with space", models.ProcessRecord{ID: 3, Executable: "NVIDIA Share.exe"}, true},
		{"extra glob", models.ProcessRecord{ID: 4, Executable: "steamwebhelper.exe"}, true},
		{"self pid", models.ProcessRecord{ID: 4242, Executable: "proctrack"}, true},
		{"regular app", models.ProcessRecord{ID: 5, Executable: "firefox"}, false},
		{"empty executable", models.ProcessRecord{ID: 6}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.excluded, filter.Excluded(tt.record))
		})
	}
}

func TestExclusionFilterApplyKeepsOrder(t *testing.T) {
	filter, err := NewExclusionFilter(baseDenylist, nil)
	require.NoError(t, err)

	in := models.Snapshot{
		{ID: 3, Executable: "code"},
		{ID: 1, Executable: "dwm.exe"},
		{ID: 2, Executable: "firefox"},
	}
	out := filter.Apply(in)

	require.Len(t, out, 2)
	assert.Equal(t, 3, out[0].ID)
	assert.Equal(t, 2, out[1].ID)
}

func TestExclusionFilterInvalidPattern(t *testing.T) {
	_, err := NewExclusionFilter(nil, []string{"[unclosed"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeConfigValidation))
}

package pathutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpand(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	t.Setenv("PROCTRACK_TEST_DIR", "/var/lib/proctrack")

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"home", "~", home},
		{"home prefix", "~/data/proctrack.db", filepath.Join(home, "data", "proctrack.db")},
		{"env var", "$PROCTRACK_TEST_DIR/proctrack.db", "/var/lib/proctrack/proctrack.db"},
		{"absolute", "/tmp/x.db", "/tmp/x.db"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Expand(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

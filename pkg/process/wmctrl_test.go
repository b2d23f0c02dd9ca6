package process

import (
	"context"
	"fmt"
	"testing"

	"github.com/grovetools/proctrack/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleWmctrl = `0x01e00003 -1 2201   desk  xfce4-panel
0x03a00007  0 3112   desk  main.go - proctrack -  Visual Studio Code
0x03a0000b  0 3112   desk  Second window
0x04400003  1 0      desk  Ghost
0x04800003  1 4100   desk  Mozilla Firefox
0x04900003  1 5000   desk  Gone
`

func TestParseWmctrl(t *testing.T) {
	entries, err := ParseWmctrl(sampleWmctrl)
	require.NoError(t, err)
	require.Len(t, entries, 6)

	assert.Equal(t, "0x01e00003", entries[0].WindowID)
	assert.Equal(t, -1, entries[0].Desktop)
	assert.Equal(t, 3112, entries[1].PID)
	assert.Equal(t, "desk", entries[1].Host)
	assert.Equal(t, "main.go - proctrack -  Visual Studio Code", entries[1].Title)
}

func TestParseWmctrlEdgeCases(t *testing.T) {
	t.Run("empty title", func(t *testing.T) {
		entries, err := ParseWmctrl("0x1 0 12 host\n")
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "", entries[0].Title)
	})

	t.Run("blank lines ignored", func(t *testing.T) {
		entries, err := ParseWmctrl("\n\n0x1 0 12 host Title\n\n")
		require.NoError(t, err)
		assert.Len(t, entries, 1)
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := ParseWmctrl("0x1 0\n")
		assert.Error(t, err)
	})

	t.Run("non numeric pid", func(t *testing.T) {
		_, err := ParseWmctrl("0x1 0 abc host Title\n")
		assert.Error(t, err)
	})
}

func TestWmctrlProviderPoll(t *testing.T) {
	filter, err := NewExclusionFilter(baseDenylist, nil)
	require.NoError(t, err)

	p := newWmctrlProvider(filter, logrus.NewEntry(logrus.New()))
	p.run = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		assert.Equal(t, "wmctrl", name)
		assert.Equal(t, []string{"-lp"}, args)
		return []byte(sampleWmctrl), nil
	}
	lookups := map[int]int{}
	p.procInfo = func(ctx context.Context, pid int) (string, int64, error) {
		lookups[pid]++
		switch pid {
		case 3112:
			return "code", 1700000000, nil
		case 4100:
			return "firefox", 1700000100, nil
		default:
			return "", 0, fmt.Errorf("process %d not found", pid)
		}
	}

	snapshot, err := p.Poll(context.Background())
	require.NoError(t, err)
	require.Len(t, snapshot, 2)

	assert.Equal(t, 3112, snapshot[0].ID)
	assert.Equal(t, "code", snapshot[0].Executable)
	assert.Equal(t, "main.go - proctrack -  Visual Studio Code", snapshot[0].WindowTitle, "first window wins")
	assert.Equal(t, int64(1700000000), snapshot[0].StartTime)
	assert.Equal(t, "firefox", snapshot[1].Executable)

	assert.Equal(t, 1, lookups[3112], "one lookup per pid")
	assert.Zero(t, lookups[2201], "sticky windows are skipped before lookup")
	assert.Zero(t, lookups[0])
}

func TestWmctrlProviderCommandFailure(t *testing.T) {
	filter, err := NewExclusionFilter(nil, nil)
	require.NoError(t, err)

	p := newWmctrlProvider(filter, logrus.NewEntry(logrus.New()))
	p.run = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return nil, errors.CollectionFailed(name, fmt.Errorf("cannot open display"))
	}

	_, err = p.Poll(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeCollectionFailed))
	assert.False(t, errors.IsFatal(err))
}

func TestWmctrlPreflightMissing(t *testing.T) {
	p := newWmctrlProvider(nil, logrus.NewEntry(logrus.New()))
	p.lookPath = func(string) (string, error) { return "", fmt.Errorf("executable file not found in $PATH") }

	err := p.Preflight()
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeMissingDependency))

	p.lookPath = func(string) (string, error) { return "/usr/bin/wmctrl", nil }
	assert.NoError(t, p.Preflight())
}

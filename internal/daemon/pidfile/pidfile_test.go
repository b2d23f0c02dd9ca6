package pidfile

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/grovetools/proctrack/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireAndRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run", "proctrack.pid")

	require.NoError(t, Acquire(path))

	pid, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)

	running, runningPID, err := IsRunning(path)
	require.NoError(t, err)
	assert.True(t, running)
	assert.Equal(t, os.Getpid(), runningPID)

	// Re-acquiring from the same process replaces the file.
	require.NoError(t, Acquire(path))

	require.NoError(t, Release(path))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestIsRunningMissingFile(t *testing.T) {
	running, pid, err := IsRunning(filepath.Join(t.TempDir(), "missing.pid"))
	require.NoError(t, err)
	assert.False(t, running)
	assert.Zero(t, pid)
}

func TestReadInvalidContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.pid")
	require.NoError(t, os.WriteFile(path, []byte("not-a-pid"), 0644))

	_, err := Read(path)
	assert.Error(t, err)

	_, _, err = IsRunning(path)
	assert.Error(t, err)
}

func TestAcquireReplacesStaleFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stale.pid")
	// PIDs this large are never allocated on the platforms we support.
	require.NoError(t, os.WriteFile(path, []byte(strconv.Itoa(1<<30)), 0644))

	require.NoError(t, Acquire(path))
	pid, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)
}

func TestAcquireRefusesLiveProcess(t *testing.T) {
	path := filepath.Join(t.TempDir(), "live.pid")
	// The test binary's parent outlives the test.
	require.NoError(t, os.WriteFile(path, []byte(strconv.Itoa(os.Getppid())), 0o644))

	err := Acquire(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeConflict))

	// Release leaves a file owned by another process alone.
	require.NoError(t, Release(path))
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestReleaseMissingFile(t *testing.T) {
	assert.NoError(t, Release(filepath.Join(t.TempDir(), "gone.pid")))
}

func TestTerminateWithoutDaemon(t *testing.T) {
	_, err := Terminate(filepath.Join(t.TempDir(), "none.pid"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeDaemonNotRunning))
}

// Package pidfile records the PID of the running proctrack daemon so a second
// start is refused and "daemon stop" can find the process.
package pidfile

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"syscall"

	"github.com/grovetools/proctrack/errors"
	"github.com/grovetools/proctrack/pkg/process"
)

// Acquire writes the current PID to path. A file naming another live
// process fails with CONFLICT; a stale or unreadable file is replaced.
func Acquire(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create pid directory: %w", err)
	}

	if pid, err := Read(path); err == nil && pid != os.Getpid() && process.IsProcessAlive(pid) {
		return errors.DaemonRunning(pid).WithDetail("pidFile", path)
	}

	data := []byte(strconv.Itoa(os.Getpid()) + "\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write pid file: %w", err)
	}
	return nil
}

// Release removes the PID file if it still names this process.
func Release(path string) error {
	pid, err := Read(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return os.Remove(path)
	}
	if pid != os.Getpid() {
		return nil
	}
	return os.Remove(path)
}

// Read returns the PID stored in path.
func Read(path string) (int, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(content)))
}

// IsRunning reports whether the daemon named by the pidfile is alive. A
// missing file means not running.
func IsRunning(path string) (bool, int, error) {
	pid, err := Read(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, 0, nil
		}
		return false, 0, err
	}
	return process.IsProcessAlive(pid), pid, nil
}

// Terminate asks the daemon recorded in the pidfile to shut down and
// returns its PID. Windows cannot deliver SIGTERM, so the process is killed
// there instead.
func Terminate(path string) (int, error) {
	running, pid, err := IsRunning(path)
	if err != nil {
		return 0, err
	}
	if !running {
		return 0, errors.New(errors.ErrCodeDaemonNotRunning, "proctrack daemon is not running").
			WithDetail("pidFile", path)
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return pid, err
	}
	if runtime.GOOS == "windows" {
		return pid, proc.Kill()
	}
	return pid, proc.Signal(syscall.SIGTERM)
}

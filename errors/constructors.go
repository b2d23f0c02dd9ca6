package errors

import (
	"fmt"
	"os/exec"
)

// PlatformUnsupported creates an error for an OS without a process provider
func PlatformUnsupported(goos string) *ProcTrackError {
	return New(ErrCodePlatformUnsupported, fmt.Sprintf("process tracking is not supported on %s", goos)).
		WithDetail("platform", goos)
}

// MissingDependency creates an error for a required helper utility that is not installed
func MissingDependency(tool, hint string) *ProcTrackError {
	err := New(ErrCodeMissingDependency, fmt.Sprintf("required helper '%s' was not found in PATH", tool)).
		WithDetail("tool", tool)
	if hint != "" {
		err = err.WithDetail("hint", hint)
	}
	return err
}

// CollectionFailed creates a transient process enumeration error
func CollectionFailed(cmd string, err error) *ProcTrackError {
	ptErr := Wrap(err, ErrCodeCollectionFailed, fmt.Sprintf("process query failed: %s", cmd)).
		WithDetail("command", cmd)

	if exitErr, ok := err.(*exec.ExitError); ok {
		ptErr = ptErr.WithDetail("exitCode", exitErr.ExitCode())
	}

	return ptErr
}

// InvalidPattern creates an error for a regex rule that does not compile
func InvalidPattern(ruleID int64, pattern string, err error) *ProcTrackError {
	return Wrap(err, ErrCodeInvalidPattern, fmt.Sprintf("invalid pattern %q", pattern)).
		WithDetail("ruleId", ruleID).
		WithDetail("pattern", pattern)
}

// PersistenceFailed creates a storage write or read error
func PersistenceFailed(op string, err error) *ProcTrackError {
	return Wrap(err, ErrCodePersistenceFailed, fmt.Sprintf("database operation failed: %s", op)).
		WithDetail("operation", op)
}

// ConfigNotFound creates a configuration not found error
func ConfigNotFound(path string) *ProcTrackError {
	return New(ErrCodeConfigNotFound, fmt.Sprintf("configuration file not found: %s", path)).
		WithDetail("path", path)
}

// ConfigInvalid creates an invalid configuration error
func ConfigInvalid(reason string) *ProcTrackError {
	return New(ErrCodeConfigInvalid, fmt.Sprintf("invalid configuration: %s", reason))
}

// NotFound creates an error for a missing group, rule or session
func NotFound(kind string, id interface{}) *ProcTrackError {
	return New(ErrCodeNotFound, fmt.Sprintf("%s '%v' not found", kind, id)).
		WithDetail("kind", kind).
		WithDetail("id", id)
}

// Conflict creates an error for a uniqueness violation
func Conflict(kind, key string) *ProcTrackError {
	return New(ErrCodeConflict, fmt.Sprintf("%s '%s' already exists", kind, key)).
		WithDetail("kind", kind).
		WithDetail("key", key)
}

// DaemonNotRunning creates an error for commands that need the daemon
func DaemonNotRunning(socketPath string) *ProcTrackError {
	return New(ErrCodeDaemonNotRunning, "proctrack daemon is not running").
		WithDetail("socket", socketPath)
}

// DaemonRunning creates an error for a second daemon start
func DaemonRunning(pid int) *ProcTrackError {
	return New(ErrCodeConflict, fmt.Sprintf("daemon already running with PID %d", pid)).
		WithDetail("kind", "daemon").
		WithDetail("pid", pid)
}

// Package paths provides XDG-compliant path resolution for proctrack.
//
// Resolution order:
// 1. PROCTRACK_HOME (portable root) → $PROCTRACK_HOME/{config,state,run}
// 2. XDG env vars → $XDG_*_HOME/proctrack
// 3. Platform defaults → ~/.config/proctrack, ~/.local/state/proctrack
package paths

import (
	"os"
	"path/filepath"
)

const appName = "proctrack"

// getConfigHome returns the base config home directory.
func getConfigHome() string {
	if home := os.Getenv("PROCTRACK_HOME"); home != "" {
		return filepath.Join(home, "config")
	}
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return xdgConfigHome
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".config")
	}
	return ""
}

// getStateHome returns the base state home directory.
func getStateHome() string {
	if home := os.Getenv("PROCTRACK_HOME"); home != "" {
		return filepath.Join(home, "state")
	}
	if xdgStateHome := os.Getenv("XDG_STATE_HOME"); xdgStateHome != "" {
		return xdgStateHome
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".local", "state")
	}
	return ""
}

// ConfigDir returns the proctrack configuration directory.
// Used for proctrack.yml / proctrack.toml.
func ConfigDir() string {
	base := getConfigHome()
	if base == "" {
		return ""
	}
	return filepath.Join(base, appName)
}

// StateDir returns the proctrack state directory.
// Used for the database, settings, logs and the pid file.
func StateDir() string {
	base := getStateHome()
	if base == "" {
		return ""
	}
	return filepath.Join(base, appName)
}

// RuntimeDir returns the directory for the daemon socket.
// Uses XDG_RUNTIME_DIR when available (Linux), falls back to StateDir.
func RuntimeDir() string {
	if home := os.Getenv("PROCTRACK_HOME"); home != "" {
		return filepath.Join(home, "run")
	}
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, appName)
	}
	return StateDir()
}

// LogDir returns the directory for daemon log files.
func LogDir() string {
	return filepath.Join(StateDir(), "logs")
}

// SocketPath returns the path to the daemon unix socket.
func SocketPath() string {
	return filepath.Join(RuntimeDir(), "proctrackd.sock")
}

// PidFilePath returns the path to the daemon PID file.
func PidFilePath() string {
	return filepath.Join(StateDir(), "proctrackd.pid")
}

// DatabasePath returns the default SQLite database location.
func DatabasePath() string {
	return filepath.Join(StateDir(), "proctrack.db")
}

// SettingsPath returns the runtime settings file shared by the CLI and the daemon.
func SettingsPath() string {
	return filepath.Join(StateDir(), "settings.yml")
}

// EnsureDirs creates all proctrack directories if they don't exist.
func EnsureDirs() error {
	dirs := []string{
		ConfigDir(),
		StateDir(),
		LogDir(),
		RuntimeDir(),
	}

	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}

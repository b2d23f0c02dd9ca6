package process

import (
	gops "github.com/shirou/gopsutil/v3/process"
)

// IsProcessAlive checks if a process with the given PID is still running.
func IsProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	alive, err := gops.PidExists(int32(pid))
	return err == nil && alive
}

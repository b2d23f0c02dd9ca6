// Package version exposes the build metadata stamped into proctrack binaries.
package version

import (
	"fmt"
	"runtime"
)

// Set with -ldflags "-X github.com/grovetools/proctrack/version.Version=..."
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

// Info describes the running binary.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"buildDate"`
	GoVersion string `json:"goVersion"`
	Platform  string `json:"platform"`
}

// GetInfo returns the build metadata of the running binary.
func GetInfo() Info {
	return Info{
		Version:   Version,
		Commit:    Commit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// IsDev reports whether the binary was built without release metadata.
func (i Info) IsDev() bool {
	return i.Version == "dev"
}

// UserAgent identifies CLI requests to the daemon, e.g.
// "proctrack/1.2.0 (linux/amd64)".
func UserAgent() string {
	info := GetInfo()
	return fmt.Sprintf("proctrack/%s (%s)", info.Version, info.Platform)
}

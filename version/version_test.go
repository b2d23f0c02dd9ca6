package version

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetInfo(t *testing.T) {
	orig := Version
	t.Cleanup(func() { Version = orig })

	Version = "1.4.0"
	info := GetInfo()
	assert.Equal(t, "1.4.0", info.Version)
	assert.Equal(t, runtime.GOOS+"/"+runtime.GOARCH, info.Platform)
	assert.False(t, info.IsDev())
	assert.Equal(t, "proctrack/1.4.0 ("+info.Platform+")", UserAgent())

	Version = "dev"
	assert.True(t, GetInfo().IsDev())
}

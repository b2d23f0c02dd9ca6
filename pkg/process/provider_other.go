//go:build !linux && !windows

package process

import (
	"runtime"

	"github.com/grovetools/proctrack/errors"
	"github.com/sirupsen/logrus"
)

var platformDenylist = []string{}

func newPlatformProvider(_ *ExclusionFilter, _ *logrus.Entry) (Provider, error) {
	return nil, errors.PlatformUnsupported(runtime.GOOS)
}

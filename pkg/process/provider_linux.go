//go:build linux

package process

import "github.com/sirupsen/logrus"

var platformDenylist = []string{"wmctrl"}

func newPlatformProvider(filter *ExclusionFilter, logger *logrus.Entry) (Provider, error) {
	return newWmctrlProvider(filter, logger.WithField("provider", "wmctrl")), nil
}

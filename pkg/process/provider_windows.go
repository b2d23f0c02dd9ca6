//go:build windows

package process

import "github.com/sirupsen/logrus"

var platformDenylist = []string{}

func newPlatformProvider(filter *ExclusionFilter, logger *logrus.Entry) (Provider, error) {
	return newPowerShellProvider(filter, logger.WithField("provider", "powershell")), nil
}

package process

import (
	"context"

	gops "github.com/shirou/gopsutil/v3/process"
)

// lookupProcInfo reads the executable name and creation time of pid.
func lookupProcInfo(ctx context.Context, pid int) (string, int64, error) {
	p, err := gops.NewProcessWithContext(ctx, int32(pid))
	if err != nil {
		return "", 0, err
	}
	name, err := p.NameWithContext(ctx)
	if err != nil {
		return "", 0, err
	}
	createdMs, err := p.CreateTimeWithContext(ctx)
	if err != nil {
		return "", 0, err
	}
	return name, createdMs / 1000, nil
}

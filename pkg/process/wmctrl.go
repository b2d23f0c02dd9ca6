package process

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/grovetools/proctrack/errors"
	"github.com/grovetools/proctrack/pkg/models"
	"github.com/sirupsen/logrus"
)

// WindowEntry is one line of `wmctrl -lp` output.
type WindowEntry struct {
	WindowID string
	Desktop  int
	PID      int
	Host     string
	Title    string
}

// procInfoFunc resolves the executable name and start time (epoch seconds) of a PID.
type procInfoFunc func(ctx context.Context, pid int) (name string, startTime int64, err error)

// wmctrlProvider enumerates X11 top-level windows and resolves their owners.
type wmctrlProvider struct {
	run      runFunc
	lookPath lookPathFunc
	procInfo procInfoFunc
	filter   *ExclusionFilter
	logger   *logrus.Entry
}

func newWmctrlProvider(filter *ExclusionFilter, logger *logrus.Entry) *wmctrlProvider {
	return &wmctrlProvider{
		run:      runCommand,
		lookPath: exec.LookPath,
		procInfo: lookupProcInfo,
		filter:   filter,
		logger:   logger,
	}
}

// Preflight verifies that wmctrl is available.
func (p *wmctrlProvider) Preflight() error {
	if _, err := p.lookPath("wmctrl"); err != nil {
		return errors.MissingDependency("wmctrl", "install it with your package manager, e.g. 'sudo apt install wmctrl'")
	}
	return nil
}

// Poll lists windows, keeps the first window per PID and joins process metadata.
func (p *wmctrlProvider) Poll(ctx context.Context) (models.Snapshot, error) {
	out, err := p.run(ctx, "wmctrl", "-lp")
	if err != nil {
		return nil, err
	}
	entries, err := ParseWmctrl(string(out))
	if err != nil {
		return nil, errors.CollectionFailed("wmctrl -lp", err)
	}

	seen := make(map[int]struct{}, len(entries))
	snapshot := make(models.Snapshot, 0, len(entries))
	for _, e := range entries {
		if e.PID <= 0 || e.Desktop < 0 {
			continue
		}
		if _, dup := seen[e.PID]; dup {
			continue
		}
		seen[e.PID] = struct{}{}

		name, start, err := p.procInfo(ctx, e.PID)
		if err != nil {
			// The window owner exited between the two queries.
			p.logger.WithField("pid", e.PID).WithError(err).Debug("Skipping window with vanished owner")
			continue
		}
		snapshot = append(snapshot, models.ProcessRecord{
			ID:          e.PID,
			Executable:  name,
			WindowTitle: e.Title,
			StartTime:   start,
		})
	}
	return p.filter.Apply(snapshot), nil
}

// ParseWmctrl parses `wmctrl -lp` output. Titles may contain any amount of
// whitespace; everything after the host column is rejoined as the title.
func ParseWmctrl(output string) ([]WindowEntry, error) {
	var entries []WindowEntry
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 4 {
			return nil, fmt.Errorf("malformed wmctrl line: %q", line)
		}
		desktop, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, fmt.Errorf("invalid desktop in %q: %w", line, err)
		}
		pid, err := strconv.Atoi(fields[2])
		if err != nil {
			return nil, fmt.Errorf("invalid pid in %q: %w", line, err)
		}
		entries = append(entries, WindowEntry{
			WindowID: fields[0],
			Desktop:  desktop,
			PID:      pid,
			Host:     fields[3],
			Title:    titleAfterFields(line, 4),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// titleAfterFields returns the remainder of line after n whitespace-separated
// fields, keeping the title's inner spacing intact.
func titleAfterFields(line string, n int) string {
	rest := line
	for i := 0; i < n; i++ {
		rest = strings.TrimLeft(rest, " \t")
		idx := strings.IndexAny(rest, " \t")
		if idx < 0 {
			return ""
		}
		rest = rest[idx:]
	}
	return strings.TrimSpace(rest)
}

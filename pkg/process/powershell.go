package process

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/grovetools/proctrack/errors"
	"github.com/grovetools/proctrack/pkg/models"
	"github.com/sirupsen/logrus"
)

// powerShellScript lists processes owning a main window as CSV with the
// columns Id, Executable, WindowTitle and StartTime (local time).
const powerShellScript = `[Console]::OutputEncoding = [System.Text.Encoding]::UTF8; ` +
	`Get-Process | Where-Object {$_.mainWindowTitle} | ` +
	`Select-Object Id, @{l="Executable";e={"$($_.Name).exe"}}, @{l="WindowTitle";e={$_.mainWindowTitle}}, ` +
	`@{l="StartTime";e={Get-Date -Date $_.StartTime -UFormat "%Y-%m-%dT%H:%M:%S"}} | ` +
	`ConvertTo-Csv -NoTypeInformation`

// powerShellTimeLayout matches the -UFormat string above.
const powerShellTimeLayout = "2006-01-02T15:04:05"

// powerShellProvider enumerates windowed processes on Windows.
type powerShellProvider struct {
	run      runFunc
	lookPath lookPathFunc
	filter   *ExclusionFilter
	location *time.Location
	logger   *logrus.Entry
}

func newPowerShellProvider(filter *ExclusionFilter, logger *logrus.Entry) *powerShellProvider {
	return &powerShellProvider{
		run:      runCommand,
		lookPath: exec.LookPath,
		filter:   filter,
		location: time.Local,
		logger:   logger,
	}
}

// Preflight verifies that powershell is available.
func (p *powerShellProvider) Preflight() error {
	if _, err := p.lookPath("powershell"); err != nil {
		return errors.MissingDependency("powershell", "Windows PowerShell 3.0 or newer (WMF 3.0) is required")
	}
	return nil
}

// Poll runs the PowerShell query and parses its CSV output.
func (p *powerShellProvider) Poll(ctx context.Context) (models.Snapshot, error) {
	out, err := p.run(ctx, "powershell", "-NoProfile", "-NonInteractive", "-Command", powerShellScript)
	if err != nil {
		return nil, err
	}
	snapshot, err := ParsePowerShellCSV(string(out), p.location)
	if err != nil {
		return nil, errors.CollectionFailed("powershell", err)
	}
	filtered := p.filter.Apply(snapshot)
	p.logger.WithField("windows", len(snapshot)).WithField("kept", len(filtered)).Trace("Parsed PowerShell snapshot")
	return filtered, nil
}

// ParsePowerShellCSV converts ConvertTo-Csv output into a snapshot. Columns are
// located by header name, so their order does not matter. Leading blank lines
// are skipped.
func ParsePowerShellCSV(output string, loc *time.Location) (models.Snapshot, error) {
	output = strings.ReplaceAll(output, "\r\n", "\n")
	lines := strings.Split(output, "\n")
	for len(lines) > 0 && strings.TrimSpace(lines[0]) == "" {
		lines = lines[1:]
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("no CSV header in output")
	}

	r := csv.NewReader(strings.NewReader(strings.Join(lines, "\n")))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read CSV header: %w", err)
	}
	cols := map[string]int{}
	for i, h := range header {
		cols[normalizeHeader(h)] = i
	}
	for _, required := range []string{"id", "executable", "windowtitle", "starttime"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("CSV header missing column %q", required)
		}
	}

	snapshot := models.Snapshot{}
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read CSV row: %w", err)
		}
		if len(row) < len(header) {
			continue
		}

		id, err := strconv.Atoi(strings.TrimSpace(row[cols["id"]]))
		if err != nil {
			return nil, fmt.Errorf("invalid process id %q: %w", row[cols["id"]], err)
		}

		var start int64
		if raw := strings.TrimSpace(row[cols["starttime"]]); raw != "" {
			t, err := time.ParseInLocation(powerShellTimeLayout, raw, loc)
			if err != nil {
				return nil, fmt.Errorf("invalid start time %q: %w", raw, err)
			}
			start = t.Unix()
		}

		snapshot = append(snapshot, models.ProcessRecord{
			ID:          id,
			Executable:  row[cols["executable"]],
			WindowTitle: row[cols["windowtitle"]],
			StartTime:   start,
		})
	}
	return snapshot, nil
}

// normalizeHeader strips quoting artifacts from a CSV header cell.
func normalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	h = strings.NewReplacer("#", "", `"`, "", " ", "").Replace(h)
	return strings.ToLower(h)
}

package dashboard

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/grovetools/proctrack/internal/daemon/store"
	"github.com/grovetools/proctrack/pkg/models"
	ftable "github.com/grovetools/proctrack/tui/components/table"
	"github.com/grovetools/proctrack/tui/theme"
)

const (
	headerHeight = 4 // status line, blank, two pane titles
	footerHeight = 2
)

// View renders the dashboard.
func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(m.statusLine())
	b.WriteString("\n\n")

	b.WriteString(m.paneTitle("Groups", PaneStatistics))
	b.WriteString("\n")
	b.WriteString(m.groups.View())
	b.WriteString("\n")
	b.WriteString(m.paneTitle(fmt.Sprintf("Processes (%d)", len(m.snapshot)), PaneProcesses))
	b.WriteString("\n")
	b.WriteString(m.processes.View())
	b.WriteString("\n")

	if m.err != nil {
		b.WriteString(m.theme.Error.Render(theme.IconError + " " + m.err.Error()))
		b.WriteString("\n")
	}
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m *Model) statusLine() string {
	t := m.theme
	title := t.Title.Render("proctrack")
	if m.status == nil {
		return title + "  " + t.Muted.Render("loading…")
	}

	var parts []string
	if m.status.Tracking == store.TrackingRunning {
		parts = append(parts, t.Success.Render(theme.IconRunning+" tracking"))
	} else {
		parts = append(parts, t.Warning.Render(theme.IconStopped+" "+m.status.Tracking))
	}
	if m.status.FatalError != "" {
		parts = append(parts, t.Error.Render(m.status.FatalError))
	}
	if m.status.Recording {
		parts = append(parts, t.Error.Render(theme.IconRecord+" recording"))
	} else {
		parts = append(parts, t.Muted.Render("not recording"))
	}
	if m.status.RecurringDelay > 0 {
		parts = append(parts, t.Muted.Render(fmt.Sprintf("%s every %gs", theme.IconTimer, m.status.RecurringDelay)))
	}
	if m.status.LastPoll > 0 {
		parts = append(parts, t.Muted.Render("last poll "+ftable.Timestamp(m.status.LastPoll)))
	}
	if !m.streaming {
		parts = append(parts, t.Muted.Render("(polling)"))
	}
	return title + "  " + strings.Join(parts, t.Muted.Render(" · "))
}

func (m *Model) paneTitle(label string, pane Pane) string {
	if m.pane == pane {
		return m.theme.Highlight.Render(theme.IconArrow + " " + label)
	}
	return m.theme.Bold.Render("  " + label)
}

func groupColumns(width int) []table.Column {
	titles := width - 6 - 20 - 12 - 8 - 10
	if titles < 10 {
		titles = 10
	}
	return []table.Column{
		{Title: "ID", Width: 6},
		{Title: "Group", Width: 20},
		{Title: "Runtime", Width: 12},
		{Title: "Active", Width: 8},
		{Title: "Latest titles", Width: titles},
	}
}

func processColumns(width int) []table.Column {
	title := width - 8 - 24 - 20 - 8
	if title < 10 {
		title = 10
	}
	return []table.Column{
		{Title: "PID", Width: 8},
		{Title: "Executable", Width: 24},
		{Title: "Started", Width: 20},
		{Title: "Window title", Width: title},
	}
}

func groupRows(stats []models.GroupStatistics) []table.Row {
	rows := make([]table.Row, 0, len(stats))
	for _, g := range stats {
		runtime := ftable.Duration(g.GroupRuntime)
		if g.OverlapAnomaly != models.OverlapNone {
			runtime += " " + theme.IconAnomaly
		}
		active := ""
		if g.Active {
			active = theme.IconRunning
		}
		name := g.GroupName
		if g.Filtered {
			name += " " + theme.IconFilter
		}
		rows = append(rows, table.Row{
			strconv.FormatInt(g.GroupID, 10),
			name,
			runtime,
			active,
			strings.Join(g.LatestTitles, " | "),
		})
	}
	return rows
}

func processRows(snapshot models.Snapshot) []table.Row {
	rows := make([]table.Row, 0, len(snapshot))
	for _, p := range snapshot {
		started := "-"
		if p.StartTime > 0 {
			started = ftable.Timestamp(p.StartTime * 1000)
		}
		rows = append(rows, table.Row{
			strconv.Itoa(p.ID),
			p.Executable,
			started,
			p.WindowTitle,
		})
	}
	return rows
}

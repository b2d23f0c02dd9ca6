// Package dashboard is the live terminal view behind `proctrack top`: the
// tracked process list, per-group runtimes and the tracker status.
package dashboard

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/grovetools/proctrack/pkg/daemon"
	"github.com/grovetools/proctrack/pkg/models"
	"github.com/grovetools/proctrack/tui/theme"
)

// Pane identifies the focused table.
type Pane int

const (
	PaneStatistics Pane = iota
	PaneProcesses
)

// Model is the dashboard state.
type Model struct {
	client   daemon.Client
	interval time.Duration
	keys     KeyMap
	help     help.Model
	theme    *theme.Theme

	groups    table.Model
	processes table.Model
	pane      Pane

	status     *daemon.Status
	statistics []models.GroupStatistics
	snapshot   models.Snapshot
	streaming  bool
	err        error
	updatedAt  time.Time

	width  int
	height int
}

// New creates a dashboard reading from client. interval is the refresh
// period used when the daemon cannot stream updates.
func New(client daemon.Client, interval time.Duration) *Model {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	t := theme.DefaultTheme

	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderForeground(t.Colors.Border).
		Foreground(t.Colors.Cyan).
		Bold(true)
	styles.Selected = t.Selected.Bold(true)

	groups := table.New(
		table.WithColumns(groupColumns(80)),
		table.WithFocused(true),
		table.WithStyles(styles),
	)
	processes := table.New(
		table.WithColumns(processColumns(80)),
		table.WithStyles(styles),
	)

	return &Model{
		client:    client,
		interval:  interval,
		keys:      DefaultKeyMap,
		help:      help.New(),
		theme:     t,
		groups:    groups,
		processes: processes,
		pane:      PaneStatistics,
	}
}

// Init starts streaming when the daemon is running and loads a first
// snapshot either way.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.fetch()}
	if m.client.IsRunning() {
		cmds = append(cmds, m.subscribe())
	} else {
		cmds = append(cmds, m.tick())
	}
	return tea.Batch(cmds...)
}

// Pane returns the focused pane.
func (m *Model) Pane() Pane {
	return m.pane
}

// Err returns the last load error, if any.
func (m *Model) Err() error {
	return m.err
}

type (
	// loadedMsg carries one full refresh.
	loadedMsg struct {
		status     *daemon.Status
		statistics []models.GroupStatistics
		snapshot   models.Snapshot
		err        error
	}
	streamMsg struct {
		events <-chan daemon.Event
	}
	eventMsg struct {
		event  daemon.Event
		events <-chan daemon.Event
	}
	streamClosedMsg struct{}
	tickMsg         time.Time
)

// fetch loads status, statistics and the process list.
func (m *Model) fetch() tea.Cmd {
	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		msg := loadedMsg{}
		if msg.status, msg.err = client.Status(ctx); msg.err != nil {
			return msg
		}
		if msg.statistics, msg.err = client.Statistics(ctx, daemon.StatisticsQuery{}); msg.err != nil {
			return msg
		}
		msg.snapshot, msg.err = client.Processes(ctx)
		return msg
	}
}

func (m *Model) subscribe() tea.Cmd {
	client := m.client
	return func() tea.Msg {
		events, err := client.StreamState(context.Background())
		if err != nil {
			return streamClosedMsg{}
		}
		return streamMsg{events: events}
	}
}

func waitForEvent(events <-chan daemon.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return streamClosedMsg{}
		}
		return eventMsg{event: ev, events: events}
	}
}

func (m *Model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

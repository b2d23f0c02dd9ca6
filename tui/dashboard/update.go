package dashboard

import (
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/grovetools/proctrack/internal/daemon/store"
	"github.com/grovetools/proctrack/pkg/daemon"
	"github.com/grovetools/proctrack/pkg/models"
)

// Update handles messages and updates the model accordingly.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.resize()
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			m.resize()
			return m, nil
		case key.Matches(msg, m.keys.NextPane):
			m.togglePane()
			return m, nil
		case key.Matches(msg, m.keys.Refresh):
			return m, m.fetch()
		}
		var cmd tea.Cmd
		if m.pane == PaneStatistics {
			m.groups, cmd = m.groups.Update(msg)
		} else {
			m.processes, cmd = m.processes.Update(msg)
		}
		return m, cmd

	case loadedMsg:
		m.err = msg.err
		if msg.err != nil {
			return m, nil
		}
		m.status = msg.status
		m.setStatistics(msg.statistics)
		m.setSnapshot(msg.snapshot)
		return m, nil

	case streamMsg:
		m.streaming = true
		return m, waitForEvent(msg.events)

	case eventMsg:
		m.applyEvent(msg.event)
		return m, waitForEvent(msg.events)

	case streamClosedMsg:
		// The daemon went away; keep the screen alive by polling.
		m.streaming = false
		return m, m.tick()

	case tickMsg:
		if m.streaming {
			return m, nil
		}
		return m, tea.Batch(m.fetch(), m.tick())
	}
	return m, nil
}

// applyEvent folds one daemon event into the view. Payloads that fail to
// decode are ignored; the next full event replaces them.
func (m *Model) applyEvent(ev daemon.Event) {
	switch ev.Type {
	case daemon.EventInitial:
		var state store.State
		if ev.Decode(&state) == nil {
			status := state.Status
			m.status = &status
			m.setStatistics(state.Statistics)
			m.setSnapshot(state.Processes)
		}
	case daemon.EventListUpdate:
		var list store.ListPayload
		if ev.Decode(&list) == nil {
			m.setSnapshot(list.Snapshot)
			if m.status != nil {
				m.status.ProcessCount = len(list.Snapshot)
				m.status.LastPoll = list.PolledAt
			}
		}
	case daemon.EventStatistics:
		var stats []models.GroupStatistics
		if ev.Decode(&stats) == nil {
			m.setStatistics(stats)
		}
	case daemon.EventStatus:
		var status daemon.Status
		if ev.Decode(&status) == nil {
			m.status = &status
		}
	}
}

func (m *Model) setStatistics(stats []models.GroupStatistics) {
	m.statistics = stats
	m.groups.SetRows(groupRows(stats))
	m.updatedAt = time.Now()
}

func (m *Model) setSnapshot(snapshot models.Snapshot) {
	m.snapshot = snapshot.SortedByID()
	m.processes.SetRows(processRows(m.snapshot))
	m.updatedAt = time.Now()
}

func (m *Model) togglePane() {
	if m.pane == PaneStatistics {
		m.pane = PaneProcesses
		m.groups.Blur()
		m.processes.Focus()
	} else {
		m.pane = PaneStatistics
		m.processes.Blur()
		m.groups.Focus()
	}
}

// resize splits the available height between the two tables.
func (m *Model) resize() {
	if m.width == 0 || m.height == 0 {
		return
	}
	m.groups.SetColumns(groupColumns(m.width))
	m.processes.SetColumns(processColumns(m.width))

	chrome := headerHeight + footerHeight
	if m.help.ShowAll {
		chrome += 2
	}
	avail := m.height - chrome
	if avail < 4 {
		avail = 4
	}
	m.groups.SetHeight(avail / 2)
	m.processes.SetHeight(avail - avail/2)
}

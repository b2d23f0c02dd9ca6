package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/grovetools/proctrack/internal/daemon/store"
	"github.com/grovetools/proctrack/pkg/daemon"
	"github.com/grovetools/proctrack/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	running    bool
	status     *daemon.Status
	statistics []models.GroupStatistics
	snapshot   models.Snapshot
	err        error
}

func (f *fakeClient) Status(ctx context.Context) (*daemon.Status, error) { return f.status, f.err }
func (f *fakeClient) Processes(ctx context.Context) (models.Snapshot, error) {
	return f.snapshot, nil
}
func (f *fakeClient) Statistics(ctx context.Context, q daemon.StatisticsQuery) ([]models.GroupStatistics, error) {
	return f.statistics, nil
}
func (f *fakeClient) StreamState(ctx context.Context) (<-chan daemon.Event, error) {
	return nil, errors.New("no stream")
}
func (f *fakeClient) GetConfig(ctx context.Context) (*daemon.RunningConfig, error) {
	return nil, errors.New("no config")
}
func (f *fakeClient) IsRunning() bool { return f.running }
func (f *fakeClient) Close() error    { return nil }

func newClient() *fakeClient {
	return &fakeClient{
		status: &daemon.Status{Tracking: store.TrackingRunning, Recording: true, RecurringDelay: 1},
		statistics: []models.GroupStatistics{
			{GroupID: 1, GroupName: "editors", GroupRuntime: 725_000, Active: true, LatestTitles: []string{"main.go"}},
		},
		snapshot: models.Snapshot{
			{ID: 20, Executable: "game.exe", WindowTitle: "Game"},
			{ID: 10, Executable: "code.exe", WindowTitle: "main.go"},
		},
	}
}

func event(t *testing.T, typ string, payload interface{}) daemon.Event {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return daemon.Event{Type: typ, Payload: data}
}

func TestFetchPopulatesTables(t *testing.T) {
	m := New(newClient(), time.Second)
	m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})

	msg := m.fetch()()
	m.Update(msg)

	require.NoError(t, m.Err())
	require.Len(t, m.groups.Rows(), 1)
	assert.Equal(t, "editors", m.groups.Rows()[0][1])
	assert.Equal(t, "12m05s", m.groups.Rows()[0][2])

	rows := m.processes.Rows()
	require.Len(t, rows, 2)
	assert.Equal(t, "10", rows[0][0], "processes are listed by PID")

	view := m.View()
	assert.Contains(t, view, "proctrack")
	assert.Contains(t, view, "tracking")
	assert.Contains(t, view, "editors")
	assert.Contains(t, view, "Processes (2)")
}

func TestFetchError(t *testing.T) {
	client := newClient()
	client.err = errors.New("database is locked")
	m := New(client, time.Second)

	m.Update(m.fetch()())
	assert.EqualError(t, m.Err(), "database is locked")
	assert.Contains(t, m.View(), "database is locked")
}

func TestKeys(t *testing.T) {
	m := New(newClient(), time.Second)
	assert.Equal(t, PaneStatistics, m.Pane())

	m.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, PaneProcesses, m.Pane())
	assert.True(t, m.processes.Focused())
	assert.False(t, m.groups.Focused())

	m.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, PaneStatistics, m.Pane())

	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("?")})
	assert.True(t, m.help.ShowAll)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestStreamEvents(t *testing.T) {
	m := New(newClient(), time.Second)
	events := make(chan daemon.Event)

	_, cmd := m.Update(streamMsg{events: events})
	assert.True(t, m.streaming)
	assert.NotNil(t, cmd)

	m.Update(eventMsg{events: events, event: event(t, daemon.EventInitial, store.State{
		Status:    store.Status{Tracking: store.TrackingRunning, ProcessCount: 1},
		Processes: models.Snapshot{{ID: 1, Executable: "a.exe"}},
	})})
	require.NotNil(t, m.status)
	assert.Len(t, m.processes.Rows(), 1)

	m.Update(eventMsg{events: events, event: event(t, daemon.EventListUpdate, store.ListPayload{
		Snapshot: models.Snapshot{{ID: 1}, {ID: 2}},
		PolledAt: 99,
	})})
	assert.Len(t, m.processes.Rows(), 2)
	assert.Equal(t, 2, m.status.ProcessCount)
	assert.Equal(t, int64(99), m.status.LastPoll)

	m.Update(eventMsg{events: events, event: event(t, daemon.EventStatus, store.Status{
		Tracking:   store.TrackingStopped,
		FatalError: "wmctrl missing",
	})})
	assert.Contains(t, m.View(), "wmctrl missing")

	m.Update(eventMsg{events: events, event: event(t, daemon.EventStatistics, []models.GroupStatistics{
		{GroupID: 2, GroupName: "games", Filtered: true},
	})})
	require.Len(t, m.groups.Rows(), 1)
	assert.Contains(t, m.groups.Rows()[0][1], "games")

	_, cmd = m.Update(streamClosedMsg{})
	assert.False(t, m.streaming)
	assert.NotNil(t, cmd)
}

func TestTickIgnoredWhileStreaming(t *testing.T) {
	m := New(newClient(), time.Second)
	m.streaming = true
	_, cmd := m.Update(tickMsg(time.Now()))
	assert.Nil(t, cmd)

	m.streaming = false
	_, cmd = m.Update(tickMsg(time.Now()))
	assert.NotNil(t, cmd)
}

func TestKeyMapHelp(t *testing.T) {
	assert.Len(t, DefaultKeyMap.ShortHelp(), 3)
	total := 0
	for _, col := range DefaultKeyMap.FullHelp() {
		total += len(col)
	}
	assert.Equal(t, 6, total)
}

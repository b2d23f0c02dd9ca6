package server

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/grovetools/proctrack/errors"
	"github.com/grovetools/proctrack/internal/daemon/engine"
	"github.com/grovetools/proctrack/internal/daemon/store"
	"github.com/grovetools/proctrack/pkg/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStatistics struct {
	group  string
	filter models.StatisticsFilter
	err    error
}

func (f *fakeStatistics) Statistics(ctx context.Context, group string, filter models.StatisticsFilter) ([]models.GroupStatistics, error) {
	f.group = group
	f.filter = filter
	if f.err != nil {
		return nil, f.err
	}
	return []models.GroupStatistics{{GroupID: 1, GroupName: "work", GroupRuntime: 1000}}, nil
}

func quietLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func newTestServer(t *testing.T, stats StatisticsProvider) (*httptest.Server, *store.Store) {
	t.Helper()
	st := store.New()
	srv := New(quietLogger())
	srv.SetEngine(engine.New(st, quietLogger()))
	srv.SetStatistics(stats)
	srv.SetRunningConfig(&RunningConfig{PID: 99, RecurringDelay: time.Second})

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, st
}

func getJSON(t *testing.T, url string, target interface{}) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if target != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(target))
	}
	return resp.StatusCode
}

func TestHealth(t *testing.T) {
	ts, _ := newTestServer(t, nil)
	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(body))
}

func TestStateAndProcesses(t *testing.T) {
	ts, st := newTestServer(t, nil)
	snapshot := models.Snapshot{{ID: 5, Executable: "code.exe", WindowTitle: "x", StartTime: 1}}
	st.ApplyUpdate(store.Update{Type: store.UpdateListUpdate, Payload: store.ListPayload{Snapshot: snapshot, PolledAt: 77}})

	var state store.State
	assert.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/state", &state))
	assert.Equal(t, 1, state.Status.ProcessCount)
	assert.Equal(t, int64(77), state.Status.LastPoll)
	assert.Equal(t, store.TrackingStopped, state.Status.Tracking)

	var processes models.Snapshot
	assert.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/processes", &processes))
	assert.Equal(t, snapshot, processes)
}

func TestStatisticsParameters(t *testing.T) {
	stats := &fakeStatistics{}
	ts, _ := newTestServer(t, stats)

	var result []models.GroupStatistics
	code := getJSON(t, ts.URL+"/api/statistics?group=work&query=report&from=10&to=20", &result)
	assert.Equal(t, http.StatusOK, code)
	require.Len(t, result, 1)
	assert.Equal(t, "work", stats.group)
	assert.Equal(t, models.StatisticsFilter{Query: "report", From: 10, To: 20}, stats.filter)
}

func TestStatisticsErrors(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		err      error
		wantCode int
		wantErr  errors.ErrorCode
	}{
		{"bad from", "?from=yesterday", nil, http.StatusBadRequest, errors.ErrCodeInvalidInput},
		{"unknown group", "?group=nope", errors.NotFound("group", "nope"), http.StatusNotFound, errors.ErrCodeNotFound},
		{"store failure", "", errors.PersistenceFailed("list groups", io.ErrUnexpectedEOF), http.StatusInternalServerError, errors.ErrCodePersistenceFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts, _ := newTestServer(t, &fakeStatistics{err: tt.err})
			var body errors.ProcTrackError
			assert.Equal(t, tt.wantCode, getJSON(t, ts.URL+"/api/statistics"+tt.query, &body))
			assert.Equal(t, tt.wantErr, body.Code)
		})
	}
}

func TestStatisticsUnavailable(t *testing.T) {
	ts, _ := newTestServer(t, nil)
	resp, err := http.Get(ts.URL + "/api/statistics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestConfig(t *testing.T) {
	ts, _ := newTestServer(t, nil)
	var cfg RunningConfig
	assert.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/config", &cfg))
	assert.Equal(t, 99, cfg.PID)
	assert.Equal(t, time.Second, cfg.RecurringDelay)
}

func TestStream(t *testing.T) {
	ts, st := newTestServer(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/stream", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	events := make(chan Event, 10)
	go func() {
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			line := scanner.Text()
			if !strings.HasPrefix(line, "data: ") {
				continue
			}
			var ev Event
			if json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev) == nil {
				events <- ev
			}
		}
		close(events)
	}()

	next := func() Event {
		select {
		case ev := <-events:
			return ev
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for event")
			return Event{}
		}
	}

	assert.Equal(t, EventInitial, next().Type)

	st.ApplyUpdate(store.Update{Type: store.UpdateAdded, Source: "tracker", Payload: []models.ProcessRecord{{ID: 3}}})
	ev := next()
	assert.Equal(t, "added", ev.Type)
	assert.Equal(t, "tracker", ev.Source)

	st.BroadcastSettingsReload("settings.yml")
	ev = next()
	assert.Equal(t, "settings_reload", ev.Type)
	assert.Equal(t, "settings.yml", ev.Payload)
}

func TestListenAndServeUnixSocket(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix sockets")
	}
	socket := filepath.Join(t.TempDir(), "d.sock")
	srv := New(quietLogger())
	srv.SetEngine(engine.New(store.New(), quietLogger()))

	done := make(chan error, 1)
	go func() { done <- srv.ListenAndServe(socket) }()

	client := &http.Client{Transport: &http.Transport{
		DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, "unix", socket)
		},
	}}
	require.Eventually(t, func() bool {
		resp, err := client.Get("http://unix/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	require.NoError(t, srv.Shutdown(context.Background()))
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

package collector

import (
	"context"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/grovetools/proctrack/errors"
	"github.com/grovetools/proctrack/internal/daemon/store"
	"github.com/grovetools/proctrack/internal/db"
	"github.com/grovetools/proctrack/internal/recorder"
	"github.com/grovetools/proctrack/internal/stats"
	"github.com/grovetools/proctrack/internal/watcher"
	"github.com/grovetools/proctrack/pkg/models"
	"github.com/grovetools/proctrack/settings"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticProvider struct {
	mu       sync.Mutex
	snapshot models.Snapshot
	err      error
}

func (p *staticProvider) Poll(ctx context.Context) (models.Snapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshot.Clone(), p.err
}

func quietLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func newWatcher(t *testing.T, p *staticProvider) *watcher.Watcher {
	t.Helper()
	w, err := watcher.New(p,
		watcher.WithInitialDelay(time.Millisecond),
		watcher.WithRecurringDelay(10*time.Millisecond),
		watcher.WithLogger(quietLogger()),
	)
	require.NoError(t, err)
	return w
}

// run starts c against st with a consumer applying updates, like the engine.
func run(t *testing.T, st *store.Store, c Collector) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	updates := make(chan store.Update, 100)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case u := <-updates:
				st.ApplyUpdate(u)
			}
		}
	}()
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx, st, updates) }()
	t.Cleanup(cancel)
	return cancel, done
}

func waitFor(t *testing.T, sub chan store.Update, typ store.UpdateType) store.Update {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case u := <-sub:
			if u.Type == typ {
				return u
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s", typ)
			return store.Update{}
		}
	}
}

func TestTrackerCollectorPublishesSnapshot(t *testing.T) {
	provider := &staticProvider{snapshot: models.Snapshot{
		{ID: 10, Executable: "code.exe", WindowTitle: "main.go", StartTime: 1},
	}}
	st := store.New()
	sub := st.Subscribe()

	c := NewTrackerCollector(newWatcher(t, provider), nil, quietLogger())
	assert.Equal(t, "tracker", c.Name())
	cancel, done := run(t, st, c)

	added := waitFor(t, sub, store.UpdateAdded)
	assert.Equal(t, []models.ProcessRecord(provider.snapshot), added.Payload)
	waitFor(t, sub, store.UpdateListUpdate)

	status := st.Status()
	assert.Equal(t, store.TrackingRunning, status.Tracking)
	assert.Equal(t, 1, status.ProcessCount)
	assert.NotZero(t, status.LastPoll)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("collector did not stop")
	}
}

func TestTrackerCollectorReportsFatalError(t *testing.T) {
	provider := &staticProvider{err: errors.MissingDependency("wmctrl", "install wmctrl")}
	st := store.New()
	sub := st.Subscribe()

	c := NewTrackerCollector(newWatcher(t, provider), nil, quietLogger())
	_, done := run(t, st, c)

	select {
	case err := <-done:
		assert.True(t, errors.Is(err, errors.ErrCodeMissingDependency))
	case <-time.After(5 * time.Second):
		t.Fatal("collector did not stop on fatal error")
	}

	for {
		u := waitFor(t, sub, store.UpdateStatus)
		if status := u.Payload.(store.Status); status.FatalError != "" {
			assert.Equal(t, store.TrackingStopped, status.Tracking)
			break
		}
	}
}

func TestTrackerCollectorRecordsBeforeListUpdate(t *testing.T) {
	ctx := context.Background()
	database, err := db.Open(filepath.Join(t.TempDir(), "proctrack.db"), 0)
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	g, err := database.CreateGroup(ctx, "editors")
	require.NoError(t, err)
	_, err = database.AddRule(ctx, g.ID, models.RuleTypeExec, "code.exe")
	require.NoError(t, err)

	provider := &staticProvider{snapshot: models.Snapshot{
		{ID: 10, Executable: "code.exe", WindowTitle: "main.go", StartTime: 1},
	}}
	rec := recorder.New(database, recorder.WithEnabled(true), recorder.WithLogger(quietLogger()))

	st := store.New()
	sub := st.Subscribe()
	run(t, st, NewTrackerCollector(newWatcher(t, provider), rec, quietLogger()))

	waitFor(t, sub, store.UpdateListUpdate)
	open, err := database.OpenSessions(ctx)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, 10, open[0].ProcessID)
}

type fakeSource struct {
	mu     sync.Mutex
	calls  int
	groups []models.Group
}

func (f *fakeSource) ListGroups(ctx context.Context) ([]models.Group, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.groups, nil
}

func (f *fakeSource) ListSessions(ctx context.Context, groupID int64) ([]models.SessionView, error) {
	return nil, nil
}

func (f *fakeSource) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestStatisticsCollectorRecomputesOnListUpdate(t *testing.T) {
	source := &fakeSource{groups: []models.Group{{ID: 1, Name: "work"}}}
	st := store.New()
	sub := st.Subscribe()

	c := NewStatisticsCollector(stats.New(source), nil, time.Hour, quietLogger())
	assert.Equal(t, "statistics", c.Name())
	run(t, st, c)

	u := waitFor(t, sub, store.UpdateStatistics)
	result := u.Payload.([]models.GroupStatistics)
	require.Len(t, result, 1)
	assert.Equal(t, "work", result[0].GroupName)

	before := source.callCount()
	st.ApplyUpdate(store.Update{Type: store.UpdateListUpdate, Payload: store.ListPayload{}})
	waitFor(t, sub, store.UpdateStatistics)
	assert.Greater(t, source.callCount(), before)
}

func TestStatisticsCollectorUsesStoredFilters(t *testing.T) {
	source := &fakeSource{groups: []models.Group{{ID: 1, Name: "work"}}}
	filters := func() map[int64]models.StatisticsFilter {
		return map[int64]models.StatisticsFilter{1: {Query: "report"}}
	}
	st := store.New()
	sub := st.Subscribe()
	run(t, st, NewStatisticsCollector(stats.New(source), filters, time.Hour, quietLogger()))

	u := waitFor(t, sub, store.UpdateStatistics)
	result := u.Payload.([]models.GroupStatistics)
	require.Len(t, result, 1)
	assert.True(t, result[0].Filtered)
}

func TestSettingsCollectorAppliesChanges(t *testing.T) {
	provider := &staticProvider{}
	w := newWatcher(t, provider)
	s := settings.Open(filepath.Join(t.TempDir(), "settings.yml"))

	st := store.New()
	sub := st.Subscribe()
	c := NewSettingsCollector(s, w, nil, time.Second, quietLogger())
	assert.Equal(t, "settings", c.Name())
	run(t, st, c)

	u := waitFor(t, sub, store.UpdateStatus)
	assert.Equal(t, 1.0, u.Payload.(store.Status).RecurringDelay)
	assert.Equal(t, time.Second, w.RecurringDelay())

	require.NoError(t, s.Set(settings.KeyRecurringDelay, 2.5))
	u = waitFor(t, sub, store.UpdateStatus)
	assert.Equal(t, 2.5, u.Payload.(store.Status).RecurringDelay)
	assert.Equal(t, 2500*time.Millisecond, w.RecurringDelay())
}

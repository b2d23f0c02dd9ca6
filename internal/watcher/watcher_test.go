package watcher

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/grovetools/proctrack/errors"
	"github.com/grovetools/proctrack/pkg/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scheduledWait struct {
	d    time.Duration
	fire chan time.Time
}

// fakeClock hands every requested wait to the test, which fires it explicitly.
type fakeClock struct {
	waits chan scheduledWait
}

func newFakeClock() *fakeClock {
	return &fakeClock{waits: make(chan scheduledWait, 16)}
}

func (c *fakeClock) Now() time.Time { return time.Unix(1700000000, 0) }

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	c.waits <- scheduledWait{d: d, fire: ch}
	return ch
}

func (c *fakeClock) next(t *testing.T) scheduledWait {
	t.Helper()
	select {
	case w := <-c.waits:
		return w
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not schedule a wait")
		return scheduledWait{}
	}
}

func (w scheduledWait) tick() { w.fire <- time.Now() }

type pollResult struct {
	snapshot models.Snapshot
	err      error
}

type fakeProvider struct {
	mu           sync.Mutex
	results      []pollResult
	calls        int
	block        bool
	preflightErr error
}

func (p *fakeProvider) Poll(ctx context.Context) (models.Snapshot, error) {
	p.mu.Lock()
	p.calls++
	block := p.block
	var r pollResult
	if len(p.results) > 0 {
		r = p.results[0]
		if len(p.results) > 1 {
			p.results = p.results[1:]
		}
	}
	p.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, errors.CollectionFailed("fake", ctx.Err())
	}
	return r.snapshot, r.err
}

func (p *fakeProvider) Preflight() error { return p.preflightErr }

func (p *fakeProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(e string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) take() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.events
	r.events = nil
	return out
}

func (r *recorder) subscriber(prefix string) Subscriber {
	return SubscriberFuncs{
		Added: func(p []models.ProcessRecord) {
			r.add(fmt.Sprintf("%sadded:%d", prefix, len(p)))
		},
		Removed: func(p []models.ProcessRecord) {
			r.add(fmt.Sprintf("%sremoved:%d", prefix, len(p)))
		},
		TitleChanged: func(n, o []models.ProcessRecord) {
			r.add(fmt.Sprintf("%stitle:%s<-%s", prefix, n[0].WindowTitle, o[0].WindowTitle))
		},
		ListUpdate: func(s models.Snapshot) {
			r.add(fmt.Sprintf("%slist:%d", prefix, len(s)))
		},
	}
}

func quietLogger() *logrus.Entry {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return logrus.NewEntry(l)
}

func startWatcher(t *testing.T, w *Watcher) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		w.Stop()
	})
	return cancel, done
}

func waitDone(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
		return nil
	}
}

func TestWatcherEventOrder(t *testing.T) {
	provider := &fakeProvider{results: []pollResult{
		{snapshot: models.Snapshot{rec(1, "a", "A"), rec(2, "b", "B")}},
		{snapshot: models.Snapshot{rec(2, "b", "B2"), rec(3, "c", "C")}},
		{snapshot: models.Snapshot{rec(3, "c", "C"), rec(2, "b", "B2")}},
	}}
	clk := newFakeClock()
	w, err := New(provider, WithClock(clk), WithLogger(quietLogger()))
	require.NoError(t, err)

	events := &recorder{}
	w.Subscribe(events.subscriber("1."))
	w.Subscribe(events.subscriber("2."))

	startWatcher(t, w)

	clk.next(t).tick()
	second := clk.next(t)
	assert.Equal(t, []string{"1.added:2", "2.added:2", "1.list:2", "2.list:2"}, events.take())

	second.tick()
	third := clk.next(t)
	assert.Equal(t, []string{
		"1.added:1", "2.added:1",
		"1.removed:1", "2.removed:1",
		"1.title:B2<-B", "2.title:B2<-B",
		"1.list:2", "2.list:2",
	}, events.take())

	third.tick()
	clk.next(t)
	assert.Equal(t, []string{"1.list:2", "2.list:2"}, events.take(), "unchanged content only publishes listUpdate")
	assert.Equal(t, StatePolling, w.State())
	assert.Len(t, w.Current(), 2)
	assert.False(t, w.LastPoll().IsZero())
}

func TestWatcherRecurringDelayChange(t *testing.T) {
	provider := &fakeProvider{results: []pollResult{{snapshot: models.Snapshot{}}}}
	clk := newFakeClock()
	w, err := New(provider,
		WithClock(clk),
		WithLogger(quietLogger()),
		WithInitialDelay(10*time.Millisecond),
		WithRecurringDelay(time.Second),
	)
	require.NoError(t, err)
	startWatcher(t, w)

	first := clk.next(t)
	assert.Equal(t, 10*time.Millisecond, first.d)
	first.tick()

	inFlight := clk.next(t)
	assert.Equal(t, time.Second, inFlight.d)

	w.SetRecurringDelay(500 * time.Millisecond)
	inFlight.tick()

	after := clk.next(t)
	assert.Equal(t, 500*time.Millisecond, after.d)
	assert.Equal(t, 500*time.Millisecond, w.RecurringDelay())
}

func TestWatcherTransientErrorIsRetried(t *testing.T) {
	provider := &fakeProvider{results: []pollResult{
		{snapshot: models.Snapshot{rec(1, "a", "A")}},
		{err: errors.CollectionFailed("fake", fmt.Errorf("boom"))},
		{snapshot: models.Snapshot{rec(1, "a", "A")}},
	}}
	clk := newFakeClock()
	w, err := New(provider, WithClock(clk), WithLogger(quietLogger()))
	require.NoError(t, err)

	events := &recorder{}
	w.Subscribe(events.subscriber(""))
	startWatcher(t, w)

	clk.next(t).tick()
	second := clk.next(t)
	assert.Equal(t, []string{"added:1", "list:1"}, events.take())

	second.tick()
	third := clk.next(t)
	assert.Empty(t, events.take(), "failed poll publishes nothing")
	assert.Equal(t, StatePolling, w.State())

	third.tick()
	clk.next(t)
	assert.Equal(t, []string{"list:1"}, events.take(), "diff resumes against the last good snapshot")
}

func TestWatcherFatalErrorStops(t *testing.T) {
	fatal := errors.MissingDependency("wmctrl", "")
	provider := &fakeProvider{results: []pollResult{{err: fatal}}}
	clk := newFakeClock()
	w, err := New(provider, WithClock(clk), WithLogger(quietLogger()), WithPreflight(false))
	require.NoError(t, err)

	_, done := startWatcher(t, w)
	clk.next(t).tick()

	err = waitDone(t, done)
	require.Error(t, err)
	assert.True(t, errors.IsFatal(err))
	assert.Equal(t, StateStopped, w.State())
	assert.Equal(t, err, w.Err())

	assert.Equal(t, err, w.Run(context.Background()), "Run after a fatal stop returns the same error")
}

func TestWatcherPreflightMissingDependency(t *testing.T) {
	provider := &fakeProvider{preflightErr: errors.MissingDependency("wmctrl", "install wmctrl")}

	w, err := New(provider, WithLogger(quietLogger()))
	require.Error(t, err)
	assert.Nil(t, w)
	assert.True(t, errors.Is(err, errors.ErrCodeMissingDependency))
	assert.Zero(t, provider.callCount(), "provider must never be polled")
}

func TestWatcherStop(t *testing.T) {
	t.Run("while waiting", func(t *testing.T) {
		clk := newFakeClock()
		w, err := New(&fakeProvider{}, WithClock(clk), WithLogger(quietLogger()))
		require.NoError(t, err)
		_, done := startWatcher(t, w)

		clk.next(t)
		w.Stop()
		w.Stop()

		assert.NoError(t, waitDone(t, done))
		assert.Equal(t, StateStopped, w.State())
		assert.NoError(t, w.Err())
	})

	t.Run("abandons in-flight poll", func(t *testing.T) {
		provider := &fakeProvider{block: true}
		clk := newFakeClock()
		w, err := New(provider, WithClock(clk), WithLogger(quietLogger()))
		require.NoError(t, err)

		events := &recorder{}
		w.Subscribe(events.subscriber(""))
		_, done := startWatcher(t, w)

		clk.next(t).tick()
		require.Eventually(t, func() bool { return provider.callCount() == 1 }, time.Second, 5*time.Millisecond)
		w.Stop()

		assert.NoError(t, waitDone(t, done))
		assert.Empty(t, events.take())
	})

	t.Run("context cancel", func(t *testing.T) {
		clk := newFakeClock()
		w, err := New(&fakeProvider{}, WithClock(clk), WithLogger(quietLogger()))
		require.NoError(t, err)
		cancel, done := startWatcher(t, w)

		clk.next(t)
		cancel()

		assert.NoError(t, waitDone(t, done))
		assert.Equal(t, StateStopped, w.State())
	})
}

func TestBusUnsubscribe(t *testing.T) {
	var bus Bus
	events := &recorder{}
	unsubscribe := bus.Subscribe(events.subscriber(""))

	bus.Publish(models.ChangeSet{}, models.Snapshot{})
	unsubscribe()
	bus.Publish(models.ChangeSet{}, models.Snapshot{})

	assert.Equal(t, []string{"list:0"}, events.take())
}

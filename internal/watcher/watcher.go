// Package watcher owns the poll loop: it drives a process provider on a
// schedule, diffs consecutive snapshots and publishes the changes.
package watcher

import (
	"context"
	"sync"
	"time"

	"github.com/grovetools/proctrack/errors"
	"github.com/grovetools/proctrack/pkg/models"
	"github.com/grovetools/proctrack/pkg/process"
	"github.com/sirupsen/logrus"
)

const (
	DefaultInitialDelay   = 5 * time.Second
	DefaultRecurringDelay = 1 * time.Second
)

// State is the lifecycle state of a Watcher.
type State string

const (
	StateIdle    State = "idle"
	StatePolling State = "polling"
	StateStopped State = "stopped"
)

// Clock abstracts time for scheduling.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// Option configures a Watcher.
type Option func(*Watcher)

// WithInitialDelay sets the wait before the first poll.
func WithInitialDelay(d time.Duration) Option {
	return func(w *Watcher) { w.initialDelay = d }
}

// WithRecurringDelay sets the wait between polls.
func WithRecurringDelay(d time.Duration) Option {
	return func(w *Watcher) { w.recurringDelay = d }
}

// WithLogger sets the logger.
func WithLogger(logger *logrus.Entry) Option {
	return func(w *Watcher) { w.logger = logger }
}

// WithClock replaces the wall clock, for tests.
func WithClock(c Clock) Option {
	return func(w *Watcher) { w.clock = c }
}

// WithPreflight controls whether New runs the provider's Preflight check.
// It is enabled by default.
func WithPreflight(enabled bool) Option {
	return func(w *Watcher) { w.preflight = enabled }
}

// Watcher polls a provider and publishes snapshot changes. Exactly one
// poll-diff-publish cycle is in flight at a time.
type Watcher struct {
	provider process.Provider
	clock    Clock
	logger   *logrus.Entry
	bus      Bus

	preflight bool

	mu             sync.Mutex
	initialDelay   time.Duration
	recurringDelay time.Duration
	state          State
	err            error
	current        models.Snapshot
	lastPoll       time.Time

	stopCh   chan struct{}
	stopOnce sync.Once
}

// New builds a watcher. When the provider implements process.Preflighter and a
// required helper is missing, New fails and the watcher never polls.
func New(provider process.Provider, opts ...Option) (*Watcher, error) {
	w := &Watcher{
		provider:       provider,
		clock:          realClock{},
		preflight:      true,
		initialDelay:   DefaultInitialDelay,
		recurringDelay: DefaultRecurringDelay,
		state:          StateIdle,
		stopCh:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logrus.NewEntry(logrus.StandardLogger())
	}

	if pf, ok := provider.(process.Preflighter); ok && w.preflight {
		if err := pf.Preflight(); err != nil {
			w.logger.WithError(err).Error("Process provider preflight failed")
			return nil, err
		}
	}
	return w, nil
}

// Subscribe registers a subscriber and returns its unsubscribe function.
func (w *Watcher) Subscribe(s Subscriber) func() {
	return w.bus.Subscribe(s)
}

// Run blocks until Stop, context cancellation or a fatal provider error.
// Only the fatal error is returned.
func (w *Watcher) Run(ctx context.Context) error {
	w.mu.Lock()
	if w.state == StateStopped {
		err := w.err
		w.mu.Unlock()
		return err
	}
	w.state = StatePolling
	delay := w.initialDelay
	w.mu.Unlock()

	w.logger.WithField("initial_delay", delay).Debug("Watcher started")

	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return nil
		case <-w.stopCh:
			return nil
		case <-w.clock.After(delay):
		}

		if err := w.pollOnce(ctx); err != nil {
			if errors.IsFatal(err) {
				w.stopWith(err)
				return err
			}
			w.logger.WithError(err).Warn("Process poll failed, retrying")
		}

		delay = w.RecurringDelay()
	}
}

// pollOnce runs one cycle. Stop cancels the in-flight query and suppresses
// publication of its result.
func (w *Watcher) pollOnce(ctx context.Context) error {
	pollCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-w.stopCh:
			cancel()
		case <-pollCtx.Done():
		}
	}()

	snapshot, err := w.provider.Poll(pollCtx)
	if w.stopped() {
		return nil
	}
	if err != nil {
		return err
	}

	w.mu.Lock()
	previous := w.current
	w.current = snapshot.Clone()
	w.lastPoll = w.clock.Now()
	w.mu.Unlock()

	cs := Diff(previous, snapshot)
	if !cs.Empty() {
		w.logger.WithFields(logrus.Fields{
			"added":         len(cs.Added),
			"removed":       len(cs.Removed),
			"title_changed": len(cs.TitleChangedNew),
		}).Debug("Snapshot changed")
	}
	w.bus.Publish(cs, snapshot)
	return nil
}

// Stop ends the loop. It is idempotent and terminal.
func (w *Watcher) Stop() {
	w.stopWith(nil)
}

func (w *Watcher) stopWith(err error) {
	w.stopOnce.Do(func() {
		w.mu.Lock()
		w.state = StateStopped
		w.err = err
		w.mu.Unlock()
		close(w.stopCh)
		if err != nil {
			w.logger.WithError(err).Error("Process tracking has stopped")
		} else {
			w.logger.Debug("Watcher stopped")
		}
	})
}

func (w *Watcher) stopped() bool {
	select {
	case <-w.stopCh:
		return true
	default:
		return false
	}
}

// SetInitialDelay changes the wait before the first poll. It has no effect
// once Run has started waiting.
func (w *Watcher) SetInitialDelay(d time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.initialDelay = d
}

// SetRecurringDelay changes the wait between polls. A wait already in
// progress is not shortened; the new value applies from the next one.
func (w *Watcher) SetRecurringDelay(d time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if d <= 0 {
		return
	}
	w.recurringDelay = d
}

// RecurringDelay returns the current wait between polls.
func (w *Watcher) RecurringDelay() time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.recurringDelay
}

// State returns the lifecycle state.
func (w *Watcher) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Err returns the fatal error that stopped the watcher, if any.
func (w *Watcher) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

// Current returns a copy of the last successful snapshot.
func (w *Watcher) Current() models.Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current.Clone()
}

// LastPoll returns the time of the last successful poll, zero before the first.
func (w *Watcher) LastPoll() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastPoll
}

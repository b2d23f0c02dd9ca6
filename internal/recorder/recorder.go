// Package recorder turns watcher events into tracking sessions.
package recorder

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"github.com/grovetools/proctrack/errors"
	"github.com/grovetools/proctrack/internal/rules"
	"github.com/grovetools/proctrack/internal/watcher"
	"github.com/grovetools/proctrack/pkg/models"
	"github.com/sirupsen/logrus"
)

// Store is the persistence the recorder writes through.
type Store interface {
	ListRules(ctx context.Context, groupID int64) ([]models.Rule, error)
	OpenSession(ctx context.Context, rule models.Rule, p models.ProcessRecord, at int64) (*models.TrackingSession, error)
	FindOpenSession(ctx context.Context, key models.SessionKey) (*models.TrackingSession, error)
	AppendTitle(ctx context.Context, sessionID string, at int64, title string) error
	CloseSession(ctx context.Context, sessionID string, at int64) error
	CloseProcessSessions(ctx context.Context, processID int, processStartTime int64, at int64) (int64, error)
	CloseAllOpen(ctx context.Context, at int64) (int64, error)
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithLogger sets the logger.
func WithLogger(logger *logrus.Entry) Option {
	return func(r *Recorder) { r.logger = logger }
}

// WithNow replaces the clock used for event timestamps.
func WithNow(now func() time.Time) Option {
	return func(r *Recorder) { r.now = now }
}

// WithEnabled sets the initial recording state. Recording is off by default.
func WithEnabled(enabled bool) Option {
	return func(r *Recorder) { r.enabled = enabled }
}

// Recorder opens, appends to and closes tracking sessions. It is the only
// writer of session rows. A failed write for one (rule, process) pair is
// logged and the remaining pairs are still processed.
//
// Event handlers, the recording toggle and Shutdown run one at a time, so a
// handler never writes after recording was turned off under it.
type Recorder struct {
	store   Store
	matcher *rules.Matcher
	logger  *logrus.Entry
	now     func() time.Time

	// writeMu serializes every session write. mu guards enabled alone so
	// Enabled never waits on the database.
	writeMu sync.Mutex
	mu      sync.Mutex
	enabled bool
}

// New creates a recorder.
func New(store Store, opts ...Option) *Recorder {
	r := &Recorder{
		store: store,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = logrus.NewEntry(logrus.StandardLogger())
	}
	r.matcher = rules.NewMatcher(r.logger)
	return r
}

// Enabled reports whether events are being recorded.
func (r *Recorder) Enabled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.enabled
}

func (r *Recorder) setEnabled(enabled bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.enabled == enabled {
		return false
	}
	r.enabled = enabled
	return true
}

// SetEnabled toggles recording. Turning it off closes every open session;
// turning it on opens sessions for the snapshot returned by current as if
// every process had just been added. current is read after in-flight events
// are applied, so a process whose removal was already handled is not
// reopened.
func (r *Recorder) SetEnabled(ctx context.Context, enabled bool, current func() models.Snapshot) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	if !r.setEnabled(enabled) {
		return nil
	}
	r.logger.WithField("recording", enabled).Info("Recording toggled")
	if !enabled {
		_, err := r.closeAll(ctx)
		return err
	}
	if current == nil {
		return nil
	}
	return r.handleAdded(ctx, current())
}

// Shutdown closes every open session without changing the recording flag.
func (r *Recorder) Shutdown(ctx context.Context) (int64, error) {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	return r.closeAll(ctx)
}

func (r *Recorder) closeAll(ctx context.Context) (int64, error) {
	n, err := r.store.CloseAllOpen(ctx, r.stamp())
	if err != nil {
		r.logger.WithError(err).Error("Failed to close open sessions")
		return 0, err
	}
	if n > 0 {
		r.logger.WithField("sessions", n).Info("Closed open sessions")
	}
	return n, nil
}

// HandleAdded opens a session for every (process, rule) match.
func (r *Recorder) HandleAdded(ctx context.Context, added []models.ProcessRecord) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	return r.handleAdded(ctx, added)
}

func (r *Recorder) handleAdded(ctx context.Context, added []models.ProcessRecord) error {
	if !r.Enabled() || len(added) == 0 {
		return nil
	}
	active, err := r.activeRules(ctx)
	if err != nil {
		return err
	}

	at := r.stamp()
	var errs []error
	for _, p := range added {
		for _, rule := range active {
			ok, err := r.matcher.Matches(rule, p)
			if err != nil {
				continue
			}
			if ok {
				errs = append(errs, r.open(ctx, rule, p, at))
			}
		}
	}
	return stderrors.Join(errs...)
}

// HandleRemoved closes the open sessions of every vanished process.
func (r *Recorder) HandleRemoved(ctx context.Context, removed []models.ProcessRecord) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	if !r.Enabled() || len(removed) == 0 {
		return nil
	}
	active, err := r.activeRules(ctx)
	if err != nil {
		return err
	}

	at := r.stamp()
	var errs []error
	for _, p := range removed {
		for _, rule := range active {
			s, err := r.findOpen(ctx, rule, p)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			if s != nil {
				errs = append(errs, r.close(ctx, s, rule, p, at))
			}
		}
		// Sessions whose rule was deleted while they were open.
		n, err := r.store.CloseProcessSessions(ctx, p.ID, p.StartTime, at)
		if err != nil {
			r.logFailure(err, models.Rule{}, p, "close orphaned sessions")
			errs = append(errs, err)
		} else if n > 0 {
			r.logger.WithField("pid", p.ID).WithField("sessions", n).Debug("Closed sessions of deleted rules")
		}
	}
	return stderrors.Join(errs...)
}

// HandleTitleChanged appends, opens or closes sessions for processes whose
// window title changed. newState and oldState are paired by index.
func (r *Recorder) HandleTitleChanged(ctx context.Context, newState, oldState []models.ProcessRecord) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	if !r.Enabled() || len(newState) == 0 {
		return nil
	}
	active, err := r.activeRules(ctx)
	if err != nil {
		return err
	}

	at := r.stamp()
	var errs []error
	for i, p := range newState {
		var old models.ProcessRecord
		if i < len(oldState) {
			old = oldState[i]
		}
		for _, rule := range active {
			errs = append(errs, r.titleChanged(ctx, rule, p, old, at))
		}
	}
	return stderrors.Join(errs...)
}

func (r *Recorder) titleChanged(ctx context.Context, rule models.Rule, p, old models.ProcessRecord, at int64) error {
	if rule.Type == models.RuleTypeExec {
		if p.Executable != rule.Pattern {
			return nil
		}
		s, err := r.findOpen(ctx, rule, p)
		if err != nil || s == nil {
			return err
		}
		return r.appendTitle(ctx, s, rule, p, at)
	}

	matchesNew, err := r.matcher.MatchTitle(rule, p.WindowTitle)
	if err != nil {
		return nil
	}
	s, err := r.findOpen(ctx, rule, p)
	if err != nil {
		return err
	}

	switch {
	case matchesNew && s != nil:
		return r.appendTitle(ctx, s, rule, p, at)
	case matchesNew:
		return r.open(ctx, rule, p, at)
	case s != nil:
		r.logger.WithFields(logrus.Fields{
			"rule_id":   rule.ID,
			"pid":       p.ID,
			"old_title": old.WindowTitle,
		}).Debug("Title no longer matches rule")
		return r.close(ctx, s, rule, p, at)
	default:
		return nil
	}
}

// Subscriber adapts the recorder to watcher events. Writes use ctx.
func (r *Recorder) Subscriber(ctx context.Context) watcher.Subscriber {
	return watcher.SubscriberFuncs{
		Added: func(added []models.ProcessRecord) {
			_ = r.HandleAdded(ctx, added)
		},
		Removed: func(removed []models.ProcessRecord) {
			_ = r.HandleRemoved(ctx, removed)
		},
		TitleChanged: func(newState, oldState []models.ProcessRecord) {
			_ = r.HandleTitleChanged(ctx, newState, oldState)
		},
	}
}

func (r *Recorder) activeRules(ctx context.Context) ([]models.Rule, error) {
	active, err := r.store.ListRules(ctx, 0)
	if err != nil {
		r.logger.WithError(err).Error("Failed to load rules")
		return nil, err
	}
	return active, nil
}

func (r *Recorder) open(ctx context.Context, rule models.Rule, p models.ProcessRecord, at int64) error {
	s, err := r.store.OpenSession(ctx, rule, p, at)
	if err != nil {
		if errors.Is(err, errors.ErrCodeConflict) {
			r.logger.WithField("rule_id", rule.ID).WithField("pid", p.ID).Debug("Session already open")
			return nil
		}
		r.logFailure(err, rule, p, "open session")
		return err
	}
	r.logger.WithFields(logrus.Fields{
		"session_id": s.ID,
		"rule_id":    rule.ID,
		"group_id":   rule.GroupID,
		"pid":        p.ID,
		"executable": p.Executable,
	}).Info("Tracking session opened")
	return nil
}

func (r *Recorder) close(ctx context.Context, s *models.TrackingSession, rule models.Rule, p models.ProcessRecord, at int64) error {
	if err := r.store.CloseSession(ctx, s.ID, at); err != nil {
		r.logFailure(err, rule, p, "close session")
		return err
	}
	r.logger.WithFields(logrus.Fields{
		"session_id": s.ID,
		"rule_id":    rule.ID,
		"pid":        p.ID,
	}).Info("Tracking session closed")
	return nil
}

func (r *Recorder) appendTitle(ctx context.Context, s *models.TrackingSession, rule models.Rule, p models.ProcessRecord, at int64) error {
	if err := r.store.AppendTitle(ctx, s.ID, at, p.WindowTitle); err != nil {
		r.logFailure(err, rule, p, "append title")
		return err
	}
	r.logger.WithField("session_id", s.ID).Debug("Title change recorded")
	return nil
}

func (r *Recorder) findOpen(ctx context.Context, rule models.Rule, p models.ProcessRecord) (*models.TrackingSession, error) {
	s, err := r.store.FindOpenSession(ctx, models.SessionKey{
		RuleID:           rule.ID,
		ProcessID:        p.ID,
		ProcessStartTime: p.StartTime,
	})
	if err != nil {
		r.logFailure(err, rule, p, "find open session")
		return nil, err
	}
	return s, nil
}

func (r *Recorder) logFailure(err error, rule models.Rule, p models.ProcessRecord, op string) {
	r.logger.WithError(err).WithFields(logrus.Fields{
		"rule_id": rule.ID,
		"pid":     p.ID,
		"op":      op,
	}).Error("Persistence failed")
}

func (r *Recorder) stamp() int64 {
	return r.now().UnixMilli()
}

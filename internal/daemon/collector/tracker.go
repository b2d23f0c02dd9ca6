package collector

import (
	"context"

	"github.com/grovetools/proctrack/internal/daemon/store"
	"github.com/grovetools/proctrack/internal/recorder"
	"github.com/grovetools/proctrack/internal/watcher"
	"github.com/grovetools/proctrack/pkg/models"
	"github.com/sirupsen/logrus"
)

// TrackerCollector runs the process list watcher. The recorder is subscribed
// ahead of the store so sessions are written before a listUpdate reaches
// clients or triggers statistics.
type TrackerCollector struct {
	watcher  *watcher.Watcher
	recorder *recorder.Recorder
	logger   *logrus.Entry
}

// NewTrackerCollector creates a TrackerCollector. rec may be nil, in which
// case nothing is recorded.
func NewTrackerCollector(w *watcher.Watcher, rec *recorder.Recorder, logger *logrus.Entry) *TrackerCollector {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &TrackerCollector{watcher: w, recorder: rec, logger: logger}
}

// Name returns the collector's name.
func (c *TrackerCollector) Name() string { return "tracker" }

// Run blocks in the watcher loop. A fatal provider error is reported as a
// stopped status and returned.
func (c *TrackerCollector) Run(ctx context.Context, st *store.Store, updates chan<- store.Update) error {
	if c.recorder != nil {
		unsubscribe := c.watcher.Subscribe(c.recorder.Subscriber(ctx))
		defer unsubscribe()
	}

	emit := func(t store.UpdateType, payload interface{}) {
		send(ctx, updates, store.Update{Type: t, Source: c.Name(), Payload: payload})
	}
	unsubscribe := c.watcher.Subscribe(watcher.SubscriberFuncs{
		Added: func(added []models.ProcessRecord) {
			emit(store.UpdateAdded, added)
		},
		Removed: func(removed []models.ProcessRecord) {
			emit(store.UpdateRemoved, removed)
		},
		TitleChanged: func(newState, oldState []models.ProcessRecord) {
			emit(store.UpdateTitleChanged, models.ChangeSet{
				TitleChangedNew: newState,
				TitleChangedOld: oldState,
			})
		},
		ListUpdate: func(snapshot models.Snapshot) {
			emit(store.UpdateListUpdate, store.ListPayload{
				Snapshot: snapshot,
				PolledAt: c.watcher.LastPoll().UnixMilli(),
			})
		},
	})
	defer unsubscribe()

	emit(store.UpdateStatus, store.TrackingPayload{Running: true})
	c.logger.Debug("Process tracking started")

	if err := c.watcher.Run(ctx); err != nil {
		emit(store.UpdateStatus, store.TrackingPayload{Running: false, FatalError: err.Error()})
		return err
	}
	emit(store.UpdateStatus, store.TrackingPayload{Running: false})
	return nil
}

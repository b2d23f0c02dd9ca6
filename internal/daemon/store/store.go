package store

import (
	"sync"

	"github.com/grovetools/proctrack/pkg/models"
)

// Store is the in-memory state store for the daemon.
// It is thread-safe and supports pub/sub for real-time updates.
type Store struct {
	mu          sync.RWMutex
	state       *State
	subscribers map[chan Update]struct{}
}

// New creates a new Store instance.
func New() *Store {
	return &Store{
		state: &State{
			Status:     Status{Tracking: TrackingStopped},
			Processes:  models.Snapshot{},
			Statistics: []models.GroupStatistics{},
		},
		subscribers: make(map[chan Update]struct{}),
	}
}

// Get returns a copy of the current state.
func (s *Store) Get() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return State{
		Status:     s.state.Status,
		Processes:  s.state.Processes.Clone(),
		Statistics: append([]models.GroupStatistics(nil), s.state.Statistics...),
	}
}

// Status returns the current status.
func (s *Store) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Status
}

// Processes returns a copy of the latest snapshot.
func (s *Store) Processes() models.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Processes.Clone()
}

// Statistics returns the latest aggregated statistics.
func (s *Store) Statistics() []models.GroupStatistics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.GroupStatistics(nil), s.state.Statistics...)
}

// ApplyUpdate modifies the state and notifies subscribers.
func (s *Store) ApplyUpdate(u Update) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch u.Type {
	case UpdateListUpdate:
		if list, ok := u.Payload.(ListPayload); ok {
			s.state.Processes = list.Snapshot.Clone()
			s.state.Status.ProcessCount = len(list.Snapshot)
			s.state.Status.LastPoll = list.PolledAt
		}
	case UpdateStatistics:
		if stats, ok := u.Payload.([]models.GroupStatistics); ok {
			s.state.Statistics = stats
		}
	case UpdateStatus:
		switch p := u.Payload.(type) {
		case TrackingPayload:
			s.state.Status.Tracking = TrackingStopped
			if p.Running {
				s.state.Status.Tracking = TrackingRunning
			}
			s.state.Status.FatalError = p.FatalError
		case RecordingPayload:
			s.state.Status.Recording = p.Recording
			s.state.Status.RecurringDelay = p.RecurringDelay
		}
		// Subscribers always see the merged status.
		u.Payload = s.state.Status
	}

	s.broadcast(u)
}

// broadcast must be called with s.mu held.
func (s *Store) broadcast(u Update) {
	for ch := range s.subscribers {
		select {
		case ch <- u:
		default:
			// Non-blocking send to prevent slow clients from stalling the daemon
		}
	}
}

// Subscribe creates a new subscription channel for state updates.
func (s *Store) Subscribe() chan Update {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan Update, 100)
	s.subscribers[ch] = struct{}{}
	return ch
}

// Unsubscribe removes a subscription and closes its channel.
func (s *Store) Unsubscribe(ch chan Update) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subscribers[ch]; !ok {
		return
	}
	delete(s.subscribers, ch)
	close(ch)
}

// BroadcastSettingsReload notifies subscribers that the settings file
// changed and was applied.
func (s *Store) BroadcastSettingsReload(file string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	s.broadcast(Update{
		Type:    UpdateSettingsReload,
		Source:  "settings",
		Payload: file,
	})
}

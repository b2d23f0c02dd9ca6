// Package store provides the in-memory state store for the proctrack daemon.
package store

import (
	"github.com/grovetools/proctrack/pkg/models"
)

// Tracking values reported in Status.
const (
	TrackingRunning = "running"
	TrackingStopped = "stopped"
)

// Status is the daemon's tracking status surface.
type Status struct {
	Tracking       string  `json:"tracking"`
	FatalError     string  `json:"fatalError,omitempty"`
	Recording      bool    `json:"recording"`
	RecurringDelay float64 `json:"recurringDelay"`     // seconds
	LastPoll       int64   `json:"lastPoll,omitempty"` // epoch ms
	ProcessCount   int     `json:"processCount"`
}

// State represents the complete world view of the daemon.
type State struct {
	Status     Status                   `json:"status"`
	Processes  models.Snapshot          `json:"processes"`
	Statistics []models.GroupStatistics `json:"statistics"`
}

// UpdateType defines what kind of data changed. The values double as SSE
// event types.
type UpdateType string

const (
	UpdateListUpdate     UpdateType = "listUpdate"
	UpdateAdded          UpdateType = "added"
	UpdateRemoved        UpdateType = "removed"
	UpdateTitleChanged   UpdateType = "titleChanged"
	UpdateStatistics     UpdateType = "statistics"
	UpdateStatus         UpdateType = "status"
	UpdateSettingsReload UpdateType = "settings_reload"
)

// Update represents a change to the state.
//
// Payloads by type:
//   - listUpdate: ListPayload
//   - added, removed: []models.ProcessRecord
//   - titleChanged: models.ChangeSet with only the title fields set
//   - statistics: []models.GroupStatistics
//   - status: TrackingPayload or RecordingPayload; subscribers receive the merged Status
//   - settings_reload: the settings file path
type Update struct {
	Type    UpdateType
	Source  string // collector that produced the update
	Payload interface{}
}

// ListPayload carries a completed poll.
type ListPayload struct {
	Snapshot models.Snapshot `json:"processes"`
	PolledAt int64           `json:"polledAt"` // epoch ms
}

// TrackingPayload reports the watcher lifecycle.
type TrackingPayload struct {
	Running    bool
	FatalError string
}

// RecordingPayload reports the live settings the daemon applied.
type RecordingPayload struct {
	Recording      bool
	RecurringDelay float64
}

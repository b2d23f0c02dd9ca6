// Package daemon provides a client interface for interacting with the proctrack daemon.
// It implements a transparent fallback pattern: if the daemon is running, use its
// HTTP API; if not, answer from the database and a one-shot process poll.
package daemon

import (
	"context"
	"encoding/json"

	"github.com/grovetools/proctrack/internal/daemon/server"
	"github.com/grovetools/proctrack/internal/daemon/store"
	"github.com/grovetools/proctrack/pkg/models"
)

// Status is the tracking status reported by the daemon.
type Status = store.Status

// RunningConfig is the effective configuration of a running daemon.
type RunningConfig = server.RunningConfig

// Client defines the interface for interacting with the proctrack daemon.
// Both RemoteClient (HTTP) and LocalClient (direct calls) implement this interface.
type Client interface {
	// Status returns the tracking status.
	Status(ctx context.Context) (*Status, error)

	// Processes returns the current snapshot of windowed processes.
	Processes(ctx context.Context) (models.Snapshot, error)

	// Statistics aggregates group statistics.
	Statistics(ctx context.Context, q StatisticsQuery) ([]models.GroupStatistics, error)

	// StreamState subscribes to real-time updates from the daemon.
	// For LocalClient, this returns a DAEMON_NOT_RUNNING error.
	StreamState(ctx context.Context) (<-chan Event, error)

	// GetConfig returns the daemon's running configuration.
	GetConfig(ctx context.Context) (*RunningConfig, error)

	// IsRunning returns true if the daemon is available and responding.
	IsRunning() bool

	// Close cleans up any resources used by the client.
	Close() error
}

// StatisticsQuery selects groups and an optional filter. An empty Group
// means every group; a zero Filter uses each group's stored filter.
type StatisticsQuery struct {
	Group  string
	Filter models.StatisticsFilter
}

// Event is one update pushed from the daemon. Payload holds the JSON of the
// type-specific body; see Decode.
type Event struct {
	Type    string          `json:"type"`
	Source  string          `json:"source,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Event types.
const (
	EventInitial        = server.EventInitial
	EventListUpdate     = string(store.UpdateListUpdate)
	EventAdded          = string(store.UpdateAdded)
	EventRemoved        = string(store.UpdateRemoved)
	EventTitleChanged   = string(store.UpdateTitleChanged)
	EventStatistics     = string(store.UpdateStatistics)
	EventStatus         = string(store.UpdateStatus)
	EventSettingsReload = string(store.UpdateSettingsReload)
)

// Decode unmarshals the payload into target. Payload shapes by type:
// initial → store.State, listUpdate → store.ListPayload, added/removed →
// []models.ProcessRecord, titleChanged → models.ChangeSet, statistics →
// []models.GroupStatistics, status → Status, settings_reload → string.
func (e Event) Decode(target interface{}) error {
	if len(e.Payload) == 0 {
		return nil
	}
	return json.Unmarshal(e.Payload, target)
}

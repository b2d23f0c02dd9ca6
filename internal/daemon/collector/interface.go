// Package collector provides background workers that produce daemon state.
package collector

import (
	"context"

	"github.com/grovetools/proctrack/internal/daemon/store"
)

// Collector is a background worker that fetches data and emits updates.
type Collector interface {
	// Name returns the collector's name for logging.
	Name() string

	// Run starts the collector. It should block until context is canceled.
	// It emits updates via the updates channel and may read or subscribe to
	// the store.
	Run(ctx context.Context, st *store.Store, updates chan<- store.Update) error
}

// send delivers u unless ctx is done first.
func send(ctx context.Context, updates chan<- store.Update, u store.Update) {
	select {
	case updates <- u:
	case <-ctx.Done():
	}
}

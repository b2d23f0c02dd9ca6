// Package engine orchestrates the daemon's collectors and feeds their
// updates into the store.
package engine

import (
	"context"
	"errors"
	"sync"

	"github.com/grovetools/proctrack/internal/daemon/collector"
	"github.com/grovetools/proctrack/internal/daemon/store"
	"github.com/sirupsen/logrus"
)

// Engine manages and runs all collectors.
type Engine struct {
	store      *store.Store
	collectors []collector.Collector
	logger     *logrus.Entry
}

// New creates a new Engine instance.
func New(st *store.Store, logger *logrus.Entry) *Engine {
	return &Engine{
		store:  st,
		logger: logger,
	}
}

// Register adds a collector to the engine.
func (e *Engine) Register(c collector.Collector) {
	e.collectors = append(e.collectors, c)
}

// Start runs all collectors and blocks until context is canceled and every
// collector has returned. Updates emitted while collectors wind down, such
// as the final tracker status, are still applied to the store.
func (e *Engine) Start(ctx context.Context) {
	updates := make(chan store.Update, 100)
	applied := make(chan struct{})

	go func() {
		defer close(applied)
		for u := range updates {
			e.store.ApplyUpdate(u)
		}
	}()

	var wg sync.WaitGroup
	for _, c := range e.collectors {
		wg.Add(1)
		go func(col collector.Collector) {
			defer wg.Done()
			log := e.logger.WithField("collector", col.Name())
			log.Info("Starting collector")
			err := col.Run(ctx, e.store, updates)
			switch {
			case err != nil && !errors.Is(err, context.Canceled):
				log.WithError(err).Error("Collector failed")
			default:
				log.Debug("Collector stopped")
			}
		}(c)
	}

	wg.Wait()
	close(updates)
	<-applied
}

// Collectors returns the registered collector names in registration order.
func (e *Engine) Collectors() []string {
	names := make([]string, 0, len(e.collectors))
	for _, c := range e.collectors {
		names = append(names, c.Name())
	}
	return names
}

// Store returns the engine's state store.
func (e *Engine) Store() *store.Store {
	return e.store
}

package watcher

import (
	"sync"

	"github.com/grovetools/proctrack/pkg/models"
)

// Subscriber receives the events of one poll cycle. Handlers run on the
// watcher goroutine and must hand long work off to their own queues.
type Subscriber interface {
	OnAdded(added []models.ProcessRecord)
	OnRemoved(removed []models.ProcessRecord)
	OnTitleChanged(newState, oldState []models.ProcessRecord)
	OnListUpdate(snapshot models.Snapshot)
}

// SubscriberFuncs adapts plain functions to Subscriber. Nil fields are skipped.
type SubscriberFuncs struct {
	Added        func([]models.ProcessRecord)
	Removed      func([]models.ProcessRecord)
	TitleChanged func(newState, oldState []models.ProcessRecord)
	ListUpdate   func(models.Snapshot)
}

func (f SubscriberFuncs) OnAdded(added []models.ProcessRecord) {
	if f.Added != nil {
		f.Added(added)
	}
}

func (f SubscriberFuncs) OnRemoved(removed []models.ProcessRecord) {
	if f.Removed != nil {
		f.Removed(removed)
	}
}

func (f SubscriberFuncs) OnTitleChanged(newState, oldState []models.ProcessRecord) {
	if f.TitleChanged != nil {
		f.TitleChanged(newState, oldState)
	}
}

func (f SubscriberFuncs) OnListUpdate(snapshot models.Snapshot) {
	if f.ListUpdate != nil {
		f.ListUpdate(snapshot)
	}
}

// Bus delivers cycle events to subscribers in subscription order.
type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   []subscription
}

type subscription struct {
	id  int
	sub Subscriber
}

// Subscribe registers s and returns a function that removes it.
func (b *Bus) Subscribe(s Subscriber) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscription{id: id, sub: s})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, entry := range b.subs {
			if entry.id == id {
				b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
				return
			}
		}
	}
}

// Publish delivers one cycle: added, removed, titleChanged for non-empty sets,
// then listUpdate unconditionally. Every subscriber sees an event before any
// subscriber sees the next one.
func (b *Bus) Publish(cs models.ChangeSet, snapshot models.Snapshot) {
	b.mu.RLock()
	subs := make([]Subscriber, len(b.subs))
	for i, entry := range b.subs {
		subs[i] = entry.sub
	}
	b.mu.RUnlock()

	if len(cs.Added) > 0 {
		for _, s := range subs {
			s.OnAdded(cs.Added)
		}
	}
	if len(cs.Removed) > 0 {
		for _, s := range subs {
			s.OnRemoved(cs.Removed)
		}
	}
	if len(cs.TitleChangedNew) > 0 {
		for _, s := range subs {
			s.OnTitleChanged(cs.TitleChangedNew, cs.TitleChangedOld)
		}
	}
	for _, s := range subs {
		s.OnListUpdate(snapshot)
	}
}

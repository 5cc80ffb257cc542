// Package events carries normalized change events from the write path to
// every registered view consumer. One bus per process replaces the legacy
// channel-per-page subscriptions.
package events

import (
	"errors"
	"sync"

	"github.com/NateWesth/aleph-order-tracker/internal/models"
)

// ErrBusClosed is returned by Subscribe after Close
var ErrBusClosed = errors.New("event bus is closed")

// Handler consumes one normalized change event
type Handler func(models.ChangeEvent)

// Bus is an in-process broadcast of change events. Publish delivers the
// event to every subscriber synchronously; subscribers that need to do real
// work should hand it off, which is what the Dispatcher does.
type Bus struct {
	mu     sync.RWMutex
	subs   map[uint64]Handler
	nextID uint64
	closed bool
}

// NewBus creates an empty bus
func NewBus() *Bus {
	return &Bus{subs: make(map[uint64]Handler)}
}

// Subscribe registers a handler and returns its unsubscribe function
func (b *Bus) Subscribe(h Handler) (func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrBusClosed
	}

	id := b.nextID
	b.nextID++
	b.subs[id] = h

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs, id)
	}, nil
}

// Publish broadcasts the event to all current subscribers
func (b *Bus) Publish(evt models.ChangeEvent) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subs))
	for _, h := range b.subs {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(evt)
	}
}

// Close drops all subscribers and rejects new ones
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.subs = make(map[uint64]Handler)
}

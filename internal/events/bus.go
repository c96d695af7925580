// Package events carries domain events from the trackers to their subscribers
package events

import (
	"sync"

	"github.com/rs/zerolog"
)

// Event is a domain event published by the engine
type Event interface {
	EventName() string
}

// Publisher is the fire-and-forget publish capability injected into trackers
type Publisher interface {
	Publish(Event)
}

// Handler consumes events delivered by a Bus
type Handler func(Event) error

// PublisherFunc adapts a function to Publisher
type PublisherFunc func(Event)

// Publish calls f(e)
func (f PublisherFunc) Publish(e Event) { f(e) }

// Bus is a synchronous in-process fan-out. Handler failures are logged and
// never reach the publisher.
type Bus struct {
	mu       sync.RWMutex
	handlers []Handler
	log      zerolog.Logger
}

// NewBus creates a bus that reports handler failures to log
func NewBus(log zerolog.Logger) *Bus {
	return &Bus{log: log}
}

// Subscribe registers h for every subsequent event
func (b *Bus) Subscribe(h Handler) {
	b.mu.Lock()
	b.handlers = append(b.handlers, h)
	b.mu.Unlock()
}

// Publish delivers e to every handler in subscription order
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.handlers...)
	b.mu.RUnlock()

	for _, h := range handlers {
		if err := h(e); err != nil {
			b.log.Error().Err(err).Str("event", e.EventName()).Msg("event handler failed")
		}
	}
}

// Recorder collects published events, mostly for tests
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Publish stores e
func (r *Recorder) Publish(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

// Events returns a copy of everything recorded so far
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Names returns the recorded event names in order
func (r *Recorder) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.events))
	for _, e := range r.events {
		names = append(names, e.EventName())
	}
	return names
}

// Reset drops recorded events
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}

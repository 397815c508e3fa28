package event

import (
	"slices"
	"sync"

	"github.com/rs/zerolog"
)

// Handler receives a delivered event
type Handler func(Event)

type subscription struct {
	id      uint64
	handler Handler
	types   []Type // Empty means every type
}

// Bus delivers events synchronously to subscribers
//
// Architecture:
//   - Publish runs on the engine loop goroutine
//   - Handlers are invoked in subscription order
//   - A panicking handler is recovered and logged, later handlers still run
//   - Subscribe and unsubscribe are safe from any goroutine
type Bus struct {
	mu     sync.RWMutex
	subs   []subscription
	nextID uint64
	log    zerolog.Logger
}

// NewBus creates a bus that logs recovered handler panics to log
func NewBus(log zerolog.Logger) *Bus {
	return &Bus{log: log}
}

// Subscribe registers h for the given types, or all types when none are given
// The returned function removes the subscription
func (b *Bus) Subscribe(h Handler, types ...Type) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscription{id: id, handler: h, types: slices.Clone(types)})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.subs = slices.DeleteFunc(b.subs, func(s subscription) bool { return s.id == id })
	}
}

// Publish delivers ev to every matching subscriber before returning
func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	subs := slices.Clone(b.subs)
	b.mu.RUnlock()

	for _, s := range subs {
		if len(s.types) > 0 && !slices.Contains(s.types, ev.Type) {
			continue
		}
		b.deliver(s.handler, ev)
	}
}

func (b *Bus) deliver(h Handler, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error().Interface("panic", r).Stringer("event", ev.Type).Msg("event handler panicked")
		}
	}()
	h(ev)
}

// Len is the number of live subscriptions
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

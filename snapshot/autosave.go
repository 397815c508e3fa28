package snapshot

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/lixenwraith/luckydraw/event"
)

// saveTimeout bounds a single store write
const saveTimeout = 5 * time.Second

// stateEvents are the events after which the session is worth saving
var stateEvents = []event.Type{event.Settled, event.Undone, event.Reset, event.Configured, event.Restored}

// Autosaver writes the latest session to a Store off the engine goroutine
//
// Trigger runs on the engine goroutine and only copies state; Run saves on its own
// goroutine. Only the newest pending snapshot is kept, older ones are replaced.
type Autosaver struct {
	store Store
	name  string
	take  func() Snapshot
	log   zerolog.Logger

	pending chan Snapshot
	saves   atomic.Int64
	fails   atomic.Int64
}

// NewAutosaver saves snapshots produced by take under name
func NewAutosaver(store Store, name string, take func() Snapshot, log zerolog.Logger) *Autosaver {
	return &Autosaver{
		store:   store,
		name:    name,
		take:    take,
		log:     log,
		pending: make(chan Snapshot, 1),
	}
}

// Attach triggers a save after every state-changing event on bus
func (a *Autosaver) Attach(bus *event.Bus) func() {
	return bus.Subscribe(func(event.Event) { a.Trigger() }, stateEvents...)
}

// Trigger queues the current session, replacing any unsaved one
func (a *Autosaver) Trigger() {
	snap := a.take()
	for {
		select {
		case a.pending <- snap:
			return
		default:
		}
		select {
		case <-a.pending:
		default:
		}
	}
}

// Run saves queued snapshots until ctx is cancelled, then flushes the last one
func (a *Autosaver) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			a.Flush(context.Background())
			return
		case snap := <-a.pending:
			a.save(ctx, snap)
		}
	}
}

// Flush saves a pending snapshot, if any, before returning
func (a *Autosaver) Flush(ctx context.Context) {
	select {
	case snap := <-a.pending:
		a.save(ctx, snap)
	default:
	}
}

func (a *Autosaver) save(ctx context.Context, snap Snapshot) {
	ctx, cancel := context.WithTimeout(ctx, saveTimeout)
	defer cancel()

	if err := a.store.Save(ctx, a.name, snap); err != nil {
		a.fails.Add(1)
		a.log.Error().Err(err).Str("name", a.name).Msg("autosave failed")
		return
	}
	a.saves.Add(1)
	a.log.Debug().Str("name", a.name).Int("remaining", len(snap.RemainingTickets)).Int("awarded", len(snap.History)).Msg("session saved")
}

// Saves is the number of successful writes
func (a *Autosaver) Saves() int64 { return a.saves.Load() }

// Failures is the number of failed writes
func (a *Autosaver) Failures() int64 { return a.fails.Load() }

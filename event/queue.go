package event

import (
	"sync"

	"github.com/lixenwraith/luckydraw/constants"
)

// Queue buffers events for a consumer that drains on its own cadence
//
// Consecutive Tick or ChargeLevel events collapse into the newest one, since
// only the latest digits and meter level are ever drawn. When the buffer is
// full the oldest event is dropped and counted.
type Queue struct {
	mu      sync.Mutex
	pending []Event
	spare   []Event
	dropped int
	limit   int
	notify  chan struct{}
}

func NewQueue() *Queue {
	return &Queue{
		pending: make([]Event, 0, constants.EventQueueSize),
		spare:   make([]Event, 0, constants.EventQueueSize),
		limit:   constants.EventQueueSize,
		notify:  make(chan struct{}, 1),
	}
}

func coalesces(t Type) bool {
	return t == Tick || t == ChargeLevel
}

// Push appends ev and signals Ready
func (q *Queue) Push(ev Event) {
	q.mu.Lock()
	n := len(q.pending)
	switch {
	case n > 0 && coalesces(ev.Type) && q.pending[n-1].Type == ev.Type:
		q.pending[n-1] = ev
	case n == q.limit:
		copy(q.pending, q.pending[1:])
		q.pending[n-1] = ev
		q.dropped++
	default:
		q.pending = append(q.pending, ev)
	}
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// Drain returns pending events in FIFO order and how many were dropped since the last drain
// The returned slice is valid until the next Drain.
func (q *Queue) Drain() ([]Event, int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		dropped := q.dropped
		q.dropped = 0
		return nil, dropped
	}
	out := q.pending
	q.pending = q.spare[:0]
	q.spare = out
	dropped := q.dropped
	q.dropped = 0
	return out, dropped
}

// Len reports the number of pending events
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Ready is signalled after a push; one signal may cover many events
func (q *Queue) Ready() <-chan struct{} {
	return q.notify
}

// Attach subscribes the queue to every event on bus
func (q *Queue) Attach(bus *Bus) func() {
	return bus.Subscribe(q.Push)
}

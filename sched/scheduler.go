// Package sched is a single-threaded software timer queue.
//
// Every callback and every posted function runs on one goroutine: the caller of
// RunDue in tests, or the Run loop in the application. State owned by that goroutine
// therefore needs no locking. Cancellation removes a pending callback before it fires;
// a callback that already started cannot be cancelled, so callbacks must re-check
// whatever session they belong to.
package sched

import (
	"container/heap"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lixenwraith/luckydraw/clock"
)

// ErrRunning is returned when Run is called on a scheduler whose loop is active
var ErrRunning = errors.New("scheduler loop already running")

// idleWait bounds the loop sleep when no timer is pending
const idleWait = time.Second

// Handle identifies a scheduled callback; zero is never issued
type Handle uint64

type entry struct {
	id    Handle
	at    time.Time
	fn    func()
	index int
}

// timerHeap orders entries by deadline, then by issue order
type timerHeap []*entry

func (h timerHeap) Len() int { return len(h) }
func (h timerHeap) Less(i, j int) bool {
	if h[i].at.Equal(h[j].at) {
		return h[i].id < h[j].id
	}
	return h[i].at.Before(h[j].at)
}
func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *timerHeap) Push(x any) {
	e := x.(*entry)
	e.index = len(*h)
	*h = append(*h, e)
}
func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}

// Scheduler runs deadline-ordered callbacks against an injectable clock
type Scheduler struct {
	clock clock.Provider

	mu     sync.Mutex
	timers timerHeap
	byID   map[Handle]*entry
	nextID Handle

	mailbox chan func()
	running atomic.Bool
}

// New creates a scheduler reading time from provider
func New(provider clock.Provider) *Scheduler {
	if provider == nil {
		provider = clock.NewReal()
	}
	return &Scheduler{
		clock:   provider,
		byID:    make(map[Handle]*entry),
		mailbox: make(chan func(), 64),
	}
}

// Clock returns the time source deadlines are measured against
func (s *Scheduler) Clock() clock.Provider {
	return s.clock
}

// Now is shorthand for Clock().Now()
func (s *Scheduler) Now() time.Time {
	return s.clock.Now()
}

// After schedules fn to run d after the current clock reading
func (s *Scheduler) After(d time.Duration, fn func()) Handle {
	if d < 0 {
		d = 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	e := &entry{id: s.nextID, at: s.clock.Now().Add(d), fn: fn}
	heap.Push(&s.timers, e)
	s.byID[e.id] = e
	return e.id
}

// Cancel removes a pending callback, returns false if it already fired or never existed
func (s *Scheduler) Cancel(h Handle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.byID[h]
	if !ok {
		return false
	}
	heap.Remove(&s.timers, e.index)
	delete(s.byID, h)
	return true
}

// Pending returns the number of scheduled callbacks
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// NextDeadline returns the earliest pending deadline
func (s *Scheduler) NextDeadline() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.timers) == 0 {
		return time.Time{}, false
	}
	return s.timers[0].at, true
}

// RunDue fires every callback whose deadline has passed, in deadline order
// Callbacks run on the calling goroutine without the scheduler lock held
func (s *Scheduler) RunDue() int {
	fired := 0
	for {
		s.mu.Lock()
		if len(s.timers) == 0 || s.timers[0].at.After(s.clock.Now()) {
			s.mu.Unlock()
			return fired
		}
		e := heap.Pop(&s.timers).(*entry)
		delete(s.byID, e.id)
		s.mu.Unlock()

		e.fn()
		fired++
	}
}

// Post queues fn for the loop goroutine
func (s *Scheduler) Post(fn func()) {
	s.mailbox <- fn
}

// Do runs fn on the loop goroutine and waits for it to finish
// Must not be called from the loop goroutine itself
func (s *Scheduler) Do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	wrapped := func() {
		defer close(done)
		fn()
	}

	select {
	case s.mailbox <- wrapped:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Drain runs posted functions without blocking, returns how many ran
func (s *Scheduler) Drain() int {
	ran := 0
	for {
		select {
		case fn := <-s.mailbox:
			fn()
			ran++
		default:
			return ran
		}
	}
}

// Run drives the queue in real time until ctx is cancelled
// Sleeps until the earliest deadline or the next posted function, whichever comes first
func (s *Scheduler) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrRunning
	}
	defer s.running.Store(false)

	timer := time.NewTimer(idleWait)
	defer timer.Stop()

	for {
		s.RunDue()

		wait := idleWait
		if next, ok := s.NextDeadline(); ok {
			wait = next.Sub(s.clock.Now())
			if wait < 0 {
				wait = 0
			}
		}
		timer.Reset(wait)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-s.mailbox:
			fn()
		case <-timer.C:
		}
	}
}

// Running reports whether Run is active
func (s *Scheduler) Running() bool {
	return s.running.Load()
}

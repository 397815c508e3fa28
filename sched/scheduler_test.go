package sched

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lixenwraith/luckydraw/clock"
)

func newMockScheduler() (*Scheduler, *clock.Mock) {
	m := clock.NewMock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	return New(m), m
}

func TestDeadlineOrdering(t *testing.T) {
	s, m := newMockScheduler()

	var order []string
	s.After(30*time.Millisecond, func() { order = append(order, "c") })
	s.After(10*time.Millisecond, func() { order = append(order, "a") })
	s.After(20*time.Millisecond, func() { order = append(order, "b") })
	// Same deadline as "a", issued later
	s.After(10*time.Millisecond, func() { order = append(order, "a2") })

	Advance(s, m, 100*time.Millisecond)

	want := []string{"a", "a2", "b", "c"}
	if len(order) != len(want) {
		t.Fatalf("Expected %d callbacks, got %v", len(want), order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("Position %d: expected %s, got %s", i, want[i], order[i])
		}
	}
}

func TestCancelBeforeFire(t *testing.T) {
	s, m := newMockScheduler()

	fired := false
	h := s.After(50*time.Millisecond, func() { fired = true })

	if !s.Cancel(h) {
		t.Fatal("Expected cancel to succeed for pending callback")
	}
	if s.Cancel(h) {
		t.Error("Second cancel should report false")
	}

	Advance(s, m, time.Second)
	if fired {
		t.Error("Cancelled callback fired")
	}
	if s.Pending() != 0 {
		t.Errorf("Expected empty queue, got %d pending", s.Pending())
	}
}

func TestRunDueRespectsClock(t *testing.T) {
	s, m := newMockScheduler()

	count := 0
	s.After(100*time.Millisecond, func() { count++ })

	if n := s.RunDue(); n != 0 || count != 0 {
		t.Fatalf("Callback ran before its deadline")
	}

	m.Advance(99 * time.Millisecond)
	s.RunDue()
	if count != 0 {
		t.Fatal("Callback ran 1ms early")
	}

	m.Advance(time.Millisecond)
	s.RunDue()
	if count != 1 {
		t.Fatalf("Expected callback at deadline, count=%d", count)
	}
}

func TestChainedCallbacksObserveScheduledTime(t *testing.T) {
	s, m := newMockScheduler()
	start := m.Now()

	var seen []time.Duration
	var step func()
	step = func() {
		seen = append(seen, m.Now().Sub(start))
		if len(seen) < 4 {
			s.After(75*time.Millisecond, step)
		}
	}
	s.After(0, step)

	Advance(s, m, time.Second)

	want := []time.Duration{0, 75 * time.Millisecond, 150 * time.Millisecond, 225 * time.Millisecond}
	if len(seen) != len(want) {
		t.Fatalf("Expected %d steps, got %v", len(want), seen)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("Step %d at %v, want %v", i, seen[i], want[i])
		}
	}
}

func TestRunLoopExecutesPostedAndTimed(t *testing.T) {
	s := New(clock.NewReal())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx) }()

	var timed atomic.Bool
	if err := s.Do(ctx, func() {
		s.After(5*time.Millisecond, func() { timed.Store(true) })
	}); err != nil {
		t.Fatalf("Do failed: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for !timed.Load() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if !timed.Load() {
		t.Fatal("Timed callback never fired under Run")
	}

	if err := s.Run(ctx); !errors.Is(err, ErrRunning) {
		t.Errorf("Expected ErrRunning for concurrent Run, got %v", err)
	}

	cancel()
	if err := <-errCh; !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestDoHonoursContext(t *testing.T) {
	s := New(clock.NewReal())
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	// Fill the mailbox; nothing drains it
	for i := 0; i < cap(s.mailbox); i++ {
		s.Post(func() {})
	}

	if err := s.Do(ctx, func() {}); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline exceeded, got %v", err)
	}
	if n := s.Drain(); n != cap(s.mailbox) {
		t.Errorf("Expected %d drained, got %d", cap(s.mailbox), n)
	}
}

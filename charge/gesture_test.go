package charge

import (
	"errors"
	"testing"
	"time"

	"github.com/lixenwraith/luckydraw/clock"
	"github.com/lixenwraith/luckydraw/sched"
)

func setup() (*sched.Scheduler, *clock.Mock) {
	m := clock.NewMock(time.Unix(1_700_000_000, 0))
	return sched.New(m), m
}

func TestChargeCompletes(t *testing.T) {
	s, m := setup()
	g := New(s, DefaultTiming())

	var levels []int
	completed := 0
	err := g.Begin(func(l int) { levels = append(levels, l) }, func() {
		completed++
		if g.Charging() {
			t.Error("onComplete ran before the gesture returned to idle")
		}
	})
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}

	sched.Advance(s, m, 1470*time.Millisecond)
	if completed != 0 {
		t.Fatal("Completed before reaching full")
	}
	if g.Level() != 98 {
		t.Errorf("Expected level 98 at 1470ms, got %d", g.Level())
	}

	sched.Advance(s, m, 30*time.Millisecond)
	if completed != 1 {
		t.Fatalf("Expected one completion at 1500ms, got %d", completed)
	}
	if len(levels) != 50 || levels[0] != 2 || levels[49] != 100 {
		t.Errorf("Unexpected level sequence len=%d first=%d last=%d", len(levels), levels[0], levels[len(levels)-1])
	}
	if g.Charging() || g.Level() != 0 || s.Pending() != 0 {
		t.Errorf("Gesture not idle after completion: charging=%v level=%d pending=%d", g.Charging(), g.Level(), s.Pending())
	}
}

func TestChargeCancel(t *testing.T) {
	s, m := setup()
	g := New(s, DefaultTiming())

	completed := false
	g.Begin(nil, func() { completed = true })
	sched.Advance(s, m, 300*time.Millisecond)

	if !g.Cancel() {
		t.Fatal("Cancel reported idle gesture")
	}
	if g.Level() != 0 || s.Pending() != 0 {
		t.Errorf("Cancel left level=%d pending=%d", g.Level(), s.Pending())
	}

	sched.Advance(s, m, 5*time.Second)
	if completed {
		t.Error("Cancelled charge completed")
	}
	if g.Cancel() {
		t.Error("Second cancel reported a live charge")
	}
}

func TestBeginWhileCharging(t *testing.T) {
	s, _ := setup()
	g := New(s, DefaultTiming())

	g.Begin(nil, nil)
	if err := g.Begin(nil, nil); !errors.Is(err, ErrAlreadyCharging) {
		t.Errorf("Expected ErrAlreadyCharging, got %v", err)
	}
	if s.Pending() != 1 {
		t.Errorf("Rejected begin scheduled a timer, pending=%d", s.Pending())
	}
}

func TestStaleTickIgnored(t *testing.T) {
	s, m := setup()
	g := New(s, Timing{Interval: 10 * time.Millisecond, Step: 50, Full: 100})

	first := 0
	g.Begin(func(int) { first++ }, nil)
	// A callback captured by the first session must not advance the second
	stale := g.Session()
	g.Cancel()

	second := 0
	g.Begin(func(int) { second++ }, nil)
	g.tick(stale)
	if first != 0 || g.Level() != 0 {
		t.Errorf("Stale tick acted: first=%d level=%d", first, g.Level())
	}

	sched.Advance(s, m, 20*time.Millisecond)
	if second != 2 {
		t.Errorf("Expected 2 ticks in second session, got %d", second)
	}
}

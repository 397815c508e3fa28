package reveal

import (
	"errors"
	"testing"
	"time"

	"github.com/lixenwraith/luckydraw/clock"
	"github.com/lixenwraith/luckydraw/sched"
	"github.com/lixenwraith/luckydraw/ticket"
)

type tickRecord struct {
	at     time.Duration
	digits string
	locked int
}

type recorder struct {
	m        *clock.Mock
	start    time.Time
	ticks    []tickRecord
	nearMiss []tickRecord
	settled  []ticket.Ticket
	final    []bool
}

func (r *recorder) hooks() Hooks {
	return Hooks{
		OnTick: func(_ uint64, d string, locked int) {
			r.ticks = append(r.ticks, tickRecord{r.m.Now().Sub(r.start), d, locked})
		},
		OnNearMiss: func(_ uint64, d string) {
			r.nearMiss = append(r.nearMiss, tickRecord{at: r.m.Now().Sub(r.start), digits: d})
		},
		OnSettled: func(_ uint64, target ticket.Ticket, final bool) {
			r.settled = append(r.settled, target)
			r.final = append(r.final, final)
		},
	}
}

func setup(seed uint64, timing Timing) (*Animator, *sched.Scheduler, *clock.Mock, *recorder) {
	m := clock.NewMock(time.Unix(1_700_000_000, 0))
	s := sched.New(m)
	r := &recorder{m: m, start: m.Now()}
	a := New(s, ticket.NewRandom(seed), timing, r.hooks())
	return a, s, m, r
}

func TestRegularReveal(t *testing.T) {
	a, s, m, r := setup(1, DefaultTiming())

	if _, err := a.Start("472", false, 3); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if a.Phase() != Rolling {
		t.Errorf("Expected rolling after start, got %s", a.Phase())
	}

	sched.RunUntilIdle(s, m, time.Minute)

	if len(r.settled) != 1 || r.settled[0] != "472" || r.final[0] {
		t.Fatalf("Unexpected settle %v final=%v", r.settled, r.final)
	}
	if len(r.nearMiss) != 0 {
		t.Errorf("Regular prize produced a near-miss")
	}
	if a.Active() || a.Phase() != Idle || a.Display() != "472" {
		t.Errorf("Animator not idle on result: active=%v phase=%s display=%q", a.Active(), a.Phase(), a.Display())
	}

	rolling := 0
	for _, tk := range r.ticks {
		if len(tk.digits) != 3 {
			t.Fatalf("Display width %d", len(tk.digits))
		}
		switch {
		case tk.at < 800*time.Millisecond:
			rolling++
			if tk.locked != 0 {
				t.Errorf("Digit locked early at %s", tk.at)
			}
		case tk.at < 1200*time.Millisecond:
			rolling++
			if tk.digits[0] != '4' || tk.locked != 1 {
				t.Errorf("First digit not locked at %s: %q", tk.at, tk.digits)
			}
		default:
			if tk.digits[:2] != "47" || tk.locked != 2 {
				t.Errorf("Slow-mo did not freeze leading digits at %s: %q", tk.at, tk.digits)
			}
			if tk.at >= 5200*time.Millisecond {
				t.Errorf("Tick after settle time: %s", tk.at)
			}
		}
	}
	if rolling != 16 {
		t.Errorf("Expected 16 rolling ticks at 75ms cadence, got %d", rolling)
	}
	if elapsed := m.Now().Sub(r.start); elapsed < 5200*time.Millisecond {
		t.Errorf("Settled early at %s", elapsed)
	}
}

// TestFinalRevealNearMiss covers the final prize on a two-digit pool
func TestFinalRevealNearMiss(t *testing.T) {
	for seed := uint64(1); seed <= 20; seed++ {
		a, s, m, r := setup(seed, DefaultTiming())

		var phaseAtNearMiss Phase
		hooks := r.hooks()
		onNearMiss := hooks.OnNearMiss
		hooks.OnNearMiss = func(id uint64, d string) {
			phaseAtNearMiss = a.Phase()
			onNearMiss(id, d)
		}
		a.hooks = hooks

		a.Start("37", true, 2)
		sched.RunUntilIdle(s, m, time.Minute)

		if len(r.nearMiss) != 1 {
			t.Fatalf("seed %d: expected exactly one near-miss, got %d", seed, len(r.nearMiss))
		}
		nm := r.nearMiss[0]
		if nm.digits[0] != '3' || nm.digits[1] == '7' {
			t.Errorf("seed %d: near-miss display %q", seed, nm.digits)
		}
		if phaseAtNearMiss != NearMiss {
			t.Errorf("seed %d: phase during near-miss %s", seed, phaseAtNearMiss)
		}
		// slowMoStart 800ms plus 14s - 2s lead
		if nm.at < 12800*time.Millisecond {
			t.Errorf("seed %d: near-miss too early at %s", seed, nm.at)
		}
		for _, tk := range r.ticks {
			if tk.at > nm.at && tk.at < nm.at+850*time.Millisecond {
				t.Errorf("seed %d: step during near-miss hold at %s", seed, tk.at)
			}
		}
		if len(r.settled) != 1 || r.settled[0] != "37" || !r.final[0] {
			t.Errorf("seed %d: unexpected settle %v", seed, r.settled)
		}
	}
}

func TestNearMissClampedToSlowMoStart(t *testing.T) {
	timing := DefaultTiming()
	timing.FinalSlowMo = time.Second
	a, s, m, r := setup(5, timing)

	a.Start("9", true, 1)
	sched.RunUntilIdle(s, m, time.Minute)

	if len(r.nearMiss) != 1 {
		t.Fatalf("Expected one near-miss, got %d", len(r.nearMiss))
	}
	if r.nearMiss[0].at < 800*time.Millisecond {
		t.Errorf("Near-miss fired before slow motion at %s", r.nearMiss[0].at)
	}
	if r.nearMiss[0].digits == "9" {
		t.Error("Near-miss showed the winning digit")
	}
	if len(r.settled) != 1 || r.settled[0] != "9" {
		t.Errorf("Unexpected settle %v", r.settled)
	}
}

func TestCancelDropsSession(t *testing.T) {
	a, s, m, r := setup(3, DefaultTiming())

	a.Start("12", false, 2)
	sched.Advance(s, m, time.Second)
	ticks := len(r.ticks)

	if !a.Cancel() {
		t.Fatal("Cancel reported no session")
	}
	if s.Pending() != 0 {
		t.Errorf("Cancel left %d callbacks", s.Pending())
	}
	sched.Advance(s, m, time.Minute)

	if len(r.settled) != 0 || len(r.ticks) != ticks {
		t.Errorf("Cancelled session kept running: settled=%d ticks=%d->%d", len(r.settled), ticks, len(r.ticks))
	}
	if a.Cancel() {
		t.Error("Second cancel reported a session")
	}
}

func TestStaleCallbackIgnored(t *testing.T) {
	a, s, m, r := setup(4, DefaultTiming())

	first, _ := a.Start("12", false, 2)
	a.Cancel()
	second, _ := a.Start("34", false, 2)
	if second <= first {
		t.Fatalf("Session ids not monotonic: %d then %d", first, second)
	}

	before := len(r.ticks)
	a.step(first)
	if len(r.ticks) != before {
		t.Error("Step for a dead session emitted a tick")
	}

	sched.RunUntilIdle(s, m, time.Minute)
	if len(r.settled) != 1 || r.settled[0] != "34" {
		t.Errorf("Unexpected settle %v", r.settled)
	}
}

func TestStartWhileActive(t *testing.T) {
	a, _, _, _ := setup(1, DefaultTiming())
	a.Start("1", false, 1)
	if _, err := a.Start("2", false, 1); !errors.Is(err, ErrActive) {
		t.Errorf("Expected ErrActive, got %v", err)
	}
}

func TestSlowMoDelayEasing(t *testing.T) {
	tm := DefaultTiming()
	dur := 4 * time.Second

	tests := []struct {
		sme  time.Duration
		want time.Duration
	}{
		{0, 50 * time.Millisecond},
		{dur, 850 * time.Millisecond},
		{2 * dur, 850 * time.Millisecond},
		{dur / 2, 50*time.Millisecond + time.Duration(0.9375*float64(800*time.Millisecond))},
	}
	for _, tt := range tests {
		if got := tm.slowMoDelay(tt.sme, dur); got != tt.want {
			t.Errorf("slowMoDelay(%s) = %s, want %s", tt.sme, got, tt.want)
		}
	}

	locks := tm.lockTimings(4)
	if len(locks) != 3 || locks[0] != 800*time.Millisecond || locks[2] != 1600*time.Millisecond {
		t.Errorf("Unexpected lock timings %v", locks)
	}
	if tm.slowMoStart(tm.lockTimings(1)) != 800*time.Millisecond {
		t.Error("Single digit slow motion should start at lock base")
	}
}

func TestTimingValidate(t *testing.T) {
	if err := DefaultTiming().Validate(); err != nil {
		t.Errorf("Default timing invalid: %v", err)
	}
	bad := DefaultTiming()
	bad.Step = 0
	if bad.Validate() == nil {
		t.Error("Zero step accepted")
	}
}

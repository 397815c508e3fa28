// Package charge implements the hold-to-charge trigger.
package charge

import (
	"errors"
	"time"

	"github.com/lixenwraith/luckydraw/constants"
	"github.com/lixenwraith/luckydraw/sched"
)

// ErrAlreadyCharging rejects Begin while a charge is in progress
var ErrAlreadyCharging = errors.New("already charging")

// Timing controls how fast the meter fills
type Timing struct {
	Interval time.Duration // Period between increments
	Step     int           // Level added per increment
	Full     int           // Level that completes the charge
}

// DefaultTiming returns the stock 30ms / +2 / 100 meter
func DefaultTiming() Timing {
	return Timing{
		Interval: constants.ChargeInterval,
		Step:     constants.ChargeStep,
		Full:     constants.ChargeFull,
	}
}

// Gesture is the Idle/Charging state machine
// All methods and callbacks run on the scheduler goroutine
type Gesture struct {
	sched  *sched.Scheduler
	timing Timing

	session  uint64
	charging bool
	level    int
	pending  sched.Handle

	onLevel    func(level int)
	onComplete func()
}

func New(s *sched.Scheduler, t Timing) *Gesture {
	if t.Interval <= 0 || t.Step <= 0 || t.Full <= 0 {
		t = DefaultTiming()
	}
	return &Gesture{sched: s, timing: t}
}

// Begin starts filling the meter from zero
// onLevel sees every increment; onComplete runs once the gesture is back to Idle
func (g *Gesture) Begin(onLevel func(level int), onComplete func()) error {
	if g.charging {
		return ErrAlreadyCharging
	}
	g.session++
	g.charging = true
	g.level = 0
	g.onLevel = onLevel
	g.onComplete = onComplete
	g.schedule(g.session)
	return nil
}

// Cancel drops the charge without completing, returns false when idle
func (g *Gesture) Cancel() bool {
	if !g.charging {
		return false
	}
	g.sched.Cancel(g.pending)
	g.stop()
	return true
}

func (g *Gesture) schedule(session uint64) {
	g.pending = g.sched.After(g.timing.Interval, func() { g.tick(session) })
}

func (g *Gesture) tick(session uint64) {
	if session != g.session || !g.charging {
		return
	}

	g.level = min(g.level+g.timing.Step, g.timing.Full)
	if g.onLevel != nil {
		g.onLevel(g.level)
	}
	// onLevel may have cancelled
	if session != g.session || !g.charging {
		return
	}

	if g.level < g.timing.Full {
		g.schedule(session)
		return
	}

	complete := g.onComplete
	g.stop()
	if complete != nil {
		complete()
	}
}

func (g *Gesture) stop() {
	g.charging = false
	g.level = 0
	g.pending = 0
	g.onLevel = nil
	g.onComplete = nil
}

// Charging reports whether the meter is filling
func (g *Gesture) Charging() bool { return g.charging }

// Level is the current meter value, 0 when idle
func (g *Gesture) Level() int { return g.level }

// Session is the id of the latest charge
func (g *Gesture) Session() uint64 { return g.session }

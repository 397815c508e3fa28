// Package reveal runs the timed digit reveal for a drawn ticket.
//
// A reveal moves Idle -> Rolling -> SlowMo -> (NearMiss) -> Settled and back to Idle.
// Each step samples elapsed time from the scheduler clock, decides the phase, updates the
// display and schedules the next step. Every callback carries the session id it was
// scheduled under and does nothing once that session is gone.
package reveal

import (
	"errors"
	"time"

	"github.com/lixenwraith/luckydraw/sched"
	"github.com/lixenwraith/luckydraw/ticket"
)

// ErrActive rejects Start while a reveal is running
var ErrActive = errors.New("reveal already in progress")

// Blank fills display cells before the first step
const Blank = ' '

// Phase is the reveal state
type Phase uint8

const (
	Idle Phase = iota
	Rolling
	SlowMo
	NearMiss
	Settled
)

var phaseNames = [...]string{"idle", "rolling", "slow_mo", "near_miss", "settled"}

func (p Phase) String() string {
	if int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return "unknown"
}

// Hooks receive reveal output on the scheduler goroutine
type Hooks struct {
	OnTick     func(session uint64, digits string, locked int)
	OnNearMiss func(session uint64, digits string)
	OnSettled  func(session uint64, target ticket.Ticket, final bool)
}

// Session is the state of one running reveal
type Session struct {
	ID            uint64
	Target        ticket.Ticket
	Display       []rune
	Start         time.Time
	Final         bool
	Phase         Phase
	NearMissShown bool

	target      []rune
	locks       []time.Duration
	slowMoStart time.Duration
	slowMoDur   time.Duration
	pending     sched.Handle
}

// Animator owns at most one live reveal session
type Animator struct {
	sched  *sched.Scheduler
	rng    ticket.RandomSource
	timing Timing
	hooks  Hooks

	nextID  uint64
	current *Session
	display []rune // Last shown digits, survives settle
}

func New(s *sched.Scheduler, rng ticket.RandomSource, t Timing, h Hooks) *Animator {
	return &Animator{sched: s, rng: rng, timing: t, hooks: h}
}

// SetTiming replaces pacing for subsequent reveals
func (a *Animator) SetTiming(t Timing) {
	a.timing = t
}

// Start begins revealing target; the first step is due at once
func (a *Animator) Start(target ticket.Ticket, final bool, maxDigits int) (uint64, error) {
	if a.current != nil {
		return 0, ErrActive
	}

	runes := []rune(target)
	if maxDigits < len(runes) {
		maxDigits = len(runes)
	}
	// Left-pad short targets so every cell has a winning character
	for len(runes) < maxDigits {
		runes = append([]rune{'0'}, runes...)
	}

	a.nextID++
	locks := a.timing.lockTimings(maxDigits)
	s := &Session{
		ID:          a.nextID,
		Target:      target,
		Display:     blank(maxDigits),
		Start:       a.sched.Now(),
		Final:       final,
		Phase:       Rolling,
		target:      runes,
		locks:       locks,
		slowMoStart: a.timing.slowMoStart(locks),
		slowMoDur:   a.timing.slowMoDuration(final),
	}
	a.current = s
	a.display = s.Display

	a.after(s, 0, a.step)
	return s.ID, nil
}

// Cancel drops the live session without settling, returns false when idle
func (a *Animator) Cancel() bool {
	s := a.current
	if s == nil {
		return false
	}
	a.sched.Cancel(s.pending)
	a.current = nil
	a.display = nil
	return true
}

func (a *Animator) live(id uint64) *Session {
	if a.current == nil || a.current.ID != id {
		return nil
	}
	return a.current
}

func (a *Animator) after(s *Session, d time.Duration, fn func(uint64)) {
	id := s.ID
	s.pending = a.sched.After(d, func() { fn(id) })
}

func (a *Animator) step(id uint64) {
	s := a.live(id)
	if s == nil {
		return
	}
	elapsed := a.sched.Now().Sub(s.Start)
	last := len(s.target) - 1

	if elapsed < s.slowMoStart {
		s.Phase = Rolling
		locked := 0
		for i := range s.target {
			if i < last && elapsed >= s.locks[i] {
				s.Display[i] = s.target[i]
				locked++
			} else {
				s.Display[i] = a.randomDigit()
			}
		}
		a.tick(s, locked)
		if a.live(id) != nil {
			a.after(s, a.timing.Step, a.step)
		}
		return
	}

	sme := elapsed - s.slowMoStart
	if sme >= s.slowMoDur {
		a.settle(s)
		return
	}

	if s.Final && !s.NearMissShown && sme >= a.timing.nearMissAt(s.slowMoDur) {
		s.NearMissShown = true
		s.Phase = NearMiss
		copy(s.Display, s.target)
		s.Display[last] = a.fakeDigit(s.target[last])
		if a.hooks.OnNearMiss != nil {
			a.hooks.OnNearMiss(s.ID, string(s.Display))
		}
		if a.live(id) != nil {
			a.after(s, a.timing.NearMissHold, a.resume)
		}
		return
	}

	s.Phase = SlowMo
	copy(s.Display, s.target)
	s.Display[last] = a.randomDigit()
	a.tick(s, last)
	if a.live(id) != nil {
		a.after(s, a.timing.slowMoDelay(sme, s.slowMoDur), a.step)
	}
}

// resume ends the near-miss hold
func (a *Animator) resume(id uint64) {
	s := a.live(id)
	if s == nil {
		return
	}
	s.Phase = SlowMo
	a.after(s, a.timing.SlowMoFloor, a.step)
}

func (a *Animator) settle(s *Session) {
	s.Phase = Settled
	copy(s.Display, s.target)
	a.display = s.Display
	a.current = nil
	if a.hooks.OnSettled != nil {
		a.hooks.OnSettled(s.ID, s.Target, s.Final)
	}
}

func (a *Animator) tick(s *Session, locked int) {
	a.display = s.Display
	if a.hooks.OnTick != nil {
		a.hooks.OnTick(s.ID, string(s.Display), locked)
	}
}

func (a *Animator) randomDigit() rune {
	return rune('0' + a.rng.IntN(10))
}

// fakeDigit picks a digit different from the winning character
func (a *Animator) fakeDigit(win rune) rune {
	for {
		d := a.randomDigit()
		if d != win {
			return d
		}
	}
}

func blank(n int) []rune {
	r := make([]rune, n)
	for i := range r {
		r[i] = Blank
	}
	return r
}

// Active reports whether a reveal is running
func (a *Animator) Active() bool { return a.current != nil }

// Phase is the live session phase, Idle when none
func (a *Animator) Phase() Phase {
	if a.current == nil {
		return Idle
	}
	return a.current.Phase
}

// SessionID is the live session id, 0 when idle
func (a *Animator) SessionID() uint64 {
	if a.current == nil {
		return 0
	}
	return a.current.ID
}

// Display returns the digits last shown, including a settled result
func (a *Animator) Display() string {
	return string(a.display)
}

// SetDisplay overrides the idle display, e.g. after undo or restore
func (a *Animator) SetDisplay(digits string) {
	if a.current != nil {
		return
	}
	a.display = []rune(digits)
}

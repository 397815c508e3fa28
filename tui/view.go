package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/lixenwraith/luckydraw/engine"
	"github.com/lixenwraith/luckydraw/event"
)

// StatusDuration is how long a status message stays on screen
const StatusDuration = 3 * time.Second

// View is everything the renderer draws
// State is refreshed from the engine; the rest is derived from events
type View struct {
	State engine.State

	Title    string
	Subtitle string

	Locked   int  // Leading digits showing the winner
	NearMiss bool // Last digit is the false stop
	Settled  bool

	CelebrateUntil time.Time
	CelebrateFinal bool

	Status      string
	StatusError bool
	StatusUntil time.Time

	ConfirmReset bool
}

// Apply folds one engine event into the view
func (v *View) Apply(ev event.Event, now time.Time) {
	switch p := ev.Payload.(type) {
	case *event.DrawStartedPayload:
		v.Locked = 0
		v.NearMiss = false
		v.Settled = false
		v.CelebrateUntil = time.Time{}
		label := p.PrizeName
		if p.Final {
			label = "FINAL: " + label
		}
		v.SetStatus("Drawing "+label, false, now)
	case *event.TickPayload:
		v.Locked = p.Locked
		v.NearMiss = false
	case *event.NearMissPayload:
		v.NearMiss = true
	case *event.SettledPayload:
		v.Locked = len(p.Group.Tickets[0])
		v.NearMiss = false
		v.Settled = true
		v.CelebrateUntil = now.Add(p.Celebration)
		v.CelebrateFinal = p.Final
		v.SetStatus(fmt.Sprintf("%s: %s", p.Group.PrizeName, strings.Join(p.Group.Tickets, ", ")), false, now)
	case *event.UndonePayload:
		v.clearReveal()
		v.SetStatus("Undid "+p.Group.PrizeName, false, now)
	case *event.ErrorPayload:
		v.SetStatus(p.Message, true, now)
	case *event.ConfiguredPayload:
		v.clearReveal()
		switch ev.Type {
		case event.Reset:
			v.SetStatus("Draw reset", false, now)
		case event.Restored:
			v.SetStatus("Session restored", false, now)
		}
	}
}

func (v *View) clearReveal() {
	v.Locked = 0
	v.NearMiss = false
	v.Settled = false
	v.CelebrateUntil = time.Time{}
}

// SetStatus shows msg for StatusDuration
func (v *View) SetStatus(msg string, isErr bool, now time.Time) {
	v.Status = msg
	v.StatusError = isErr
	v.StatusUntil = now.Add(StatusDuration)
}

// Expire clears a timed-out status line
func (v *View) Expire(now time.Time) {
	if v.Status != "" && !now.Before(v.StatusUntil) {
		v.Status = ""
		v.StatusError = false
	}
}

// Celebrating reports whether the settle window is still open
func (v *View) Celebrating(now time.Time) bool {
	return v.Settled && now.Before(v.CelebrateUntil)
}

// PrizeLine is the heading above the digits
func (v *View) PrizeLine() string {
	st := v.State
	switch {
	case st.PrizeName != "" && st.Final:
		return "FINAL: " + st.PrizeName
	case st.PrizeName != "":
		return st.PrizeName
	case st.NextPrize != "":
		return "Next up: " + st.NextPrize
	}
	return "All prizes awarded"
}

// Digits pads the display to the pool width
func (v *View) Digits() string {
	d := v.State.Display
	if n := v.State.MaxDigits - len([]rune(d)); n > 0 {
		d += strings.Repeat(" ", n)
	}
	return d
}

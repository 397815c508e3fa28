package event

import "fmt"

// Type represents the type of draw event
type Type int

const (
	// === Reveal Event ===

	// Tick carries the digits currently shown by a running reveal
	// Trigger: every reveal step in Rolling and SlowMo
	// Consumer: display, audio | Payload: *TickPayload
	Tick Type = iota

	// NearMiss signals the scripted false last digit on the final prize
	// Trigger: reveal enters the near-miss window, at most once per session
	// Consumer: display, audio | Payload: *NearMissPayload
	NearMiss

	// Settled signals a committed winner group
	// Trigger: reveal reaches the end of slow motion and history accepted the group
	// Consumer: display, audio, autosave | Payload: *SettledPayload
	Settled

	// === Command Event ===

	// Error reports a user-surfaced command failure
	// Trigger: any rejected command except undo on empty history
	// Consumer: display status line | Payload: *ErrorPayload
	Error

	// ChargeLevel reports the charge meter
	// Trigger: every charge tick, and 0 on cancel
	// Consumer: display, audio | Payload: *ChargeLevelPayload
	ChargeLevel

	// DrawStarted signals a reserved group entering the reveal
	// Trigger: Draw accepted
	// Consumer: display, audio | Payload: *DrawStartedPayload
	DrawStarted

	// Undone signals removal of the last winner group
	// Consumer: display, autosave | Payload: *UndonePayload
	Undone

	// Reset signals the pool and history returned to the initial state
	// Consumer: display, autosave | Payload: *ConfiguredPayload
	Reset

	// Configured signals a new ticket pool and draw configuration
	// Consumer: display, autosave | Payload: *ConfiguredPayload
	Configured

	// Restored signals a session loaded from a snapshot
	// Consumer: display | Payload: *ConfiguredPayload
	Restored
)

var typeNames = [...]string{
	Tick:        "tick",
	NearMiss:    "near_miss",
	Settled:     "settled",
	Error:       "error",
	ChargeLevel: "charge_level",
	DrawStarted: "draw_started",
	Undone:      "undone",
	Reset:       "reset",
	Configured:  "configured",
	Restored:    "restored",
}

func (t Type) String() string {
	if t >= 0 && int(t) < len(typeNames) {
		return typeNames[t]
	}
	return fmt.Sprintf("event(%d)", int(t))
}

// MarshalText encodes the type by name for the websocket stream
func (t Type) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// ErrorKind classifies an Error event
type ErrorKind int

const (
	KindValidation ErrorKind = iota
	KindPoolExhausted
	KindPrizesExhausted
	KindEmptyHistory
	KindInvariant
	KindSnapshot
	KindBusy
)

var kindNames = [...]string{
	KindValidation:      "validation",
	KindPoolExhausted:   "pool_exhausted",
	KindPrizesExhausted: "prizes_exhausted",
	KindEmptyHistory:    "empty_history",
	KindInvariant:       "invariant",
	KindSnapshot:        "snapshot",
	KindBusy:            "busy",
}

func (k ErrorKind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

func (k ErrorKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

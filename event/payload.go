package event

import (
	"time"

	"github.com/lixenwraith/luckydraw/history"
	"github.com/lixenwraith/luckydraw/ticket"
)

// Event is a single engine notification
type Event struct {
	Type      Type      `json:"type"`
	Payload   any       `json:"payload,omitempty"`
	Session   uint64    `json:"session,omitempty"` // Reveal or charge session, 0 for commands
	Timestamp time.Time `json:"timestamp"`
}

// TickPayload is the display during a reveal step
type TickPayload struct {
	Digits string `json:"digits"`
	Locked int    `json:"locked"` // Leading characters already showing the winner
}

// NearMissPayload carries the display with the false last digit
type NearMissPayload struct {
	Digits string `json:"digits"`
}

// SettledPayload carries the committed group
type SettledPayload struct {
	Group       history.WinnerGroup `json:"group"`
	Final       bool                `json:"final"`
	Celebration time.Duration       `json:"celebration"`
	Remaining   int                 `json:"remaining"`
}

// ErrorPayload describes a rejected command
type ErrorPayload struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

// ChargeLevelPayload is the charge meter, 0..100
type ChargeLevelPayload struct {
	Level int `json:"level"`
}

// DrawStartedPayload describes the group entering the reveal
type DrawStartedPayload struct {
	PrizeName string          `json:"prizeName"`
	Final     bool            `json:"final"`
	Tickets   []ticket.Ticket `json:"tickets"`
}

// UndonePayload carries the group returned to the pool
type UndonePayload struct {
	Group     history.WinnerGroup `json:"group"`
	Remaining int                 `json:"remaining"`
}

// ConfiguredPayload summarises a new or restored session
type ConfiguredPayload struct {
	SessionID string `json:"sessionId"`
	Tickets   int    `json:"tickets"`
	Remaining int    `json:"remaining"`
	Awarded   int    `json:"awarded"`
	NumPrizes int    `json:"numPrizes"`
	MaxDigits int    `json:"maxDigits"`
}

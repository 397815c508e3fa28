// Package history keeps the append-only record of awarded prizes.
package history

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/lixenwraith/luckydraw/ticket"
)

// ErrEmptyHistory is returned by UndoLast when nothing has been awarded
var ErrEmptyHistory = errors.New("no draws to undo")

// InvariantError reports a commit that would exceed the configured prize count
type InvariantError struct {
	Len      int
	Capacity int
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("history invariant violated: %d of %d prizes already awarded", e.Len, e.Capacity)
}

// WinnerGroup is the set of tickets awarded one prize; immutable once committed
type WinnerGroup struct {
	PrizeName string          `json:"prize" toml:"prize"`
	Tickets   []ticket.Ticket `json:"tickets" toml:"tickets"`
	Final     bool            `json:"final" toml:"final"`
	DrawnAt   time.Time       `json:"drawnAt" toml:"drawn_at"`
}

// Clone returns a deep copy
func (g WinnerGroup) Clone() WinnerGroup {
	g.Tickets = slices.Clone(g.Tickets)
	return g
}

// Ledger holds committed winner groups in award order
type Ledger struct {
	groups   []WinnerGroup
	capacity int
}

// NewLedger creates an empty ledger accepting up to capacity groups
func NewLedger(capacity int) *Ledger {
	return &Ledger{capacity: capacity}
}

// Commit appends a group
func (l *Ledger) Commit(g WinnerGroup) error {
	if len(l.groups) >= l.capacity {
		return &InvariantError{Len: len(l.groups), Capacity: l.capacity}
	}
	l.groups = append(l.groups, g.Clone())
	return nil
}

// UndoLast removes and returns the most recent group
func (l *Ledger) UndoLast() (WinnerGroup, error) {
	if len(l.groups) == 0 {
		return WinnerGroup{}, ErrEmptyHistory
	}
	last := l.groups[len(l.groups)-1]
	l.groups = l.groups[:len(l.groups)-1]
	return last, nil
}

// RemainingSlots is how many more groups fit
func (l *Ledger) RemainingSlots() int {
	return max(0, l.capacity-len(l.groups))
}

// SetCapacity changes the prize count; existing groups are kept
func (l *Ledger) SetCapacity(n int) {
	l.capacity = n
}

func (l *Ledger) Capacity() int { return l.capacity }

func (l *Ledger) Len() int { return len(l.groups) }

// Groups returns a deep copy in award order
func (l *Ledger) Groups() []WinnerGroup {
	out := make([]WinnerGroup, len(l.groups))
	for i, g := range l.groups {
		out[i] = g.Clone()
	}
	return out
}

// Last returns the most recent group, if any
func (l *Ledger) Last() (WinnerGroup, bool) {
	if len(l.groups) == 0 {
		return WinnerGroup{}, false
	}
	return l.groups[len(l.groups)-1].Clone(), true
}

// Tickets lists every awarded ticket in award order
func (l *Ledger) Tickets() []ticket.Ticket {
	var out []ticket.Ticket
	for _, g := range l.groups {
		out = append(out, g.Tickets...)
	}
	return out
}

// Reset drops every group
func (l *Ledger) Reset() {
	l.groups = nil
}

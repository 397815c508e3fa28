// Package snapshot is the persisted form of a draw session and the stores that keep it.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/lixenwraith/luckydraw/constants"
	"github.com/lixenwraith/luckydraw/history"
	"github.com/lixenwraith/luckydraw/prize"
	"github.com/lixenwraith/luckydraw/ticket"
)

// ErrNotFound is returned by a Store with no snapshot under the requested name
var ErrNotFound = errors.New("snapshot not found")

// Error rejects a structurally invalid snapshot
type Error struct {
	Err error
}

func (e *Error) Error() string {
	return "invalid or corrupted session: " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

func corrupt(format string, args ...any) error {
	return &Error{Err: fmt.Errorf(format, args...)}
}

// Snapshot is a complete draw session
//
// The JSON form is the flat browser session file: typed fields use the keys
// below and every other top-level key (title, theme, volumes, ...) lands in
// Presentation and is written back out unchanged.
type Snapshot struct {
	SessionID        string                `json:"sessionId,omitempty" toml:"session_id"`
	TicketSpec       string                `json:"inputValue,omitempty" toml:"ticket_spec"`
	InitialTickets   []ticket.Ticket       `json:"initialTickets" toml:"initial_tickets"`
	RemainingTickets []ticket.Ticket       `json:"remainingTickets" toml:"remaining_tickets"`
	History          []history.WinnerGroup `json:"winnersHistory" toml:"history"`
	NumPrizes        int                   `json:"numPrizes" toml:"num_prizes"`
	WinnersPerPrize  int                   `json:"winnersPerPrize" toml:"winners_per_prize"`
	DrawOrder        string                `json:"drawOrder" toml:"draw_order"`
	MaxDigits        int                   `json:"maxDigits" toml:"max_digits"`
	SavedAt          time.Time             `json:"savedAt,omitzero" toml:"saved_at"`
	Presentation     map[string]any        `json:"-" toml:"presentation,omitempty"`
}

// sessionKeys are the JSON keys owned by typed Snapshot fields
var sessionKeys = map[string]bool{
	"sessionId":        true,
	"inputValue":       true,
	"initialTickets":   true,
	"remainingTickets": true,
	"winnersHistory":   true,
	"numPrizes":        true,
	"winnersPerPrize":  true,
	"drawOrder":        true,
	"maxDigits":        true,
	"savedAt":          true,
}

type snapshotFields Snapshot

func (s Snapshot) MarshalJSON() ([]byte, error) {
	b, err := json.Marshal(snapshotFields(s))
	if err != nil || len(s.Presentation) == 0 {
		return b, err
	}

	flat := make(map[string]json.RawMessage, len(sessionKeys)+len(s.Presentation))
	if err := json.Unmarshal(b, &flat); err != nil {
		return nil, err
	}
	for k, v := range s.Presentation {
		if sessionKeys[k] {
			continue
		}
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("presentation key %q: %w", k, err)
		}
		flat[k] = raw
	}
	return json.Marshal(flat)
}

func (s *Snapshot) UnmarshalJSON(b []byte) error {
	var typed snapshotFields
	if err := json.Unmarshal(b, &typed); err != nil {
		return err
	}
	var flat map[string]json.RawMessage
	if err := json.Unmarshal(b, &flat); err != nil {
		return err
	}
	for k, raw := range flat {
		if sessionKeys[k] {
			continue
		}
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return fmt.Errorf("presentation key %q: %w", k, err)
		}
		if typed.Presentation == nil {
			typed.Presentation = make(map[string]any)
		}
		typed.Presentation[k] = v
	}
	*s = Snapshot(typed)
	return nil
}

// Validate checks the ticket partition and normalises the snapshot in place
//
// Tickets are re-padded to the widest initial ticket, MaxDigits is re-derived,
// and zero config fields take the stock defaults.
func (s *Snapshot) Validate() error {
	if len(s.InitialTickets) == 0 {
		return corrupt("no initial tickets")
	}

	pool, err := ticket.Restored(s.InitialTickets, s.RemainingTickets)
	if err != nil {
		return &Error{Err: err}
	}

	awarded := make(map[ticket.Ticket]struct{})
	groups := make([]history.WinnerGroup, len(s.History))
	for i, g := range s.History {
		if len(g.Tickets) == 0 {
			return corrupt("history group %d has no tickets", i)
		}
		g = g.Clone()
		for j, raw := range g.Tickets {
			t := pool.Pad(raw)
			if !pool.Known(t) {
				return corrupt("history ticket %q: %w", raw, ticket.ErrUnknownTicket)
			}
			if pool.Contains(t) {
				return corrupt("history ticket %q is also remaining: %w", raw, ticket.ErrDuplicate)
			}
			if _, dup := awarded[t]; dup {
				return corrupt("history ticket %q awarded twice: %w", raw, ticket.ErrDuplicate)
			}
			awarded[t] = struct{}{}
			g.Tickets[j] = t
		}
		groups[i] = g
	}

	if pool.Len()+len(awarded) != pool.Size() {
		return corrupt("%d remaining and %d awarded tickets do not add up to %d", pool.Len(), len(awarded), pool.Size())
	}

	if s.NumPrizes <= 0 {
		s.NumPrizes = constants.DefaultNumPrizes
	}
	if s.WinnersPerPrize <= 0 {
		s.WinnersPerPrize = constants.DefaultWinnersPerPrize
	}
	order, err := prize.ParseOrder(s.DrawOrder)
	if err != nil {
		return &Error{Err: err}
	}
	if len(groups) > s.NumPrizes {
		return corrupt("%d groups awarded but only %d prizes configured", len(groups), s.NumPrizes)
	}

	s.DrawOrder = order.String()
	s.InitialTickets = pool.Initial()
	s.RemainingTickets = pool.Remaining()
	s.History = groups
	s.MaxDigits = pool.MaxDigits()
	return nil
}

// Clone returns a deep copy; Presentation values are shared
func (s Snapshot) Clone() Snapshot {
	out := s
	out.InitialTickets = append([]ticket.Ticket(nil), s.InitialTickets...)
	out.RemainingTickets = append([]ticket.Ticket(nil), s.RemainingTickets...)
	out.History = make([]history.WinnerGroup, len(s.History))
	for i, g := range s.History {
		out.History[i] = g.Clone()
	}
	if s.Presentation != nil {
		out.Presentation = make(map[string]any, len(s.Presentation))
		for k, v := range s.Presentation {
			out.Presentation[k] = v
		}
	}
	return out
}

// Decode reads a JSON session file and validates it
func Decode(r io.Reader) (Snapshot, error) {
	var s Snapshot
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return Snapshot{}, &Error{Err: err}
	}
	if err := s.Validate(); err != nil {
		return Snapshot{}, err
	}
	return s, nil
}

// Encode writes s as indented JSON
func Encode(w io.Writer, s Snapshot) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

package engine

import (
	"fmt"
	"maps"

	"github.com/google/uuid"

	"github.com/lixenwraith/luckydraw/event"
	"github.com/lixenwraith/luckydraw/history"
	"github.com/lixenwraith/luckydraw/prize"
	"github.com/lixenwraith/luckydraw/reveal"
	"github.com/lixenwraith/luckydraw/snapshot"
	"github.com/lixenwraith/luckydraw/ticket"
)

// Snapshot copies the session for persistence
// A group still being revealed counts as remaining
func (e *Engine) Snapshot() snapshot.Snapshot {
	inFlight := make(map[ticket.Ticket]struct{})
	if e.reserved != nil {
		for _, t := range e.reserved.tickets {
			inFlight[t] = struct{}{}
		}
	}

	initial := e.pool.Initial()
	remaining := make([]ticket.Ticket, 0, e.remainingCount())
	for _, t := range initial {
		if _, ok := inFlight[t]; ok || e.pool.Contains(t) {
			remaining = append(remaining, t)
		}
	}

	return snapshot.Snapshot{
		SessionID:        e.sessionID,
		TicketSpec:       e.spec,
		InitialTickets:   initial,
		RemainingTickets: remaining,
		History:          e.ledger.Groups(),
		NumPrizes:        e.cfg.NumPrizes,
		WinnersPerPrize:  e.cfg.WinnersPerPrize,
		DrawOrder:        e.cfg.Order.String(),
		MaxDigits:        e.pool.MaxDigits(),
		SavedAt:          e.sched.Now().UTC(),
		Presentation:     maps.Clone(e.presentation),
	}
}

// Restore replaces the session with s
// An invalid snapshot leaves the current session untouched
func (e *Engine) Restore(s snapshot.Snapshot) error {
	if e.revealing() {
		return e.fail(ErrBusy)
	}

	s = s.Clone()
	if err := s.Validate(); err != nil {
		return e.fail(err)
	}
	pool, err := ticket.Restored(s.InitialTickets, s.RemainingTickets)
	if err != nil {
		return e.fail(&snapshot.Error{Err: err})
	}
	order, err := prize.ParseOrder(s.DrawOrder)
	if err != nil {
		return e.fail(&snapshot.Error{Err: err})
	}
	ledger := history.NewLedger(s.NumPrizes)
	for _, g := range s.History {
		if err := ledger.Commit(g); err != nil {
			return e.fail(&snapshot.Error{Err: fmt.Errorf("replay history: %w", err)})
		}
	}

	e.CancelCharge()
	sessionID := s.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	cfg := DrawConfig{NumPrizes: s.NumPrizes, WinnersPerPrize: s.WinnersPerPrize, Order: order}
	e.install(pool, s.TicketSpec, cfg, ledger, sessionID)
	if s.Presentation != nil {
		e.presentation = s.Presentation
	}

	e.log.Info().Str("session", sessionID).Int("remaining", pool.Len()).Int("awarded", ledger.Len()).Msg("session restored")
	e.emit(event.Restored, e.configuredPayload(), 0)
	return nil
}

// State is a read-only view for displays and transports
type State struct {
	SessionID  string                `json:"sessionId"`
	TicketSpec string                `json:"ticketSpec"`
	Phase      reveal.Phase          `json:"-"`
	PhaseName  string                `json:"phase"`
	Charging   bool                  `json:"charging"`
	Level      int                   `json:"level"`
	Remaining  int                   `json:"remaining"`
	Initial    int                   `json:"initial"`
	History    []history.WinnerGroup `json:"history"`
	PrizeName  string                `json:"prizeName"`
	NextPrize  string                `json:"nextPrize"`
	Final      bool                  `json:"final"`
	Display    string                `json:"display"`
	MaxDigits  int                   `json:"maxDigits"`
	Config     DrawConfig            `json:"config"`
}

// State snapshots the live session for rendering
func (e *Engine) State() State {
	st := State{
		SessionID:  e.sessionID,
		TicketSpec: e.spec,
		Phase:      e.animator.Phase(),
		Charging:   e.gesture.Charging(),
		Level:      e.gesture.Level(),
		Remaining:  e.remainingCount(),
		Initial:    e.pool.Size(),
		History:    e.ledger.Groups(),
		PrizeName:  e.prizeName,
		Display:    e.animator.Display(),
		MaxDigits:  e.pool.MaxDigits(),
		Config:     e.cfg,
	}
	st.PhaseName = st.Phase.String()
	if e.reserved != nil {
		st.Final = e.reserved.final
	} else if g, ok := e.ledger.Last(); ok && g.PrizeName == e.prizeName {
		st.Final = g.Final
	}
	if e.ledger.RemainingSlots() > 0 {
		st.NextPrize = prize.Name(e.ledger.Len(), e.cfg.NumPrizes, e.cfg.Order)
	}
	return st
}

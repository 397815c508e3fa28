// Package engine owns a draw session and serialises every command against it.
//
// An Engine is not safe for concurrent use. All commands, timer callbacks and event
// handlers run on the scheduler goroutine; other goroutines reach it through
// sched.Scheduler.Do or Post.
package engine

import (
	"maps"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lixenwraith/luckydraw/charge"
	"github.com/lixenwraith/luckydraw/clock"
	"github.com/lixenwraith/luckydraw/constants"
	"github.com/lixenwraith/luckydraw/event"
	"github.com/lixenwraith/luckydraw/history"
	"github.com/lixenwraith/luckydraw/prize"
	"github.com/lixenwraith/luckydraw/reveal"
	"github.com/lixenwraith/luckydraw/sched"
	"github.com/lixenwraith/luckydraw/ticket"
)

// reservation is a group taken from the pool whose reveal has not settled
type reservation struct {
	session uint64
	tickets []ticket.Ticket
	prize   string
	final   bool
}

// Engine is the single owner of pool, ledger, animator and gesture
type Engine struct {
	sched  *sched.Scheduler
	rng    ticket.RandomSource
	bus    *event.Bus
	timing Timing
	log    zerolog.Logger

	pool      *ticket.Pool
	spec      string
	cfg       DrawConfig
	ledger    *history.Ledger
	animator  *reveal.Animator
	gesture   *charge.Gesture
	reserved  *reservation
	sessionID string
	prizeName string // Prize on display: the running or last settled one

	presentation map[string]any
}

// Option configures an Engine
type Option func(*Engine)

func WithScheduler(s *sched.Scheduler) Option { return func(e *Engine) { e.sched = s } }
func WithRandom(r ticket.RandomSource) Option { return func(e *Engine) { e.rng = r } }
func WithBus(b *event.Bus) Option             { return func(e *Engine) { e.bus = b } }
func WithTiming(t Timing) Option              { return func(e *Engine) { e.timing = t } }
func WithLogger(l zerolog.Logger) Option      { return func(e *Engine) { e.log = l } }

// New creates an engine holding the stock "1-50" session
func New(opts ...Option) *Engine {
	e := &Engine{
		timing: DefaultTiming(),
		log:    zerolog.Nop(),
		cfg:    DefaultDrawConfig(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.sched == nil {
		e.sched = sched.New(clock.NewReal())
	}
	if e.rng == nil {
		e.rng = ticket.NewRandom(0)
	}
	if e.bus == nil {
		e.bus = event.NewBus(e.log)
	}

	e.animator = reveal.New(e.sched, e.rng, e.timing.Reveal, reveal.Hooks{
		OnTick:     e.onTick,
		OnNearMiss: e.onNearMiss,
		OnSettled:  e.onSettled,
	})
	e.gesture = charge.New(e.sched, e.timing.Charge)

	pool, _ := ticket.Build(constants.DefaultTicketSpec)
	e.install(pool, constants.DefaultTicketSpec, e.cfg, history.NewLedger(e.cfg.NumPrizes), uuid.NewString())
	return e
}

// install swaps in a complete session
func (e *Engine) install(pool *ticket.Pool, spec string, cfg DrawConfig, ledger *history.Ledger, sessionID string) {
	e.pool = pool
	e.spec = spec
	e.cfg = cfg
	e.ledger = ledger
	e.sessionID = sessionID
	e.reserved = nil
	e.prizeName = ""
	if g, ok := ledger.Last(); ok {
		e.prizeName = g.PrizeName
	}
	e.showFirst()
}

// showFirst puts the first eligible, or first initial, ticket on the idle display
func (e *Engine) showFirst() {
	rem := e.pool.Remaining()
	switch {
	case len(rem) > 0:
		e.animator.SetDisplay(rem[0])
	default:
		e.animator.SetDisplay(e.pool.Initial()[0])
	}
}

func (e *Engine) emit(t event.Type, payload any, session uint64) {
	e.bus.Publish(event.Event{Type: t, Payload: payload, Session: session, Timestamp: e.sched.Now()})
}

// fail reports err as an Error event and returns it
func (e *Engine) fail(err error) error {
	kind := KindOf(err)
	ev := e.log.Warn()
	if kind == event.KindInvariant {
		ev = e.log.Error()
	}
	ev.Err(err).Stringer("kind", kind).Str("session", e.sessionID).Msg("command rejected")
	e.emit(event.Error, &event.ErrorPayload{Kind: kind, Message: err.Error()}, 0)
	return err
}

func (e *Engine) revealing() bool {
	return e.animator.Active() || e.reserved != nil
}

// drawable checks the draw guards in order: busy, prizes, pool
func (e *Engine) drawable() error {
	switch {
	case e.revealing():
		return ErrBusy
	case e.ledger.RemainingSlots() == 0:
		return ErrPrizesExhausted
	case e.pool.Len() == 0:
		return ticket.ErrPoolExhausted
	}
	return nil
}

// Configure replaces the ticket pool and prize setup, clearing history
func (e *Engine) Configure(spec string, cfg DrawConfig) error {
	return e.configure(spec, cfg, func() (*ticket.Pool, error) { return ticket.Build(spec) })
}

// ConfigureList is Configure for an imported ticket list, one token per entry
// The list is recorded as the comma-joined spec so snapshots show what was loaded.
func (e *Engine) ConfigureList(tokens []string, cfg DrawConfig) error {
	spec := strings.Join(tokens, ", ")
	return e.configure(spec, cfg, func() (*ticket.Pool, error) { return ticket.BuildList(tokens) })
}

func (e *Engine) configure(spec string, cfg DrawConfig, build func() (*ticket.Pool, error)) error {
	if e.revealing() || e.gesture.Charging() {
		return e.fail(ErrBusy)
	}
	if err := cfg.Validate(); err != nil {
		return e.fail(err)
	}
	pool, err := build()
	if err != nil {
		return e.fail(err)
	}

	e.install(pool, spec, cfg, history.NewLedger(cfg.NumPrizes), uuid.NewString())
	e.log.Info().Str("session", e.sessionID).Int("tickets", pool.Size()).Int("prizes", cfg.NumPrizes).Msg("session configured")
	e.emit(event.Configured, e.configuredPayload(), 0)
	return nil
}

// Config returns the live prize setup
func (e *Engine) Config() DrawConfig {
	return e.cfg
}

// UpdateSettings changes the prize setup and keeps the pool and history
func (e *Engine) UpdateSettings(cfg DrawConfig) error {
	if e.revealing() || e.gesture.Charging() {
		return e.fail(ErrBusy)
	}
	if err := cfg.Validate(); err != nil {
		return e.fail(err)
	}
	if cfg.NumPrizes < e.ledger.Len() {
		return e.fail(&ConfigError{Field: "numPrizes", Message: "cannot be less than prizes already awarded"})
	}

	e.cfg = cfg
	e.ledger.SetCapacity(cfg.NumPrizes)
	e.emit(event.Configured, e.configuredPayload(), 0)
	return nil
}

// BeginCharge starts the hold gesture; a full charge draws
func (e *Engine) BeginCharge() error {
	if e.gesture.Charging() {
		return charge.ErrAlreadyCharging
	}
	if err := e.drawable(); err != nil {
		return e.fail(err)
	}
	return e.gesture.Begin(e.onChargeLevel, e.onChargeComplete)
}

// CancelCharge abandons a charge in progress
func (e *Engine) CancelCharge() {
	if e.gesture.Cancel() {
		e.emit(event.ChargeLevel, &event.ChargeLevelPayload{Level: 0}, e.gesture.Session())
	}
}

func (e *Engine) onChargeLevel(level int) {
	e.emit(event.ChargeLevel, &event.ChargeLevelPayload{Level: level}, e.gesture.Session())
}

func (e *Engine) onChargeComplete() {
	// Rejection was already reported as an Error event
	_ = e.Draw()
}

// Draw reserves the next winner group and starts its reveal
func (e *Engine) Draw() error {
	if err := e.drawable(); err != nil {
		return e.fail(err)
	}
	e.CancelCharge()

	n := min(e.cfg.WinnersPerPrize, e.pool.Len())
	group, err := e.pool.Draw(e.rng, n)
	if err != nil {
		return e.fail(err)
	}

	name := prize.Name(e.ledger.Len(), e.cfg.NumPrizes, e.cfg.Order)
	final := prize.IsFinal(e.ledger.Len(), e.cfg.NumPrizes, e.cfg.Order)

	session, err := e.animator.Start(group[0], final, e.pool.MaxDigits())
	if err != nil {
		_ = e.pool.Restore(group)
		return e.fail(ErrBusy)
	}
	e.reserved = &reservation{session: session, tickets: group, prize: name, final: final}
	e.prizeName = name

	e.log.Info().Str("session", e.sessionID).Uint64("reveal", session).Str("prize", name).Bool("final", final).Int("remaining", e.pool.Len()).Msg("draw started")
	e.emit(event.DrawStarted, &event.DrawStartedPayload{PrizeName: name, Final: final, Tickets: group}, session)
	return nil
}

func (e *Engine) onTick(session uint64, digits string, locked int) {
	e.emit(event.Tick, &event.TickPayload{Digits: digits, Locked: locked}, session)
}

func (e *Engine) onNearMiss(session uint64, digits string) {
	e.emit(event.NearMiss, &event.NearMissPayload{Digits: digits}, session)
}

// onSettled commits the reserved group
func (e *Engine) onSettled(session uint64, _ ticket.Ticket, final bool) {
	r := e.reserved
	if r == nil || r.session != session {
		e.log.Warn().Uint64("reveal", session).Msg("settle for unknown reveal ignored")
		return
	}
	e.reserved = nil

	group := history.WinnerGroup{
		PrizeName: r.prize,
		Tickets:   r.tickets,
		Final:     final,
		DrawnAt:   e.sched.Now(),
	}
	if err := e.ledger.Commit(group); err != nil {
		_ = e.pool.Restore(r.tickets)
		_ = e.fail(err)
		return
	}

	e.log.Info().Str("session", e.sessionID).Str("prize", r.prize).Strs("tickets", r.tickets).Int("remaining", e.pool.Len()).Msg("winner committed")
	e.emit(event.Settled, &event.SettledPayload{
		Group:       group.Clone(),
		Final:       final,
		Celebration: e.timing.Reveal.Celebration,
		Remaining:   e.pool.Len(),
	}, session)
}

// Undo returns the last winner group to the pool
// Empty history is reported to the caller only
func (e *Engine) Undo() error {
	if e.revealing() {
		return e.fail(ErrBusy)
	}
	group, err := e.ledger.UndoLast()
	if err != nil {
		return err
	}
	if err := e.pool.Restore(group.Tickets); err != nil {
		_ = e.ledger.Commit(group)
		return e.fail(&history.InvariantError{Len: e.ledger.Len(), Capacity: e.ledger.Capacity()})
	}

	e.animator.SetDisplay(group.Tickets[0])
	e.prizeName = group.PrizeName
	e.log.Info().Str("session", e.sessionID).Str("prize", group.PrizeName).Strs("tickets", group.Tickets).Int("remaining", e.pool.Len()).Msg("draw undone")
	e.emit(event.Undone, &event.UndonePayload{Group: group, Remaining: e.pool.Len()}, 0)
	return nil
}

// ResetDraw cancels any reveal or charge and makes every ticket eligible again
func (e *Engine) ResetDraw() {
	if e.animator.Cancel() {
		e.log.Info().Str("session", e.sessionID).Msg("reveal cancelled by reset")
	}
	e.reserved = nil
	e.CancelCharge()

	e.pool.Reset()
	e.ledger.Reset()
	e.prizeName = ""
	e.showFirst()
	e.emit(event.Reset, e.configuredPayload(), 0)
}

func (e *Engine) configuredPayload() *event.ConfiguredPayload {
	return &event.ConfiguredPayload{
		SessionID: e.sessionID,
		Tickets:   e.pool.Size(),
		Remaining: e.remainingCount(),
		Awarded:   e.ledger.Len(),
		NumPrizes: e.cfg.NumPrizes,
		MaxDigits: e.pool.MaxDigits(),
	}
}

// remainingCount includes an in-flight group, which has not been awarded yet
func (e *Engine) remainingCount() int {
	n := e.pool.Len()
	if e.reserved != nil {
		n += len(e.reserved.tickets)
	}
	return n
}

// SetPresentation stores opaque display settings carried through snapshots
func (e *Engine) SetPresentation(p map[string]any) {
	e.presentation = maps.Clone(p)
}

func (e *Engine) Presentation() map[string]any {
	return maps.Clone(e.presentation)
}

// Bus is where the engine publishes events
func (e *Engine) Bus() *event.Bus { return e.bus }

// Scheduler is the loop the engine must be driven from
func (e *Engine) Scheduler() *sched.Scheduler { return e.sched }

// SessionID identifies the current configured or restored session
func (e *Engine) SessionID() string { return e.sessionID }

// Celebration is how long displays should keep a settled result up
func (e *Engine) Celebration() time.Duration { return e.timing.Reveal.Celebration }

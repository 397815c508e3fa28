// Package tui is the terminal display and keyboard/mouse control for a draw.
package tui

import (
	"context"
	"errors"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rs/zerolog"

	"github.com/lixenwraith/luckydraw/charge"
	"github.com/lixenwraith/luckydraw/clock"
	"github.com/lixenwraith/luckydraw/constants"
	"github.com/lixenwraith/luckydraw/core"
	"github.com/lixenwraith/luckydraw/engine"
	"github.com/lixenwraith/luckydraw/event"
	"github.com/lixenwraith/luckydraw/history"
	"github.com/lixenwraith/luckydraw/sched"
)

const (
	frameInterval  = 33 * time.Millisecond
	commandTimeout = 2 * time.Second
)

// Options configure an App
type Options struct {
	Theme       Theme
	Title       string
	Subtitle    string
	HoldTimeout time.Duration // Keyboard hold ends when the key stops repeating for this long
	Clock       clock.Provider
	Log         zerolog.Logger
}

// App owns the screen; engine access goes through the scheduler
type App struct {
	screen   tcell.Screen
	eng      *engine.Engine
	sched    *sched.Scheduler
	queue    *event.Queue
	renderer *Renderer
	view     View
	clock    clock.Provider
	log      zerolog.Logger

	holdTimeout time.Duration
	keyHold     bool
	holdUntil   time.Time
	mouseHold   bool

	quit bool
}

// New creates an App; call Attach before Run so no event is missed
func New(screen tcell.Screen, eng *engine.Engine, opts Options) *App {
	if opts.HoldTimeout <= 0 {
		opts.HoldTimeout = constants.HoldTimeout
	}
	if opts.Clock == nil {
		opts.Clock = clock.NewReal()
	}
	return &App{
		screen:      screen,
		eng:         eng,
		sched:       eng.Scheduler(),
		queue:       event.NewQueue(),
		renderer:    NewRenderer(opts.Theme),
		view:        View{Title: opts.Title, Subtitle: opts.Subtitle},
		clock:       opts.Clock,
		log:         opts.Log,
		holdTimeout: opts.HoldTimeout,
	}
}

// Attach queues bus events for the render loop
func (a *App) Attach(bus *event.Bus) func() {
	return a.queue.Attach(bus)
}

// Run polls input and redraws until q or ctx is done
func (a *App) Run(ctx context.Context) error {
	a.screen.EnableMouse(tcell.MouseButtonEvents)
	a.screen.HideCursor()

	input := make(chan tcell.Event, 64)
	pollDone := make(chan struct{})
	core.Go(func() {
		defer close(pollDone)
		for {
			ev := a.screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case input <- ev:
			case <-ctx.Done():
				return
			}
		}
	})

	frame := time.NewTicker(frameInterval)
	defer frame.Stop()

	a.Refresh(ctx)
	a.Draw()
	for !a.quit {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-pollDone:
			return nil
		case ev := <-input:
			a.HandleEvent(ctx, ev)
		case <-a.queue.Ready():
			a.Refresh(ctx)
		case <-frame.C:
			a.Tick(ctx)
		}
		a.Draw()
	}
	return nil
}

// Refresh drains queued events into the view and reloads engine state
func (a *App) Refresh(ctx context.Context) {
	now := a.clock.Now()
	events, dropped := a.queue.Drain()
	if dropped > 0 {
		a.log.Debug().Int("dropped", dropped).Msg("display queue overflowed")
	}
	for _, ev := range events {
		a.view.Apply(ev, now)
	}

	var st engine.State
	if err := a.do(ctx, func() { st = a.eng.State() }); err != nil {
		a.log.Warn().Err(err).Msg("state refresh failed")
		return
	}
	a.view.State = st
}

// Tick ends an expired keyboard hold and ages the status line
func (a *App) Tick(ctx context.Context) {
	now := a.clock.Now()
	if a.keyHold && !now.Before(a.holdUntil) {
		a.keyHold = false
		if !a.mouseHold {
			a.command(ctx, func() error { a.eng.CancelCharge(); return nil })
		}
	}
	a.view.Expire(now)
}

func (a *App) Draw() {
	a.renderer.Render(a.screen, &a.view, a.clock.Now())
	a.screen.Show()
}

// Quit reports whether the user asked to leave
func (a *App) Quit() bool {
	return a.quit
}

// View returns the current display model
func (a *App) View() *View {
	return &a.view
}

// HandleEvent dispatches one terminal event
func (a *App) HandleEvent(ctx context.Context, ev tcell.Event) {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		a.handleKey(ctx, ev)
	case *tcell.EventMouse:
		a.handleMouse(ctx, ev)
	case *tcell.EventResize:
		a.screen.Sync()
	}
}

func (a *App) handleKey(ctx context.Context, ev *tcell.EventKey) {
	if ev.Key() == tcell.KeyCtrlC || ev.Key() == tcell.KeyEscape {
		a.quit = true
		return
	}
	if ev.Key() != tcell.KeyRune {
		a.view.ConfirmReset = false
		return
	}

	r := ev.Rune()
	if a.view.ConfirmReset {
		a.view.ConfirmReset = false
		if r == 'y' || r == 'Y' {
			a.command(ctx, func() error { a.eng.ResetDraw(); return nil })
		}
		return
	}

	switch r {
	case ' ':
		// Terminals report no key release: a hold lasts while the key repeats
		a.holdUntil = a.clock.Now().Add(a.holdTimeout)
		if !a.keyHold {
			a.keyHold = true
			if !a.mouseHold {
				a.command(ctx, a.eng.BeginCharge)
			}
		}
	case 'd', 'D':
		a.command(ctx, a.eng.Draw)
	case 'u', 'U':
		a.command(ctx, a.eng.Undo)
	case 'r', 'R':
		a.view.ConfirmReset = true
	case 'q', 'Q':
		a.quit = true
	}
}

func (a *App) handleMouse(ctx context.Context, ev *tcell.EventMouse) {
	pressed := ev.Buttons()&tcell.Button1 != 0
	switch {
	case pressed && !a.mouseHold:
		a.mouseHold = true
		if !a.keyHold {
			a.command(ctx, a.eng.BeginCharge)
		}
	case !pressed && a.mouseHold:
		a.mouseHold = false
		if !a.keyHold {
			a.command(ctx, func() error { a.eng.CancelCharge(); return nil })
		}
	}
}

// command runs fn on the loop goroutine
// Engine failures arrive as Error events; only the ones it does not emit are shown here
func (a *App) command(ctx context.Context, fn func() error) {
	var err error
	if doErr := a.do(ctx, func() { err = fn() }); doErr != nil {
		a.view.SetStatus("engine not responding", true, a.clock.Now())
		a.log.Error().Err(doErr).Msg("command timed out")
		return
	}
	switch {
	case err == nil, errors.Is(err, charge.ErrAlreadyCharging):
	case errors.Is(err, history.ErrEmptyHistory):
		a.view.SetStatus("Nothing to undo", true, a.clock.Now())
	}
}

func (a *App) do(ctx context.Context, fn func()) error {
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()
	return a.sched.Do(ctx, fn)
}

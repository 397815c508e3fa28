package tui

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lixenwraith/luckydraw/clock"
	"github.com/lixenwraith/luckydraw/engine"
	"github.com/lixenwraith/luckydraw/event"
	"github.com/lixenwraith/luckydraw/history"
	"github.com/lixenwraith/luckydraw/sched"
	"github.com/lixenwraith/luckydraw/ticket"
)

type harness struct {
	app    *App
	screen tcell.SimulationScreen
	s      *sched.Scheduler
	engClk *clock.Mock // Drives the engine
	uiClk  *clock.Mock // Drives hold timeouts and status expiry
	ctx    context.Context
}

func newHarness(t *testing.T, width, height int) *harness {
	t.Helper()
	start := time.Date(2026, 5, 1, 19, 0, 0, 0, time.UTC)
	engClk := clock.NewMock(start)
	uiClk := clock.NewMock(start)
	s := sched.New(engClk)
	bus := event.NewBus(zerolog.Nop())
	eng := engine.New(engine.WithScheduler(s), engine.WithBus(bus), engine.WithRandom(ticket.NewRandom(3)))

	screen := tcell.NewSimulationScreen("UTF-8")
	require.NoError(t, screen.Init())
	screen.SetSize(width, height)

	app := New(screen, eng, Options{
		Theme:       ThemeByName("dark"),
		Title:       "Live Lucky Draw",
		Subtitle:    "Test night",
		HoldTimeout: 500 * time.Millisecond,
		Clock:       uiClk,
	})
	app.Attach(bus)

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = s.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		screen.Fini()
	})
	return &harness{app: app, screen: screen, s: s, engClk: engClk, uiClk: uiClk, ctx: ctx}
}

func (h *harness) key(r rune) {
	h.app.HandleEvent(h.ctx, tcell.NewEventKey(tcell.KeyRune, r, tcell.ModNone))
	h.app.Refresh(h.ctx)
}

func (h *harness) settle(t *testing.T) {
	t.Helper()
	require.NoError(t, h.s.Do(h.ctx, func() { sched.RunUntilIdle(h.s, h.engClk, 5*time.Minute) }))
	h.app.Refresh(h.ctx)
}

// text returns the screen rows after a draw
func (h *harness) text() []string {
	h.app.Draw()
	cells, w, ht := h.screen.GetContents()
	rows := make([]string, ht)
	for y := range ht {
		var b strings.Builder
		for x := range w {
			c := cells[y*w+x]
			if len(c.Runes) == 0 {
				b.WriteRune(' ')
				continue
			}
			b.WriteRune(c.Runes[0])
		}
		rows[y] = b.String()
	}
	return rows
}

func contains(rows []string, s string) bool {
	for _, r := range rows {
		if strings.Contains(r, s) {
			return true
		}
	}
	return false
}

func TestInitialScreen(t *testing.T) {
	h := newHarness(t, 80, 30)
	h.app.Refresh(h.ctx)
	rows := h.text()

	assert.Contains(t, rows[0], "Live Lucky Draw")
	assert.Contains(t, rows[1], "Test night")
	assert.True(t, contains(rows, "Next up: 3rd Prize"))
	assert.True(t, contains(rows, "Remaining: 50 / 50"))
	assert.True(t, contains(rows, "Charge   0%"))
	assert.Contains(t, rows[29], "[d] draw")
}

func TestDrawKeyRevealsAndLists(t *testing.T) {
	h := newHarness(t, 80, 30)
	h.key('d')
	assert.Equal(t, "rolling", h.app.View().State.PhaseName)
	assert.Contains(t, h.app.View().Status, "Drawing 3rd Prize")

	h.settle(t)
	v := h.app.View()
	require.Len(t, v.State.History, 1)
	assert.True(t, v.Settled)
	assert.Equal(t, 2, v.Locked)
	assert.True(t, v.Celebrating(h.uiClk.Now()))

	rows := h.text()
	assert.True(t, contains(rows, "Winners"))
	assert.True(t, contains(rows, "Remaining: 49 / 50"))
	assert.True(t, contains(rows, "3rd Prize    "+v.State.History[0].Tickets[0]))
}

func TestUndoEmptyShowsStatus(t *testing.T) {
	h := newHarness(t, 80, 30)
	h.key('u')
	assert.Equal(t, "Nothing to undo", h.app.View().Status)
	assert.True(t, h.app.View().StatusError)

	h.uiClk.Advance(StatusDuration)
	h.app.Tick(h.ctx)
	assert.Empty(t, h.app.View().Status)
}

func TestBusyDrawShowsError(t *testing.T) {
	h := newHarness(t, 80, 30)
	h.key('d')
	h.key('d')
	v := h.app.View()
	assert.True(t, v.StatusError)
	assert.Contains(t, v.Status, "in progress")
	assert.True(t, contains(h.text(), "in progress"))
}

func TestResetNeedsConfirmation(t *testing.T) {
	h := newHarness(t, 80, 30)
	h.key('d')
	h.settle(t)

	h.key('r')
	assert.True(t, h.app.View().ConfirmReset)
	assert.True(t, contains(h.text(), "Reset every draw?"))
	h.key('n')
	assert.False(t, h.app.View().ConfirmReset)
	assert.Len(t, h.app.View().State.History, 1)

	h.key('r')
	h.key('y')
	assert.Empty(t, h.app.View().State.History)
	assert.Equal(t, "Draw reset", h.app.View().Status)
}

func TestSpaceHoldChargesAndTimesOut(t *testing.T) {
	h := newHarness(t, 80, 30)
	h.key(' ')
	assert.True(t, h.app.View().State.Charging)

	// Key repeat extends the hold
	h.uiClk.Advance(400 * time.Millisecond)
	h.key(' ')
	h.uiClk.Advance(400 * time.Millisecond)
	h.app.Tick(h.ctx)
	h.app.Refresh(h.ctx)
	assert.True(t, h.app.View().State.Charging)

	h.uiClk.Advance(200 * time.Millisecond)
	h.app.Tick(h.ctx)
	h.app.Refresh(h.ctx)
	assert.False(t, h.app.View().State.Charging)
}

func TestMouseHoldCharges(t *testing.T) {
	h := newHarness(t, 80, 30)
	h.app.HandleEvent(h.ctx, tcell.NewEventMouse(10, 10, tcell.Button1, tcell.ModNone))
	h.app.Refresh(h.ctx)
	assert.True(t, h.app.View().State.Charging)

	require.NoError(t, h.s.Do(h.ctx, func() { sched.Advance(h.s, h.engClk, 300*time.Millisecond) }))
	h.app.Refresh(h.ctx)
	assert.Equal(t, 20, h.app.View().State.Level)
	assert.True(t, contains(h.text(), "Charge  20%"))

	h.app.HandleEvent(h.ctx, tcell.NewEventMouse(10, 10, tcell.ButtonNone, tcell.ModNone))
	h.app.Refresh(h.ctx)
	assert.False(t, h.app.View().State.Charging)
	assert.Equal(t, 0, h.app.View().State.Level)
}

func TestQuitKeys(t *testing.T) {
	h := newHarness(t, 80, 30)
	h.key('q')
	assert.True(t, h.app.Quit())

	h = newHarness(t, 80, 30)
	h.app.HandleEvent(h.ctx, tcell.NewEventKey(tcell.KeyCtrlC, 0, tcell.ModCtrl))
	assert.True(t, h.app.Quit())
}

func TestNarrowScreenCompactDigits(t *testing.T) {
	h := newHarness(t, 12, 20)
	h.app.Refresh(h.ctx)
	rows := h.text()
	assert.True(t, contains(rows, "[0][1]"))
}

func TestViewApply(t *testing.T) {
	now := time.Date(2026, 5, 1, 19, 0, 0, 0, time.UTC)
	var v View

	v.Apply(event.Event{Type: event.DrawStarted, Payload: &event.DrawStartedPayload{PrizeName: "1st Prize", Final: true}}, now)
	assert.Equal(t, "Drawing FINAL: 1st Prize", v.Status)

	v.Apply(event.Event{Type: event.Tick, Payload: &event.TickPayload{Digits: "47", Locked: 1}}, now)
	assert.Equal(t, 1, v.Locked)

	v.Apply(event.Event{Type: event.NearMiss, Payload: &event.NearMissPayload{Digits: "43"}}, now)
	assert.True(t, v.NearMiss)

	group := history.WinnerGroup{PrizeName: "1st Prize", Tickets: []ticket.Ticket{"42"}, Final: true}
	v.Apply(event.Event{Type: event.Settled, Payload: &event.SettledPayload{Group: group, Final: true, Celebration: 8 * time.Second}}, now)
	assert.False(t, v.NearMiss)
	assert.Equal(t, 2, v.Locked)
	assert.True(t, v.Celebrating(now.Add(7*time.Second)))
	assert.False(t, v.Celebrating(now.Add(8*time.Second)))
	assert.Equal(t, "1st Prize: 42", v.Status)

	v.Apply(event.Event{Type: event.Error, Payload: &event.ErrorPayload{Kind: event.KindPrizesExhausted, Message: "all prizes have been awarded"}}, now)
	assert.True(t, v.StatusError)
	v.Expire(now.Add(StatusDuration - time.Millisecond))
	assert.NotEmpty(t, v.Status)
	v.Expire(now.Add(StatusDuration))
	assert.Empty(t, v.Status)
}

func TestChargeColorGradient(t *testing.T) {
	assert.Equal(t, tcell.NewRGBColor(255, 60, 0), chargeColor(0))
	assert.Equal(t, tcell.NewRGBColor(255, 255, 0), chargeColor(0.5))
	assert.Equal(t, tcell.NewRGBColor(50, 255, 50), chargeColor(1))
	assert.Equal(t, chargeColor(1), chargeColor(3))
}

func TestGlyphRows(t *testing.T) {
	one := glyphRows('1')
	assert.Equal(t, glyphInk, one[0][1])
	assert.Equal(t, ' ', one[0][0])

	letter := glyphRows('A')
	assert.Equal(t, 'A', letter[glyphHeight/2][glyphWidth/2])
	assert.Equal(t, 0, bigWidth(0))
	assert.Equal(t, 2*boxWidth+boxGap, bigWidth(2))
}

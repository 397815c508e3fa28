package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"
)

const (
	helpLine    = "[space/mouse] hold to draw  [d] draw  [u] undo  [r] reset  [q] quit"
	maxBarWidth = 50
)

// Renderer draws a View onto a tcell screen
type Renderer struct {
	theme Theme
}

func NewRenderer(theme Theme) *Renderer {
	return &Renderer{theme: theme}
}

func (r *Renderer) base() tcell.Style {
	return tcell.StyleDefault.Background(r.theme.Background).Foreground(r.theme.Text)
}

// Render redraws the whole screen; the caller shows it
func (r *Renderer) Render(screen tcell.Screen, v *View, now time.Time) {
	width, height := screen.Size()
	screen.SetStyle(r.base())
	screen.Clear()
	if width <= 0 || height <= 0 {
		return
	}

	row := 0
	r.center(screen, row, width, v.Title, r.base().Foreground(r.theme.Accent).Bold(true))
	row++
	r.center(screen, row, width, v.Subtitle, r.base().Foreground(r.theme.Dim))
	row += 2

	prizeStyle := r.base().Foreground(r.theme.Accent).Bold(true)
	if v.Celebrating(now) {
		prizeStyle = prizeStyle.Foreground(r.theme.Celebrate).Blink(v.CelebrateFinal)
	}
	r.center(screen, row, width, v.PrizeLine(), prizeStyle)
	row += 2

	row = r.digits(screen, row, width, v, now)
	row++

	r.chargeBar(screen, row, width, v.State.Level, v.State.Charging)
	row++

	st := v.State
	awarded := len(st.History)
	counts := fmt.Sprintf("Remaining: %d / %d   Prizes: %d / %d", st.Remaining, st.Initial, awarded, st.Config.NumPrizes)
	r.center(screen, row, width, counts, r.base())
	row += 2

	// Status line owns the last row
	r.history(screen, row, height-1, width, v)
	r.status(screen, height-1, width, v)
}

// digits draws boxed block glyphs, or a compact row when the screen is too narrow
func (r *Renderer) digits(screen tcell.Screen, row, width int, v *View, now time.Time) int {
	display := []rune(v.Digits())
	celebrating := v.Celebrating(now)

	styleAt := func(i int) tcell.Style {
		st := r.base().Foreground(r.theme.Rolling)
		switch {
		case v.NearMiss && i == len(display)-1:
			st = st.Foreground(r.theme.NearMiss).Bold(true)
		case celebrating:
			st = st.Foreground(r.theme.Celebrate).Bold(true)
		case i < v.Locked:
			st = st.Foreground(r.theme.Locked).Bold(true)
		}
		return st
	}

	if bigWidth(len(display)) > width {
		x := max(0, (width-len(display)*3)/2)
		for i, ch := range display {
			border := r.base().Foreground(r.theme.Border)
			screen.SetContent(x, row, '[', nil, border)
			screen.SetContent(x+1, row, ch, nil, styleAt(i))
			screen.SetContent(x+2, row, ']', nil, border)
			x += 3
		}
		return row + 1
	}

	left := (width - bigWidth(len(display))) / 2
	for i, ch := range display {
		x := left + i*(boxWidth+boxGap)
		r.box(screen, x, row, boxWidth, boxHeight, r.base().Foreground(r.theme.Border))
		rows := glyphRows(ch)
		for gy := range glyphHeight {
			for gx := range glyphWidth {
				screen.SetContent(x+2+gx, row+1+gy, rows[gy][gx], nil, styleAt(i))
			}
		}
	}
	return row + boxHeight
}

func (r *Renderer) box(screen tcell.Screen, x, y, w, h int, style tcell.Style) {
	for i := 1; i < w-1; i++ {
		screen.SetContent(x+i, y, tcell.RuneHLine, nil, style)
		screen.SetContent(x+i, y+h-1, tcell.RuneHLine, nil, style)
	}
	for j := 1; j < h-1; j++ {
		screen.SetContent(x, y+j, tcell.RuneVLine, nil, style)
		screen.SetContent(x+w-1, y+j, tcell.RuneVLine, nil, style)
	}
	screen.SetContent(x, y, tcell.RuneULCorner, nil, style)
	screen.SetContent(x+w-1, y, tcell.RuneURCorner, nil, style)
	screen.SetContent(x, y+h-1, tcell.RuneLLCorner, nil, style)
	screen.SetContent(x+w-1, y+h-1, tcell.RuneLRCorner, nil, style)
}

func (r *Renderer) chargeBar(screen tcell.Screen, row, width, level int, charging bool) {
	barWidth := min(maxBarWidth, width-14)
	if barWidth < 10 {
		return
	}
	label := fmt.Sprintf("Charge %3d%% ", level)
	x := (width - barWidth - len(label)) / 2
	labelStyle := r.base().Foreground(r.theme.Dim)
	if charging {
		labelStyle = r.base().Foreground(r.theme.Text).Bold(true)
	}
	x = r.text(screen, x, row, label, labelStyle)

	filled := level * barWidth / 100
	for i := range barWidth {
		style := r.base().Foreground(r.theme.Empty)
		ch := '░'
		if i < filled {
			style = r.base().Foreground(chargeColor(float64(i+1) / float64(barWidth)))
			ch = '█'
		}
		screen.SetContent(x+i, row, ch, nil, style)
	}
}

// history lists winner groups newest first between top and bottom rows
func (r *Renderer) history(screen tcell.Screen, top, bottom, width int, v *View) {
	groups := v.State.History
	if len(groups) == 0 || top >= bottom {
		return
	}
	r.center(screen, top, width, "Winners", r.base().Foreground(r.theme.Accent).Underline(true))
	row := top + 1
	for i := len(groups) - 1; i >= 0 && row < bottom; i-- {
		g := groups[i]
		line := fmt.Sprintf("%-12s %s", g.PrizeName, strings.Join(g.Tickets, ", "))
		style := r.base()
		if g.Final {
			line = "★ " + line
			style = style.Foreground(r.theme.Celebrate).Bold(true)
		}
		r.center(screen, row, width, line, style)
		row++
	}
}

func (r *Renderer) status(screen tcell.Screen, row, width int, v *View) {
	switch {
	case v.ConfirmReset:
		r.center(screen, row, width, "Reset every draw? [y] yes  [any other key] no", r.base().Foreground(r.theme.NearMiss).Bold(true))
	case v.Status != "" && v.StatusError:
		r.center(screen, row, width, v.Status, r.base().Foreground(r.theme.Error).Bold(true))
	case v.Status != "":
		r.center(screen, row, width, v.Status, r.base().Foreground(r.theme.Text))
	default:
		r.center(screen, row, width, helpLine, r.base().Foreground(r.theme.Dim))
	}
}

func (r *Renderer) center(screen tcell.Screen, row, width int, s string, style tcell.Style) {
	w := runewidth.StringWidth(s)
	if w > width {
		s = runewidth.Truncate(s, width, "…")
		w = runewidth.StringWidth(s)
	}
	r.text(screen, (width-w)/2, row, s, style)
}

// text draws s from x and returns the column after it
func (r *Renderer) text(screen tcell.Screen, x, row int, s string, style tcell.Style) int {
	for _, ch := range s {
		screen.SetContent(x, row, ch, nil, style)
		x += runewidth.RuneWidth(ch)
	}
	return x
}

package tui

import (
	"github.com/gdamore/tcell/v2"
)

// Theme is the palette the display draws with
type Theme struct {
	Background tcell.Color
	Text       tcell.Color
	Dim        tcell.Color
	Accent     tcell.Color // Title and prize name
	Border     tcell.Color
	Rolling    tcell.Color // Digits still spinning
	Locked     tcell.Color // Digits showing the winner
	NearMiss   tcell.Color
	Celebrate  tcell.Color
	Error      tcell.Color
	Empty      tcell.Color // Unfilled charge bar
}

var themes = map[string]Theme{
	"dark": {
		Background: tcell.NewRGBColor(26, 27, 38), // Tokyo Night background
		Text:       tcell.NewRGBColor(220, 220, 230),
		Dim:        tcell.NewRGBColor(120, 120, 140),
		Accent:     tcell.NewRGBColor(255, 200, 60),
		Border:     tcell.NewRGBColor(90, 90, 120),
		Rolling:    tcell.NewRGBColor(140, 190, 255),
		Locked:     tcell.NewRGBColor(255, 255, 0),
		NearMiss:   tcell.NewRGBColor(255, 80, 80),
		Celebrate:  tcell.NewRGBColor(255, 165, 0),
		Error:      tcell.NewRGBColor(255, 0, 0),
		Empty:      tcell.NewRGBColor(50, 50, 50),
	},
	"light": {
		Background: tcell.NewRGBColor(250, 248, 240),
		Text:       tcell.NewRGBColor(30, 30, 30),
		Dim:        tcell.NewRGBColor(130, 130, 130),
		Accent:     tcell.NewRGBColor(180, 90, 0),
		Border:     tcell.NewRGBColor(160, 160, 160),
		Rolling:    tcell.NewRGBColor(60, 100, 200),
		Locked:     tcell.NewRGBColor(200, 120, 0),
		NearMiss:   tcell.NewRGBColor(200, 40, 40),
		Celebrate:  tcell.NewRGBColor(220, 80, 0),
		Error:      tcell.NewRGBColor(200, 0, 0),
		Empty:      tcell.NewRGBColor(220, 220, 220),
	},
}

// ThemeByName falls back to dark for unknown names
func ThemeByName(name string) Theme {
	if t, ok := themes[name]; ok {
		return t
	}
	return themes["dark"]
}

// chargeColor returns the bar gradient color, progress 0..1
// Red through orange and yellow to green as the charge fills
func chargeColor(progress float64) tcell.Color {
	progress = min(max(progress, 0), 1)
	switch {
	case progress < 0.5: // Red to yellow
		t := progress / 0.5
		return tcell.NewRGBColor(255, int32(60+(255-60)*t), 0)
	default: // Yellow to green
		t := (progress - 0.5) / 0.5
		return tcell.NewRGBColor(int32(255-(255-50)*t), 255, int32(50*t))
	}
}

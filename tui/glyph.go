package tui

// Block font for the reveal digits, glyphWidth x glyphHeight
const (
	glyphWidth  = 3
	glyphHeight = 5
	glyphInk    = '█'

	// Box around one glyph: border plus one column of padding each side
	boxWidth  = glyphWidth + 4
	boxHeight = glyphHeight + 2
	boxGap    = 1
)

var glyphs = map[rune][glyphHeight]string{
	'0': {"###", "# #", "# #", "# #", "###"},
	'1': {" # ", "## ", " # ", " # ", "###"},
	'2': {"###", "  #", "###", "#  ", "###"},
	'3': {"###", "  #", "###", "  #", "###"},
	'4': {"# #", "# #", "###", "  #", "  #"},
	'5': {"###", "#  ", "###", "  #", "###"},
	'6': {"###", "#  ", "###", "# #", "###"},
	'7': {"###", "  #", "  #", "  #", "  #"},
	'8': {"###", "# #", "###", "# #", "###"},
	'9': {"###", "# #", "###", "  #", "###"},
	'-': {"   ", "   ", "###", "   ", "   "},
}

// glyphRows returns the block rows for r; unknown runes render as themselves in the middle row
func glyphRows(r rune) [glyphHeight][glyphWidth]rune {
	var out [glyphHeight][glyphWidth]rune
	g, ok := glyphs[r]
	for y := range glyphHeight {
		for x := range glyphWidth {
			out[y][x] = ' '
			if ok && g[y][x] == '#' {
				out[y][x] = glyphInk
			}
		}
	}
	if !ok && r != ' ' {
		out[glyphHeight/2][glyphWidth/2] = r
	}
	return out
}

// bigWidth is the screen width of n boxed glyphs
func bigWidth(n int) int {
	if n <= 0 {
		return 0
	}
	return n*boxWidth + (n-1)*boxGap
}

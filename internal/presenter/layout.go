package presenter

// Layout places the status bar and body on the panel. Y values are text
// baselines; text extends Ascent pixels above and Descent pixels below.
type Layout struct {
	Width  int
	Height int

	StatusBaseline int // clock and motion text
	SeparatorY     int // horizontal rule under the status bar
	DividerX       int // vertical rule between clock and motion text

	BodyBaseline      int    // marquee line
	CenteredBaselines [2]int // title and text in centered mode

	TimeFormat string
}

// DefaultLayout fits a 128x32 panel using a 7x13 fixed font.
func DefaultLayout() Layout {
	return Layout{
		Width:             128,
		Height:            32,
		StatusBaseline:    11,
		SeparatorY:        13,
		DividerX:          96,
		BodyBaseline:      28,
		CenteredBaselines: [2]int{13, 29},
		TimeFormat:        "01/02 15:04",
	}
}

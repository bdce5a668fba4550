package domain

import "time"

// OpKind is the kind of a single draw command.
type OpKind int

const (
	// OpText draws Text with its baseline origin at (X, Y).
	OpText OpKind = iota
	// OpLine draws a one pixel line from (X, Y) to (X2, Y2), inclusive.
	OpLine
)

// Op is one draw command of a frame.
type Op struct {
	Kind OpKind
	X, Y int
	X2   int
	Y2   int
	Text string
}

// Frame is the list of draw commands for one render tick. Panels rasterize
// frames; nothing else ever draws.
type Frame struct {
	At       time.Time
	Width    int
	Height   int
	Mode     Mode
	Ops      []Op
	Degraded bool // set when the frame was blanked after a collaborator failure
}

// Texts returns the strings drawn by the frame, in draw order.
func (f Frame) Texts() []string {
	var out []string
	for _, op := range f.Ops {
		if op.Kind == OpText {
			out = append(out, op.Text)
		}
	}
	return out
}

// TextAt returns the first text op whose baseline is y.
func (f Frame) TextAt(y int) (Op, bool) {
	for _, op := range f.Ops {
		if op.Kind == OpText && op.Y == y {
			return op, true
		}
	}
	return Op{}, false
}

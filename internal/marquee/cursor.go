// Package marquee implements the horizontally scrolling text animation used
// when content is wider than the panel.
//
// The animation is a three-phase cycle driven by wall-clock deltas, so it
// stays correct when render ticks arrive late or bunched up:
//
//	InitialDelay  offset pinned at 0 (text parked just off the right edge)
//	Scrolling     offset grows at Speed pixels per second
//	EndPause      offset held at the text width
package marquee

import "time"

// Phase is the current step of the marquee cycle.
type Phase int

const (
	PhaseInitialDelay Phase = iota
	PhaseScrolling
	PhaseEndPause
)

// String returns a human-readable phase name.
func (p Phase) String() string {
	switch p {
	case PhaseInitialDelay:
		return "initial-delay"
	case PhaseScrolling:
		return "scrolling"
	case PhaseEndPause:
		return "end-pause"
	default:
		return "unknown"
	}
}

// Config holds the marquee timing.
type Config struct {
	InitialDelay time.Duration
	EndPause     time.Duration
	Speed        int // pixels per second
}

// DefaultConfig matches a 10 Hz render clock advancing one pixel per tick.
func DefaultConfig() Config {
	return Config{
		InitialDelay: 2 * time.Second,
		EndPause:     2 * time.Second,
		Speed:        10,
	}
}

// Cursor is the persistent progress of one marquee. The zero value is not
// usable; create cursors with New.
type Cursor struct {
	cfg     Config
	text    string
	phase   Phase
	offset  int
	started time.Time // start of the current phase; zero means "reset"
}

// New returns a cursor in the reset state.
func New(cfg Config) *Cursor {
	if cfg.Speed <= 0 {
		cfg.Speed = DefaultConfig().Speed
	}
	if cfg.InitialDelay < 0 {
		cfg.InitialDelay = 0
	}
	if cfg.EndPause < 0 {
		cfg.EndPause = 0
	}
	return &Cursor{cfg: cfg}
}

// Reset rewinds the cursor so the next Position call starts a fresh
// InitialDelay phase.
func (c *Cursor) Reset() {
	c.phase = PhaseInitialDelay
	c.offset = 0
	c.started = time.Time{}
}

// Phase returns the phase reached by the last Position call.
func (c *Cursor) Phase() Phase { return c.phase }

// Offset returns the offset computed by the last Position call.
func (c *Cursor) Offset() int { return c.offset }

// CycleDuration is the length of one full marquee cycle for text of the
// given width.
func (c *Cursor) CycleDuration(textWidth int) time.Duration {
	return c.cfg.InitialDelay + c.scrollDuration(textWidth) + c.cfg.EndPause
}

// Position returns the x coordinate at which text should be drawn.
//
// Text that fits is centered and leaves the cursor untouched apart from
// forgetting a previous marquee text. Wider text advances the cycle to now
// and is drawn at displayWidth - offset. A change of text restarts the
// cycle; the same text keeps its progress.
func (c *Cursor) Position(text string, textWidth, displayWidth int, now time.Time) int {
	if textWidth <= displayWidth {
		if text != c.text {
			c.text = text
			c.Reset()
		}
		return (displayWidth - textWidth) / 2
	}

	if text != c.text {
		c.text = text
		c.Reset()
	}
	c.advance(textWidth, now)
	return displayWidth - c.offset
}

func (c *Cursor) advance(textWidth int, now time.Time) {
	if c.started.IsZero() {
		c.phase = PhaseInitialDelay
		c.offset = 0
		c.started = now
	}

	elapsed := now.Sub(c.started)
	if elapsed < 0 {
		// Wall clock went backwards: restart the current phase.
		c.started = now
		elapsed = 0
	}

	cycle := c.CycleDuration(textWidth)
	for {
		d := c.phaseDuration(textWidth)
		if elapsed < d {
			break
		}
		elapsed -= d
		c.started = c.started.Add(d)
		c.phase = (c.phase + 1) % 3

		if c.phase == PhaseInitialDelay && elapsed >= cycle {
			skip := elapsed / cycle
			c.started = c.started.Add(skip * cycle)
			elapsed -= skip * cycle
		}
	}

	switch c.phase {
	case PhaseInitialDelay:
		c.offset = 0
	case PhaseScrolling:
		c.offset = int(elapsed * time.Duration(c.cfg.Speed) / time.Second)
		if c.offset > textWidth {
			c.offset = textWidth
		}
	case PhaseEndPause:
		c.offset = textWidth
	}
}

func (c *Cursor) phaseDuration(textWidth int) time.Duration {
	switch c.phase {
	case PhaseInitialDelay:
		return c.cfg.InitialDelay
	case PhaseScrolling:
		return c.scrollDuration(textWidth)
	default:
		return c.cfg.EndPause
	}
}

// scrollDuration is the time needed to move textWidth pixels, rounded up
// so the final offset is always reached inside the Scrolling phase.
func (c *Cursor) scrollDuration(textWidth int) time.Duration {
	speed := time.Duration(c.cfg.Speed)
	return (time.Duration(textWidth)*time.Second + speed - 1) / speed
}

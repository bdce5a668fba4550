// Package presenter holds the presentation state of the panel and turns it
// into frames.
//
// A Presenter is a plain state machine: every method takes the current time
// explicitly and nothing runs in the background. The engine package owns a
// Presenter from a single goroutine and drives it from producer calls,
// expiry timers and the render ticker.
package presenter

import (
	"time"

	"github.com/hammamikhairi/doorpanel/internal/domain"
	"github.com/hammamikhairi/doorpanel/internal/logger"
	"github.com/hammamikhairi/doorpanel/internal/marquee"
	"github.com/hammamikhairi/doorpanel/internal/overlay"
)

// State is a point-in-time copy of the presentation state.
type State struct {
	Baseline     domain.Content
	Overlay      *overlay.Overlay
	Visible      domain.Content
	MotionActive bool
	LastMotion   time.Time
	Marquee      marquee.Phase
	Offset       int
}

// Mode is the layout mode currently visible.
func (s State) Mode() domain.Mode { return s.Visible.Mode }

// Presenter owns the baseline, the overlay, motion recency and the marquee
// cursor. It is not safe for concurrent use.
type Presenter struct {
	layout  Layout
	metrics domain.Metrics
	log     *logger.Logger

	stack  *overlay.Stack
	cursor *marquee.Cursor

	motionActive bool
	lastMotion   time.Time
}

// Option configures a Presenter.
type Option func(*Presenter)

// WithLayout overrides DefaultLayout.
func WithLayout(l Layout) Option {
	return func(p *Presenter) { p.layout = l }
}

// WithMarquee overrides marquee.DefaultConfig.
func WithMarquee(cfg marquee.Config) Option {
	return func(p *Presenter) { p.cursor = marquee.New(cfg) }
}

// WithBaseline sets the content shown before the first SetBaseline.
func WithBaseline(c domain.Content) Option {
	return func(p *Presenter) { p.stack = overlay.NewStack(c) }
}

// New creates a presenter that measures text with m.
func New(m domain.Metrics, log *logger.Logger, opts ...Option) *Presenter {
	p := &Presenter{
		layout:  DefaultLayout(),
		metrics: m,
		log:     log,
		stack:   overlay.NewStack(domain.StatusOnly()),
		cursor:  marquee.New(marquee.DefaultConfig()),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Layout returns the panel layout in use.
func (p *Presenter) Layout() Layout { return p.layout }

// SetBaseline replaces the persistent content. The marquee restarts only
// when the baseline is what is currently on screen.
func (p *Presenter) SetBaseline(c domain.Content) {
	if p.stack.SetBaseline(c) && c.Mode == domain.ModeScrolling {
		p.cursor.Reset()
	}
	p.log.Debug("baseline %s %q", c.Mode, c.Text)
}

// PushOverlay installs c under tok. It reports false when c is empty and
// nothing was installed.
func (p *Presenter) PushOverlay(tok domain.Token, c domain.Content, d time.Duration, now time.Time) bool {
	replaced, ok := p.stack.Push(tok, c, now, d)
	if !ok {
		p.log.Debug("ignored empty overlay")
		return false
	}
	if c.Mode == domain.ModeScrolling {
		p.cursor.Reset()
	}
	if replaced != nil {
		p.log.Debug("overlay %d replaced by %d", replaced.Token, tok)
	}
	return true
}

// ClearOverlay drops the active overlay, if any.
func (p *Presenter) ClearOverlay() bool {
	ov, ok := p.stack.Clear()
	if ok {
		p.log.Debug("overlay %d cleared", ov.Token)
	}
	return ok
}

// Dismiss drops the overlay named by tok if it is still active.
func (p *Presenter) Dismiss(tok domain.Token) bool {
	ok := p.stack.Dismiss(tok)
	if ok {
		p.log.Debug("overlay %d dismissed", tok)
	}
	return ok
}

// Expire handles the expiry timer of tok.
func (p *Presenter) Expire(tok domain.Token) bool {
	ok := p.stack.Expire(tok)
	if ok {
		p.log.Debug("overlay %d expired", tok)
	}
	return ok
}

// ReportMotion records the motion state. A zero at is replaced by now.
func (p *Presenter) ReportMotion(active bool, at, now time.Time) {
	if at.IsZero() {
		at = now
	}
	p.motionActive = active
	p.lastMotion = at
}

// Snapshot copies the current state.
func (p *Presenter) Snapshot() State {
	s := State{
		Baseline:     p.stack.Baseline(),
		Visible:      p.stack.Visible(),
		MotionActive: p.motionActive,
		LastMotion:   p.lastMotion,
		Marquee:      p.cursor.Phase(),
		Offset:       p.cursor.Offset(),
	}
	if ov, ok := p.stack.Active(); ok {
		s.Overlay = &ov
	}
	return s
}

// Render produces the frame for now. An overlay whose deadline has passed
// is cleared before drawing. If text cannot be measured the frame is blank
// and marked degraded.
func (p *Presenter) Render(now time.Time) domain.Frame {
	if ov, ok := p.stack.ExpireDue(now); ok {
		p.log.Debug("overlay %d past deadline at render", ov.Token)
	}

	c := p.stack.Visible()
	f := domain.Frame{
		At:     now,
		Width:  p.layout.Width,
		Height: p.layout.Height,
		Mode:   c.Mode,
	}

	var err error
	switch c.Mode {
	case domain.ModeCentered:
		err = p.drawCentered(&f, c)
	case domain.ModeScrolling:
		if err = p.drawStatus(&f, now); err == nil {
			err = p.drawMarquee(&f, c.Text, now)
		}
	default:
		err = p.drawStatus(&f, now)
	}

	if err != nil {
		p.log.Warn("render %s: %v", c.Mode, err)
		f.Ops = nil
		f.Degraded = true
	}
	return f
}

func (p *Presenter) drawStatus(f *domain.Frame, now time.Time) error {
	l := p.layout

	f.Ops = append(f.Ops, domain.Op{
		Kind: domain.OpText,
		X:    0,
		Y:    l.StatusBaseline,
		Text: now.Format(l.TimeFormat),
	})

	f.Ops = append(f.Ops, domain.Op{
		Kind: domain.OpLine,
		X:    l.DividerX, Y: 0,
		X2: l.DividerX, Y2: l.SeparatorY - 1,
	})

	motion := MotionText(p.motionActive, p.lastMotion, now)
	w, err := p.metrics.MeasureWidth(motion)
	if err != nil {
		return err
	}
	f.Ops = append(f.Ops, domain.Op{
		Kind: domain.OpText,
		X:    l.Width - w,
		Y:    l.StatusBaseline,
		Text: motion,
	})

	f.Ops = append(f.Ops, domain.Op{
		Kind: domain.OpLine,
		X:    0, Y: l.SeparatorY,
		X2: l.Width - 1, Y2: l.SeparatorY,
	})
	return nil
}

func (p *Presenter) drawMarquee(f *domain.Frame, text string, now time.Time) error {
	if text == "" {
		return nil
	}
	w, err := p.metrics.MeasureWidth(text)
	if err != nil {
		return err
	}
	x := p.cursor.Position(text, w, p.layout.Width, now)
	f.Ops = append(f.Ops, domain.Op{
		Kind: domain.OpText,
		X:    x,
		Y:    p.layout.BodyBaseline,
		Text: text,
	})
	return nil
}

func (p *Presenter) drawCentered(f *domain.Frame, c domain.Content) error {
	for i, line := range [2]string{c.Title, c.Text} {
		if line == "" {
			continue
		}
		fit, err := Truncate(p.metrics, line, p.layout.Width)
		if err != nil {
			return err
		}
		if fit == "" {
			continue
		}
		w, err := p.metrics.MeasureWidth(fit)
		if err != nil {
			return err
		}
		f.Ops = append(f.Ops, domain.Op{
			Kind: domain.OpText,
			X:    (p.layout.Width - w) / 2,
			Y:    p.layout.CenteredBaselines[i],
			Text: fit,
		})
	}
	return nil
}

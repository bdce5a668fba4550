// Package engine runs the display presentation loop.
//
// All presentation state lives in a presenter.Presenter owned by a single
// goroutine. Producer calls, expiry timers and the render ticker never touch
// that state directly: they append closures to an unbounded queue that the
// loop drains in order. Producer calls therefore never block, and a late
// expiry timer can only ever act on the overlay generation it was armed for.
package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hammamikhairi/doorpanel/internal/clock"
	"github.com/hammamikhairi/doorpanel/internal/domain"
	"github.com/hammamikhairi/doorpanel/internal/logger"
	"github.com/hammamikhairi/doorpanel/internal/presenter"
)

// Compile-time check.
var _ domain.Presenter = (*Engine)(nil)

// Option configures the engine.
type Option func(*Engine)

// WithRenderInterval sets the render period.
func WithRenderInterval(d time.Duration) Option {
	return func(e *Engine) {
		e.interval = d
	}
}

// WithClock replaces the system clock, mostly for tests.
func WithClock(c clock.Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithPresenter passes options through to the presenter.
func WithPresenter(opts ...presenter.Option) Option {
	return func(e *Engine) {
		e.presenterOpts = append(e.presenterOpts, opts...)
	}
}

type job struct {
	name string
	fn   func()
}

// Engine serializes every change to what the panel shows and renders a
// frame on each tick.
type Engine struct {
	panel         domain.Panel
	log           *logger.Logger
	clock         clock.Clock
	interval      time.Duration
	presenterOpts []presenter.Option

	tokens atomic.Uint64

	mu      sync.Mutex
	queue   []job
	notify  chan struct{}
	running bool
	closed  bool
	cancel  context.CancelFunc
	done    chan struct{}

	// Owned by the loop goroutine.
	pres     *presenter.Presenter
	timer    clock.Timer
	timerTok domain.Token
	panelErr string
}

// New creates an engine that measures text with metrics and shows frames
// on panel. Nothing is drawn until Start.
func New(panel domain.Panel, metrics domain.Metrics, log *logger.Logger, opts ...Option) *Engine {
	e := &Engine{
		panel:    panel,
		log:      log,
		clock:    clock.Real(),
		interval: 100 * time.Millisecond,
		notify:   make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.pres = presenter.New(metrics, log, e.presenterOpts...)
	return e
}

// Start begins the render loop. Non-blocking. Calls made before Start are
// queued and applied once the loop runs.
func (e *Engine) Start(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.running {
		e.log.Warn("already running")
		return
	}
	if e.closed {
		e.log.Warn("cannot restart a stopped engine")
		return
	}

	childCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.running = true

	go e.loop(childCtx)

	e.log.Info("render loop started (interval=%s)", e.interval)
}

// Stop cancels pending expiry timers, blanks the panel and waits for the
// loop to exit. Calls made after Stop are dropped.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.closed = true
		e.mu.Unlock()
		return
	}
	e.running = false
	e.cancel()
	e.mu.Unlock()

	<-e.done
	e.log.Info("render loop stopped")
}

// SetBaseline replaces the persistent content.
func (e *Engine) SetBaseline(c domain.Content) {
	e.enqueue("set-baseline", func() {
		e.pres.SetBaseline(c)
	})
}

// PushOverlay installs c over the baseline for d, or until cleared when d
// is zero. The returned token names this overlay for Dismiss. Empty
// content is ignored and yields the zero token.
func (e *Engine) PushOverlay(c domain.Content, d time.Duration) domain.Token {
	if c.IsEmpty() {
		e.log.Debug("ignored empty overlay")
		return 0
	}

	tok := domain.Token(e.tokens.Add(1))
	at := e.clock.Now()
	e.enqueue("push-overlay", func() {
		e.disarm()
		if !e.pres.PushOverlay(tok, c, d, at) {
			return
		}
		if d > 0 {
			e.arm(tok, at.Add(d))
		}
	})
	return tok
}

// ClearOverlay drops whichever overlay is active. It is a no-op when none
// is.
func (e *Engine) ClearOverlay() {
	e.enqueue("clear-overlay", func() {
		e.disarm()
		e.pres.ClearOverlay()
	})
}

// Dismiss drops the overlay named by tok if it is still the active one.
func (e *Engine) Dismiss(tok domain.Token) {
	if tok == 0 {
		return
	}
	e.enqueue("dismiss", func() {
		if e.pres.Dismiss(tok) && e.timerTok == tok {
			e.disarm()
		}
	})
}

// ReportMotion records motion state. A zero at means now.
func (e *Engine) ReportMotion(active bool, at time.Time) {
	if at.IsZero() {
		at = e.clock.Now()
	}
	e.enqueue("report-motion", func() {
		e.pres.ReportMotion(active, at, at)
	})
}

// Snapshot returns the presentation state once every call queued before it
// has been applied.
func (e *Engine) Snapshot() (presenter.State, error) {
	var s presenter.State
	err := e.barrier("snapshot", func() {
		s = e.pres.Snapshot()
	})
	return s, err
}

// RenderNow renders and shows a frame immediately, after every call queued
// before it has been applied.
func (e *Engine) RenderNow() (domain.Frame, error) {
	var f domain.Frame
	err := e.barrier("render-now", func() {
		f = e.render()
	})
	return f, err
}

func (e *Engine) enqueue(name string, fn func()) bool {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		e.log.Debug("dropped %s: engine stopped", name)
		return false
	}
	e.queue = append(e.queue, job{name: name, fn: fn})
	e.mu.Unlock()

	select {
	case e.notify <- struct{}{}:
	default: // already signaled
	}
	return true
}

func (e *Engine) barrier(name string, fn func()) error {
	e.mu.Lock()
	running := e.running
	e.mu.Unlock()
	if !running {
		return domain.ErrNotRunning
	}

	reply := make(chan struct{})
	if !e.enqueue(name, func() {
		fn()
		close(reply)
	}) {
		return domain.ErrClosed
	}

	select {
	case <-reply:
		return nil
	case <-e.done:
		return domain.ErrClosed
	}
}

func (e *Engine) loop(ctx context.Context) {
	defer close(e.done)

	ticker := e.clock.NewTicker(e.interval)
	defer ticker.Stop()

	e.drain()
	e.render()

	for {
		select {
		case <-ctx.Done():
			e.shutdown()
			return
		case <-e.notify:
			if e.drain() {
				e.render()
			}
		case <-ticker.C():
			e.drain()
			e.render()
		}
	}
}

// drain runs every queued job in arrival order and reports whether any ran.
func (e *Engine) drain() bool {
	e.mu.Lock()
	jobs := e.queue
	e.queue = nil
	e.mu.Unlock()

	for _, j := range jobs {
		e.log.Debug("apply %s", j.name)
		j.fn()
	}
	return len(jobs) > 0
}

func (e *Engine) render() domain.Frame {
	f := e.pres.Render(e.clock.Now())
	if f.Degraded {
		e.log.Debug("degraded frame at %s", f.At.Format(time.TimeOnly))
	}
	e.show(f)
	return f
}

// show hands f to the panel. A failing panel is logged when the failure
// starts or changes, not on every tick.
func (e *Engine) show(f domain.Frame) {
	err := e.panel.Show(f)
	switch {
	case err == nil && e.panelErr != "":
		e.log.Info("panel recovered")
		e.panelErr = ""
	case err != nil && err.Error() != e.panelErr:
		e.log.Error("panel show: %v", err)
		e.panelErr = err.Error()
	}
}

// arm schedules the expiry of tok at deadline. The timer only enqueues;
// the loop decides whether tok is still current.
func (e *Engine) arm(tok domain.Token, deadline time.Time) {
	d := deadline.Sub(e.clock.Now())
	if d < 0 {
		d = 0
	}
	e.timerTok = tok
	e.timer = e.clock.AfterFunc(d, func() {
		e.enqueue("expire", func() {
			if e.timerTok == tok {
				e.timer = nil
				e.timerTok = 0
			}
			e.pres.Expire(tok)
		})
	})
}

func (e *Engine) disarm() {
	if e.timer != nil {
		e.timer.Stop()
	}
	e.timer = nil
	e.timerTok = 0
}

func (e *Engine) shutdown() {
	e.mu.Lock()
	e.closed = true
	e.running = false
	e.queue = nil
	e.mu.Unlock()

	e.disarm()
	e.show(domain.Frame{
		At:     e.clock.Now(),
		Width:  e.pres.Layout().Width,
		Height: e.pres.Layout().Height,
	})
}

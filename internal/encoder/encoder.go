// Package encoder reads the two rotary encoders on the front panel through
// the GPIO character device.
package encoder

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/warthog618/go-gpiocdev"

	"github.com/hammamikhairi/doorpanel/internal/domain"
	"github.com/hammamikhairi/doorpanel/internal/logger"
)

// Direction of one detent.
type Direction int

const (
	Clockwise        Direction = 1
	CounterClockwise Direction = -1
)

func (d Direction) String() string {
	if d == Clockwise {
		return "cw"
	}
	return "ccw"
}

// Listener receives encoder input. Calls arrive on the GPIO event
// goroutine and must not block.
type Listener interface {
	Rotated(d Direction)
	Pressed()
}

// Pins are the line offsets of one encoder.
type Pins struct {
	CLK, DT, SW int
}

// Quadrature decodes the CLK/DT pair. Every CLK level change is one
// detent; DT disagreeing with CLK means clockwise.
type Quadrature struct {
	last int
}

// NewQuadrature starts from the current CLK level.
func NewQuadrature(clk int) *Quadrature {
	return &Quadrature{last: clk}
}

// Step feeds a sample and reports the detent it completes, if any.
func (q *Quadrature) Step(clk, dt int) (Direction, bool) {
	if clk == q.last {
		return 0, false
	}
	q.last = clk
	if dt != clk {
		return Clockwise, true
	}
	return CounterClockwise, true
}

// Debouncer drops presses that follow the previous accepted one too
// closely.
type Debouncer struct {
	window time.Duration
	last   time.Duration
	seen   bool
}

// NewDebouncer returns a debouncer with the given window.
func NewDebouncer(window time.Duration) *Debouncer {
	return &Debouncer{window: window}
}

// Accept reports whether an edge at ts (monotonic, from the kernel) counts.
func (d *Debouncer) Accept(ts time.Duration) bool {
	if d.seen && ts-d.last < d.window {
		return false
	}
	d.seen = true
	d.last = ts
	return true
}

// Encoder is one opened rotary encoder with push button.
type Encoder struct {
	name string
	l    Listener
	log  *logger.Logger

	mu   sync.Mutex
	quad *Quadrature
	deb  *Debouncer

	clk, dt, sw *gpiocdev.Line
}

// Open requests the encoder's lines on chip and starts delivering events
// to l. Missing GPIO is reported as domain.ErrNoDevice.
func Open(chip, name string, pins Pins, l Listener, log *logger.Logger) (*Encoder, error) {
	e := &Encoder{
		name: name,
		l:    l,
		log:  log,
		deb:  NewDebouncer(300 * time.Millisecond),
	}

	var err error
	e.dt, err = gpiocdev.RequestLine(chip, pins.DT, gpiocdev.AsInput, gpiocdev.WithPullUp)
	if err != nil {
		return nil, fmt.Errorf("%w: %s dt line %d: %v", domain.ErrNoDevice, name, pins.DT, err)
	}

	e.clk, err = gpiocdev.RequestLine(chip, pins.CLK,
		gpiocdev.AsInput,
		gpiocdev.WithPullUp,
		gpiocdev.WithBothEdges,
		gpiocdev.WithEventHandler(e.onClock))
	if err != nil {
		e.Close()
		return nil, fmt.Errorf("%w: %s clk line %d: %v", domain.ErrNoDevice, name, pins.CLK, err)
	}

	level, err := e.clk.Value()
	if err != nil {
		e.Close()
		return nil, fmt.Errorf("reading %s clk: %w", name, err)
	}
	e.mu.Lock()
	e.quad = NewQuadrature(level)
	e.mu.Unlock()

	e.sw, err = gpiocdev.RequestLine(chip, pins.SW,
		gpiocdev.AsInput,
		gpiocdev.WithPullUp,
		gpiocdev.WithFallingEdge,
		gpiocdev.WithEventHandler(e.onButton))
	if err != nil {
		e.Close()
		return nil, fmt.Errorf("%w: %s sw line %d: %v", domain.ErrNoDevice, name, pins.SW, err)
	}

	log.Info("%s encoder on %s (clk=%d dt=%d sw=%d)", name, chip, pins.CLK, pins.DT, pins.SW)
	return e, nil
}

func (e *Encoder) onClock(evt gpiocdev.LineEvent) {
	clk := 0
	if evt.Type == gpiocdev.LineEventRisingEdge {
		clk = 1
	}
	dt, err := e.dt.Value()
	if err != nil {
		e.log.Warn("%s: reading dt: %v", e.name, err)
		return
	}

	e.mu.Lock()
	if e.quad == nil {
		e.mu.Unlock()
		return
	}
	dir, ok := e.quad.Step(clk, dt)
	e.mu.Unlock()

	if ok {
		e.log.Debug("%s %s", e.name, dir)
		e.l.Rotated(dir)
	}
}

func (e *Encoder) onButton(evt gpiocdev.LineEvent) {
	e.mu.Lock()
	ok := e.deb.Accept(evt.Timestamp)
	e.mu.Unlock()

	if ok {
		e.log.Debug("%s pressed", e.name)
		e.l.Pressed()
	}
}

// Close releases the lines.
func (e *Encoder) Close() error {
	var errs []error
	for _, l := range []*gpiocdev.Line{e.clk, e.dt, e.sw} {
		if l == nil {
			continue
		}
		if err := l.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

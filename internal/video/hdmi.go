// Package video powers the HDMI screen and plays camera streams on it.
package video

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync"
	"time"

	"github.com/hammamikhairi/doorpanel/internal/domain"
	"github.com/hammamikhairi/doorpanel/internal/logger"
)

// Process is a running stream player.
type Process interface {
	Stop() error
}

// Starter launches a long-running command.
type Starter func(name string, args ...string) (Process, error)

// Runner executes a short command to completion.
type Runner func(ctx context.Context, name string, args ...string) error

// Option configures the HDMI controller.
type Option func(*HDMI)

// WithStarter replaces process launching, for tests.
func WithStarter(s Starter) Option {
	return func(h *HDMI) {
		h.start = s
	}
}

// WithRunner replaces command execution, for tests.
func WithRunner(r Runner) Option {
	return func(h *HDMI) {
		h.run = r
	}
}

// WithWarmup sets how long to wait after powering the screen on before
// starting playback.
func WithWarmup(d time.Duration) Option {
	return func(h *HDMI) {
		h.warmup = d
	}
}

// Compile-time check.
var _ domain.Video = (*HDMI)(nil)

// HDMI drives the screen with vcgencmd and plays streams with cvlc on the
// framebuffer.
type HDMI struct {
	framebuffer string
	start       Starter
	run         Runner
	warmup      time.Duration
	log         *logger.Logger

	mu     sync.Mutex
	on     bool
	player Process
}

// New returns a controller that renders to framebuffer (e.g. /dev/fb0).
func New(framebuffer string, log *logger.Logger, opts ...Option) *HDMI {
	h := &HDMI{
		framebuffer: framebuffer,
		start:       startProcess,
		run:         runCommand,
		warmup:      time.Second,
		log:         log,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// IsOn reports whether the screen is powered.
func (h *HDMI) IsOn() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.on
}

// PowerOn turns the screen on. It is a no-op if it already is.
func (h *HDMI) PowerOn() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.powerOnLocked()
}

func (h *HDMI) powerOnLocked() error {
	if h.on {
		return nil
	}
	if err := h.displayPower(1); err != nil {
		return err
	}
	h.on = true
	if h.warmup > 0 {
		time.Sleep(h.warmup)
	}
	h.log.Debug("screen on")
	return nil
}

// PowerOff stops playback and turns the screen off.
func (h *HDMI) PowerOff() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.on {
		return nil
	}
	var errs []error
	if err := h.stopLocked(); err != nil {
		errs = append(errs, err)
	}
	if err := h.displayPower(0); err != nil {
		errs = append(errs, err)
	}
	h.on = false
	h.log.Debug("screen off")
	return errors.Join(errs...)
}

// Shutdown stops playback and turns the screen off even if it was never
// turned on here, so the display does not stay lit after exit.
func (h *HDMI) Shutdown() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var errs []error
	if err := h.stopLocked(); err != nil {
		errs = append(errs, err)
	}
	if err := h.displayPower(0); err != nil {
		errs = append(errs, err)
	}
	h.on = false
	h.log.Debug("screen off for shutdown")
	return errors.Join(errs...)
}

// Play powers the screen on and plays url, replacing any stream already
// playing.
func (h *HDMI) Play(url string) error {
	if url == "" {
		return fmt.Errorf("play: empty stream url")
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.powerOnLocked(); err != nil {
		return err
	}
	if err := h.stopLocked(); err != nil {
		h.log.Warn("stopping previous stream: %v", err)
	}

	p, err := h.start("cvlc", "--quiet", "--vout=fb", "--fb-device="+h.framebuffer, url)
	if err != nil {
		return fmt.Errorf("starting stream: %w", err)
	}
	h.player = p
	h.log.Info("playing %s", url)
	return nil
}

// Stop ends playback without touching screen power.
func (h *HDMI) Stop() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stopLocked()
}

func (h *HDMI) stopLocked() error {
	if h.player == nil {
		return nil
	}
	err := h.player.Stop()
	h.player = nil
	return err
}

func (h *HDMI) displayPower(state int) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.run(ctx, "vcgencmd", "display_power", fmt.Sprint(state)); err != nil {
		return fmt.Errorf("display power %d: %w", state, err)
	}
	return nil
}

func runCommand(ctx context.Context, name string, args ...string) error {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w (%s)", name, err, out)
	}
	return nil
}

type cmdProcess struct {
	cmd  *exec.Cmd
	done chan error
}

func startProcess(name string, args ...string) (Process, error) {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	p := &cmdProcess{cmd: cmd, done: make(chan error, 1)}
	go func() { p.done <- cmd.Wait() }()
	return p, nil
}

func (p *cmdProcess) Stop() error {
	select {
	case <-p.done:
		return nil
	default:
	}
	if err := p.cmd.Process.Kill(); err != nil {
		return err
	}
	<-p.done
	return nil
}

package audio

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"sync"
	"time"

	"github.com/hammamikhairi/doorpanel/internal/domain"
	"github.com/hammamikhairi/doorpanel/internal/logger"
)

// Runner executes an external command and returns its output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		return out, fmt.Errorf("%s: %w (%s)", name, err, bytes.TrimSpace(out))
	}
	return out, nil
}

var (
	levelRe  = regexp.MustCompile(`\[(\d{1,3})%\]`)
	switchRe = regexp.MustCompile(`\[(on|off)\]`)
)

// MixerOption configures the mixer.
type MixerOption func(*Mixer)

// WithCard selects the ALSA card passed to amixer -c.
func WithCard(card string) MixerOption {
	return func(m *Mixer) {
		m.card = card
	}
}

// WithRunner replaces command execution, for tests.
func WithRunner(r Runner) MixerOption {
	return func(m *Mixer) {
		m.run = r
	}
}

// Compile-time check.
var _ domain.Mixer = (*Mixer)(nil)

// Mixer drives an ALSA simple control through amixer. It remembers the
// level itself so a mute/unmute cycle restores the previous volume.
type Mixer struct {
	control string
	card    string
	run     Runner
	log     *logger.Logger

	mu  sync.Mutex
	vol domain.Volume
}

// NewMixer returns a mixer for control starting at initial percent. The
// hardware is not touched until Load, Apply or the first change.
func NewMixer(control string, initial int, log *logger.Logger, opts ...MixerOption) *Mixer {
	m := &Mixer{
		control: control,
		run:     execRunner,
		log:     log,
		vol:     domain.Volume{Percent: clamp(initial)},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Current returns the remembered volume.
func (m *Mixer) Current() domain.Volume {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.vol
}

// Load reads the current level from the hardware and remembers it, so the
// knob continues from wherever the output was left.
func (m *Mixer) Load() (domain.Volume, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	out, err := m.run(ctx, "amixer", m.args("get", m.control)...)
	if err != nil {
		return m.vol, fmt.Errorf("reading %s: %w", m.control, err)
	}
	v, err := ParseLevel(out)
	if err != nil {
		return m.vol, fmt.Errorf("reading %s: %w", m.control, err)
	}
	if v.Muted {
		// Unmuting restores the level amixer still reports.
		m.vol = v
	} else {
		m.vol.Percent = v.Percent
	}
	m.log.Debug("hardware volume %d%% (muted=%v)", v.Percent, v.Muted)
	return m.vol, nil
}

// ParseLevel extracts the first channel's level from `amixer get` output.
// A switch reading "[off]" counts as muted.
func ParseLevel(out []byte) (domain.Volume, error) {
	m := levelRe.FindSubmatch(out)
	if m == nil {
		return domain.Volume{}, fmt.Errorf("%w: no level in amixer output", domain.ErrBadPayload)
	}
	p, err := strconv.Atoi(string(m[1]))
	if err != nil {
		return domain.Volume{}, fmt.Errorf("%w: level %q", domain.ErrBadPayload, m[1])
	}
	v := domain.Volume{Percent: clamp(p)}
	if sw := switchRe.FindSubmatch(out); sw != nil && string(sw[1]) == "off" {
		v.Muted = true
	}
	return v, nil
}

// Apply pushes the remembered level to the hardware.
func (m *Mixer) Apply() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.set(m.vol.Percent)
}

// Adjust changes the volume by delta percent, clamped to 0..100. Changes
// are ignored while muted.
func (m *Mixer) Adjust(delta int) (domain.Volume, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.vol.Muted {
		return m.vol, nil
	}
	next := clamp(m.vol.Percent + delta)
	if next == m.vol.Percent {
		return m.vol, nil
	}
	if err := m.set(next); err != nil {
		return m.vol, err
	}
	m.vol.Percent = next
	m.log.Debug("volume %d%%", next)
	return m.vol, nil
}

// ToggleMute mutes or restores the output.
func (m *Mixer) ToggleMute() (domain.Volume, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	muted := !m.vol.Muted
	level := m.vol.Percent
	if muted {
		level = 0
	}
	if err := m.set(level); err != nil {
		return m.vol, err
	}
	m.vol.Muted = muted
	m.log.Debug("muted=%v", muted)
	return m.vol, nil
}

// set must be called with m.mu held.
func (m *Mixer) set(percent int) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := m.run(ctx, "amixer", m.args("-q", "sset", m.control, strconv.Itoa(percent)+"%")...); err != nil {
		return fmt.Errorf("setting %s to %d%%: %w", m.control, percent, err)
	}
	return nil
}

func (m *Mixer) args(rest ...string) []string {
	var args []string
	if m.card != "" {
		args = append(args, "-c", m.card)
	}
	return append(args, rest...)
}

func clamp(p int) int {
	return max(0, min(100, p))
}

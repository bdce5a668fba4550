package video

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/hammamikhairi/doorpanel/internal/logger"
)

// mockShell records commands and started processes.
type mockShell struct {
	mu       sync.Mutex
	runs     []string
	starts   []string
	stopped  int
	runErr   error
	startErr error
}

type mockProcess struct{ shell *mockShell }

func (p mockProcess) Stop() error {
	p.shell.mu.Lock()
	defer p.shell.mu.Unlock()
	p.shell.stopped++
	return nil
}

func (s *mockShell) run(_ context.Context, name string, args ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append(s.runs, name+" "+strings.Join(args, " "))
	return s.runErr
}

func (s *mockShell) start(name string, args ...string) (Process, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.startErr != nil {
		return nil, s.startErr
	}
	s.starts = append(s.starts, name+" "+strings.Join(args, " "))
	return mockProcess{shell: s}, nil
}

func newTestHDMI(s *mockShell) *HDMI {
	return New("/dev/fb0", logger.New(logger.LevelOff, nil),
		WithRunner(s.run), WithStarter(s.start), WithWarmup(0))
}

func TestPlayPowersOnOnce(t *testing.T) {
	s := &mockShell{}
	h := newTestHDMI(s)

	if err := h.Play("rtsp://cam/front"); err != nil {
		t.Fatalf("Play: %v", err)
	}
	if err := h.Play("rtsp://cam/back"); err != nil {
		t.Fatalf("Play: %v", err)
	}

	if len(s.runs) != 1 || s.runs[0] != "vcgencmd display_power 1" {
		t.Fatalf("runs = %q", s.runs)
	}
	if len(s.starts) != 2 {
		t.Fatalf("starts = %q", s.starts)
	}
	if s.stopped != 1 {
		t.Fatalf("stopped = %d, want the first stream stopped", s.stopped)
	}
	if !strings.HasSuffix(s.starts[1], "--fb-device=/dev/fb0 rtsp://cam/back") {
		t.Fatalf("start = %q", s.starts[1])
	}
	if !h.IsOn() {
		t.Fatal("screen not on")
	}
}

func TestPowerOffStopsStream(t *testing.T) {
	s := &mockShell{}
	h := newTestHDMI(s)
	h.Play("rtsp://cam/front")

	if err := h.PowerOff(); err != nil {
		t.Fatalf("PowerOff: %v", err)
	}

	if s.stopped != 1 {
		t.Fatalf("stopped = %d", s.stopped)
	}
	if s.runs[len(s.runs)-1] != "vcgencmd display_power 0" {
		t.Fatalf("runs = %q", s.runs)
	}
	if h.IsOn() {
		t.Fatal("screen still on")
	}
	if err := h.PowerOff(); err != nil || len(s.runs) != 2 {
		t.Fatalf("second PowerOff ran commands: %q (err=%v)", s.runs, err)
	}
}

func TestPowerFailureKeepsStateOff(t *testing.T) {
	s := &mockShell{runErr: errors.New("vcgencmd: not found")}
	h := newTestHDMI(s)

	if err := h.Play("rtsp://cam/front"); err == nil {
		t.Fatal("expected error")
	}
	if h.IsOn() || len(s.starts) != 0 {
		t.Fatalf("on=%v starts=%q", h.IsOn(), s.starts)
	}
}

func TestPlayRejectsEmptyURL(t *testing.T) {
	h := newTestHDMI(&mockShell{})

	if err := h.Play(""); err == nil {
		t.Fatal("expected error")
	}
}

func TestShutdownTurnsScreenOff(t *testing.T) {
	tests := []struct {
		name      string
		playing   bool
		wantStops int
	}{
		{"while streaming", true, 1},
		{"never turned on", false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &mockShell{}
			h := newTestHDMI(s)
			if tt.playing {
				h.Play("rtsp://cam/front")
			}

			if err := h.Shutdown(); err != nil {
				t.Fatalf("Shutdown: %v", err)
			}

			if s.stopped != tt.wantStops {
				t.Fatalf("stopped = %d, want %d", s.stopped, tt.wantStops)
			}
			if len(s.runs) == 0 || s.runs[len(s.runs)-1] != "vcgencmd display_power 0" {
				t.Fatalf("runs = %q, want display_power 0 last", s.runs)
			}
			if h.IsOn() {
				t.Fatal("screen still on")
			}
		})
	}
}

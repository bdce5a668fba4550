package panel

import (
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/term"
	"periph.io/x/devices/v3/ssd1306/image1bit"

	"github.com/hammamikhairi/doorpanel/internal/domain"
)

var (
	screenStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#52525b")).
			Foreground(lipgloss.Color("#7dd3fc"))

	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#71717a"))

	degradedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#fca5a5"))
)

// Key is a simulator keypress that stands in for a hardware input.
type Key int

const (
	KeyVolumeUp Key = iota
	KeyVolumeDown
	KeyMute
	KeySoundNext
	KeySoundPrev
	KeyHDMI
	KeyDoorbell
	KeyMotion
)

var keyBindings = map[string]Key{
	"up":    KeyVolumeUp,
	"down":  KeyVolumeDown,
	"m":     KeyMute,
	"right": KeySoundNext,
	"left":  KeySoundPrev,
	"h":     KeyHDMI,
	"d":     KeyDoorbell,
	"n":     KeyMotion,
}

// Compile-time check.
var _ domain.Panel = (*Terminal)(nil)

// Terminal renders frames in the terminal through Bubble Tea, one character
// cell per two pixel rows.
//
// Call [NewTerminal] then [Terminal.Run] (blocking). Show may be called from
// any goroutine; frames shown before the event loop is up are dropped.
type Terminal struct {
	program *tea.Program
	keys    chan Key
	readyCh chan struct{}
	quitCh  chan struct{}
	done    atomic.Bool
}

// NewTerminal creates the simulator. Call Run to start it.
func NewTerminal() *Terminal {
	t := &Terminal{
		keys:    make(chan Key, 16),
		readyCh: make(chan struct{}),
		quitCh:  make(chan struct{}),
	}
	m := termModel{keys: t.keys, readyCh: t.readyCh, width: termWidth()}
	t.program = tea.NewProgram(m, tea.WithAltScreen())
	return t
}

// Keys returns simulated hardware input.
func (t *Terminal) Keys() <-chan Key { return t.keys }

// WaitReady blocks until the Bubble Tea event loop is running.
func (t *Terminal) WaitReady() { <-t.readyCh }

// QuitChan is closed when Run returns.
func (t *Terminal) QuitChan() <-chan struct{} { return t.quitCh }

// Run starts the Bubble Tea event loop. Blocks until quit.
func (t *Terminal) Run() error {
	_, err := t.program.Run()
	t.done.Store(true)
	close(t.quitCh)
	return err
}

// Show rasterizes f and hands it to the event loop.
func (t *Terminal) Show(f domain.Frame) error {
	select {
	case <-t.readyCh:
	default:
		return nil
	}
	if t.done.Load() {
		return nil
	}
	img, err := Rasterize(f, Face)
	if err != nil {
		return err
	}
	t.program.Send(frameMsg{art: Art(img), degraded: f.Degraded, mode: f.Mode})
	return nil
}

// Close tells Bubble Tea to exit. It is a no-op if Run never got going.
func (t *Terminal) Close() error {
	select {
	case <-t.readyCh:
		t.program.Quit()
	default:
	}
	return nil
}

// Art renders a bitmap with half-block characters.
func Art(img *image1bit.VerticalLSB) string {
	r := img.Bounds()
	var b strings.Builder
	for y := r.Min.Y; y < r.Max.Y; y += 2 {
		for x := r.Min.X; x < r.Max.X; x++ {
			top := img.BitAt(x, y)
			bottom := y+1 < r.Max.Y && bool(img.BitAt(x, y+1))
			switch {
			case bool(top) && bottom:
				b.WriteRune('█')
			case bool(top):
				b.WriteRune('▀')
			case bottom:
				b.WriteRune('▄')
			default:
				b.WriteByte(' ')
			}
		}
		if y+2 < r.Max.Y {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// termWidth returns the current terminal column count, or 80 as fallback.
func termWidth() int {
	if w, _, err := term.GetSize(os.Stdout.Fd()); err == nil && w > 0 {
		return w
	}
	return 80
}

// ── Bubble Tea model ─────────────────────────────────────────────

type frameMsg struct {
	art      string
	degraded bool
	mode     domain.Mode
}

type termModel struct {
	keys    chan<- Key
	readyCh chan struct{}
	frame   frameMsg
	width   int
}

func (m termModel) Init() tea.Cmd {
	return signalReady(m.readyCh)
}

func signalReady(ch chan struct{}) tea.Cmd {
	return func() tea.Msg {
		close(ch)
		return nil
	}
}

func (m termModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		}
		if k, ok := keyBindings[msg.String()]; ok {
			select {
			case m.keys <- k:
			default: // nobody listening
			}
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case frameMsg:
		m.frame = msg
	}
	return m, nil
}

func (m termModel) View() string {
	screen := screenStyle.Render(m.frame.art)

	status := hintStyle.Render(fmt.Sprintf("mode: %s", m.frame.mode))
	if m.frame.degraded {
		status = degradedStyle.Render("degraded frame")
	}
	help := hintStyle.Render("↑/↓ volume  m mute  ←/→ sound  h hdmi  d door  n motion  q quit")

	return lipgloss.PlaceHorizontal(m.width, lipgloss.Center,
		lipgloss.JoinVertical(lipgloss.Center, screen, status, help))
}

package panel

import (
	"strings"
	"sync"

	"github.com/hammamikhairi/doorpanel/internal/domain"
	"github.com/hammamikhairi/doorpanel/internal/logger"
)

// Compile-time check.
var _ domain.Panel = (*LogPanel)(nil)

// LogPanel stands in for a missing display. It logs the text of a frame
// whenever the body changes; the clock and marquee position are ignored so
// a scrolling message is logged once rather than ten times a second.
type LogPanel struct {
	log *logger.Logger

	mu   sync.Mutex
	last string
}

// NewLogPanel returns a panel that writes to log.
func NewLogPanel(log *logger.Logger) *LogPanel {
	return &LogPanel{log: log}
}

// Show logs f if its visible text differs from the last logged frame.
func (p *LogPanel) Show(f domain.Frame) error {
	line := describe(f)

	p.mu.Lock()
	defer p.mu.Unlock()
	if line == p.last {
		return nil
	}
	p.last = line
	p.log.Info("%s", line)
	return nil
}

// Close is a no-op.
func (p *LogPanel) Close() error { return nil }

// describe summarizes a frame as "[mode] body text", skipping the status
// bar.
func describe(f domain.Frame) string {
	if f.Degraded {
		return "[degraded]"
	}
	if len(f.Ops) == 0 {
		return "[blank]"
	}

	texts := f.Texts()
	if f.Mode != domain.ModeCentered && len(texts) >= 2 {
		texts = texts[2:]
	}
	return "[" + f.Mode.String() + "] " + strings.Join(texts, " | ")
}

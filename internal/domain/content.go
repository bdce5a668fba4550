// Package domain defines the core types and interfaces of the display
// presentation engine. All other packages depend on domain; domain depends
// on nothing.
package domain

import "strings"

// Mode selects how the panel body is laid out.
type Mode int

const (
	// ModeDefaultStatus shows only the status bar (clock + motion recency).
	ModeDefaultStatus Mode = iota
	// ModeCentered shows two centered, width-truncated lines.
	ModeCentered
	// ModeScrolling shows the status bar with a marquee body under it.
	ModeScrolling
)

// String returns a human-readable mode name.
func (m Mode) String() string {
	switch m {
	case ModeDefaultStatus:
		return "status"
	case ModeCentered:
		return "centered"
	case ModeScrolling:
		return "scrolling"
	default:
		return "unknown"
	}
}

// Content is what one layer (baseline or overlay) wants on the panel.
//
// In ModeScrolling only Text is used. In ModeCentered Title is the first
// line and Text the second. ModeDefaultStatus ignores both.
type Content struct {
	Mode  Mode
	Title string
	Text  string
}

// StatusOnly returns content that shows the bare status bar.
func StatusOnly() Content {
	return Content{Mode: ModeDefaultStatus}
}

// Scrolling returns marquee content under the status bar.
func Scrolling(text string) Content {
	return Content{Mode: ModeScrolling, Text: text}
}

// Centered returns two-line centered content.
func Centered(title, text string) Content {
	return Content{Mode: ModeCentered, Title: title, Text: text}
}

// IsEmpty reports whether the content has nothing to show beyond the
// status bar.
func (c Content) IsEmpty() bool {
	switch c.Mode {
	case ModeCentered:
		return strings.TrimSpace(c.Title) == "" && strings.TrimSpace(c.Text) == ""
	case ModeScrolling:
		return strings.TrimSpace(c.Text) == ""
	default:
		return true
	}
}

// Token identifies one installed overlay. Tokens are never reused during a
// process lifetime; the zero Token never names an overlay.
type Token uint64

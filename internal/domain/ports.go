package domain

import (
	"context"
	"time"
)

// Presenter is the surface producers use to change what the panel shows.
// Implementations serialize every call; none of them block on I/O.
type Presenter interface {
	// SetBaseline replaces the persistent content. An active overlay keeps
	// showing until it expires or is cleared.
	SetBaseline(c Content)
	// PushOverlay installs c over the baseline, replacing any active
	// overlay. A zero duration makes the overlay sticky. Empty content is
	// ignored and yields the zero Token.
	PushOverlay(c Content, d time.Duration) Token
	// ClearOverlay drops whichever overlay is active.
	ClearOverlay()
	// Dismiss drops the overlay only if tok still names the active one.
	Dismiss(tok Token)
	// ReportMotion records the motion state observed at the given time.
	ReportMotion(active bool, at time.Time)
}

// Metrics measures rendered text. Implementations wrap a font face.
type Metrics interface {
	MeasureWidth(text string) (int, error)
}

// Panel displays frames. Show must not retain f.Ops after returning.
type Panel interface {
	Show(f Frame) error
	Close() error
}

// Chime plays a named sound file from the sound library.
type Chime interface {
	Play(ctx context.Context, name string) error
}

// Volume is a mixer reading.
type Volume struct {
	Percent int
	Muted   bool
}

// Mixer controls the output volume.
type Mixer interface {
	Adjust(delta int) (Volume, error)
	ToggleMute() (Volume, error)
	Current() Volume
}

// Video drives the external HDMI screen.
type Video interface {
	PowerOn() error
	PowerOff() error
	Play(url string) error
	IsOn() bool
}

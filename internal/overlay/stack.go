// Package overlay arbitrates between the persistent baseline content and a
// single temporary overlay.
//
// Overlay depth is exactly zero or one: installing an overlay replaces the
// active one, and restore targets never chain, so clearing always lands on
// the baseline. Overlays are identified by generation tokens rather than by
// their content, because two unrelated events may carry identical text.
//
// An overlay does not restore a snapshot taken when it was pushed. A
// baseline set while it is up becomes its restore target, so baseline
// updates and overlay lifetimes commute and clearing never resurrects a
// baseline that was already replaced.
//
// Stack is not safe for concurrent use; the engine owns it from a single
// goroutine.
package overlay

import (
	"time"

	"github.com/hammamikhairi/doorpanel/internal/domain"
)

// Overlay is a temporary override of the baseline.
type Overlay struct {
	Token     domain.Token
	Content   domain.Content
	CreatedAt time.Time
	ExpiresAt time.Time      // zero for sticky overlays
	Restore   domain.Content // what clearing reveals
}

// Sticky reports whether the overlay only goes away when cleared.
func (o Overlay) Sticky() bool { return o.ExpiresAt.IsZero() }

// Due reports whether the overlay's deadline has been reached at now.
func (o Overlay) Due(now time.Time) bool {
	return !o.Sticky() && !now.Before(o.ExpiresAt)
}

// Stack holds the baseline and the active overlay, if any.
type Stack struct {
	baseline domain.Content
	active   *Overlay
}

// NewStack returns a stack showing baseline.
func NewStack(baseline domain.Content) *Stack {
	return &Stack{baseline: baseline}
}

// Baseline returns the persistent content.
func (s *Stack) Baseline() domain.Content { return s.baseline }

// Active returns a copy of the active overlay.
func (s *Stack) Active() (Overlay, bool) {
	if s.active == nil {
		return Overlay{}, false
	}
	return *s.active, true
}

// Visible returns the content that should be rendered: the overlay when one
// is active, the baseline otherwise.
func (s *Stack) Visible() domain.Content {
	if s.active != nil {
		return s.active.Content
	}
	return s.baseline
}

// SetBaseline replaces the baseline. An active overlay keeps showing; its
// restore target follows the new baseline so that clearing or expiry
// reveals the latest baseline. It reports whether the baseline is visible.
func (s *Stack) SetBaseline(c domain.Content) bool {
	s.baseline = c
	if s.active != nil {
		s.active.Restore = c
		return false
	}
	return true
}

// Push installs c as the active overlay under tok. A non-positive d makes
// the overlay sticky. Any active overlay is replaced and returned. Empty
// content installs nothing and reports ok=false.
func (s *Stack) Push(tok domain.Token, c domain.Content, now time.Time, d time.Duration) (replaced *Overlay, ok bool) {
	if c.IsEmpty() || tok == 0 {
		return nil, false
	}

	ov := &Overlay{
		Token:     tok,
		Content:   c,
		CreatedAt: now,
		Restore:   s.baseline,
	}
	if d > 0 {
		ov.ExpiresAt = now.Add(d)
	}

	replaced = s.active
	s.active = ov
	return replaced, true
}

// Clear drops the active overlay and restores its target. It returns the
// cleared overlay, or ok=false when nothing was active.
func (s *Stack) Clear() (Overlay, bool) {
	if s.active == nil {
		return Overlay{}, false
	}
	ov := *s.active
	s.baseline = ov.Restore
	s.active = nil
	return ov, true
}

// Dismiss clears the active overlay only if it is the one named by tok.
func (s *Stack) Dismiss(tok domain.Token) bool {
	if s.active == nil || s.active.Token != tok {
		return false
	}
	s.Clear()
	return true
}

// Expire handles an expiry callback for tok. Callbacks for overlays that
// have since been replaced or cleared are ignored.
func (s *Stack) Expire(tok domain.Token) bool {
	if s.active == nil || s.active.Token != tok || s.active.Sticky() {
		return false
	}
	s.Clear()
	return true
}

// ExpireDue clears the active overlay if its deadline has passed at now,
// regardless of whether its expiry callback has run yet.
func (s *Stack) ExpireDue(now time.Time) (Overlay, bool) {
	if s.active == nil || !s.active.Due(now) {
		return Overlay{}, false
	}
	return s.Clear()
}

package overlay

import (
	"testing"
	"time"

	"github.com/hammamikhairi/doorpanel/internal/domain"
)

var epoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func TestPushAndClearRestoresBaseline(t *testing.T) {
	s := NewStack(domain.Scrolling("Ready"))

	if _, ok := s.Push(1, domain.Scrolling("Motion detected!"), epoch, 0); !ok {
		t.Fatal("push rejected")
	}
	if got := s.Visible().Text; got != "Motion detected!" {
		t.Fatalf("visible = %q", got)
	}

	ov, ok := s.Clear()
	if !ok || ov.Token != 1 {
		t.Fatalf("clear = %+v, %v", ov, ok)
	}
	if got := s.Visible().Text; got != "Ready" {
		t.Fatalf("visible after clear = %q, want Ready", got)
	}
}

func TestClearWithoutOverlayIsNoop(t *testing.T) {
	s := NewStack(domain.Scrolling("Ready"))

	if _, ok := s.Clear(); ok {
		t.Fatal("clear on empty stack reported success")
	}
	if _, ok := s.Clear(); ok {
		t.Fatal("second clear reported success")
	}
	if s.Baseline().Text != "Ready" {
		t.Fatalf("baseline changed: %+v", s.Baseline())
	}
}

func TestReplacedOverlayRestoreDoesNotChain(t *testing.T) {
	s := NewStack(domain.Scrolling("Ready"))

	s.Push(1, domain.Scrolling("first"), epoch, 5*time.Second)
	replaced, _ := s.Push(2, domain.Scrolling("second"), epoch.Add(time.Second), 5*time.Second)

	if replaced == nil || replaced.Token != 1 {
		t.Fatalf("replaced = %+v, want token 1", replaced)
	}
	ov, _ := s.Active()
	if ov.Restore.Text != "Ready" {
		t.Fatalf("restore target = %q, want the baseline", ov.Restore.Text)
	}
	if !ov.ExpiresAt.Equal(epoch.Add(6 * time.Second)) {
		t.Fatalf("expires = %v", ov.ExpiresAt)
	}
}

func TestStaleExpiryIgnored(t *testing.T) {
	s := NewStack(domain.Scrolling("Ready"))

	s.Push(1, domain.Scrolling("first"), epoch, time.Second)
	s.Push(2, domain.Scrolling("second"), epoch, 10*time.Second)

	if s.Expire(1) {
		t.Fatal("stale token expired the newer overlay")
	}
	if got := s.Visible().Text; got != "second" {
		t.Fatalf("visible = %q, want second", got)
	}
	if !s.Expire(2) {
		t.Fatal("current token did not expire")
	}
	if got := s.Visible().Text; got != "Ready" {
		t.Fatalf("visible = %q, want Ready", got)
	}
	if s.Expire(2) {
		t.Fatal("double expiry reported success")
	}
}

func TestIdenticalTextDistinctTokens(t *testing.T) {
	s := NewStack(domain.StatusOnly())

	s.Push(1, domain.Scrolling("Motion detected!"), epoch, 0)
	s.Push(2, domain.Scrolling("Motion detected!"), epoch, 0)

	if s.Dismiss(1) {
		t.Fatal("dismiss of superseded overlay with identical text cleared the new one")
	}
	if !s.Dismiss(2) {
		t.Fatal("dismiss of active overlay failed")
	}
}

func TestStickyIgnoresExpiry(t *testing.T) {
	s := NewStack(domain.StatusOnly())
	s.Push(7, domain.Scrolling("Someone at the door!"), epoch, 0)

	if s.Expire(7) {
		t.Fatal("sticky overlay expired via callback")
	}
	if _, ok := s.ExpireDue(epoch.Add(24 * time.Hour)); ok {
		t.Fatal("sticky overlay expired by deadline")
	}
}

func TestExpireDueUsesAbsoluteDeadline(t *testing.T) {
	s := NewStack(domain.Scrolling("Ready"))
	s.Push(3, domain.Scrolling("Now playing: X"), epoch, 5*time.Second)

	if _, ok := s.ExpireDue(epoch.Add(4999 * time.Millisecond)); ok {
		t.Fatal("expired before deadline")
	}
	if _, ok := s.ExpireDue(epoch.Add(5 * time.Second)); !ok {
		t.Fatal("not expired at deadline")
	}
	if got := s.Visible().Text; got != "Ready" {
		t.Fatalf("visible = %q", got)
	}
}

func TestBaselineUpdateDuringOverlay(t *testing.T) {
	s := NewStack(domain.Scrolling("Ready"))
	s.Push(1, domain.Scrolling("Volume: 40%"), epoch, 5*time.Second)

	if visible := s.SetBaseline(domain.Scrolling("Package delivered")); visible {
		t.Fatal("baseline reported visible under an overlay")
	}
	if got := s.Visible().Text; got != "Volume: 40%" {
		t.Fatalf("overlay disturbed by baseline update: %q", got)
	}

	s.Expire(1)
	if got := s.Visible().Text; got != "Package delivered" {
		t.Fatalf("visible after expiry = %q, want latest baseline", got)
	}
}

func TestEmptyContentNotInstalled(t *testing.T) {
	s := NewStack(domain.Scrolling("Ready"))
	s.Push(1, domain.Scrolling("keep"), epoch, 0)

	for _, c := range []domain.Content{
		domain.Scrolling(""),
		domain.Scrolling("   "),
		domain.Centered("", ""),
		domain.StatusOnly(),
	} {
		if _, ok := s.Push(2, c, epoch, time.Second); ok {
			t.Fatalf("empty content %+v installed", c)
		}
	}
	if ov, _ := s.Active(); ov.Token != 1 {
		t.Fatalf("active token = %d, want 1", ov.Token)
	}
}

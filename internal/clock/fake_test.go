package clock

import (
	"testing"
	"time"
)

var epoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func TestFakeFiresTimersInOrder(t *testing.T) {
	clk := NewFake(epoch)
	var fired []string

	clk.AfterFunc(3*time.Second, func() { fired = append(fired, "late") })
	clk.AfterFunc(1*time.Second, func() { fired = append(fired, "early") })
	clk.AfterFunc(10*time.Second, func() { fired = append(fired, "never") })

	clk.Advance(5 * time.Second)

	if len(fired) != 2 || fired[0] != "early" || fired[1] != "late" {
		t.Fatalf("fired = %v, want [early late]", fired)
	}
	if got := clk.Now(); !got.Equal(epoch.Add(5 * time.Second)) {
		t.Fatalf("now = %v", got)
	}
	if clk.Pending() != 1 {
		t.Fatalf("pending = %d, want 1", clk.Pending())
	}
}

func TestFakeTimerStop(t *testing.T) {
	clk := NewFake(epoch)
	called := false
	tm := clk.AfterFunc(time.Second, func() { called = true })

	if !tm.Stop() {
		t.Fatal("expected Stop to report the timer as pending")
	}
	if tm.Stop() {
		t.Fatal("second Stop should report false")
	}
	clk.Advance(2 * time.Second)
	if called {
		t.Fatal("stopped timer fired")
	}
}

func TestFakeTimerSeesDeadlineAsNow(t *testing.T) {
	clk := NewFake(epoch)
	var at time.Time
	clk.AfterFunc(2*time.Second, func() { at = clk.Now() })

	clk.Advance(time.Minute)

	if !at.Equal(epoch.Add(2 * time.Second)) {
		t.Fatalf("callback saw %v, want deadline", at)
	}
}

func TestFakeTickerDropsUnread(t *testing.T) {
	clk := NewFake(epoch)
	tk := clk.NewTicker(100 * time.Millisecond)
	defer tk.Stop()

	clk.Advance(time.Second)

	select {
	case <-tk.C():
	default:
		t.Fatal("expected a buffered tick")
	}
	select {
	case <-tk.C():
		t.Fatal("ticker should hold at most one tick")
	default:
	}
}

package encoder

import (
	"testing"
	"time"
)

func TestQuadratureDirection(t *testing.T) {
	tests := []struct {
		name    string
		start   int
		samples [][2]int // clk, dt
		want    []Direction
	}{
		{"clockwise detents", 1, [][2]int{{0, 1}, {1, 0}, {0, 1}}, []Direction{Clockwise, Clockwise, Clockwise}},
		{"counter clockwise", 1, [][2]int{{0, 0}, {1, 1}}, []Direction{CounterClockwise, CounterClockwise}},
		{"repeated level ignored", 1, [][2]int{{1, 0}, {1, 1}, {0, 1}}, []Direction{Clockwise}},
		{"reversal", 0, [][2]int{{1, 0}, {0, 0}}, []Direction{Clockwise, CounterClockwise}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := NewQuadrature(tt.start)
			var got []Direction
			for _, s := range tt.samples {
				if d, ok := q.Step(s[0], s[1]); ok {
					got = append(got, d)
				}
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("step %d = %s, want %s", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestDebouncer(t *testing.T) {
	d := NewDebouncer(300 * time.Millisecond)

	steps := []struct {
		at   time.Duration
		want bool
	}{
		{10 * time.Second, true},
		{10*time.Second + 50*time.Millisecond, false},
		{10*time.Second + 299*time.Millisecond, false},
		{10*time.Second + 300*time.Millisecond, true},
		{11 * time.Second, true},
	}
	for _, s := range steps {
		if got := d.Accept(s.at); got != s.want {
			t.Fatalf("Accept(%s) = %v, want %v", s.at, got, s.want)
		}
	}
}

func TestDirectionString(t *testing.T) {
	if Clockwise.String() != "cw" || CounterClockwise.String() != "ccw" {
		t.Fatalf("strings = %s, %s", Clockwise, CounterClockwise)
	}
}

package logger

import (
	"bytes"
	"strings"
	"testing"
)

func TestLevels(t *testing.T) {
	tests := []struct {
		name      string
		level     Level
		wantDebug bool
		wantInfo  bool
	}{
		{"off", LevelOff, false, false},
		{"normal", LevelNormal, false, true},
		{"verbose", LevelVerbose, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			log := New(tt.level, &buf)
			log.Debug("debug line")
			log.Info("info line")

			out := buf.String()
			if got := strings.Contains(out, "[DBG] "); got != tt.wantDebug {
				t.Fatalf("debug present = %v, want %v (out=%q)", got, tt.wantDebug, out)
			}
			if got := strings.Contains(out, "[INF] "); got != tt.wantInfo {
				t.Fatalf("info present = %v, want %v (out=%q)", got, tt.wantInfo, out)
			}
		})
	}
}

func TestWithPrefixesComponent(t *testing.T) {
	var buf bytes.Buffer
	root := New(LevelNormal, &buf)
	child := root.With("panel").With("oled")

	child.Warn("bus %d gone", 1)

	if !strings.Contains(buf.String(), "panel.oled: bus 1 gone") {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

func TestChildSharesLevel(t *testing.T) {
	var buf bytes.Buffer
	root := New(LevelNormal, &buf)
	child := root.With("engine")

	root.SetLevel(LevelOff)
	child.Error("should not appear")

	if buf.Len() != 0 {
		t.Fatalf("expected no output after SetLevel(Off), got %q", buf.String())
	}
	if child.GetLevel() != LevelOff {
		t.Fatalf("child level = %s, want off", child.GetLevel())
	}
}

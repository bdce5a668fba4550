package metadata

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hammamikhairi/doorpanel/internal/domain"
	"github.com/hammamikhairi/doorpanel/internal/logger"
)

func item(typ, code, data string) string {
	s := fmt.Sprintf("<item><type>%s</type><code>%s</code><length>%d</length>",
		hex.EncodeToString([]byte(typ)), hex.EncodeToString([]byte(code)), len(data))
	if data != "" {
		s += "\n<data encoding=\"base64\">\n" + base64.StdEncoding.EncodeToString([]byte(data)) + "</data>"
	}
	return s + "</item>\n"
}

// mockListener records playback changes.
type mockListener struct {
	mu     sync.Mutex
	tracks []Track
	ends   int
}

func (m *mockListener) TrackChanged(t Track) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tracks = append(m.tracks, t)
}

func (m *mockListener) PlaybackEnded() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ends++
}

func (m *mockListener) snapshot() ([]Track, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Track(nil), m.tracks...), m.ends
}

func TestParseItems(t *testing.T) {
	stream := item("core", "asar", "Nina Simone") +
		item("ssnc", "pbeg", "") +
		"<item><type>zz</type><code>6d696e6d</code></item>\n" +
		item("core", "minm", "Feeling Good")

	var got []Item
	err := Parse(strings.NewReader(stream), func(it Item) { got = append(got, it) }, logger.New(logger.LevelOff, nil))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if len(got) != 3 {
		t.Fatalf("items = %d, want 3 (malformed one skipped): %+v", len(got), got)
	}
	if got[0].Type != "core" || got[0].Code != "asar" || string(got[0].Data) != "Nina Simone" {
		t.Fatalf("first item = %+v", got[0])
	}
	if got[1].Code != "pbeg" || got[1].Data != nil {
		t.Fatalf("second item = %+v", got[1])
	}
}

func TestTrackerEmitsOnTitle(t *testing.T) {
	l := &mockListener{}
	tr := NewTracker(l)

	tr.Handle(Item{Type: "core", Code: "asal", Data: []byte("Blue")})
	tr.Handle(Item{Type: "core", Code: "asar", Data: []byte("Joni Mitchell")})
	if tracks, _ := l.snapshot(); len(tracks) != 0 {
		t.Fatalf("emitted before title: %+v", tracks)
	}

	tr.Handle(Item{Type: "core", Code: "minm", Data: []byte("River")})
	tr.Handle(Item{Type: "ssnc", Code: "pend"})
	tr.Handle(Item{Type: "core", Code: "minm", Data: []byte("Untitled")})

	tracks, ends := l.snapshot()
	if ends != 1 {
		t.Fatalf("ends = %d, want 1", ends)
	}
	want := Track{Title: "River", Artist: "Joni Mitchell", Album: "Blue"}
	if len(tracks) != 2 || tracks[0] != want {
		t.Fatalf("tracks = %+v", tracks)
	}
	if tracks[1] != (Track{Title: "Untitled"}) {
		t.Fatalf("track after end kept stale fields: %+v", tracks[1])
	}
}

func TestTrackLabel(t *testing.T) {
	tests := []struct {
		track Track
		want  string
	}{
		{Track{Title: "River", Artist: "Joni Mitchell"}, "Now playing: River - Joni Mitchell"},
		{Track{Title: "River"}, "Now playing: River"},
	}
	for _, tt := range tests {
		if got := tt.track.Label(); got != tt.want {
			t.Fatalf("Label() = %q, want %q", got, tt.want)
		}
	}
}

func TestReaderFollowsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shairport-sync-metadata")
	stream := item("core", "asar", "Miles Davis") + item("core", "minm", "So What")
	if err := os.WriteFile(path, []byte(stream), 0o644); err != nil {
		t.Fatal(err)
	}

	l := &mockListener{}
	r := NewReader(path, logger.New(logger.LevelOff, nil))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx, NewTracker(l)) }()

	deadline := time.Now().Add(2 * time.Second)
	for {
		if tracks, _ := l.snapshot(); len(tracks) > 0 {
			if tracks[0].Label() != "Now playing: So What - Miles Davis" {
				t.Fatalf("track = %+v", tracks[0])
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("no track reported")
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop")
	}
}

func TestMalformedItemIsBadPayload(t *testing.T) {
	tests := []struct {
		name string
		raw  rawItem
	}{
		{"type not hex", rawItem{Type: "zz", Code: hex.EncodeToString([]byte("minm"))}},
		{"code not hex", rawItem{Type: hex.EncodeToString([]byte("core")), Code: "q"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.raw.decode(); !errors.Is(err, domain.ErrBadPayload) {
				t.Fatalf("decode() error = %v, want ErrBadPayload", err)
			}
		})
	}
}

// Package metadata follows the shairport-sync metadata pipe and reports
// what is playing over AirPlay.
package metadata

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/hammamikhairi/doorpanel/internal/domain"
	"github.com/hammamikhairi/doorpanel/internal/logger"
)

// Item is one metadata record. Type and Code are four-character codes such
// as "core"/"minm" or "ssnc"/"pend".
type Item struct {
	Type string
	Code string
	Data []byte
}

type rawItem struct {
	Type string `xml:"type"`
	Code string `xml:"code"`
	Data struct {
		Encoding string `xml:"encoding,attr"`
		Value    string `xml:",chardata"`
	} `xml:"data"`
}

func (r rawItem) decode() (Item, error) {
	typ, err := hex.DecodeString(strings.TrimSpace(r.Type))
	if err != nil {
		return Item{}, fmt.Errorf("%w: item type %q: %v", domain.ErrBadPayload, r.Type, err)
	}
	code, err := hex.DecodeString(strings.TrimSpace(r.Code))
	if err != nil {
		return Item{}, fmt.Errorf("%w: item code %q: %v", domain.ErrBadPayload, r.Code, err)
	}
	it := Item{Type: string(typ), Code: string(code)}

	if v := strings.TrimSpace(r.Data.Value); v != "" {
		if r.Data.Encoding != "" && r.Data.Encoding != "base64" {
			return Item{}, fmt.Errorf("%w: item %s/%s encoding %q", domain.ErrBadPayload, it.Type, it.Code, r.Data.Encoding)
		}
		it.Data, err = base64.StdEncoding.DecodeString(v)
		if err != nil {
			return Item{}, fmt.Errorf("%w: item %s/%s data: %v", domain.ErrBadPayload, it.Type, it.Code, err)
		}
	}
	return it, nil
}

// Parse reads consecutive <item> elements from r until EOF. Malformed
// items are skipped; only stream errors end the parse.
func Parse(r io.Reader, fn func(Item), log *logger.Logger) error {
	dec := xml.NewDecoder(r)
	dec.Strict = false

	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "item" {
			continue
		}

		var raw rawItem
		if err := dec.DecodeElement(&raw, &start); err != nil {
			return err
		}
		it, err := raw.decode()
		if err != nil {
			log.Debug("skipping item: %v", err)
			continue
		}
		fn(it)
	}
}

// Track is what is currently playing.
type Track struct {
	Title  string
	Artist string
	Album  string
}

// Label formats the track for the panel.
func (t Track) Label() string {
	s := "Now playing: " + t.Title
	if t.Artist != "" {
		s += " - " + t.Artist
	}
	return s
}

// Listener receives playback changes.
type Listener interface {
	TrackChanged(t Track)
	PlaybackEnded()
}

// Tracker folds items into track changes.
type Tracker struct {
	l       Listener
	current Track
}

// NewTracker returns a tracker that notifies l.
func NewTracker(l Listener) *Tracker {
	return &Tracker{l: l}
}

// Handle processes one item.
func (t *Tracker) Handle(it Item) {
	switch {
	case it.Type == "ssnc" && it.Code == "pend":
		t.current = Track{}
		t.l.PlaybackEnded()
	case it.Type != "core":
	case it.Code == "asal":
		t.current.Album = string(it.Data)
	case it.Code == "asar":
		t.current.Artist = string(it.Data)
	case it.Code == "minm":
		t.current.Title = string(it.Data)
		t.l.TrackChanged(t.current)
	}
}

// Reader follows a metadata pipe, reopening it whenever the writer goes
// away or a read fails.
type Reader struct {
	path  string
	retry time.Duration
	log   *logger.Logger
}

// NewReader returns a reader for the FIFO at path.
func NewReader(path string, log *logger.Logger) *Reader {
	return &Reader{path: path, retry: 5 * time.Second, log: log}
}

// Run feeds every item to t until ctx is cancelled.
func (r *Reader) Run(ctx context.Context, t *Tracker) error {
	for {
		err := r.follow(ctx, t)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			r.log.Warn("reading %s: %v (retrying in %s)", r.path, err, r.retry)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(r.retry):
		}
	}
}

func (r *Reader) follow(ctx context.Context, t *Tracker) error {
	// Opening a FIFO blocks until a writer shows up.
	opened := make(chan *os.File, 1)
	failed := make(chan error, 1)
	go func() {
		f, err := os.Open(r.path)
		if err != nil {
			failed <- err
			return
		}
		opened <- f
	}()

	var f *os.File
	select {
	case <-ctx.Done():
		go func() {
			select {
			case f := <-opened:
				f.Close()
			case <-failed:
			}
		}()
		return nil
	case err := <-failed:
		return err
	case f = <-opened:
	}
	defer f.Close()
	stop := context.AfterFunc(ctx, func() { f.Close() })
	defer stop()

	r.log.Debug("following %s", r.path)
	return Parse(f, t.Handle, r.log)
}

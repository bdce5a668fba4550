// Package audio plays doorbell chimes and controls the output volume.
package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/gopxl/beep"
	"github.com/gopxl/beep/wav"

	"github.com/hammamikhairi/doorpanel/internal/domain"
	"github.com/hammamikhairi/doorpanel/internal/logger"
)

const (
	// SampleRate is the rate the output device is opened at. Files at
	// other rates are resampled.
	SampleRate = 48000
	// ChannelCount is fixed at stereo; mono files are duplicated.
	ChannelCount = 2

	resampleQuality = 4
)

// Compile-time check.
var _ domain.Chime = (*Player)(nil)

// Player plays WAV files from the sound library through oto.
type Player struct {
	ctx   *oto.Context
	dir   string
	cache *PCMCache
	log   *logger.Logger

	mu     sync.Mutex
	active *oto.Player // currently playing, nil when idle
}

// NewPlayer opens the system audio device. Returns an error if it is
// unavailable.
func NewPlayer(dir string, log *logger.Logger) (*Player, error) {
	op := &oto.NewContextOptions{
		SampleRate:   SampleRate,
		ChannelCount: ChannelCount,
		Format:       oto.FormatSignedInt16LE,
	}

	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("%w: audio output: %v", domain.ErrNoDevice, err)
	}
	<-readyChan

	log.Debug("audio player initialized (rate=%d, channels=%d)", SampleRate, ChannelCount)
	return &Player{ctx: ctx, dir: dir, cache: NewPCMCache(), log: log}, nil
}

// Play plays the named file from the library. It blocks until playback
// finishes, ctx is cancelled, or another Play supersedes it.
func (p *Player) Play(ctx context.Context, name string) error {
	pcm, err := p.load(name)
	if err != nil {
		return err
	}

	player := p.ctx.NewPlayer(bytes.NewReader(pcm))

	p.mu.Lock()
	if p.active != nil {
		p.active.Pause()
	}
	p.active = player
	p.mu.Unlock()

	player.Play()
	p.log.Debug("playing %s", name)

	// Wait for playback to complete or be interrupted.
	tick := time.NewTicker(10 * time.Millisecond)
	defer tick.Stop()
	for player.IsPlaying() {
		select {
		case <-ctx.Done():
			player.Pause()
		case <-tick.C:
		}
	}

	p.mu.Lock()
	if p.active == player {
		p.active = nil
	}
	p.mu.Unlock()

	return player.Close()
}

// load returns the decoded PCM for name, decoding it on first use.
func (p *Player) load(name string) ([]byte, error) {
	name = filepath.Base(name)
	f, err := os.Open(filepath.Join(p.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("chime %s: %w", name, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("opening chime: %w", err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("opening chime: %w", err)
	}
	key := Key(name, fi)
	if pcm, ok := p.cache.Get(key); ok {
		return pcm, nil
	}

	stream, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", name, err)
	}
	pcm, err := io.ReadAll(stream)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", name, err)
	}
	p.cache.Put(key, pcm)
	p.log.Debug("cached %s (%d bytes)", name, len(pcm))
	return pcm, nil
}

// Stop interrupts the currently playing chime, if any.
func (p *Player) Stop() {
	p.mu.Lock()
	active := p.active
	p.mu.Unlock()

	if active != nil {
		active.Pause()
		p.log.Debug("playback interrupted")
	}
}

// Decode reads a WAV file and returns it as signed 16-bit little-endian
// stereo PCM at SampleRate, ready for oto.
func Decode(r io.Reader) (io.Reader, error) {
	streamer, format, err := wav.Decode(r)
	if err != nil {
		return nil, err
	}

	var s beep.Streamer = streamer
	if format.SampleRate != SampleRate {
		s = beep.Resample(resampleQuality, format.SampleRate, SampleRate, s)
	}
	return &pcmReader{s: s, buf: make([][2]float64, 512)}, nil
}

// pcmReader encodes a beep stream as interleaved int16 frames.
type pcmReader struct {
	s       beep.Streamer
	buf     [][2]float64
	pending []byte
	done    bool
}

func (r *pcmReader) Read(p []byte) (int, error) {
	for len(r.pending) == 0 {
		if r.done {
			return 0, io.EOF
		}
		n, ok := r.s.Stream(r.buf)
		if !ok || n == 0 {
			r.done = true
			if err := r.s.Err(); err != nil {
				return 0, err
			}
			continue
		}
		r.pending = encode(r.pending[:0], r.buf[:n])
	}

	n := copy(p, r.pending)
	r.pending = r.pending[n:]
	return n, nil
}

func encode(dst []byte, samples [][2]float64) []byte {
	var frame [4]byte
	for _, s := range samples {
		binary.LittleEndian.PutUint16(frame[0:], uint16(toInt16(s[0])))
		binary.LittleEndian.PutUint16(frame[2:], uint16(toInt16(s[1])))
		dst = append(dst, frame[:]...)
	}
	return dst
}

func toInt16(v float64) int16 {
	v = math.Max(-1, math.Min(1, v))
	return int16(math.Round(v * math.MaxInt16))
}

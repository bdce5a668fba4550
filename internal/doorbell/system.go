// Package doorbell turns device events into presenter calls. Bus messages,
// encoder turns, metadata updates and simulator keys all arrive here and
// leave as baselines, overlays and motion reports.
package doorbell

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/hammamikhairi/doorpanel/internal/clock"
	"github.com/hammamikhairi/doorpanel/internal/domain"
	"github.com/hammamikhairi/doorpanel/internal/logger"
	"github.com/hammamikhairi/doorpanel/internal/metadata"
	"github.com/hammamikhairi/doorpanel/internal/mqttbus"
)

// Overlay texts.
const (
	DoorText   = "Someone at the door!"
	MotionText = "Motion detected!"
	SoundTitle = "Doorbell sound:"
)

// Topics names the bus topics the system reacts to.
type Topics struct {
	Doorbell string
	Motion   string
	Message  string
}

// List returns the non-empty topics for subscribing.
func (t Topics) List() []string {
	var out []string
	for _, s := range []string{t.Doorbell, t.Motion, t.Message} {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Durations holds how long transient overlays stay up.
type Durations struct {
	Ring       time.Duration // doorbell press without an explicit state
	Volume     time.Duration
	Selection  time.Duration
	NowPlaying time.Duration
}

// DefaultDurations returns the stock overlay lifetimes.
func DefaultDurations() Durations {
	return Durations{
		Ring:       10 * time.Second,
		Volume:     5 * time.Second,
		Selection:  5 * time.Second,
		NowPlaying: 10 * time.Second,
	}
}

// SoundLister lists the selectable chime files.
type SoundLister interface {
	Sounds() ([]string, error)
}

// Option configures a System.
type Option func(*System)

// WithChime sets the chime player. Without one the doorbell is silent.
func WithChime(c domain.Chime) Option {
	return func(s *System) { s.chime = c }
}

// WithMixer sets the volume mixer used by the volume knob.
func WithMixer(m domain.Mixer) Option {
	return func(s *System) { s.mixer = m }
}

// WithVideo sets the HDMI output.
func WithVideo(v domain.Video) Option {
	return func(s *System) { s.video = v }
}

// WithLibrary sets the sound library browsed by the selection knob.
func WithLibrary(l SoundLister) Option {
	return func(s *System) { s.library = l }
}

// WithTopics sets the bus topics.
func WithTopics(t Topics) Option {
	return func(s *System) { s.topics = t }
}

// WithSound sets the initial doorbell chime file.
func WithSound(name string) Option {
	return func(s *System) { s.sound = name }
}

// WithDefaultStream sets the stream shown when no event carries a URL.
func WithDefaultStream(url string) Option {
	return func(s *System) { s.stream = url }
}

// WithDurations overrides the overlay lifetimes. Zero fields keep the
// defaults.
func WithDurations(d Durations) Option {
	return func(s *System) {
		if d.Ring > 0 {
			s.dur.Ring = d.Ring
		}
		if d.Volume > 0 {
			s.dur.Volume = d.Volume
		}
		if d.Selection > 0 {
			s.dur.Selection = d.Selection
		}
		if d.NowPlaying > 0 {
			s.dur.NowPlaying = d.NowPlaying
		}
	}
}

// WithVolumeStep sets the percent change per encoder detent.
func WithVolumeStep(step int) Option {
	return func(s *System) {
		if step > 0 {
			s.step = step
		}
	}
}

// WithClock sets the time source for motion reports.
func WithClock(c clock.Clock) Option {
	return func(s *System) { s.clock = c }
}

// Compile-time check.
var _ metadata.Listener = (*System)(nil)

// System routes events to the presenter. All methods are safe for
// concurrent use; slow work (chimes, video) runs in the background.
type System struct {
	pres    domain.Presenter
	log     *logger.Logger
	chime   domain.Chime
	mixer   domain.Mixer
	video   domain.Video
	library SoundLister
	topics  Topics
	stream  string
	dur     Durations
	step    int
	clock   clock.Clock

	mu        sync.Mutex
	sound     string
	doorTok   domain.Token
	motionTok domain.Token
	trackTok  domain.Token
	closed    bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a System that drives p.
func New(p domain.Presenter, log *logger.Logger, opts ...Option) *System {
	ctx, cancel := context.WithCancel(context.Background())
	s := &System{
		pres:   p,
		log:    log,
		dur:    DefaultDurations(),
		step:   5,
		clock:  clock.Real(),
		ctx:    ctx,
		cancel: cancel,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Sound returns the chime the doorbell currently plays.
func (s *System) Sound() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sound
}

// Close cancels background playback and waits for it to finish. Work
// requested after Close is dropped.
func (s *System) Close() {
	s.mu.Lock()
	s.closed = true
	s.cancel()
	s.mu.Unlock()
	s.wg.Wait()
}

// Handle is the bus message handler.
func (s *System) Handle(topic string, p mqttbus.Payload) {
	switch topic {
	case s.topics.Doorbell:
		s.doorbell(p)
	case s.topics.Motion:
		s.motion(p)
	case s.topics.Message:
		s.message(p)
	default:
		s.log.Debug("ignoring message on %s", topic)
	}
}

func (s *System) doorbell(p mqttbus.Payload) {
	active, stateful := p.State()
	if stateful && !active {
		s.mu.Lock()
		tok := s.doorTok
		s.doorTok = 0
		s.mu.Unlock()
		s.pres.Dismiss(tok)
		s.log.Debug("doorbell released")
		return
	}

	s.log.Info("doorbell rang")
	s.ring()
	s.showVideo(p.VideoURL)

	d := s.dur.Ring
	if stateful {
		d = 0
	}
	tok := s.pres.PushOverlay(domain.Scrolling(DoorText), d)
	s.mu.Lock()
	s.doorTok = tok
	s.mu.Unlock()
}

func (s *System) motion(p mqttbus.Payload) {
	now := s.clock.Now()
	active, stateful := p.State()

	if !stateful {
		// A bare event: recency restarts from now.
		s.pres.ReportMotion(false, now)
		s.showVideo(p.VideoURL)
		return
	}
	if !active {
		s.pres.ReportMotion(false, now)
		s.mu.Lock()
		tok := s.motionTok
		s.motionTok = 0
		s.mu.Unlock()
		s.pres.Dismiss(tok)
		return
	}

	s.log.Info("motion detected")
	s.pres.ReportMotion(true, now)
	s.showVideo(p.VideoURL)
	tok := s.pres.PushOverlay(domain.Scrolling(MotionText), 0)
	s.mu.Lock()
	s.motionTok = tok
	s.mu.Unlock()
}

func (s *System) message(p mqttbus.Payload) {
	text := strings.TrimSpace(p.Text)
	if text == "" {
		s.pres.SetBaseline(domain.StatusOnly())
		return
	}
	s.pres.SetBaseline(domain.Scrolling(text))
}

// ring plays the selected chime unless the output is muted.
func (s *System) ring() {
	if s.chime == nil {
		return
	}
	if s.mixer != nil && s.mixer.Current().Muted {
		s.log.Debug("muted, skipping chime")
		return
	}
	sound := s.Sound()
	if sound == "" {
		return
	}
	s.background(func(ctx context.Context) {
		if err := s.chime.Play(ctx, sound); err != nil && ctx.Err() == nil {
			s.log.Warn("chime %s: %v", sound, err)
		}
	})
}

func (s *System) showVideo(url string) {
	if s.video == nil {
		return
	}
	if url == "" {
		url = s.stream
	}
	if url == "" {
		return
	}
	s.background(func(context.Context) {
		if err := s.video.Play(url); err != nil {
			s.log.Warn("video: %v", err)
		}
	})
}

func (s *System) background(fn func(ctx context.Context)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn(s.ctx)
	}()
}

// TrackChanged shows the new track for a while.
func (s *System) TrackChanged(t metadata.Track) {
	tok := s.pres.PushOverlay(domain.Scrolling(t.Label()), s.dur.NowPlaying)
	s.mu.Lock()
	s.trackTok = tok
	s.mu.Unlock()
}

// PlaybackEnded removes the now-playing overlay if it is still up.
func (s *System) PlaybackEnded() {
	s.mu.Lock()
	tok := s.trackTok
	s.trackTok = 0
	s.mu.Unlock()
	s.pres.Dismiss(tok)
}

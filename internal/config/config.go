// Package config loads doorpanel settings from the environment. A .env file
// is read first when present; variables already set in the environment win.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Environment variable names.
const (
	EnvPanel     = "DOORPANEL_PANEL"
	EnvI2CBus    = "DOORPANEL_I2C_BUS"
	EnvWidth     = "DOORPANEL_WIDTH"
	EnvHeight    = "DOORPANEL_HEIGHT"
	EnvRenderHz  = "DOORPANEL_RENDER_INTERVAL"
	EnvGreeting  = "DOORPANEL_GREETING"
	EnvBroker    = "DOORPANEL_MQTT_BROKER"
	EnvClientID  = "DOORPANEL_MQTT_CLIENT_ID"
	EnvUser      = "DOORPANEL_MQTT_USERNAME"
	EnvPassword  = "DOORPANEL_MQTT_PASSWORD"
	EnvKeepAlive = "DOORPANEL_MQTT_KEEPALIVE"
	EnvDoorTopic = "DOORPANEL_TOPIC_DOORBELL"
	EnvMotion    = "DOORPANEL_TOPIC_MOTION"
	EnvMessage   = "DOORPANEL_TOPIC_MESSAGE"
	EnvSoundDir  = "DOORPANEL_SOUND_DIR"
	EnvSound     = "DOORPANEL_DEFAULT_SOUND"
	EnvMixerCard = "DOORPANEL_MIXER_CARD"
	EnvMixerCtl  = "DOORPANEL_MIXER_CONTROL"
	EnvVolume    = "DOORPANEL_VOLUME"
	EnvVolStep   = "DOORPANEL_VOLUME_STEP"
	EnvGPIOChip  = "DOORPANEL_GPIO_CHIP"
	EnvVolPins   = "DOORPANEL_VOLUME_PINS"
	EnvSelPins   = "DOORPANEL_SELECT_PINS"
	EnvStream    = "DOORPANEL_DEFAULT_STREAM"
	EnvFB        = "DOORPANEL_FRAMEBUFFER"
	EnvPipe      = "DOORPANEL_SHAIRPORT_PIPE"
	EnvShowFor   = "DOORPANEL_NOW_PLAYING_FOR"
	EnvVolShow   = "DOORPANEL_VOLUME_SHOW_FOR"
	EnvSelShow   = "DOORPANEL_SELECT_SHOW_FOR"
)

// Pins are the GPIO line offsets of one rotary encoder.
type Pins struct {
	CLK, DT, SW int
}

// Display settings.
type Display struct {
	Backend        string // oled, term or log
	I2CBus         string
	Width          int
	Height         int
	RenderInterval time.Duration
	Greeting       string
}

// MQTT settings.
type MQTT struct {
	Broker        string // host:port; empty disables the subscriber
	ClientID      string
	Username      string
	Password      string
	KeepAlive     time.Duration
	DoorbellTopic string
	MotionTopic   string
	MessageTopic  string
}

// Audio settings.
type Audio struct {
	SoundDir     string
	DefaultSound string
	MixerCard    string
	MixerControl string
	Volume       int // negative keeps the hardware level
	VolumeStep   int
}

// GPIO settings. An empty chip disables the encoders.
type GPIO struct {
	Chip   string
	Volume Pins
	Select Pins
}

// Video settings.
type Video struct {
	DefaultStream string
	Framebuffer   string
}

// Shairport settings. An empty pipe disables now-playing.
type Shairport struct {
	MetadataPipe string
}

// Overlays holds how long transient overlays stay up.
type Overlays struct {
	Volume     time.Duration
	Selection  time.Duration
	NowPlaying time.Duration
}

// Config is the full application configuration.
type Config struct {
	Display   Display
	MQTT      MQTT
	Audio     Audio
	GPIO      GPIO
	Video     Video
	Shairport Shairport
	Overlays  Overlays
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Display: Display{
			Backend:        "oled",
			I2CBus:         "1",
			Width:          128,
			Height:         32,
			RenderInterval: 100 * time.Millisecond,
		},
		MQTT: MQTT{
			ClientID:      "doorpanel",
			KeepAlive:     60 * time.Second,
			DoorbellTopic: "home/doorbell",
			MotionTopic:   "home/motion",
			MessageTopic:  "home/message",
		},
		Audio: Audio{
			SoundDir:     "sounds",
			DefaultSound: "doorbell.wav",
			MixerControl: "PCM",
			Volume:       -1,
			VolumeStep:   5,
		},
		GPIO: GPIO{
			Volume: Pins{CLK: 17, DT: 18, SW: 27},
			Select: Pins{CLK: 22, DT: 23, SW: 24},
		},
		Video: Video{
			Framebuffer: "/dev/fb0",
		},
		Overlays: Overlays{
			Volume:     5 * time.Second,
			Selection:  5 * time.Second,
			NowPlaying: 10 * time.Second,
		},
	}
}

// Load reads envFile (if it exists) into the environment and builds the
// configuration from it. Malformed values are reported together.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("reading %s: %w", envFile, err)
		}
	}

	c := Default()
	r := reader{}

	r.str(EnvPanel, &c.Display.Backend)
	r.str(EnvI2CBus, &c.Display.I2CBus)
	r.int(EnvWidth, &c.Display.Width)
	r.int(EnvHeight, &c.Display.Height)
	r.duration(EnvRenderHz, &c.Display.RenderInterval)
	r.str(EnvGreeting, &c.Display.Greeting)

	r.str(EnvBroker, &c.MQTT.Broker)
	r.str(EnvClientID, &c.MQTT.ClientID)
	r.str(EnvUser, &c.MQTT.Username)
	r.str(EnvPassword, &c.MQTT.Password)
	r.duration(EnvKeepAlive, &c.MQTT.KeepAlive)
	r.str(EnvDoorTopic, &c.MQTT.DoorbellTopic)
	r.str(EnvMotion, &c.MQTT.MotionTopic)
	r.str(EnvMessage, &c.MQTT.MessageTopic)

	r.str(EnvSoundDir, &c.Audio.SoundDir)
	r.str(EnvSound, &c.Audio.DefaultSound)
	r.str(EnvMixerCard, &c.Audio.MixerCard)
	r.str(EnvMixerCtl, &c.Audio.MixerControl)
	r.int(EnvVolume, &c.Audio.Volume)
	r.int(EnvVolStep, &c.Audio.VolumeStep)

	r.str(EnvGPIOChip, &c.GPIO.Chip)
	r.pins(EnvVolPins, &c.GPIO.Volume)
	r.pins(EnvSelPins, &c.GPIO.Select)

	r.str(EnvStream, &c.Video.DefaultStream)
	r.str(EnvFB, &c.Video.Framebuffer)

	r.str(EnvPipe, &c.Shairport.MetadataPipe)
	r.duration(EnvShowFor, &c.Overlays.NowPlaying)
	r.duration(EnvVolShow, &c.Overlays.Volume)
	r.duration(EnvSelShow, &c.Overlays.Selection)

	if err := errors.Join(r.errs...); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks values that would otherwise fail deep inside a
// component.
func (c Config) Validate() error {
	var errs []error

	switch c.Display.Backend {
	case "oled", "term", "log":
	default:
		errs = append(errs, fmt.Errorf("display backend %q: want oled, term or log", c.Display.Backend))
	}
	if c.Display.Width <= 0 || c.Display.Height <= 0 {
		errs = append(errs, fmt.Errorf("display size %dx%d must be positive", c.Display.Width, c.Display.Height))
	}
	if c.Display.RenderInterval <= 0 {
		errs = append(errs, fmt.Errorf("render interval %s must be positive", c.Display.RenderInterval))
	}
	if c.MQTT.Broker != "" {
		if _, port, err := net.SplitHostPort(c.MQTT.Broker); err != nil || port == "" {
			errs = append(errs, fmt.Errorf("mqtt broker %q: want host:port", c.MQTT.Broker))
		}
		if c.MQTT.KeepAlive < 2*time.Second {
			errs = append(errs, fmt.Errorf("mqtt keepalive %s is too short", c.MQTT.KeepAlive))
		}
	}
	if c.Audio.Volume > 100 {
		errs = append(errs, fmt.Errorf("volume %d above 100", c.Audio.Volume))
	}
	if c.Audio.VolumeStep <= 0 {
		errs = append(errs, fmt.Errorf("volume step %d must be positive", c.Audio.VolumeStep))
	}
	return errors.Join(errs...)
}

type reader struct {
	errs []error
}

func (r *reader) str(key string, dst *string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = strings.TrimSpace(v)
	}
}

func (r *reader) int(key string, dst *int) {
	v, ok := lookup(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s=%q: not an integer", key, v))
		return
	}
	*dst = n
}

func (r *reader) duration(key string, dst *time.Duration) {
	v, ok := lookup(key)
	if !ok {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s=%q: %v", key, v, err))
		return
	}
	*dst = d
}

// pins parses "clk,dt,sw".
func (r *reader) pins(key string, dst *Pins) {
	v, ok := lookup(key)
	if !ok {
		return
	}
	parts := strings.Split(v, ",")
	if len(parts) != 3 {
		r.errs = append(r.errs, fmt.Errorf("%s=%q: want clk,dt,sw", key, v))
		return
	}
	var n [3]int
	for i, p := range parts {
		x, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || x < 0 {
			r.errs = append(r.errs, fmt.Errorf("%s=%q: bad line offset %q", key, v, p))
			return
		}
		n[i] = x
	}
	*dst = Pins{CLK: n[0], DT: n[1], SW: n[2]}
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

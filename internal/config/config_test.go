package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultsWhenUnset(t *testing.T) {
	c, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
	if c.Display.Width != 128 || c.Display.Height != 32 {
		t.Fatalf("size = %dx%d", c.Display.Width, c.Display.Height)
	}
	if c.Audio.Volume >= 0 {
		t.Fatalf("volume = %d, want unset so the hardware level is kept", c.Audio.Volume)
	}
	if c.Overlays.Volume != 5*time.Second {
		t.Fatalf("volume overlay = %s", c.Overlays.Volume)
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv(EnvPanel, "term")
	t.Setenv(EnvBroker, "broker.lan:1883")
	t.Setenv(EnvVolume, " 70 ")
	t.Setenv(EnvShowFor, "3s")
	t.Setenv(EnvVolPins, "5, 6, 13")

	c, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Display.Backend != "term" {
		t.Errorf("backend = %q", c.Display.Backend)
	}
	if c.MQTT.Broker != "broker.lan:1883" {
		t.Errorf("broker = %q", c.MQTT.Broker)
	}
	if c.Audio.Volume != 70 {
		t.Errorf("volume = %d", c.Audio.Volume)
	}
	if c.Overlays.NowPlaying != 3*time.Second {
		t.Errorf("now playing = %s", c.Overlays.NowPlaying)
	}
	if c.GPIO.Volume != (Pins{CLK: 5, DT: 6, SW: 13}) {
		t.Errorf("pins = %+v", c.GPIO.Volume)
	}
}

func TestMalformedValuesAreReported(t *testing.T) {
	t.Setenv(EnvWidth, "wide")
	t.Setenv(EnvKeepAlive, "soon")
	t.Setenv(EnvSelPins, "1,2")

	_, err := Load("")
	if err == nil {
		t.Fatal("expected error")
	}
	for _, key := range []string{EnvWidth, EnvKeepAlive, EnvSelPins} {
		if !strings.Contains(err.Error(), key) {
			t.Errorf("error does not mention %s: %v", key, err)
		}
	}
}

func TestEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	data := "DOORPANEL_GREETING=Hello door\nDOORPANEL_SOUND_DIR=/srv/chimes\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	// The environment wins over the file.
	t.Setenv(EnvSoundDir, "/opt/sounds")
	t.Cleanup(func() { os.Unsetenv(EnvGreeting) })

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Display.Greeting != "Hello door" {
		t.Errorf("greeting = %q", c.Display.Greeting)
	}
	if c.Audio.SoundDir != "/opt/sounds" {
		t.Errorf("sound dir = %q", c.Audio.SoundDir)
	}
}

func TestMissingEnvFileIsFine(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.env")); err != nil {
		t.Fatalf("Load: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"unknown backend", func(c *Config) { c.Display.Backend = "vga" }, false},
		{"zero width", func(c *Config) { c.Display.Width = 0 }, false},
		{"broker without port", func(c *Config) { c.MQTT.Broker = "broker.lan" }, false},
		{"broker with port", func(c *Config) { c.MQTT.Broker = "10.0.0.2:1883" }, true},
		{"volume too loud", func(c *Config) { c.Audio.Volume = 120 }, false},
		{"volume from hardware", func(c *Config) { c.Audio.Volume = -1 }, true},
		{"zero step", func(c *Config) { c.Audio.VolumeStep = 0 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(&c)
			err := c.Validate()
			if (err == nil) != tt.ok {
				t.Fatalf("Validate() = %v, want ok=%v", err, tt.ok)
			}
		})
	}
}

package doorbell

import (
	"context"
	"fmt"

	"github.com/hammamikhairi/doorpanel/internal/domain"
	"github.com/hammamikhairi/doorpanel/internal/encoder"
	"github.com/hammamikhairi/doorpanel/internal/mqttbus"
	"github.com/hammamikhairi/doorpanel/internal/panel"
)

// VolumeKnob returns the listener for the volume encoder.
func (s *System) VolumeKnob() encoder.Listener { return volumeKnob{s} }

// SoundKnob returns the listener for the sound-select encoder.
func (s *System) SoundKnob() encoder.Listener { return soundKnob{s} }

type volumeKnob struct{ s *System }

func (k volumeKnob) Rotated(d encoder.Direction) { k.s.AdjustVolume(int(d) * k.s.step) }
func (k volumeKnob) Pressed()                    { k.s.ToggleMute() }

type soundKnob struct{ s *System }

func (k soundKnob) Rotated(d encoder.Direction) { k.s.SelectSound(int(d)) }
func (k soundKnob) Pressed()                    { k.s.ToggleHDMI() }

// VolumeText formats a mixer reading for the panel.
func VolumeText(v domain.Volume) string {
	if v.Muted {
		return "Volume: Muted"
	}
	return fmt.Sprintf("Volume: %d%%", v.Percent)
}

// AdjustVolume changes the volume by delta percent and shows the result.
func (s *System) AdjustVolume(delta int) {
	if s.mixer == nil {
		return
	}
	v, err := s.mixer.Adjust(delta)
	if err != nil {
		s.log.Warn("volume: %v", err)
	}
	s.pres.PushOverlay(domain.Scrolling(VolumeText(v)), s.dur.Volume)
}

// ToggleMute flips mute and shows the result.
func (s *System) ToggleMute() {
	if s.mixer == nil {
		return
	}
	v, err := s.mixer.ToggleMute()
	if err != nil {
		s.log.Warn("mute: %v", err)
	}
	s.pres.PushOverlay(domain.Scrolling(VolumeText(v)), s.dur.Volume)
}

// SelectSound moves the chime selection by steps through the library,
// wrapping at both ends, and shows the new choice.
func (s *System) SelectSound(steps int) {
	if s.library == nil {
		return
	}
	sounds, err := s.library.Sounds()
	if err != nil {
		s.log.Warn("listing sounds: %v", err)
		return
	}
	if len(sounds) == 0 {
		s.pres.PushOverlay(domain.Centered(SoundTitle, "no sounds"), s.dur.Selection)
		return
	}

	s.mu.Lock()
	i := -1
	for j, name := range sounds {
		if name == s.sound {
			i = j
			break
		}
	}
	switch {
	case i < 0 && steps > 0:
		i = steps - 1
	case i < 0:
		i = steps
	default:
		i += steps
	}
	i %= len(sounds)
	if i < 0 {
		i += len(sounds)
	}
	s.sound = sounds[i]
	name := s.sound
	s.mu.Unlock()

	s.log.Debug("doorbell sound set to %s", name)
	s.pres.PushOverlay(domain.Centered(SoundTitle, name), s.dur.Selection)
}

// ToggleHDMI switches the external display. Turning it on starts the
// default stream when one is configured.
func (s *System) ToggleHDMI() {
	if s.video == nil {
		return
	}
	if s.video.IsOn() {
		s.background(func(_ context.Context) {
			if err := s.video.PowerOff(); err != nil {
				s.log.Warn("hdmi off: %v", err)
			}
		})
		return
	}
	s.background(func(_ context.Context) {
		var err error
		if s.stream != "" {
			err = s.video.Play(s.stream)
		} else {
			err = s.video.PowerOn()
		}
		if err != nil {
			s.log.Warn("hdmi on: %v", err)
		}
	})
}

// HandleKey maps a simulator keypress onto the matching hardware event.
func (s *System) HandleKey(k panel.Key) {
	switch k {
	case panel.KeyVolumeUp:
		s.AdjustVolume(s.step)
	case panel.KeyVolumeDown:
		s.AdjustVolume(-s.step)
	case panel.KeyMute:
		s.ToggleMute()
	case panel.KeySoundNext:
		s.SelectSound(1)
	case panel.KeySoundPrev:
		s.SelectSound(-1)
	case panel.KeyHDMI:
		s.ToggleHDMI()
	case panel.KeyDoorbell:
		s.doorbell(mqttbus.Payload{})
	case panel.KeyMotion:
		s.motion(mqttbus.Payload{})
	}
}

// Doorpanel drives the status display of a networked doorbell.
//
// Usage:
//
//	doorpanel [-verbose] [-quiet] [-panel oled|term|log] [-env .env]
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	stdlog "log"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/hammamikhairi/doorpanel/internal/audio"
	"github.com/hammamikhairi/doorpanel/internal/config"
	"github.com/hammamikhairi/doorpanel/internal/domain"
	"github.com/hammamikhairi/doorpanel/internal/doorbell"
	"github.com/hammamikhairi/doorpanel/internal/encoder"
	"github.com/hammamikhairi/doorpanel/internal/engine"
	"github.com/hammamikhairi/doorpanel/internal/logger"
	"github.com/hammamikhairi/doorpanel/internal/metadata"
	"github.com/hammamikhairi/doorpanel/internal/mqttbus"
	"github.com/hammamikhairi/doorpanel/internal/panel"
	"github.com/hammamikhairi/doorpanel/internal/presenter"
	"github.com/hammamikhairi/doorpanel/internal/video"
)

func main() {
	verbose := flag.Bool("verbose", false, "enable verbose/debug logging")
	quiet := flag.Bool("quiet", false, "disable all logging")
	logFile := flag.String("log-file", "stderr", "file to write logs to (use \"stderr\" to log to console)")
	panelFlag := flag.String("panel", "", "display backend: oled, term or log (overrides "+config.EnvPanel+")")
	envFile := flag.String("env", ".env", "dotenv file to load before reading the environment")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}
	if *panelFlag != "" {
		cfg.Display.Backend = *panelFlag
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}

	// Configure logger.
	logLevel := logger.LevelNormal
	if *verbose {
		logLevel = logger.LevelVerbose
	}
	if *quiet {
		logLevel = logger.LevelOff
	}

	// The terminal simulator owns the screen, so its logs go to a file
	// unless one was named explicitly.
	path := *logFile
	if cfg.Display.Backend == "term" && path == "stderr" {
		path = ".doorpanel-logs/doorpanel.log"
	}
	var logOut io.Writer = os.Stderr
	if path != "" && path != "stderr" {
		dir := filepath.Dir(path)
		if dir != "" && dir != "." {
			os.MkdirAll(dir, 0o755)
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not open log file %s: %v (falling back to stderr)\n", path, err)
		} else {
			logOut = f
			defer f.Close()
		}
	}

	// periph and oto report through the standard log package.
	stdlog.SetOutput(logOut)
	stdlog.SetFlags(stdlog.Ltime)

	log := logger.New(logLevel, logOut)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Display.
	var (
		pnl  domain.Panel
		term *panel.Terminal
	)
	switch cfg.Display.Backend {
	case "term":
		term = panel.NewTerminal()
		pnl = term
	case "log":
		pnl = panel.NewLogPanel(log.With("panel"))
	default:
		oled, err := panel.OpenOLED(cfg.Display.I2CBus, cfg.Display.Width, cfg.Display.Height, log.With("panel"))
		if err != nil {
			log.Warn("oled unavailable, logging frames instead: %v", err)
			pnl = panel.NewLogPanel(log.With("panel"))
		} else {
			pnl = oled
		}
	}

	layout := presenter.DefaultLayout()
	layout.Width, layout.Height = cfg.Display.Width, cfg.Display.Height
	layout.DividerX = cfg.Display.Width * 3 / 4

	baseline := domain.StatusOnly()
	if cfg.Display.Greeting != "" {
		baseline = domain.Scrolling(cfg.Display.Greeting)
	}

	eng := engine.New(pnl, panel.NewMetrics(panel.Face), log.With("engine"),
		engine.WithRenderInterval(cfg.Display.RenderInterval),
		engine.WithPresenter(
			presenter.WithLayout(layout),
			presenter.WithBaseline(baseline),
		),
	)

	// Audio.
	initial := cfg.Audio.Volume
	if initial < 0 {
		initial = 50
	}
	mixer := audio.NewMixer(cfg.Audio.MixerControl, initial, log.With("mixer"),
		audio.WithCard(cfg.Audio.MixerCard),
	)
	if cfg.Audio.Volume < 0 {
		if _, err := mixer.Load(); err != nil {
			log.Warn("reading hardware volume, assuming %d%%: %v", initial, err)
		}
	} else if err := mixer.Apply(); err != nil {
		log.Warn("setting initial volume: %v", err)
	}
	library := audio.NewLibrary(cfg.Audio.SoundDir)

	opts := []doorbell.Option{
		doorbell.WithMixer(mixer),
		doorbell.WithLibrary(library),
		doorbell.WithTopics(doorbell.Topics{
			Doorbell: cfg.MQTT.DoorbellTopic,
			Motion:   cfg.MQTT.MotionTopic,
			Message:  cfg.MQTT.MessageTopic,
		}),
		doorbell.WithSound(cfg.Audio.DefaultSound),
		doorbell.WithVolumeStep(cfg.Audio.VolumeStep),
		doorbell.WithDefaultStream(cfg.Video.DefaultStream),
		doorbell.WithDurations(doorbell.Durations{
			Volume:     cfg.Overlays.Volume,
			Selection:  cfg.Overlays.Selection,
			NowPlaying: cfg.Overlays.NowPlaying,
		}),
	}

	player, err := audio.NewPlayer(library.Dir(), log.With("audio"))
	if err != nil {
		log.Error("audio player init failed, chime disabled: %v", err)
	} else {
		opts = append(opts, doorbell.WithChime(player))
	}

	hdmi := video.New(cfg.Video.Framebuffer, log.With("video"))
	opts = append(opts, doorbell.WithVideo(hdmi))

	sys := doorbell.New(eng, log.With("doorbell"), opts...)

	eng.Start(ctx)
	if _, err := eng.RenderNow(); err != nil {
		log.Warn("first frame: %v", err)
	}

	var wg sync.WaitGroup

	if cfg.MQTT.Broker != "" {
		var mopts []mqttbus.Option
		mopts = append(mopts, mqttbus.WithKeepAlive(cfg.MQTT.KeepAlive))
		if cfg.MQTT.Username != "" {
			mopts = append(mopts, mqttbus.WithCredentials(cfg.MQTT.Username, cfg.MQTT.Password))
		}
		topics := doorbell.Topics{
			Doorbell: cfg.MQTT.DoorbellTopic,
			Motion:   cfg.MQTT.MotionTopic,
			Message:  cfg.MQTT.MessageTopic,
		}
		sub := mqttbus.New(cfg.MQTT.Broker, cfg.MQTT.ClientID, topics.List(), sys.Handle, log.With("mqtt"), mopts...)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := sub.Run(ctx); err != nil {
				log.Error("mqtt: %v", err)
			}
		}()
	} else {
		log.Info("mqtt disabled: set %s to enable", config.EnvBroker)
	}

	if cfg.Shairport.MetadataPipe != "" {
		reader := metadata.NewReader(cfg.Shairport.MetadataPipe, log.With("shairport"))
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := reader.Run(ctx, metadata.NewTracker(sys)); err != nil {
				log.Error("shairport: %v", err)
			}
		}()
	}

	var knobs []*encoder.Encoder
	if cfg.GPIO.Chip != "" {
		for _, k := range []struct {
			name string
			pins config.Pins
			l    encoder.Listener
		}{
			{"volume", cfg.GPIO.Volume, sys.VolumeKnob()},
			{"sound", cfg.GPIO.Select, sys.SoundKnob()},
		} {
			enc, err := encoder.Open(cfg.GPIO.Chip, k.name, encoder.Pins(k.pins), k.l, log.With("encoder."+k.name))
			if err != nil {
				log.Warn("%s encoder disabled: %v", k.name, err)
				continue
			}
			knobs = append(knobs, enc)
		}
	}

	if term != nil {
		go func() {
			term.WaitReady()
			for {
				select {
				case <-ctx.Done():
					term.Close()
					return
				case <-term.QuitChan():
					return
				case k := <-term.Keys():
					sys.HandleKey(k)
				}
			}
		}()

		// Bubble Tea owns the terminal and blocks until quit.
		if err := term.Run(); err != nil {
			log.Error("terminal: %v", err)
		}
		stop()
	} else {
		<-ctx.Done()
	}

	log.Info("shutting down")
	for _, enc := range knobs {
		if err := enc.Close(); err != nil {
			log.Warn("closing encoder: %v", err)
		}
	}
	wg.Wait()
	sys.Close()
	if player != nil {
		player.Stop()
	}
	if err := hdmi.Shutdown(); err != nil {
		log.Warn("powering off hdmi: %v", err)
	}
	eng.Stop()
	if err := pnl.Close(); err != nil {
		log.Warn("closing panel: %v", err)
	}
}

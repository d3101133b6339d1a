package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"go-sonify/config"
	"go-sonify/debug"
	"go-sonify/engine"
	"go-sonify/instrument"
	"go-sonify/midi"
	"go-sonify/sampling"
	"go-sonify/theme"
	"go-sonify/tui"
	"go-sonify/visual"
)

func main() {
	configPath := flag.String("config", "", "config file (default ~/.config/go-sonify/config.json)")
	mode := flag.String("mode", "", "start in keyboard, theremin or camera mode")
	verbose := flag.Bool("debug", false, "log at debug level")
	logPath := flag.String("log", "", "log file (default ~/.config/go-sonify/debug.log)")
	flag.Parse()

	if err := run(*configPath, *mode, *logPath, *verbose); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

func saveConfig(cfg *config.Config, path string) error {
	if path != "" {
		return cfg.SaveFile(path)
	}
	return cfg.Save()
}

func run(configPath, mode, logPath string, verbose bool) (err error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if mode != "" {
		cfg.Mode = mode
	}
	if logPath == "" {
		logPath = cfg.Log.Path
	}

	log, err := debug.New(debug.Options{Path: logPath, Verbose: verbose || cfg.Log.Verbose})
	if err != nil {
		return err
	}
	defer log.Sync()

	palette, err := theme.Load(cfg.UI.Palette)
	if err != nil {
		log.Warn("palette", zap.Error(err))
		palette = theme.Plasma()
	}
	th := theme.New(palette)

	eng, closeEngine := openEngine(cfg, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	deviceMgr := midi.NewDeviceManager(
		midi.WithLogger(log),
		midi.WithKeyboards(cfg.MIDI.Keyboards),
		midi.WithExcluded(cfg.MIDI.Excluded),
	)
	go deviceMgr.Run(ctx)

	var serial *visual.SerialDisplay
	if cfg.Serial.Port != "" {
		strip, serr := visual.OpenSerialDisplay(cfg.Serial.Port, cfg.Serial.Baud, cfg.Serial.LEDs, visual.Black, log)
		if serr != nil {
			log.Warn("led strip unavailable", zap.Error(serr))
		} else {
			serial = strip
		}
	}

	plasma := sampling.NewPlasmaSource(cfg.Sampling.Width, cfg.Sampling.Height, func(v float64) [3]uint8 {
		return palette.Lookup(v)
	})
	notifier := visual.NewNotifier()

	host := instrument.NewHost(func(c *config.Config) (*instrument.Instrument, error) {
		opts := []instrument.Option{
			instrument.WithLogger(log),
			instrument.WithFrameSource(plasma),
			instrument.WithDisplay(notifier),
		}
		if serial != nil {
			opts = append(opts, instrument.WithDisplay(serial))
		}
		return instrument.New(c, eng, opts...)
	}, log)
	if err := host.Start(ctx, cfg); err != nil {
		return multierr.Append(err, closeEngine())
	}

	defer func() {
		if inst := host.Current(); inst != nil {
			final := inst.Config()
			if serr := saveConfig(&final, configPath); serr != nil {
				log.Warn("save config", zap.Error(serr))
			}
		}
		err = multierr.Combine(err, host.Close())
		if serial != nil {
			err = multierr.Append(err, serial.Close())
		}
		err = multierr.Append(err, closeEngine())
		midi.Shutdown()
		if err != nil {
			log.Error("shutdown", zap.Error(err))
		}
	}()

	m := tui.NewModel(host, deviceMgr, notifier, th, log)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, err = p.Run()
	return err
}

// openEngine sends to the configured MIDI output, or logs commands when
// there is none.
func openEngine(cfg *config.Config, log *zap.Logger) (engine.Engine, func() error) {
	if cfg.MIDI.Output == "" {
		return engine.NewLog(log), func() error { return nil }
	}
	send, err := midi.NewOutputs().Sender(cfg.MIDI.Output)
	if err != nil {
		log.Warn("midi output unavailable, running silent", zap.Error(err))
		return engine.NewLog(log), func() error { return nil }
	}
	e := engine.NewMIDI(send, uint8(cfg.MIDI.Channel-1), cfg.Voices, engine.WithMIDILogger(log))
	return e, e.Close
}

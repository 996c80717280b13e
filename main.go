package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/PixPMusic/gnova/internal/bridge"
	"github.com/PixPMusic/gnova/internal/config"
	"github.com/PixPMusic/gnova/internal/gcode"
	"github.com/PixPMusic/gnova/internal/grid"
	"github.com/PixPMusic/gnova/internal/host"
	"github.com/PixPMusic/gnova/internal/logging"
	"github.com/PixPMusic/gnova/internal/midi"
	"github.com/PixPMusic/gnova/internal/source"
	"github.com/PixPMusic/gnova/internal/startup"
)

func main() {
	configPath := flag.String("config", "", "Config file path (defaults to the user config directory).")
	addr := flag.String("addr", "", "Bridge listen address, overrides the config file.")
	replay := flag.String("replay", "", "Replay a .gcode file onto the grid and exit.")
	serialPort := flag.String("serial", "", "Serial port to read G-code from.")
	baud := flag.Int("baud", 0, "Serial baud rate, overrides the config file.")
	listPorts := flag.Bool("ports", false, "List MIDI output ports and exit.")
	classify := flag.String("classify", "", "Print the classification of one G-code line and exit.")
	autostart := flag.String("autostart", "", "Register (on) or remove (off) login startup and exit.")
	logLevel := flag.String("log-level", "", "Log level: debug, info, warn or error.")
	flag.Parse()

	if *classify != "" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(gcode.Classify(*classify)); err != nil {
			log.Fatalf("Failed to encode result: %v", err)
		}
		return
	}

	if *autostart != "" {
		if err := setAutostart(*autostart); err != nil {
			log.Fatalf("Failed to update autostart: %v", err)
		}
		return
	}

	// Load configuration
	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.LoadOrCreate(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *addr != "" {
		cfg.Listen = *addr
	}
	if *serialPort != "" {
		cfg.Serial.Port = *serialPort
	}
	if *baud > 0 {
		cfg.Serial.Baud = *baud
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}

	logging.Init(cfg.LogJSON, logging.ParseLevel(cfg.LogLevel))

	// Initialize MIDI manager
	midiManager := midi.NewManager()
	defer midiManager.Close()

	if *listPorts {
		for _, name := range midiManager.ListOutPorts() {
			fmt.Println(name)
		}
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig.String())
		cancel()
	}()

	driver := grid.NewDriver(func() (midi.Output, error) {
		return midiManager.Open(midi.Selector{
			Name:     cfg.Device.OutPort,
			Patterns: cfg.Device.PortPatterns,
		})
	}, grid.Options{
		Device:  midi.GetDevice(cfg.Device.Type),
		Palette: palette(cfg.Palette),
		Step:    cfg.FlashStep(),
	})

	plugin := host.New(driver)
	// A missing Launchpad disables drawing but the bridge keeps serving
	_ = plugin.OnStartup()
	defer plugin.OnShutdown()

	if *replay != "" {
		if err := replayFile(ctx, *replay, plugin); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("replay failed", "file", *replay, "err", err)
		}
		return
	}

	var srv *http.Server
	if cfg.Listen != "" {
		b := bridge.New(plugin, cfg.ID)
		defer b.Close()
		plugin.Observe(b)

		srv = &http.Server{Addr: cfg.Listen, Handler: b}
		go func() {
			slog.Info("bridge listening", "addr", cfg.Listen)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("bridge stopped", "err", err)
				cancel()
			}
		}()
	}

	if cfg.Serial.Port != "" {
		s := &source.Serial{Name: cfg.Serial.Port, Baud: cfg.Serial.Baud}
		go func() {
			if err := s.Run(ctx, plugin); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("serial source stopped", "err", err)
			}
		}()
	}

	<-ctx.Done()

	if srv != nil {
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("bridge shutdown", "err", err)
		}
	}
}

func palette(p config.PaletteConfig) grid.Palette {
	return grid.Palette{
		Flash:       midi.Color(p.Flash),
		Unknown:     midi.Color(p.Unknown),
		Idle:        midi.Color(p.Idle),
		Operational: midi.Color(p.Operational),
		Printing:    midi.Color(p.Printing),
	}
}

func replayFile(ctx context.Context, path string, h source.LineHandler) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	start := time.Now()
	n, err := source.Replay(ctx, f, h, 0)
	slog.Info("replay finished", "file", path, "lines", n, "took", time.Since(start))
	return err
}

func setAutostart(mode string) error {
	switch mode {
	case "on":
		e, err := startup.Current()
		if err != nil {
			return err
		}
		return startup.Enable(e)
	case "off":
		return startup.Disable()
	default:
		return fmt.Errorf("autostart must be on or off, got %q", mode)
	}
}

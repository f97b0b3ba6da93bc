package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/lucasmsqt/StreamVox/internal/audio"
	"github.com/lucasmsqt/StreamVox/internal/audio/portaudio"
	"github.com/lucasmsqt/StreamVox/internal/audio/pulse"
	"github.com/lucasmsqt/StreamVox/internal/config"
	"github.com/lucasmsqt/StreamVox/internal/device"
	"github.com/lucasmsqt/StreamVox/internal/events"
	"github.com/lucasmsqt/StreamVox/internal/logging"
	"github.com/lucasmsqt/StreamVox/internal/metrics"
	"github.com/lucasmsqt/StreamVox/internal/session"
)

var (
	// Version is set via ldflags at build time
	Version = "dev"
	// Commit is set via ldflags at build time
	Commit = "unknown"
)

var rootCmd = &cobra.Command{
	Use:     "streamvox",
	Short:   "Route a microphone to an output device",
	Long:    `StreamVox lists audio devices and runs a capture session that plays the selected input on the selected output. Without a subcommand it runs as a system tray app.`,
	Version: fmt.Sprintf("%s (%s)", Version, Commit),
	RunE:    runTray,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("backend", config.BackendPortAudio, "Audio backend: portaudio or pulse")
	flags.String("log-level", "info", "Log level: debug, info, warn, error")
	flags.String("metrics-addr", "", "Serve Prometheus metrics on this address (e.g. 127.0.0.1:9464)")
	flags.Duration("fetch-timeout", config.DefaultFetchTimeoutSec*time.Second, "Timeout for one device listing")

	rootCmd.AddCommand(devicesCmd, runCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// services is the backend and session wiring shared by every command.
type services struct {
	cfg    *config.Config
	log    zerolog.Logger
	bus    *events.Bus
	client audio.Client
	ctrl   *session.Controller
}

func newServices(cmd *cobra.Command) (*services, error) {
	// Load config from XDG/Library/AppData
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ApplyFlags(cmd.Flags()); err != nil {
		return nil, err
	}

	// Initialize logger with configured level
	log := logging.NewWithLevel(cfg.LogLevel)

	client, err := newClient(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("initialize %s backend: %w", cfg.Backend, err)
	}

	bus := events.New()
	registry := device.NewRegistry(client,
		device.WithLogger(log),
		device.WithFetchTimeout(cfg.FetchTimeout()))

	ctrl := session.New(session.Config{
		Client:   client,
		Registry: registry,
		Bus:      bus,
		Logger:   log,
	})

	return &services{cfg: cfg, log: log, bus: bus, client: client, ctrl: ctrl}, nil
}

// serveMetrics exposes /metrics until ctx ends when an address is configured.
func (s *services) serveMetrics(ctx context.Context) {
	if s.cfg.MetricsAddr == "" {
		return
	}
	collector := metrics.New()
	collector.Attach(s.bus)

	go func() {
		if err := collector.Serve(ctx, s.cfg.MetricsAddr, s.log); err != nil {
			s.log.Error().Err(err).Msg("Metrics server failed")
		}
	}()
}

// close releases the controller, bus and backend. A running capture must
// be stopped first.
func (s *services) close() {
	s.ctrl.Close()
	s.bus.Close()
	if err := s.client.Close(); err != nil {
		s.log.Warn().Err(err).Msg("Failed to close audio backend")
	}
}

func newClient(cfg *config.Config, log zerolog.Logger) (audio.Client, error) {
	switch cfg.Backend {
	case config.BackendPulse:
		return pulse.New(cfg.Pulse, log)
	default:
		return portaudio.New(cfg.Audio, log)
	}
}

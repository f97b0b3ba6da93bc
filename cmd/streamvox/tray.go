package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lucasmsqt/StreamVox/internal/app"
	"github.com/lucasmsqt/StreamVox/internal/hotkey"
	"github.com/lucasmsqt/StreamVox/internal/notify"
	"github.com/lucasmsqt/StreamVox/internal/permissions"
	"github.com/lucasmsqt/StreamVox/internal/tray"
)

func runTray(cmd *cobra.Command, args []string) error {
	svc, err := newServices(cmd)
	if err != nil {
		return err
	}
	defer svc.close()
	log := svc.log

	// macOS requires explicit microphone approval before capture works
	if err := permissions.EnsureMicrophone(); err != nil {
		log.Fatal().Err(err).Msg("Required permissions not granted")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	svc.serveMetrics(ctx)

	notifier := notify.NewToast("")

	// Create tray UI first (we'll pass it to app)
	trayUI := tray.New(notifier, Version, Commit, log) // App reference set below

	application := app.New(app.Config{
		Controller:    svc.ctrl,
		Bus:           svc.bus,
		Notifier:      notifier,
		Config:        svc.cfg,
		Logger:        log,
		StatusUpdater: trayUI,
	})
	trayUI.SetApp(application)

	hkManager, err := hotkey.New()
	switch {
	case errors.Is(err, hotkey.ErrUnsupported):
		log.Info().Msg("Global hotkey not available on this platform")
	case err != nil:
		log.Warn().Err(err).Msg("Failed to initialize hotkeys")
	default:
		defer hkManager.Close()
		accel := svc.cfg.PlatformHotkey()
		if err := hkManager.Register(accel, application.OnHotkey); err != nil {
			log.Warn().Err(err).Str("hotkey", accel).Msg("Failed to register hotkey")
		} else {
			log.Info().Str("hotkey", accel).Msg("Hotkey registered")
		}
	}

	application.Start(ctx)
	log.Info().Str("backend", svc.cfg.Backend).Msg("StreamVox starting...")

	// Start tray UI - MUST run on main thread. Quitting calls app.Shutdown.
	return trayUI.Run(ctx)
}

package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/lucasmsqt/StreamVox/internal/config"
	"github.com/lucasmsqt/StreamVox/internal/device"
	"github.com/lucasmsqt/StreamVox/internal/events"
	"github.com/lucasmsqt/StreamVox/internal/notify"
	"github.com/lucasmsqt/StreamVox/internal/session"
)

// actionTimeout bounds a single start or stop issued from the shell.
const actionTimeout = 15 * time.Second

// StatusUpdater is an interface for rendering session state (e.g., tray menu)
type StatusUpdater interface {
	Update(snap session.Snapshot)
}

type Config struct {
	Controller    *session.Controller
	Bus           *events.Bus
	Notifier      notify.Notifier // Optional - nil disables notifications
	Config        *config.Config
	Logger        zerolog.Logger
	StatusUpdater StatusUpdater // Optional - can be nil
}

type App struct {
	ctrl     *session.Controller
	bus      *events.Bus
	notifier notify.Notifier
	cfg      *config.Config
	log      zerolog.Logger

	mu          sync.Mutex
	status      StatusUpdater
	lastVersion uint64
	unsubs      []func()
	started     bool
}

func New(cfg Config) *App {
	return &App{
		ctrl:     cfg.Controller,
		bus:      cfg.Bus,
		notifier: cfg.Notifier,
		cfg:      cfg.Config,
		log:      cfg.Logger.With().Str("component", "app").Logger(),
		status:   cfg.StatusUpdater,
	}
}

// SetStatusUpdater sets the status updater (for circular dependency resolution)
func (a *App) SetStatusUpdater(s StatusUpdater) {
	a.mu.Lock()
	a.status = s
	a.mu.Unlock()

	if s != nil {
		a.render(a.ctrl.Snapshot())
	}
}

// Start wires bus subscriptions and issues the first device refresh in
// the background.
func (a *App) Start(ctx context.Context) {
	a.mu.Lock()
	if a.started {
		a.mu.Unlock()
		return
	}
	a.started = true
	a.unsubs = append(a.unsubs, a.bus.Subscribe(func(e events.StateChanged) {
		a.render(e.Snapshot)
	}))
	if a.notifier != nil && a.cfg != nil && a.cfg.Notifications {
		a.unsubs = append(a.unsubs, notify.Forward(a.bus, a.notifier, a.log))
	}
	a.mu.Unlock()

	go func() {
		if _, err := a.ctrl.RefreshDevices(ctx); err != nil {
			a.log.Warn().Err(err).Msg("Initial device refresh failed")
		}
	}()
}

// render forwards snap to the status updater unless a newer one was
// already shown.
func (a *App) render(snap session.Snapshot) {
	a.mu.Lock()
	if snap.Version < a.lastVersion || a.status == nil {
		a.mu.Unlock()
		return
	}
	a.lastVersion = snap.Version
	status := a.status
	a.mu.Unlock()

	status.Update(snap)
}

// OnHotkey toggles capture on key press. Releases are ignored.
func (a *App) OnHotkey(pressed bool) {
	if !pressed {
		return
	}
	if err := a.Toggle(); err != nil {
		a.log.Debug().Err(err).Msg("Hotkey toggle failed")
	}
}

// Tray actions

func (a *App) Toggle() error {
	ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
	defer cancel()
	return a.ctrl.Toggle(ctx)
}

func (a *App) StartCapture() error {
	ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
	defer cancel()
	return a.ctrl.StartCapture(ctx)
}

func (a *App) StopCapture() error {
	ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
	defer cancel()
	_, err := a.ctrl.StopCapture(ctx)
	return err
}

// RefreshDevices joins or starts a device listing.
func (a *App) RefreshDevices() error {
	_, err := a.ctrl.RefreshDevices(context.Background())
	if errors.Is(err, session.ErrBusy) {
		a.log.Info().Msg("Refresh ignored while capture is starting")
		return nil
	}
	return err
}

// RescanDevices issues a fresh listing, discarding any in-flight one.
func (a *App) RescanDevices() error {
	_, err := a.ctrl.RescanDevices(context.Background())
	return err
}

func (a *App) SelectInput(id string) {
	a.ctrl.SelectInput(id)
}

func (a *App) SelectOutput(id string) {
	a.ctrl.SelectOutput(id)
}

func (a *App) Snapshot() session.Snapshot {
	return a.ctrl.Snapshot()
}

// SelectionText describes the current selection using device labels.
func (a *App) SelectionText() string {
	snap := a.ctrl.Snapshot()
	return fmt.Sprintf("Input: %s\nOutput: %s",
		label(snap.Devices, snap.Selection.Input, device.Input),
		label(snap.Devices, snap.Selection.Output, device.Output))
}

func label(list device.List, id string, kind device.Kind) string {
	if id == "" {
		return "(none)"
	}
	if d, ok := list.Find(id, kind); ok {
		return d.Label()
	}
	return id + " (unavailable)"
}

// Shutdown stops a running capture and closes the controller.
func (a *App) Shutdown(ctx context.Context) error {
	a.mu.Lock()
	unsubs := a.unsubs
	a.unsubs = nil
	a.mu.Unlock()

	var stopErr error
	switch a.ctrl.Snapshot().Phase {
	case session.Capturing, session.StoppingFailed:
		a.log.Info().Msg("Stopping capture before exit")
		if _, err := a.ctrl.StopCapture(ctx); err != nil {
			stopErr = fmt.Errorf("stop capture: %w", err)
		}
	}

	a.ctrl.Close()
	for _, unsub := range unsubs {
		unsub()
	}
	return stopErr
}

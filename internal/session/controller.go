// Package session owns device selection and the capture lifecycle.
//
// The Controller is a small state machine:
//
//	idle --refresh--> fetching_devices --ok--> ready
//	ready --start--> starting --ok--> capturing --stop--> ready
//	starting --fail--> ready
//	capturing --stop fails--> stopping_failed --stop--> ready
//
// Backend calls never run under the controller's lock. Start and stop
// responses are tagged with a generation at dispatch and are dropped if
// the generation moved on (the controller was closed) before they
// arrived. Refresh staleness is handled by the device registry, which
// also reports each listing it runs so the fetching phase follows the
// backend rather than the callers waiting on it.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/lucasmsqt/StreamVox/internal/audio"
	"github.com/lucasmsqt/StreamVox/internal/device"
	"github.com/lucasmsqt/StreamVox/internal/events"
)

type (
	Phase     = events.Phase
	Selection = events.Selection
	Snapshot  = events.Snapshot
)

// Session phases.
const (
	Idle            Phase = "idle"             // never fetched devices
	FetchingDevices Phase = "fetching_devices" // first or foreground refresh
	Ready           Phase = "ready"            // fetched, not capturing
	Starting        Phase = "starting"         // start in flight
	Capturing       Phase = "capturing"        // backend acknowledged start
	StoppingFailed  Phase = "stopping_failed"  // stop errored, resource state unknown
)

// lateStopTimeout bounds the stop issued for a start acknowledged after Close.
const lateStopTimeout = 2 * time.Second

type Config struct {
	Client   audio.Client
	Registry *device.Registry // Optional - built from Client when nil
	Bus      *events.Bus      // Optional - can be nil
	Logger   zerolog.Logger
}

type Controller struct {
	client   audio.Client
	registry *device.Registry
	bus      *events.Bus
	log      zerolog.Logger

	mu        sync.Mutex
	phase     Phase
	reason    error
	selection Selection
	active    Selection
	listings  int // backend listings in flight
	stopping  bool
	startGen  uint64
	stopGen   uint64
	version   uint64
	closed    bool
}

// New creates a controller in the idle phase. The caller triggers the
// first RefreshDevices.
func New(cfg Config) *Controller {
	log := cfg.Logger.With().Str("component", "session").Logger()

	registry := cfg.Registry
	if registry == nil {
		registry = device.NewRegistry(cfg.Client, device.WithLogger(cfg.Logger))
	}

	c := &Controller{
		client:   cfg.Client,
		registry: registry,
		bus:      cfg.Bus,
		log:      log,
		phase:    Idle,
	}
	registry.Observe(c.onListing)
	return c
}

// Snapshot returns the current session state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// SelectInput records the input device id. It is validated at start.
func (c *Controller) SelectInput(id string) {
	c.selectDevice(device.Input, id)
}

// SelectOutput records the output device id. It is validated at start.
func (c *Controller) SelectOutput(id string) {
	c.selectDevice(device.Output, id)
}

func (c *Controller) selectDevice(kind device.Kind, id string) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if kind == device.Input {
		c.selection.Input = id
	} else {
		c.selection.Output = id
	}
	snap := c.changedLocked()
	c.mu.Unlock()

	c.log.Debug().Stringer("kind", kind).Str("device", id).Msg("Device selected")
	c.publishState(snap)
}

// RefreshDevices reloads the device registry. Concurrent calls share one
// backend listing. While capturing, the refresh runs in the background of
// the session and only affects future selections.
func (c *Controller) RefreshDevices(ctx context.Context) (device.List, error) {
	return c.refresh(ctx, c.registry.Refresh)
}

// RescanDevices is RefreshDevices without joining an in-flight listing:
// a new listing is issued and any older one is discarded on arrival.
func (c *Controller) RescanDevices(ctx context.Context) (device.List, error) {
	return c.refresh(ctx, c.registry.Reload)
}

func (c *Controller) refresh(ctx context.Context, fetch func(context.Context) (device.List, error)) (device.List, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return device.List{}, ErrClosed
	}
	if c.phase == Starting {
		c.mu.Unlock()
		return device.List{}, ErrBusy
	}
	c.mu.Unlock()

	list, err := fetch(ctx)

	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		c.log.Debug().Msg("Discarding device refresh after close")
		return device.List{}, ErrClosed
	}
	if err != nil {
		return device.List{}, err
	}
	return list, nil
}

// onListing follows the registry's backend listings. The session stays in
// fetching_devices while any listing is in flight, whether or not a caller
// is still waiting for it.
func (c *Controller) onListing(l device.Listing) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	from := c.phase
	if !l.Done {
		if c.phase == Idle || c.phase == Ready {
			c.phase = FetchingDevices
		}
		c.listings++
	} else {
		c.listings--
		if c.listings == 0 && c.phase == FetchingDevices {
			if c.registry.Fetched() {
				c.phase = Ready
			} else {
				c.phase = Idle
			}
		}
	}
	snap := c.changedLocked()
	c.mu.Unlock()

	c.logTransition(from, snap.Phase)
	c.publishState(snap)

	if !l.Done {
		return
	}
	var fe *device.FetchError
	if errors.As(l.Err, &fe) {
		c.log.Warn().Err(fe).Uint64("generation", l.Generation).Msg("Device refresh failed")
		c.publishNotice("refresh", events.NoticeDeviceFetch, fe)
	}
	if l.Applied {
		c.bus.Publish(events.DevicesChanged{Devices: l.List, Timestamp: time.Now()})
	}
}

// StartCapture validates the selection against the registry and asks the
// backend to start capturing. Validation failures never reach the backend.
// On backend failure the session returns to ready.
func (c *Controller) StartCapture(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if err := c.validateLocked(); err != nil {
		c.mu.Unlock()
		c.log.Debug().Err(err).Msg("Capture request rejected")
		c.publishNotice("start", events.NoticeValidation, err)
		return err
	}

	sel := c.selection
	c.phase = Starting
	c.startGen++
	gen := c.startGen
	snap := c.changedLocked()
	c.mu.Unlock()

	c.logTransition(Ready, Starting)
	c.publishState(snap)

	c.log.Info().Str("input", sel.Input).Str("output", sel.Output).Msg("Starting capture")
	err := c.client.StartCapture(ctx, sel.Input, sel.Output)

	c.mu.Lock()
	if gen != c.startGen {
		c.mu.Unlock()
		c.log.Debug().Uint64("generation", gen).Msg("Discarding stale start response")
		if err == nil {
			c.stopOrphan()
		}
		return ErrClosed
	}

	if err != nil {
		startErr := audio.AsStartError(err, sel.Input, sel.Output)
		c.phase = Ready
		snap = c.changedLocked()
		c.mu.Unlock()

		c.logTransition(Starting, Ready)
		c.log.Warn().Err(startErr).Msg("Capture start failed")
		c.publishState(snap)
		c.publishNotice("start", events.NoticeCaptureStart, startErr)
		return startErr
	}

	c.phase = Capturing
	c.active = sel
	c.reason = nil
	snap = c.changedLocked()
	c.mu.Unlock()

	c.logTransition(Starting, Capturing)
	c.publishState(snap)
	return nil
}

// StopCapture asks the backend to stop. It is a no-op returning the
// current state unless the session is capturing or a previous stop failed.
func (c *Controller) StopCapture(ctx context.Context) (Snapshot, error) {
	c.mu.Lock()
	if c.closed {
		snap := c.snapshotLocked()
		c.mu.Unlock()
		return snap, ErrClosed
	}
	if (c.phase != Capturing && c.phase != StoppingFailed) || c.stopping {
		snap := c.snapshotLocked()
		c.mu.Unlock()
		return snap, nil
	}

	from := c.phase
	c.stopping = true
	c.stopGen++
	gen := c.stopGen
	c.mu.Unlock()

	c.log.Info().Str("phase", string(from)).Msg("Stopping capture")
	err := c.client.StopCapture(ctx)

	c.mu.Lock()
	if gen != c.stopGen {
		snap := c.snapshotLocked()
		c.mu.Unlock()
		c.log.Debug().Uint64("generation", gen).Msg("Discarding stale stop response")
		return snap, ErrClosed
	}
	c.stopping = false

	if err != nil {
		stopErr := audio.AsStopError(err)
		c.phase = StoppingFailed
		c.reason = stopErr
		snap := c.changedLocked()
		c.mu.Unlock()

		c.logTransition(from, StoppingFailed)
		c.log.Warn().Err(stopErr).Msg("Capture stop failed")
		c.publishState(snap)
		c.publishNotice("stop", events.NoticeCaptureStop, stopErr)
		return snap, stopErr
	}

	c.phase = Ready
	c.reason = nil
	c.active = Selection{}
	snap := c.changedLocked()
	c.mu.Unlock()

	c.logTransition(from, Ready)
	c.publishState(snap)
	return snap, nil
}

// Toggle stops a running (or failed-to-stop) capture, otherwise starts one.
func (c *Controller) Toggle(ctx context.Context) error {
	switch c.Snapshot().Phase {
	case Capturing, StoppingFailed:
		_, err := c.StopCapture(ctx)
		return err
	default:
		return c.StartCapture(ctx)
	}
}

// Close tears the controller down. Responses still in flight are
// discarded and later operations fail with ErrClosed. Close does not
// stop a running capture; callers stop first.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.startGen++
	c.stopGen++
	c.mu.Unlock()

	c.registry.Close()
	c.log.Debug().Msg("Session controller closed")
}

func (c *Controller) validateLocked() error {
	if c.phase != Ready {
		return &ValidationError{Field: "phase", Reason: fmt.Sprintf("session is %s, not %s", c.phase, Ready)}
	}
	if c.selection.Input == "" {
		return &ValidationError{Field: "input", Reason: "no input device selected"}
	}
	if c.selection.Output == "" {
		return &ValidationError{Field: "output", Reason: "no output device selected"}
	}

	devices := c.registry.Snapshot()
	if !devices.Contains(c.selection.Input, device.Input) {
		return &ValidationError{Field: "input", Reason: fmt.Sprintf("input device %q is not available", c.selection.Input)}
	}
	if !devices.Contains(c.selection.Output, device.Output) {
		return &ValidationError{Field: "output", Reason: fmt.Sprintf("output device %q is not available", c.selection.Output)}
	}
	return nil
}

// stopOrphan stops a capture the backend started after Close.
func (c *Controller) stopOrphan() {
	ctx, cancel := context.WithTimeout(context.Background(), lateStopTimeout)
	defer cancel()
	if err := c.client.StopCapture(ctx); err != nil {
		c.log.Warn().Err(err).Msg("Failed to stop capture acknowledged after close")
	}
}

// changedLocked bumps the snapshot version and returns the new snapshot.
func (c *Controller) changedLocked() Snapshot {
	c.version++
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	return Snapshot{
		Version:    c.version,
		Phase:      c.phase,
		Reason:     c.reason,
		Selection:  c.selection,
		Active:     c.active,
		Devices:    c.registry.Snapshot(),
		Refreshing: c.listings > 0,
	}
}

func (c *Controller) logTransition(from, to Phase) {
	if from == to {
		return
	}
	c.log.Debug().Str("from", string(from)).Str("to", string(to)).Msg("Session transition")
}

func (c *Controller) publishState(snap Snapshot) {
	c.bus.Publish(events.StateChanged{Snapshot: snap, Timestamp: time.Now()})
}

func (c *Controller) publishNotice(op string, kind events.NoticeKind, err error) {
	c.bus.Publish(events.Notice{Op: op, Kind: kind, Err: err, Timestamp: time.Now()})
}

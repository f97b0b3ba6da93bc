package tray

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"sync"
	"time"

	"github.com/atotto/clipboard"
	"github.com/getlantern/systray"
	"github.com/rs/zerolog"

	"github.com/lucasmsqt/StreamVox/internal/logging"
	"github.com/lucasmsqt/StreamVox/internal/notify"
	"github.com/lucasmsqt/StreamVox/internal/session"
)

const shutdownTimeout = 5 * time.Second

// Actions are the operations the menu triggers. *app.App satisfies it.
type Actions interface {
	Toggle() error
	RefreshDevices() error
	RescanDevices() error
	SelectInput(id string)
	SelectOutput(id string)
	SelectionText() string
	Snapshot() session.Snapshot
	Shutdown(ctx context.Context) error
}

type UI struct {
	app      Actions
	notifier notify.Notifier
	version  string
	commit   string
	log      zerolog.Logger

	mu      sync.Mutex
	ready   bool
	pending *session.Snapshot
	inputs  *deviceMenu
	outputs *deviceMenu

	// Menu items
	mStatus  *systray.MenuItem
	mAction  *systray.MenuItem
	mRefresh *systray.MenuItem
	mRescan  *systray.MenuItem
	mInput   *systray.MenuItem
	mOutput  *systray.MenuItem
	mCopy    *systray.MenuItem
}

func New(notifier notify.Notifier, version, commit string, log zerolog.Logger) *UI {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &UI{
		notifier: notifier,
		version:  version,
		commit:   commit,
		log:      log.With().Str("component", "tray").Logger(),
	}
}

// SetApp sets the app reference (for circular dependency resolution)
func (u *UI) SetApp(application Actions) {
	u.app = application
}

// Run blocks until Quit is chosen. It must be called from the main goroutine.
func (u *UI) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		systray.Quit()
	}()
	systray.Run(u.onReady, u.onExit)
	return nil
}

// Update renders snap. Calls before the tray is ready are kept and
// applied once the menu exists.
func (u *UI) Update(snap session.Snapshot) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if !u.ready {
		u.pending = &snap
		return
	}
	u.renderLocked(buildModel(snap))
}

func (u *UI) onReady() {
	systray.SetTooltip("Route a microphone to an output device")

	u.mu.Lock()
	u.mStatus = systray.AddMenuItem("", "Session status")
	u.mStatus.Disable()
	u.mAction = systray.AddMenuItem("Start Capture", "Start or stop the capture session")
	systray.AddSeparator()

	u.mInput = systray.AddMenuItem("Input: none", "Select the capture device")
	u.inputs = newDeviceMenu(u.mInput, u.app.SelectInput)
	u.mOutput = systray.AddMenuItem("Output: none", "Select the playback device")
	u.outputs = newDeviceMenu(u.mOutput, u.app.SelectOutput)
	u.mRefresh = systray.AddMenuItem("Refresh Devices", "Reload the device list")
	u.mRescan = systray.AddMenuItem("Rescan Devices", "Discard any pending listing and reload")
	systray.AddSeparator()

	u.mCopy = systray.AddMenuItem("Copy Selection", "Copy the selected devices to the clipboard")
	mLogs := systray.AddMenuItem("Open Logs", "View application logs")
	mAbout := systray.AddMenuItem("About", "About StreamVox")
	mQuit := systray.AddMenuItem("Quit", "Exit application")

	u.ready = true
	snap := u.app.Snapshot()
	if u.pending != nil && u.pending.Version > snap.Version {
		snap = *u.pending
	}
	u.pending = nil
	u.renderLocked(buildModel(snap))
	u.mu.Unlock()

	// Event loop
	go u.handleEvents(mLogs, mAbout, mQuit)
}

func (u *UI) handleEvents(mLogs, mAbout, mQuit *systray.MenuItem) {
	for {
		select {
		case <-u.mAction.ClickedCh:
			go u.run("toggle", u.app.Toggle)
		case <-u.mRefresh.ClickedCh:
			go u.run("refresh", u.app.RefreshDevices)
		case <-u.mRescan.ClickedCh:
			go u.run("rescan", u.app.RescanDevices)
		case <-u.mCopy.ClickedCh:
			u.copySelection()
		case <-mLogs.ClickedCh:
			u.openLogs()
		case <-mAbout.ClickedCh:
			u.showAbout()
		case <-mQuit.ClickedCh:
			systray.Quit()
			return
		}
	}
}

// run performs a blocking action off the event loop. Failures are
// already surfaced as notices by the session.
func (u *UI) run(name string, action func() error) {
	if err := action(); err != nil {
		u.log.Debug().Err(err).Str("action", name).Msg("Menu action failed")
	}
}

func (u *UI) renderLocked(m menuModel) {
	systray.SetTitle(m.Title)
	u.mStatus.SetTitle(m.Status)

	u.mAction.SetTitle(m.Action)
	setEnabled(u.mAction, m.ActionOn)
	setEnabled(u.mRefresh, m.RefreshOn)
	setEnabled(u.mRescan, m.RefreshOn)

	u.mInput.SetTitle(m.InputTitle)
	u.inputs.render(m.Inputs)
	u.mOutput.SetTitle(m.OutputTitle)
	u.outputs.render(m.Outputs)
}

func (u *UI) copySelection() {
	text := u.app.SelectionText()
	if err := clipboard.WriteAll(text); err != nil {
		u.log.Error().Err(err).Msg("Failed to copy selection")
		return
	}
	u.log.Info().Msg("Copied selection to clipboard")
}

func (u *UI) openLogs() {
	path := logging.Path()
	if err := openFile(path); err != nil {
		u.log.Error().Err(err).Str("path", path).Msg("Failed to open logs")
	}
}

func (u *UI) showAbout() {
	msg := fmt.Sprintf("StreamVox %s (%s)\nRoutes a microphone to an output device", u.version, u.commit)
	if err := u.notifier.Notify("About StreamVox", msg); err != nil {
		u.log.Warn().Err(err).Msg("Failed to show about")
	}
}

func (u *UI) onExit() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := u.app.Shutdown(ctx); err != nil {
		u.log.Error().Err(err).Msg("Shutdown error")
	}
}

func openFile(path string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", path)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", "", path)
	default:
		cmd = exec.Command("xdg-open", path)
	}
	return cmd.Start()
}

func setEnabled(item *systray.MenuItem, on bool) {
	if on {
		item.Enable()
	} else {
		item.Disable()
	}
}

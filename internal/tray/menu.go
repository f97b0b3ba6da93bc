package tray

import (
	"fmt"

	"github.com/lucasmsqt/StreamVox/internal/device"
	"github.com/lucasmsqt/StreamVox/internal/session"
)

// deviceEntry is one row of a device submenu.
type deviceEntry struct {
	ID      string
	Title   string
	Checked bool
}

// menuModel is everything the tray renders for one snapshot.
type menuModel struct {
	Title       string
	Status      string
	Action      string // label of the start/stop item
	ActionOn    bool
	RefreshOn   bool
	InputTitle  string
	OutputTitle string
	Inputs      []deviceEntry
	Outputs     []deviceEntry
}

func buildModel(snap session.Snapshot) menuModel {
	m := menuModel{
		Title:     fmt.Sprintf("🎙 %s", emojiForPhase(snap.Phase)),
		Status:    statusText(snap),
		Action:    "Start Capture",
		RefreshOn: snap.Phase != session.Starting,
		Inputs:    entries(snap.Devices.Inputs, snap.Selection.Input),
		Outputs:   entries(snap.Devices.Outputs, snap.Selection.Output),
	}

	switch snap.Phase {
	case session.Ready:
		m.ActionOn = snap.Selection.Complete()
	case session.Capturing:
		m.Action = "Stop Capture"
		m.ActionOn = true
	case session.StoppingFailed:
		m.Action = "Retry Stop"
		m.ActionOn = true
	case session.Starting:
		m.Action = "Starting…"
	}

	m.InputTitle = submenuTitle("Input", snap.Devices, snap.Selection.Input, device.Input)
	m.OutputTitle = submenuTitle("Output", snap.Devices, snap.Selection.Output, device.Output)
	return m
}

func entries(devices []device.Device, selected string) []deviceEntry {
	out := make([]deviceEntry, 0, len(devices))
	for _, d := range devices {
		title := d.Label()
		if d.Default {
			title += " (default)"
		}
		out = append(out, deviceEntry{ID: d.ID, Title: title, Checked: d.ID == selected})
	}
	return out
}

func submenuTitle(prefix string, list device.List, id string, kind device.Kind) string {
	if id == "" {
		return prefix + ": none"
	}
	if d, ok := list.Find(id, kind); ok {
		return prefix + ": " + d.Label()
	}
	return prefix + ": " + id + " (unavailable)"
}

func statusText(snap session.Snapshot) string {
	var s string
	switch snap.Phase {
	case session.Idle:
		s = "No devices loaded"
	case session.FetchingDevices:
		s = "Loading devices…"
	case session.Ready:
		s = "Ready"
	case session.Starting:
		s = "Starting capture…"
	case session.Capturing:
		s = "Capturing"
	case session.StoppingFailed:
		s = "Stop failed"
		if snap.Reason != nil {
			s += ": " + snap.Reason.Error()
		}
	default:
		s = string(snap.Phase)
	}
	if snap.Refreshing && snap.Phase != session.FetchingDevices {
		s += " (refreshing devices)"
	}
	return s
}

// emojiForPhase returns the status emoji shown next to the tray icon
func emojiForPhase(phase session.Phase) string {
	switch phase {
	case session.Capturing:
		return "🔴" // Red - capturing
	case session.Starting, session.FetchingDevices:
		return "🟡" // Yellow - waiting on the backend
	case session.StoppingFailed:
		return "⚠️"
	case session.Ready:
		return "🟢" // Green - ready
	default:
		return "⚪️" // White - no devices
	}
}

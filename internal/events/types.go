package events

import (
	"time"

	"github.com/lucasmsqt/StreamVox/internal/device"
)

// Event type constants for kelindar/event.
const (
	TypeStateChanged uint32 = iota + 1
	TypeDevicesChanged
	TypeNotice
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// Phase mirrors the session phase so shells can render without
// importing the session package.
type Phase string

// Selection is an (input, output) device id pair; empty means unset.
type Selection struct {
	Input  string
	Output string
}

// Complete reports whether both ids are set.
func (s Selection) Complete() bool {
	return s.Input != "" && s.Output != ""
}

// Snapshot is an immutable copy of the capture session.
// Version increases with every change, so consumers receiving snapshots
// out of order can drop older ones.
type Snapshot struct {
	Version    uint64
	Phase      Phase
	Reason     error // set in the stopping-failed phase
	Selection  Selection
	Active     Selection // pair the running capture was started with
	Devices    device.List
	Refreshing bool
}

// StateChanged is published after every session transition.
type StateChanged struct {
	Snapshot  Snapshot
	Timestamp time.Time
}

// Type returns the event type identifier for StateChanged.
func (e StateChanged) Type() uint32 { return TypeStateChanged }

// DevicesChanged is published when a refresh replaced the registry.
type DevicesChanged struct {
	Devices   device.List
	Timestamp time.Time
}

// Type returns the event type identifier for DevicesChanged.
func (e DevicesChanged) Type() uint32 { return TypeDevicesChanged }

// NoticeKind classifies a surfaced failure.
type NoticeKind string

const (
	NoticeDeviceFetch  NoticeKind = "device_fetch"
	NoticeValidation   NoticeKind = "validation"
	NoticeCaptureStart NoticeKind = "capture_start"
	NoticeCaptureStop  NoticeKind = "capture_stop"
)

// Notice reports a recoverable failure the user should see.
type Notice struct {
	Op        string
	Kind      NoticeKind
	Err       error
	Timestamp time.Time
}

// Type returns the event type identifier for Notice.
func (e Notice) Type() uint32 { return TypeNotice }

package notify

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/lucasmsqt/StreamVox/internal/audio"
	"github.com/lucasmsqt/StreamVox/internal/device"
	"github.com/lucasmsqt/StreamVox/internal/events"
	"github.com/lucasmsqt/StreamVox/internal/session"
)

type recordingNotifier struct {
	mu     sync.Mutex
	titles []string
	err    error
	called chan struct{}
}

func (r *recordingNotifier) Notify(title, message string) error {
	r.mu.Lock()
	r.titles = append(r.titles, title)
	r.mu.Unlock()
	r.called <- struct{}{}
	return r.err
}

func TestFormat(t *testing.T) {
	tests := []struct {
		name        string
		notice      events.Notice
		wantTitle   string
		wantMessage string
	}{
		{
			name:        "device fetch",
			notice:      events.Notice{Kind: events.NoticeDeviceFetch, Err: &device.FetchError{Err: errors.New("timeout")}},
			wantTitle:   "StreamVox: Couldn't load audio devices",
			wantMessage: "fetch devices: timeout",
		},
		{
			name:        "validation uses reason",
			notice:      events.Notice{Kind: events.NoticeValidation, Err: &session.ValidationError{Field: "input", Reason: "no input device selected"}},
			wantTitle:   "StreamVox: Can't start capture",
			wantMessage: "no input device selected",
		},
		{
			name:        "start",
			notice:      events.Notice{Kind: events.NoticeCaptureStart, Err: errors.New("device busy")},
			wantTitle:   "StreamVox: Capture failed to start",
			wantMessage: "device busy",
		},
		{
			name:        "stop suggests retry",
			notice:      events.Notice{Kind: events.NoticeCaptureStop, Err: &audio.StopError{Err: errors.New("stuck")}},
			wantTitle:   "StreamVox: Capture failed to stop",
			wantMessage: "Try stopping again.",
		},
		{
			name:        "unknown without error",
			notice:      events.Notice{Kind: "other"},
			wantTitle:   "StreamVox: Something went wrong",
			wantMessage: "Please try again.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			title, message := Format(tt.notice)
			if title != tt.wantTitle {
				t.Errorf("title: expected %q, got %q", tt.wantTitle, title)
			}
			if !strings.Contains(message, tt.wantMessage) {
				t.Errorf("message %q does not contain %q", message, tt.wantMessage)
			}
		})
	}
}

func TestForwardDeliversNotices(t *testing.T) {
	bus := events.New()
	defer bus.Close()

	n := &recordingNotifier{called: make(chan struct{}, 2), err: errors.New("no daemon")}
	unsub := Forward(bus, n, zerolog.Nop())
	defer unsub()

	bus.Publish(events.Notice{Kind: events.NoticeCaptureStart, Err: errors.New("busy")})

	select {
	case <-n.called:
	case <-time.After(time.Second):
		t.Fatal("notifier was not called")
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.titles) != 1 || n.titles[0] != "StreamVox: Capture failed to start" {
		t.Errorf("unexpected notifications: %v", n.titles)
	}
}

func TestNopNotifier(t *testing.T) {
	var n Notifier = Nop{}
	if err := n.Notify("title", "message"); err != nil {
		t.Errorf("expected nil error, got %v", err)
	}
}

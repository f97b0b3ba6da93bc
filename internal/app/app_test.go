package app

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/lucasmsqt/StreamVox/internal/config"
	"github.com/lucasmsqt/StreamVox/internal/device"
	"github.com/lucasmsqt/StreamVox/internal/events"
	"github.com/lucasmsqt/StreamVox/internal/session"
)

// Mock implementations for testing
type mockClient struct {
	mu      sync.Mutex
	starts  int
	stops   int
	stopErr error
}

func (m *mockClient) ListDevices(ctx context.Context) ([]device.Device, []device.Device, error) {
	return []device.Device{{ID: "mic", Name: "Built-in Microphone", Default: true}},
		[]device.Device{{ID: "spk", Name: "Speakers"}}, nil
}

func (m *mockClient) StartCapture(ctx context.Context, inputID, outputID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.starts++
	return nil
}

func (m *mockClient) StopCapture(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stops++
	return m.stopErr
}

func (m *mockClient) Close() error {
	return nil
}

type mockStatus struct {
	mu    sync.Mutex
	snaps []session.Snapshot
}

func (m *mockStatus) Update(snap session.Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snaps = append(m.snaps, snap)
}

func (m *mockStatus) last() (session.Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.snaps) == 0 {
		return session.Snapshot{}, false
	}
	return m.snaps[len(m.snaps)-1], true
}

type mockNotifier struct {
	called chan string
}

func (m *mockNotifier) Notify(title, message string) error {
	m.called <- title
	return nil
}

func newTestApp(t *testing.T, client *mockClient) (*App, *mockStatus) {
	t.Helper()
	ctrl := session.New(session.Config{Client: client, Logger: zerolog.Nop()})
	if _, err := ctrl.RefreshDevices(context.Background()); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	status := &mockStatus{}
	app := New(Config{
		Controller:    ctrl,
		Config:        config.Default(),
		Logger:        zerolog.Nop(),
		StatusUpdater: status,
	})
	return app, status
}

func TestHotkeyTogglesCapture(t *testing.T) {
	client := &mockClient{}
	app, _ := newTestApp(t, client)
	app.SelectInput("mic")
	app.SelectOutput("spk")

	// First key press - should start capturing
	app.OnHotkey(true)
	if got := app.Snapshot().Phase; got != session.Capturing {
		t.Fatalf("expected %s after first press, got %s", session.Capturing, got)
	}

	// Key release - should be ignored
	app.OnHotkey(false)
	if got := app.Snapshot().Phase; got != session.Capturing {
		t.Errorf("key release should not stop capture, got %s", got)
	}

	// Second key press - should stop capturing
	app.OnHotkey(true)
	if got := app.Snapshot().Phase; got != session.Ready {
		t.Errorf("expected %s after second press, got %s", session.Ready, got)
	}
	if client.starts != 1 || client.stops != 1 {
		t.Errorf("expected 1 start and 1 stop, got %d and %d", client.starts, client.stops)
	}
}

func TestHotkeyWithoutSelectionDoesNothing(t *testing.T) {
	client := &mockClient{}
	app, _ := newTestApp(t, client)

	app.OnHotkey(true)
	if got := app.Snapshot().Phase; got != session.Ready {
		t.Errorf("expected %s, got %s", session.Ready, got)
	}
	if client.starts != 0 {
		t.Errorf("backend should not be called without a selection, got %d starts", client.starts)
	}
}

func TestStartRendersStateAndForwardsNotices(t *testing.T) {
	bus := events.New()
	defer bus.Close()

	client := &mockClient{}
	ctrl := session.New(session.Config{Client: client, Bus: bus, Logger: zerolog.Nop()})
	status := &mockStatus{}
	notifier := &mockNotifier{called: make(chan string, 4)}

	app := New(Config{
		Controller:    ctrl,
		Bus:           bus,
		Notifier:      notifier,
		Config:        config.Default(),
		Logger:        zerolog.Nop(),
		StatusUpdater: status,
	})
	app.Start(context.Background())

	deadline := time.Now().Add(time.Second)
	for {
		if snap, ok := status.last(); ok && snap.Phase == session.Ready {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("status updater never saw the ready phase")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if err := app.StartCapture(); err == nil {
		t.Fatal("start without selection should fail")
	}
	select {
	case title := <-notifier.called:
		if !strings.Contains(title, "Can't start capture") {
			t.Errorf("unexpected notification title %q", title)
		}
	case <-time.After(time.Second):
		t.Fatal("validation notice was not forwarded to the notifier")
	}

	if err := app.Shutdown(context.Background()); err != nil {
		t.Errorf("shutdown failed: %v", err)
	}
}

func TestRenderDropsOlderSnapshots(t *testing.T) {
	app, status := newTestApp(t, &mockClient{})

	app.render(session.Snapshot{Version: 5, Phase: session.Capturing})
	app.render(session.Snapshot{Version: 3, Phase: session.Starting})

	snap, _ := status.last()
	if snap.Version != 5 || snap.Phase != session.Capturing {
		t.Errorf("older snapshot was rendered: %+v", snap)
	}
}

func TestSelectionText(t *testing.T) {
	app, _ := newTestApp(t, &mockClient{})

	if got := app.SelectionText(); got != "Input: (none)\nOutput: (none)" {
		t.Errorf("unexpected empty selection text %q", got)
	}

	app.SelectInput("mic")
	app.SelectOutput("gone")
	want := "Input: Built-in Microphone\nOutput: gone (unavailable)"
	if got := app.SelectionText(); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestShutdownStopsRunningCapture(t *testing.T) {
	client := &mockClient{}
	app, _ := newTestApp(t, client)
	app.SelectInput("mic")
	app.SelectOutput("spk")

	if err := app.StartCapture(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if err := app.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown failed: %v", err)
	}
	if client.stops != 1 {
		t.Errorf("expected capture to be stopped on shutdown, got %d stops", client.stops)
	}
	if err := app.StartCapture(); !errors.Is(err, session.ErrClosed) {
		t.Errorf("expected ErrClosed after shutdown, got %v", err)
	}
}

func TestShutdownReportsStopFailure(t *testing.T) {
	client := &mockClient{stopErr: errors.New("stuck")}
	app, _ := newTestApp(t, client)
	app.SelectInput("mic")
	app.SelectOutput("spk")

	if err := app.StartCapture(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if err := app.Shutdown(context.Background()); err == nil {
		t.Error("expected shutdown to report the stop failure")
	}
}

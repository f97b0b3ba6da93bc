package metrics

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/lucasmsqt/StreamVox/internal/device"
	"github.com/lucasmsqt/StreamVox/internal/events"
	"github.com/lucasmsqt/StreamVox/internal/session"
)

func state(version uint64, phase events.Phase, refreshing bool) events.StateChanged {
	return events.StateChanged{Snapshot: events.Snapshot{Version: version, Phase: phase, Refreshing: refreshing}}
}

func TestTransitionsCountPhaseChanges(t *testing.T) {
	c := New()

	c.handleState(state(1, session.FetchingDevices, true))
	c.handleState(state(2, session.Ready, false))
	c.handleState(state(3, session.Ready, false)) // selection change, same phase
	c.handleState(state(4, session.Starting, false))
	c.handleState(state(5, session.Capturing, false))

	if got := testutil.ToFloat64(c.transitions.WithLabelValues(string(session.Ready))); got != 1 {
		t.Errorf("expected 1 transition to ready, got %v", got)
	}
	if got := testutil.ToFloat64(c.transitions.WithLabelValues(string(session.Capturing))); got != 1 {
		t.Errorf("expected 1 transition to capturing, got %v", got)
	}
	if got := testutil.ToFloat64(c.capturing); got != 1 {
		t.Errorf("expected capturing gauge 1, got %v", got)
	}
	if got := testutil.ToFloat64(c.refreshing); got != 0 {
		t.Errorf("expected refreshing gauge 0, got %v", got)
	}
}

func TestOutOfOrderSnapshotsAreIgnored(t *testing.T) {
	c := New()

	c.handleState(state(5, session.Capturing, false))
	c.handleState(state(4, session.Starting, false))

	if got := testutil.ToFloat64(c.capturing); got != 1 {
		t.Errorf("older snapshot overwrote capturing gauge: %v", got)
	}
	if got := testutil.ToFloat64(c.transitions.WithLabelValues(string(session.Starting))); got != 0 {
		t.Errorf("older snapshot counted as transition: %v", got)
	}
}

func TestDevicesAndNotices(t *testing.T) {
	c := New()

	c.handleDevices(events.DevicesChanged{Devices: device.List{
		Inputs:  []device.Device{{ID: "Mic1"}, {ID: "Mic2"}},
		Outputs: []device.Device{{ID: "Speaker1"}},
	}})
	c.handleNotice(events.Notice{Kind: events.NoticeCaptureStart, Err: errors.New("busy")})
	c.handleNotice(events.Notice{Kind: events.NoticeCaptureStart, Err: errors.New("busy")})

	if got := testutil.ToFloat64(c.devices.WithLabelValues("input")); got != 2 {
		t.Errorf("expected 2 inputs, got %v", got)
	}
	if got := testutil.ToFloat64(c.devices.WithLabelValues("output")); got != 1 {
		t.Errorf("expected 1 output, got %v", got)
	}
	if got := testutil.ToFloat64(c.notices.WithLabelValues(string(events.NoticeCaptureStart))); got != 2 {
		t.Errorf("expected 2 start notices, got %v", got)
	}
}

func TestAttachReceivesBusEvents(t *testing.T) {
	bus := events.New()
	defer bus.Close()

	c := New()
	unsub := c.Attach(bus)
	defer unsub()

	bus.Publish(events.Notice{Kind: events.NoticeDeviceFetch})

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if testutil.ToFloat64(c.notices.WithLabelValues(string(events.NoticeDeviceFetch))) == 1 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("notice from bus was not counted")
}

func TestHandlerExposesMetrics(t *testing.T) {
	c := New()
	c.handleState(state(1, session.Capturing, false))

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	if !strings.Contains(body, "streamvox_session_capturing 1") {
		t.Errorf("metrics output missing capturing gauge:\n%s", body)
	}
}

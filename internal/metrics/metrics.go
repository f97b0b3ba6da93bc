// Package metrics exports session activity as Prometheus metrics.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/lucasmsqt/StreamVox/internal/device"
	"github.com/lucasmsqt/StreamVox/internal/events"
	"github.com/lucasmsqt/StreamVox/internal/session"
)

const namespace = "streamvox"

// Collector turns bus events into metrics. It owns a private registry so
// several collectors can coexist in one process.
type Collector struct {
	registry *prometheus.Registry

	transitions *prometheus.CounterVec
	notices     *prometheus.CounterVec
	devices     *prometheus.GaugeVec
	capturing   prometheus.Gauge
	refreshing  prometheus.Gauge

	mu          sync.Mutex
	lastVersion uint64
	lastPhase   events.Phase
}

// New creates a collector with its metrics registered.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "transitions_total",
			Help:      "Session phase transitions by destination phase",
		}, []string{"phase"}),
		notices: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "notices_total",
			Help:      "Failures surfaced to the user by kind",
		}, []string{"kind"}),
		devices: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "devices",
			Help:      "Devices in the registry by kind",
		}, []string{"kind"}),
		capturing: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "capturing",
			Help:      "1 while a capture session is running",
		}),
		refreshing: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "refreshing",
			Help:      "1 while a device listing is in flight",
		}),
	}

	c.registry.MustRegister(c.transitions, c.notices, c.devices, c.capturing, c.refreshing)
	return c
}

// Attach subscribes the collector to bus and returns the unsubscribe
// function.
func (c *Collector) Attach(bus *events.Bus) func() {
	unsubs := []func(){
		bus.Subscribe(c.handleState),
		bus.Subscribe(c.handleDevices),
		bus.Subscribe(c.handleNotice),
	}
	return func() {
		for _, unsub := range unsubs {
			unsub()
		}
	}
}

func (c *Collector) handleState(e events.StateChanged) {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := e.Snapshot
	if snap.Version <= c.lastVersion {
		return
	}
	c.lastVersion = snap.Version

	if snap.Phase != c.lastPhase {
		c.transitions.WithLabelValues(string(snap.Phase)).Inc()
		c.lastPhase = snap.Phase
	}
	c.capturing.Set(boolGauge(snap.Phase == session.Capturing))
	c.refreshing.Set(boolGauge(snap.Refreshing))
}

func (c *Collector) handleDevices(e events.DevicesChanged) {
	c.devices.WithLabelValues(device.Input.String()).Set(float64(len(e.Devices.Inputs)))
	c.devices.WithLabelValues(device.Output.String()).Set(float64(len(e.Devices.Outputs)))
}

func (c *Collector) handleNotice(e events.Notice) {
	c.notices.WithLabelValues(string(e.Kind)).Inc()
}

// Handler serves the collector's registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (c *Collector) Serve(ctx context.Context, addr string, log zerolog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", addr).Msg("Serving metrics")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

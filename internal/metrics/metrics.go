// Package metrics provides the Prometheus collectors of the host.
//
// All recording methods are safe to call on a nil *Metrics, so components
// can run without a registry in tests.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "remotepad"

// Auth results
const (
	AuthOK          = "ok"
	AuthRejected    = "rejected"
	AuthRateLimited = "rate_limited"
)

// Metrics holds the host collectors.
type Metrics struct {
	registry *prometheus.Registry

	codesIssued       prometheus.Counter
	sessionEpoch      prometheus.Gauge
	authAttempts      *prometheus.CounterVec
	activeConnections prometheus.Gauge
	framesReceived    prometheus.Counter
	framesMalformed   prometheus.Counter
	commands          *prometheus.CounterVec
	actuatorFailures  *prometheus.CounterVec
}

// New creates the collectors and registers them, together with the Go and
// process collectors, on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		codesIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pairing",
			Name:      "codes_issued_total",
			Help:      "Pairing codes issued",
		}),
		sessionEpoch: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "epoch",
			Help:      "Epoch of the current session",
		}),
		authAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "auth_attempts_total",
			Help:      "Connection authentication attempts by result",
		}, []string{"result"}),
		activeConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "conn",
			Name:      "active",
			Help:      "Authenticated controller connections",
		}),
		framesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "conn",
			Name:      "frames_received_total",
			Help:      "Frames received from controllers",
		}),
		framesMalformed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "conn",
			Name:      "frames_malformed_total",
			Help:      "Frames dropped because they could not be decoded",
		}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "input",
			Name:      "commands_total",
			Help:      "Normalized commands sent to the actuator by kind",
		}, []string{"kind"}),
		actuatorFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "input",
			Name:      "actuator_failures_total",
			Help:      "Commands the actuator failed to perform by kind",
		}, []string{"kind"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.codesIssued,
		m.sessionEpoch,
		m.authAttempts,
		m.activeConnections,
		m.framesReceived,
		m.framesMalformed,
		m.commands,
		m.actuatorFailures,
	)
	return m
}

// Registry returns the registry the collectors live in.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// CodeIssued counts one issued pairing code.
func (m *Metrics) CodeIssued() {
	if m == nil {
		return
	}
	m.codesIssued.Inc()
}

// SessionRegenerated records the epoch of a new session.
func (m *Metrics) SessionRegenerated(epoch uint64) {
	if m == nil {
		return
	}
	m.sessionEpoch.Set(float64(epoch))
}

// AuthAttempt counts one authentication attempt with the given result.
func (m *Metrics) AuthAttempt(result string) {
	if m == nil {
		return
	}
	m.authAttempts.WithLabelValues(result).Inc()
}

// ConnectionOpened increments the active connection gauge.
func (m *Metrics) ConnectionOpened() {
	if m == nil {
		return
	}
	m.activeConnections.Inc()
}

// ConnectionClosed decrements the active connection gauge.
func (m *Metrics) ConnectionClosed() {
	if m == nil {
		return
	}
	m.activeConnections.Dec()
}

// FrameReceived counts one received frame.
func (m *Metrics) FrameReceived(malformed bool) {
	if m == nil {
		return
	}
	m.framesReceived.Inc()
	if malformed {
		m.framesMalformed.Inc()
	}
}

// CommandExecuted counts one command and, when err is set, one failure.
func (m *Metrics) CommandExecuted(kind string, err error) {
	if m == nil {
		return
	}
	m.commands.WithLabelValues(kind).Inc()
	if err != nil {
		m.actuatorFailures.WithLabelValues(kind).Inc()
	}
}

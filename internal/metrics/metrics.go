package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rickgao/channel-console/internal/realtime"
	"github.com/rickgao/channel-console/internal/session"
)

const namespace = "channel_console"

// Metrics records session and socket activity.
type Metrics struct {
	registry *prometheus.Registry

	SessionsStarted   prometheus.Counter
	Transitions       *prometheus.CounterVec
	QRCodes           prometheus.Counter
	Failures          *prometheus.CounterVec
	Cleanups          *prometheus.CounterVec
	SocketConnected   prometheus.Gauge
	ReconnectAttempts prometheus.Counter
	Cooldowns         prometheus.Counter
	MalformedMessages prometheus.Counter

	mu   sync.Mutex
	last realtime.SocketState
}

// New creates and registers all collectors, including the Go runtime and
// process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		SessionsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_started_total",
			Help:      "Total number of pairing sessions started",
		}),
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_transitions_total",
			Help:      "Session status transitions",
		}, []string{"from", "to"}),
		QRCodes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "qr_codes_received_total",
			Help:      "QR codes shown to the operator",
		}),
		Failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_failures_total",
			Help:      "Session failures by kind",
		}, []string{"kind"}),
		Cleanups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cleanups_total",
			Help:      "Abandoned connection cleanups by the step that succeeded",
		}, []string{"step"}),
		SocketConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "socket_connected",
			Help:      "1 when the event socket is connected",
		}),
		ReconnectAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "socket_reconnect_attempts_total",
			Help:      "Event socket reconnect attempts",
		}),
		Cooldowns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "socket_cooldowns_total",
			Help:      "Times the event socket entered reconnect cooldown",
		}),
		MalformedMessages: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "socket_malformed_messages_total",
			Help:      "Event socket frames that could not be decoded",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.SessionsStarted,
		m.Transitions,
		m.QRCodes,
		m.Failures,
		m.Cleanups,
		m.SocketConnected,
		m.ReconnectAttempts,
		m.Cooldowns,
		m.MalformedMessages,
	)

	return m
}

// Registry returns the registry holding all collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// SessionStarted implements session.Observer.
func (m *Metrics) SessionStarted() {
	m.SessionsStarted.Inc()
}

// Transition implements session.Observer.
func (m *Metrics) Transition(from, to session.Status) {
	m.Transitions.WithLabelValues(string(from), string(to)).Inc()
}

// QRReceived implements session.Observer.
func (m *Metrics) QRReceived() {
	m.QRCodes.Inc()
}

// Failure implements session.Observer.
func (m *Metrics) Failure(kind session.ErrorKind) {
	m.Failures.WithLabelValues(string(kind)).Inc()
}

// Cleanup implements session.Observer.
func (m *Metrics) Cleanup(res session.CleanupResult) {
	m.Cleanups.WithLabelValues(res.Step()).Inc()
}

// SocketState records a realtime client state change. Attempts and
// cooldowns are counted on their rising edge.
func (m *Metrics) SocketState(st realtime.SocketState) {
	m.mu.Lock()
	prev := m.last
	m.last = st
	m.mu.Unlock()

	if st.Connected {
		m.SocketConnected.Set(1)
	} else {
		m.SocketConnected.Set(0)
	}
	if st.ReconnectAttempts > prev.ReconnectAttempts {
		m.ReconnectAttempts.Add(float64(st.ReconnectAttempts - prev.ReconnectAttempts))
	}
	if st.CooldownActive && !prev.CooldownActive {
		m.Cooldowns.Inc()
	}
}

// MalformedMessage counts an undecodable socket frame.
func (m *Metrics) MalformedMessage() {
	m.MalformedMessages.Inc()
}

var _ session.Observer = (*Metrics)(nil)

package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gingerskull/joycore-link/internal/rawstate"
)

// Metrics owns the service's Prometheus registry and all collectors.
// A single instance is created in main and handed to the components
// that report into it.
type Metrics struct {
	registry *prometheus.Registry

	samplesReceived   *prometheus.CounterVec
	samplesAccepted   *prometheus.CounterVec
	samplesSuppressed *prometheus.CounterVec
	decodeFallbacks   prometheus.Counter
	eventsDropped     prometheus.Counter
	backendReconnects prometheus.Counter
	transitionsStored prometheus.Counter
	wsClients         prometheus.Gauge
	monitorActive     prometheus.Gauge
}

func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: registry,
		samplesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "joylink_samples_received_total",
			Help: "Raw state samples received from the backend, per domain.",
		}, []string{"domain"}),
		samplesAccepted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "joylink_samples_accepted_total",
			Help: "Samples that changed state and were propagated, per domain.",
		}, []string{"domain"}),
		samplesSuppressed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "joylink_samples_suppressed_total",
			Help: "Samples identical to the previous state, per domain.",
		}, []string{"domain"}),
		decodeFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "joylink_decode_fallbacks_total",
			Help: "Input names that did not match any source pattern.",
		}),
		eventsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "joylink_backend_events_dropped_total",
			Help: "Backend events shed because the event buffer was full.",
		}),
		backendReconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "joylink_backend_reconnects_total",
			Help: "Times the backend WebSocket link was re-established.",
		}),
		transitionsStored: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "joylink_transitions_stored_total",
			Help: "Input transitions written to the recorder database.",
		}),
		wsClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "joylink_websocket_clients",
			Help: "Currently connected UI WebSocket clients.",
		}),
		monitorActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "joylink_monitor_active",
			Help: "1 while the monitoring session is running.",
		}),
	}

	registry.MustRegister(
		m.samplesReceived,
		m.samplesAccepted,
		m.samplesSuppressed,
		m.decodeFallbacks,
		m.eventsDropped,
		m.backendReconnects,
		m.transitionsStored,
		m.wsClients,
		m.monitorActive,
	)
	return m
}

// Handler serves the registry in Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) SampleReceived(domain rawstate.Domain) {
	m.samplesReceived.WithLabelValues(string(domain)).Inc()
}

func (m *Metrics) SampleAccepted(domain rawstate.Domain) {
	m.samplesAccepted.WithLabelValues(string(domain)).Inc()
}

func (m *Metrics) SampleSuppressed(domain rawstate.Domain) {
	m.samplesSuppressed.WithLabelValues(string(domain)).Inc()
}

func (m *Metrics) DecodeFallback()     { m.decodeFallbacks.Inc() }
func (m *Metrics) EventDropped()       { m.eventsDropped.Inc() }
func (m *Metrics) BackendReconnected() { m.backendReconnects.Inc() }

func (m *Metrics) TransitionsStored(n int) {
	m.transitionsStored.Add(float64(n))
}

func (m *Metrics) SetWSClients(n int) { m.wsClients.Set(float64(n)) }

func (m *Metrics) SetMonitorActive(on bool) {
	if on {
		m.monitorActive.Set(1)
	} else {
		m.monitorActive.Set(0)
	}
}

// Package metrics exposes Prometheus counters for the chat engine, the hub
// and the availability cache.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is what the engine, hub and services report to.
type Recorder interface {
	ConnectionOpened()
	ConnectionClosed()
	RecordEvent(event, outcome string)
	RecordBroadcast(event string)
	RecordDroppedClient()
	RecordAvailabilityUpdate(status string)
	RecordAvailabilityCleared(reason string)
}

const (
	OutcomeOK       = "ok"
	OutcomeError    = "error"
	OutcomeThrottle = "throttled"
)

type Collector struct {
	connections  prometheus.Gauge
	events       *prometheus.CounterVec
	broadcasts   *prometheus.CounterVec
	dropped      prometheus.Counter
	availability *prometheus.CounterVec
	availCleared *prometheus.CounterVec
}

func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "staffhub_ws_connections",
			Help: "Open websocket connections.",
		}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "staffhub_ws_events_total",
			Help: "Inbound websocket actions by event and outcome.",
		}, []string{"event", "outcome"}),
		broadcasts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "staffhub_ws_broadcasts_total",
			Help: "Outbound room emissions by event.",
		}, []string{"event"}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "staffhub_ws_dropped_clients_total",
			Help: "Connections evicted because their send buffer was full.",
		}),
		availability: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "staffhub_availability_updates_total",
			Help: "Availability records written, by status.",
		}, []string{"status"}),
		availCleared: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "staffhub_availability_cleared_total",
			Help: "Availability records removed, by reason.",
		}, []string{"reason"}),
	}

	reg.MustRegister(c.connections, c.events, c.broadcasts, c.dropped, c.availability, c.availCleared)
	return c
}

func (c *Collector) ConnectionOpened() { c.connections.Inc() }

func (c *Collector) ConnectionClosed() { c.connections.Dec() }

func (c *Collector) RecordEvent(event, outcome string) {
	c.events.WithLabelValues(event, outcome).Inc()
}

func (c *Collector) RecordBroadcast(event string) {
	c.broadcasts.WithLabelValues(event).Inc()
}

func (c *Collector) RecordDroppedClient() { c.dropped.Inc() }

func (c *Collector) RecordAvailabilityUpdate(status string) {
	c.availability.WithLabelValues(status).Inc()
}

func (c *Collector) RecordAvailabilityCleared(reason string) {
	c.availCleared.WithLabelValues(reason).Add(1)
}

// Nop discards everything. Used where no registry is wired, mostly in tests.
type Nop struct{}

func (Nop) ConnectionOpened() {}
func (Nop) ConnectionClosed() {}
func (Nop) RecordEvent(string, string) {}
func (Nop) RecordBroadcast(string) {}
func (Nop) RecordDroppedClient() {}
func (Nop) RecordAvailabilityUpdate(string) {}
func (Nop) RecordAvailabilityCleared(string) {}

var _ Recorder = (*Collector)(nil)

// Handler serves the scrape endpoint for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the courier tracking server.
type Metrics struct {
	// Live WebSocket sessions.
	Sessions prometheus.Gauge

	// Frames written to clients, by frame kind.
	FramesSent *prometheus.CounterVec

	// Frames dropped because a client's send buffer was full.
	FramesDropped prometheus.Counter

	// Events taken off the routing queue, by event type.
	EventsRouted *prometheus.CounterVec

	// Live delivery subscriptions across all sessions.
	Subscriptions prometheus.Gauge

	// HTTP request latencies by method, route pattern and status code.
	HTTPDuration *prometheus.HistogramVec

	// Stale packages re-announced by the dispatch sweeper.
	Reannounced prometheus.Counter
}

// New creates and registers all metrics on the default registry.
func New() *Metrics {
	return &Metrics{
		Sessions: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "couriertrack_ws_sessions",
			Help: "Number of live WebSocket sessions",
		}),
		FramesSent: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "couriertrack_ws_frames_sent_total",
			Help: "Total frames written to WebSocket clients by kind",
		}, []string{"kind"}),
		FramesDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "couriertrack_ws_frames_dropped_total",
			Help: "Total frames dropped on full client send buffers",
		}),
		EventsRouted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "couriertrack_events_routed_total",
			Help: "Total events dispatched by the router by event type",
		}, []string{"type"}),
		Subscriptions: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "couriertrack_delivery_subscriptions",
			Help: "Number of live delivery location subscriptions",
		}),
		HTTPDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "couriertrack_http_request_duration_seconds",
			Help:    "HTTP request latency by method, route and status code",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"method", "route", "code"}),
		Reannounced: promauto.NewCounter(prometheus.CounterOpts{
			Name: "couriertrack_dispatch_reannounced_total",
			Help: "Total stale packages re-announced to couriers",
		}),
	}
}

// SessionOpened records a new WebSocket session.
func (m *Metrics) SessionOpened() {
	if m != nil {
		m.Sessions.Inc()
	}
}

// SessionClosed records a WebSocket session going away.
func (m *Metrics) SessionClosed() {
	if m != nil {
		m.Sessions.Dec()
	}
}

// FrameSent records one frame written to a client.
func (m *Metrics) FrameSent(kind string) {
	if m != nil {
		m.FramesSent.WithLabelValues(kind).Inc()
	}
}

// FrameDropped records a frame discarded on a full send buffer.
func (m *Metrics) FrameDropped() {
	if m != nil {
		m.FramesDropped.Inc()
	}
}

// EventRouted records one event dispatched by the router.
func (m *Metrics) EventRouted(eventType string) {
	if m != nil {
		m.EventsRouted.WithLabelValues(eventType).Inc()
	}
}

// SubscriptionAdded records a new delivery subscription.
func (m *Metrics) SubscriptionAdded() {
	if m != nil {
		m.Subscriptions.Inc()
	}
}

// SubscriptionRemoved records a delivery subscription going away.
func (m *Metrics) SubscriptionRemoved() {
	if m != nil {
		m.Subscriptions.Dec()
	}
}

// SubscriptionsCleared records n subscriptions released at once on session
// teardown.
func (m *Metrics) SubscriptionsCleared(n int) {
	if m != nil {
		m.Subscriptions.Sub(float64(n))
	}
}

// ObserveHTTPRequest records one served HTTP request.
func (m *Metrics) ObserveHTTPRequest(method, route string, code int, d time.Duration) {
	if m != nil {
		m.HTTPDuration.WithLabelValues(method, route, strconv.Itoa(code)).Observe(d.Seconds())
	}
}

// PackagesReannounced records stale packages re-announced by the sweeper.
func (m *Metrics) PackagesReannounced(n int) {
	if m != nil {
		m.Reannounced.Add(float64(n))
	}
}

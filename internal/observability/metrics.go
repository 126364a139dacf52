package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/curb360/offersite/internal/offer"
)

// Metrics collects Prometheus metrics for the site.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	offer           *OfferMetrics
}

// NewMetrics initialises the registry with HTTP and offer metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "offersite_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "offersite_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	registry.MustRegister(requests, duration)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		offer:           newOfferMetrics(registry),
	}
}

// Handler returns the http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records request count and latency.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// Registerer exposes the registry for additional collectors.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

// Offer returns the offer gauges. It is nil-safe.
func (m *Metrics) Offer() *OfferMetrics {
	if m == nil {
		return nil
	}
	return m.offer
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Flush forwards to the wrapped writer so streaming handlers keep working.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}

// OfferMetrics exports the published offer state. It implements offer.Recorder.
type OfferMetrics struct {
	remaining   prometheus.Gauge
	expired     prometheus.Gauge
	tickErrors  prometheus.Counter
	subscribers prometheus.Gauge
}

var _ offer.Recorder = (*OfferMetrics)(nil)

func newOfferMetrics(registerer prometheus.Registerer) *OfferMetrics {
	m := &OfferMetrics{
		remaining: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "offersite_offer_remaining_seconds",
			Help: "Whole seconds left before the offer deadline.",
		}),
		expired: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "offersite_offer_expired",
			Help: "1 once the offer deadline has passed.",
		}),
		tickErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "offersite_offer_tick_errors_total",
			Help: "Offer evaluations skipped because the clock read failed.",
		}),
		subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "offersite_offer_subscribers",
			Help: "Open offer stream subscriptions.",
		}),
	}
	registerer.MustRegister(m.remaining, m.expired, m.tickErrors, m.subscribers)
	return m
}

// ObserveSnapshot implements offer.Recorder.
func (m *OfferMetrics) ObserveSnapshot(snap offer.Snapshot) {
	if m == nil {
		return
	}
	m.remaining.Set(float64(snap.Remaining.Milliseconds() / 1000))
	if snap.Expired {
		m.expired.Set(1)
		return
	}
	m.expired.Set(0)
}

// TickFailed implements offer.Recorder.
func (m *OfferMetrics) TickFailed() {
	if m == nil {
		return
	}
	m.tickErrors.Inc()
}

// StreamOpened increments the subscriber gauge.
func (m *OfferMetrics) StreamOpened() {
	if m == nil {
		return
	}
	m.subscribers.Inc()
}

// StreamClosed decrements the subscriber gauge.
func (m *OfferMetrics) StreamClosed() {
	if m == nil {
		return
	}
	m.subscribers.Dec()
}

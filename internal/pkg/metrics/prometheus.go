package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "satwatch",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "satwatch",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "path", "status"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "satwatch",
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "Number of HTTP requests currently being served",
		},
	)

	// Upstream fetch metrics
	fetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "satwatch",
			Subsystem: "sync",
			Name:      "fetch_total",
			Help:      "Total number of backend fetches by resource and outcome",
		},
		[]string{"resource", "outcome"},
	)

	fetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "satwatch",
			Subsystem: "sync",
			Name:      "fetch_duration_seconds",
			Help:      "Duration of backend fetches in seconds",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2, 3, 5},
		},
		[]string{"resource"},
	)

	staleResultsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "satwatch",
			Subsystem: "sync",
			Name:      "stale_results_total",
			Help:      "Fetch results discarded because a newer request already settled",
		},
		[]string{"resource"},
	)

	droppedRecordsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "satwatch",
			Subsystem: "sync",
			Name:      "dropped_records_total",
			Help:      "Anomaly records dropped because they could not be normalised",
		},
	)

	skippedTicksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "satwatch",
			Subsystem: "poller",
			Name:      "skipped_ticks_total",
			Help:      "Scheduled refreshes skipped while the backend was unreachable",
		},
		[]string{"resource"},
	)

	// Connectivity
	backendConnected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "satwatch",
			Subsystem: "backend",
			Name:      "connected",
			Help:      "1 when the last health probe succeeded, 0 otherwise",
		},
	)

	connectivityTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "satwatch",
			Subsystem: "backend",
			Name:      "connectivity_transitions_total",
			Help:      "Number of connectivity state changes",
		},
		[]string{"to"},
	)

	// Held data
	heldItems = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "satwatch",
			Subsystem: "store",
			Name:      "items",
			Help:      "Number of items currently held per resource",
		},
		[]string{"resource"},
	)

	// Unfiltered dashboard KPIs
	dashboardKPIs = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "satwatch",
			Subsystem: "dashboard",
			Name:      "kpi",
			Help:      "Locally derived KPIs over all held anomalies",
		},
		[]string{"kpi"},
	)

	// Dashboard websocket clients
	streamClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "satwatch",
			Subsystem: "stream",
			Name:      "clients",
			Help:      "Number of connected dashboard stream clients",
		},
	)
)

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Hijack lets websocket upgrades pass through the metrics wrapper
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	rw.statusCode = http.StatusSwitchingProtocols
	return h.Hijack()
}

// Middleware returns a middleware that records Prometheus metrics
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		httpRequestsInFlight.Inc()
		defer httpRequestsInFlight.Dec()

		wrapped := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(wrapped, r)

		routePattern := "unknown"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			routePattern = rctx.RoutePattern()
		}

		status := strconv.Itoa(wrapped.statusCode)

		httpRequestsTotal.WithLabelValues(r.Method, routePattern, status).Inc()
		httpRequestDuration.WithLabelValues(r.Method, routePattern, status).Observe(time.Since(start).Seconds())
	})
}

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordFetch records a backend fetch outcome ("ok" or a failure kind)
func RecordFetch(resource, outcome string, duration time.Duration) {
	fetchTotal.WithLabelValues(resource, outcome).Inc()
	fetchDuration.WithLabelValues(resource).Observe(duration.Seconds())
}

// RecordStaleResult records a fetch result that was discarded as out of order
func RecordStaleResult(resource string) {
	staleResultsTotal.WithLabelValues(resource).Inc()
}

// RecordDroppedRecords records anomaly records that failed normalisation
func RecordDroppedRecords(n int) {
	droppedRecordsTotal.Add(float64(n))
}

// RecordSkippedTick records a scheduled refresh skipped while disconnected
func RecordSkippedTick(resource string) {
	skippedTicksTotal.WithLabelValues(resource).Inc()
}

// SetConnected sets the backend connectivity gauge
func SetConnected(connected bool) {
	if connected {
		backendConnected.Set(1)
		return
	}
	backendConnected.Set(0)
}

// RecordConnectivityTransition records a change in connectivity
func RecordConnectivityTransition(connected bool) {
	to := "disconnected"
	if connected {
		to = "connected"
	}
	connectivityTransitions.WithLabelValues(to).Inc()
}

// SetHeldItems sets the number of items held for a resource
func SetHeldItems(resource string, count int) {
	heldItems.WithLabelValues(resource).Set(float64(count))
}

// SetKPIs publishes the unfiltered dashboard KPIs
func SetKPIs(totalToday, critical int, avgScore float64, online int) {
	dashboardKPIs.WithLabelValues("total_today").Set(float64(totalToday))
	dashboardKPIs.WithLabelValues("critical").Set(float64(critical))
	dashboardKPIs.WithLabelValues("avg_score").Set(avgScore)
	dashboardKPIs.WithLabelValues("online_satellites").Set(float64(online))
}

// IncStreamClients increments the stream client gauge
func IncStreamClients() {
	streamClients.Inc()
}

// DecStreamClients decrements the stream client gauge
func DecStreamClients() {
	streamClients.Dec()
}

package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)
	httpLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
	recomputeRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "proximity_recompute_runs_total",
			Help: "Proximity recomputations by outcome.",
		},
		[]string{"outcome"},
	)
	recomputeLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "proximity_recompute_duration_seconds",
			Help:    "Wall time of a full proximity recomputation.",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
	)
	recomputeComputations = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "proximity_last_run_computations",
			Help: "Distance computations stored by the last successful run.",
		},
	)
	coordinateLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "proximity_coordinate_lookups_total",
			Help: "Coordinate cache lookups by outcome (cached, resolved, miss, error).",
		},
		[]string{"outcome"},
	)
)

func Register() {
	prometheus.MustRegister(httpRequests, httpLatency, recomputeRuns, recomputeLatency, recomputeComputations, coordinateLookups)
}

func Handler() http.Handler {
	return promhttp.Handler()
}

// Instrument records request counts and latency labelled by the chi route
// pattern, so path parameters do not explode label cardinality.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &statusResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(lrw, r)

		route := unmatchedRoute
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := strconv.Itoa(lrw.statusCode)
		method := methodLabel(r.Method)
		httpRequests.WithLabelValues(method, route, status).Inc()
		httpLatency.WithLabelValues(method, route, status).Observe(time.Since(start).Seconds())
	})
}

// Requests chi could not route share one label so raw paths never become
// series.
const unmatchedRoute = "unmatched"

func methodLabel(m string) string {
	switch m {
	case http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut,
		http.MethodPatch, http.MethodDelete, http.MethodOptions:
		return m
	}
	return "other"
}

func ObserveRecompute(outcome string, d time.Duration) {
	recomputeRuns.WithLabelValues(outcome).Inc()
	recomputeLatency.Observe(d.Seconds())
}

func SetLastRunComputations(n int) {
	recomputeComputations.Set(float64(n))
}

func IncCoordinateLookup(outcome string) {
	coordinateLookups.WithLabelValues(outcome).Inc()
}

type statusResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusResponseWriter) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

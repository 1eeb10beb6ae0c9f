package obs

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Shared HTTP metrics.
var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	ready = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "service_ready",
		Help: "1 when the service reports ready, 0 otherwise.",
	})
)

// Registry domain metrics.
var (
	TokensMinted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "registry_tokens_minted_total",
		Help: "Tokens minted since process start.",
	})

	TokensLive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "registry_tokens_live",
		Help: "Tokens currently held by the registry.",
	})

	LeasesCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "registry_leases_created_total",
		Help: "Leases created since process start.",
	})

	AuctionsOpened = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "registry_auctions_opened_total",
		Help: "Auctions opened since process start.",
	})

	BidsAccepted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "registry_bids_accepted_total",
		Help: "Bids accepted since process start.",
	})

	AuctionsSettled = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "registry_auctions_settled_total",
		Help: "Auctions settled since process start.",
	}, []string{"outcome"}) // transferred | no_bids
)

// Init registers all metrics with the default registry.
func Init() {
	prometheus.MustRegister(
		httpInFlight, httpRequestsTotal, httpRequestDuration, ready,
		TokensMinted, TokensLive, LeasesCreated, AuctionsOpened, BidsAccepted, AuctionsSettled,
	)
}

// Handler exposes the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// SetReady records the last readiness probe result.
func SetReady(ok bool) {
	if ok {
		ready.Set(1)
	} else {
		ready.Set(0)
	}
}

// Instrument wraps a handler with RPS/latency/in-flight measurement.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := CanonicalPath(r.URL.Path)
		method := r.Method

		httpInFlight.Inc()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: 200}
		next.ServeHTTP(sw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(sw.code)

		httpRequestDuration.WithLabelValues(method, path, status).Observe(duration)
		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpInFlight.Dec()
	})
}

// CanonicalPath collapses token ids so metric cardinality stays bounded.
func CanonicalPath(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" {
		return "/"
	}
	parts := strings.Split(path, "/")
	// /v1/tokens/<id>[/lease|/auction[/bids|/settle]]
	if len(parts) >= 4 && parts[1] == "v1" && parts[2] == "tokens" && parts[3] != "" {
		rest := parts[4:]
		switch {
		case len(rest) == 0:
			return "/v1/tokens/:id"
		case len(rest) == 1 && (rest[0] == "lease" || rest[0] == "auction"):
			return "/v1/tokens/:id/" + rest[0]
		case len(rest) == 2 && rest[0] == "auction" && (rest[1] == "bids" || rest[1] == "settle"):
			return "/v1/tokens/:id/auction/" + rest[1]
		}
	}
	return path
}

// statusWriter captures the response code for labels.
type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

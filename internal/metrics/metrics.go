package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stellar_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"path", "method", "code"},
	)

	httpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stellar_http_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)

	generationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stellar_generations_total",
			Help: "Synthetic data generations by generator.",
		},
		[]string{"generator"},
	)

	generationDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stellar_generation_duration_seconds",
			Help:    "Time spent producing one synthetic data set.",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		},
		[]string{"generator"},
	)

	residualSamplesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "stellar_residual_samples_total",
		Help: "Residual samples drawn.",
	})

	bulletinRiskTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stellar_bulletin_entries_total",
			Help: "Bulletin horizon entries issued by risk level.",
		},
		[]string{"risk"},
	)

	orbitFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "stellar_orbit_propagation_failures_total",
		Help: "SGP4 initialization or propagation failures.",
	})

	streamConnectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stellar_stream_connections_total",
			Help: "Forecast stream connection events.",
		},
		[]string{"event"},
	)

	streamsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "stellar_streams_active",
		Help: "Currently open forecast streams.",
	})

	streamMessagesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "stellar_stream_messages_total",
		Help: "SSE messages sent.",
	})

	streamBytesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "stellar_stream_bytes_total",
		Help: "SSE bytes written.",
	})

	streamErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stellar_stream_errors_total",
			Help: "Forecast stream errors by reason.",
		},
		[]string{"reason"},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpDurationSeconds,
		generationsTotal,
		generationDurationSeconds,
		residualSamplesTotal,
		bulletinRiskTotal,
		orbitFailuresTotal,
		streamConnectionsTotal,
		streamsActive,
		streamMessagesTotal,
		streamBytesTotal,
		streamErrorsTotal,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordGeneration counts one run of the named generator and its duration.
func RecordGeneration(generator string, d time.Duration) {
	generationsTotal.WithLabelValues(generator).Inc()
	generationDurationSeconds.WithLabelValues(generator).Observe(d.Seconds())
}

func AddResidualSamples(n int) { residualSamplesTotal.Add(float64(n)) }

func AddBulletinEntries(risk string, n int) {
	bulletinRiskTotal.WithLabelValues(risk).Add(float64(n))
}

func IncOrbitFailures() { orbitFailuresTotal.Inc() }

func IncStreamConnections(event string) { streamConnectionsTotal.WithLabelValues(event).Inc() }
func IncStreamsActive()                 { streamsActive.Inc() }
func DecStreamsActive()                 { streamsActive.Dec() }
func IncStreamMessages()                { streamMessagesTotal.Inc() }
func AddStreamBytes(n int64)            { streamBytesTotal.Add(float64(n)) }
func IncStreamErrors(reason string)     { streamErrorsTotal.WithLabelValues(reason).Inc() }

// exactRoutes are label values used verbatim.
var exactRoutes = map[string]bool{
	"/":                          true,
	"/healthz":                   true,
	"/readyz":                    true,
	"/metrics":                   true,
	"/api/v1/satellites":         true,
	"/api/v1/constellations":     true,
	"/api/v1/orbital-parameters": true,
	"/api/v1/sky":                true,
	"/api/v1/sources":            true,
	"/api/v1/residuals":          true,
	"/api/v1/kpi":                true,
	"/api/v1/bulletins":          true,
	"/api/v1/stream/forecast":    true,
}

// normalizeRoute collapses parameterized paths to their pattern and unknown
// paths to "other" so label cardinality stays bounded.
func normalizeRoute(path string) string {
	if exactRoutes[path] {
		return path
	}

	if rest, ok := strings.CutPrefix(path, "/api/v1/forecast/"); ok && singleSegment(rest) {
		return "/api/v1/forecast/{satellite_id}"
	}
	if rest, ok := strings.CutPrefix(path, "/api/v1/satellites/"); ok {
		id, tail, _ := strings.Cut(rest, "/")
		switch {
		case id != "" && tail == "" && !strings.HasSuffix(rest, "/"):
			return "/api/v1/satellites/{id}"
		case id != "" && tail == "position":
			return "/api/v1/satellites/{id}/position"
		}
	}
	if rest, ok := strings.CutPrefix(path, "/api/v1/constellations/"); ok {
		name, tail, _ := strings.Cut(rest, "/")
		if name != "" && tail == "characteristics" {
			return "/api/v1/constellations/{name}/characteristics"
		}
	}
	return "other"
}

func singleSegment(s string) bool {
	return s != "" && !strings.Contains(s, "/")
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Flush forwards to the wrapped writer so SSE handlers can stream through
// the middleware.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap exposes the wrapped writer to http.ResponseController.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Middleware records request count and duration for each request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		code := strconv.Itoa(rw.statusCode)
		route := normalizeRoute(r.URL.Path)

		httpRequestsTotal.WithLabelValues(route, r.Method, code).Inc()
		httpDurationSeconds.WithLabelValues(route, r.Method).Observe(duration)
	})
}

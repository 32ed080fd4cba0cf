package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/diiviikk5/stellar-v1k/internal/auth"
	"github.com/diiviikk5/stellar-v1k/internal/forecast"
	"github.com/diiviikk5/stellar-v1k/internal/gnss"
	"github.com/diiviikk5/stellar-v1k/internal/health"
	"github.com/diiviikk5/stellar-v1k/internal/httputil"
	"github.com/diiviikk5/stellar-v1k/internal/metrics"
	"github.com/diiviikk5/stellar-v1k/internal/orbit"
	"github.com/diiviikk5/stellar-v1k/internal/stats"
	"github.com/diiviikk5/stellar-v1k/internal/stream"
)

// Options configures the HTTP server.
type Options struct {
	Addr       string
	Auth       auth.Config
	TrustProxy bool
	// MaxResidualSamples caps n on /api/v1/residuals (default 10000).
	MaxResidualSamples int
	Stream             stream.Config
	// Now overrides the wall clock; nil uses time.Now.
	Now func() time.Time
}

// Server holds the HTTP server and its dependencies.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates a configured HTTP server. Every generated payload draws
// from src; nil selects stats.Default().
func NewServer(opts Options, logger *slog.Logger, src stats.Source) *Server {
	if src == nil {
		src = stats.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.MaxResidualSamples <= 0 {
		opts.MaxResidualSamples = 10000
	}
	opts.Stream.TrustProxy = opts.TrustProxy

	gen := forecast.New(src, forecast.WithClock(opts.Now))
	streamHandler := stream.NewHandler(gen, opts.Stream, logger)
	batch := orbit.NewBatch(0, logger)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", health.Healthz)
	mux.HandleFunc("GET /readyz", health.Readyz(referenceLoaded))
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /{$}", indexHandler)

	mux.HandleFunc("GET /api/v1/satellites", satellitesHandler)
	mux.HandleFunc("GET /api/v1/satellites/{id}", satelliteHandler)
	mux.HandleFunc("GET /api/v1/satellites/{id}/position", positionHandler(logger, opts.Now))
	mux.HandleFunc("GET /api/v1/sky", skyHandler(batch, opts.Now))
	mux.HandleFunc("GET /api/v1/constellations", constellationsHandler)
	mux.HandleFunc("GET /api/v1/constellations/{name}/characteristics", characteristicsHandler)
	mux.HandleFunc("GET /api/v1/orbital-parameters", orbitalParametersHandler)
	mux.HandleFunc("GET /api/v1/sources", sourcesHandler)

	mux.HandleFunc("GET /api/v1/forecast/{satellite_id}", forecastHandler(gen))
	mux.HandleFunc("GET /api/v1/residuals", residualsHandler(src, opts.MaxResidualSamples))
	mux.HandleFunc("GET /api/v1/kpi", kpiHandler(src, opts.Now))
	mux.HandleFunc("GET /api/v1/bulletins", bulletinsHandler(src, opts.Now))
	mux.HandleFunc("GET /api/v1/stream/forecast", streamHandler.HandleForecast)

	// Build middleware chain: metrics -> logging -> auth -> mux.
	var handler http.Handler = mux
	handler = auth.Middleware(opts.Auth)(handler)
	handler = loggingMiddleware(logger, opts.TrustProxy)(handler)
	handler = metrics.Middleware(handler)

	return &Server{
		httpServer: &http.Server{
			Addr:              opts.Addr,
			Handler:           handler,
			ReadTimeout:       10 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      10 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		logger: logger,
	}
}

// HTTPServer returns the underlying *http.Server for external control (e.g. shutdown).
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// Handler returns the full middleware chain.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

func referenceLoaded() error {
	if len(gnss.Satellites()) == 0 {
		return errors.New("reference satellite list is empty")
	}
	return nil
}

// probePath returns true for health/readiness probe paths that should not log at INFO.
func probePath(path string) bool {
	return path == "/healthz" || path == "/readyz"
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.statusCode = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Flush() {
	if f, ok := sr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (sr *statusRecorder) Unwrap() http.ResponseWriter {
	return sr.ResponseWriter
}

func loggingMiddleware(logger *slog.Logger, trustProxy bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sr := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(sr, r)

			duration := time.Since(start)
			level := slog.LevelInfo
			if probePath(r.URL.Path) {
				level = slog.LevelDebug
			}

			logger.Log(r.Context(), level, "request",
				"component", "api",
				"method", r.Method,
				"path", r.URL.Path,
				"status", strconv.Itoa(sr.statusCode),
				"duration_ms", duration.Milliseconds(),
				"remote_ip", httputil.ClientIP(r, trustProxy),
			)
		})
	}
}

// writeJSON and writeError keep handler bodies short.
func writeJSON(w http.ResponseWriter, v any) {
	httputil.WriteJSON(w, http.StatusOK, v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	httputil.WriteError(w, status, msg)
}

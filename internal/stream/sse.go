// Package stream implements Server-Sent Events (SSE) streaming of synthetic
// forecast realizations. Clients connect via GET /api/v1/stream/forecast and
// receive a freshly generated forecast for one satellite every interval.
//
// SSE message format:
//
//	data: {"type":"forecast_update","seq":3,"t":"2026-01-01T12:00:00Z","satellite_id":"G01",...}\n\n
//
// First message is always metadata:
//
//	data: {"type":"metadata","satellite_id":"G01","constellation":"GPS","signal":"clock",...}\n\n
//
// Keep-alive comments (:\n\n) are sent every KeepaliveInterval without data.
// Reconnecting clients receive a fresh metadata message on each connection.
package stream

import (
	"log/slog"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/diiviikk5/stellar-v1k/internal/forecast"
	"github.com/diiviikk5/stellar-v1k/internal/gnss"
	"github.com/diiviikk5/stellar-v1k/internal/httputil"
	"github.com/diiviikk5/stellar-v1k/internal/metrics"
)

const (
	defaultInterval = 5
	maxInterval     = 60

	// previewPoints is the number of leading forecast points (one hour at
	// 15-minute spacing) carried in each update.
	previewPoints = 4
)

// Config holds streaming configuration.
type Config struct {
	MaxConcurrentPerIP int           // Max concurrent streams per IP (default: 10).
	MaxTotal           int           // Global stream cap (default: 1000).
	KeepaliveInterval  time.Duration // Keep-alive ping interval (default: 30s).
	MinInterval        time.Duration // Smallest update interval a client may request (default: 1s).
	TrustProxy         bool
}

// Handler manages SSE streaming connections.
type Handler struct {
	gen     *forecast.Generator
	config  Config
	limiter *streamLimiter
	logger  *slog.Logger
}

// NewHandler creates a streaming handler that draws realizations from gen.
func NewHandler(gen *forecast.Generator, config Config, logger *slog.Logger) *Handler {
	if config.KeepaliveInterval <= 0 {
		config.KeepaliveInterval = 30 * time.Second
	}
	if config.MinInterval < time.Second {
		config.MinInterval = time.Second
	}
	if config.MaxConcurrentPerIP <= 0 {
		config.MaxConcurrentPerIP = 10
	}
	return &Handler{
		gen:     gen,
		config:  config,
		limiter: newStreamLimiter(config.MaxConcurrentPerIP, config.MaxTotal),
		logger:  logger,
	}
}

// HandleForecast serves the SSE forecast stream.
// GET /api/v1/stream/forecast?satellite=G01&signal=clock&interval=5
func (h *Handler) HandleForecast(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	signal, err := forecast.ParseSignal(q.Get("signal"))
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid signal parameter, must be clock, radial, along or cross")
		return
	}

	minInterval := int(h.config.MinInterval / time.Second)
	if minInterval > maxInterval {
		minInterval = maxInterval
	}
	def := max(defaultInterval, minInterval)
	interval, err := httputil.QueryInt(r, "interval", def, minInterval, maxInterval)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	sat := gnss.ResolveSatellite(q.Get("satellite"))

	ip := httputil.ClientIP(r, h.config.TrustProxy)
	if !h.limiter.acquire(ip) {
		metrics.IncStreamErrors("rate_limit")
		h.logger.Warn("stream rate limit exceeded",
			"remote_ip", ip,
			"current_count", h.limiter.count(ip),
		)
		w.Header().Set("Retry-After", "30")
		httputil.WriteError(w, http.StatusTooManyRequests, "too many concurrent streams")
		return
	}

	metrics.IncStreamConnections("connect")
	metrics.IncStreamsActive()

	startTime := time.Now()
	h.logger.Info("stream connected",
		"remote_ip", ip,
		"user_agent", r.Header.Get("User-Agent"),
		"satellite", sat.ID,
		"signal", signal,
		"interval", interval,
	)

	c := &client{ip: ip, logger: h.logger}
	defer func() {
		h.limiter.release(ip)
		metrics.IncStreamConnections("disconnect")
		metrics.DecStreamsActive()
		h.logger.Info("stream disconnected",
			"remote_ip", ip,
			"duration_seconds", int(time.Since(startTime).Seconds()),
			"messages", c.messagesSent,
			"bytes", c.bytesSent,
		)
	}()

	flusher, ok := w.(http.Flusher)
	if !ok {
		httputil.WriteError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering.
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	// Clear the server's default WriteTimeout; client extends it per write.
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		h.logger.Debug("could not clear write deadline", "error", err)
	}
	c.w, c.flusher, c.rc = w, flusher, rc

	// Jittered retry (3-7s) spreads reconnects after a restart.
	if err := c.sendRetry(3000 + rand.IntN(4000)); err != nil {
		metrics.IncStreamErrors("send_error")
		return
	}

	res := h.generate(sat.ID, signal)
	meta := metadataMessage{
		Type:            "metadata",
		SatelliteID:     res.SatelliteID,
		Constellation:   res.Constellation,
		Signal:          res.Signal,
		BaseRMS:         res.BaseRMS,
		IntervalSeconds: interval,
		StepMinutes:     int(forecast.Step / time.Minute),
	}
	if err := c.sendJSON(meta); err != nil {
		metrics.IncStreamErrors("send_error")
		h.logger.Warn("stream send error (metadata)", "remote_ip", ip, "error", err)
		return
	}

	seq := 1
	if err := c.sendJSON(buildUpdateMessage(seq, res)); err != nil {
		metrics.IncStreamErrors("send_error")
		h.logger.Warn("stream send error", "remote_ip", ip, "error", err)
		return
	}

	ticker := time.NewTicker(time.Duration(interval) * time.Second)
	defer ticker.Stop()

	keepaliveTicker := time.NewTicker(h.config.KeepaliveInterval)
	defer keepaliveTicker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			seq++
			res := h.generate(sat.ID, signal)
			if err := c.sendJSON(buildUpdateMessage(seq, res)); err != nil {
				metrics.IncStreamErrors("send_error")
				h.logger.Warn("stream send error", "remote_ip", ip, "error", err)
				return
			}
			keepaliveTicker.Reset(h.config.KeepaliveInterval)

		case <-keepaliveTicker.C:
			if err := c.sendKeepalive(); err != nil {
				metrics.IncStreamErrors("send_error")
				h.logger.Warn("stream keepalive error", "remote_ip", ip, "error", err)
				return
			}
		}
	}
}

func (h *Handler) generate(id string, signal forecast.Signal) forecast.Result {
	start := time.Now()
	res := h.gen.Generate(id, signal)
	metrics.RecordGeneration("stream_forecast", time.Since(start))
	return res
}

// buildUpdateMessage trims a realization to the current value and the
// leading forecast points.
func buildUpdateMessage(seq int, res forecast.Result) forecastUpdateMessage {
	n := min(previewPoints, len(res.Forecast))
	points := make([]forecast.Point, n)
	copy(points, res.Forecast[:n])

	var uncertainty float64
	if n > 0 {
		uncertainty = points[0].Uncertainty
	}
	return forecastUpdateMessage{
		Type:        "forecast_update",
		Seq:         seq,
		T:           res.GeneratedAt.UTC().Format(time.RFC3339),
		SatelliteID: res.SatelliteID,
		Signal:      res.Signal,
		Current:     res.Current,
		Uncertainty: uncertainty,
		Points:      points,
	}
}

// SSE message payload types.

type metadataMessage struct {
	Type            string             `json:"type"`
	SatelliteID     string             `json:"satellite_id"`
	Constellation   gnss.Constellation `json:"constellation"`
	Signal          forecast.Signal    `json:"signal"`
	BaseRMS         float64            `json:"base_rms"`
	IntervalSeconds int                `json:"interval_seconds"`
	StepMinutes     int                `json:"step_minutes"`
}

type forecastUpdateMessage struct {
	Type        string           `json:"type"`
	Seq         int              `json:"seq"`
	T           string           `json:"t"`
	SatelliteID string           `json:"satellite_id"`
	Signal      forecast.Signal  `json:"signal"`
	Current     float64          `json:"current"`
	Uncertainty float64          `json:"uncertainty"`
	Points      []forecast.Point `json:"points"`
}

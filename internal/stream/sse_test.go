package stream

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/diiviikk5/stellar-v1k/internal/forecast"
	"github.com/diiviikk5/stellar-v1k/internal/stats"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
}

var testNow = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func testGenerator() *forecast.Generator {
	return forecast.New(stats.NewSeeded(7), forecast.WithClock(func() time.Time { return testNow }))
}

func testConfig() Config {
	return Config{
		MaxConcurrentPerIP: 10,
		KeepaliveInterval:  30 * time.Second,
		MinInterval:        time.Second,
	}
}

// dataMessages decodes every "data: " line of an SSE body.
func dataMessages(t *testing.T, body string) []map[string]any {
	t.Helper()
	var out []map[string]any
	scanner := bufio.NewScanner(strings.NewReader(body))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var msg map[string]any
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &msg); err != nil {
			t.Errorf("invalid JSON in SSE data line: %v", err)
			continue
		}
		out = append(out, msg)
	}
	return out
}

// TestBuildUpdateMessage verifies the forecast_update payload structure.
func TestBuildUpdateMessage(t *testing.T) {
	res := testGenerator().Generate("E01", forecast.SignalRadial)

	msg := buildUpdateMessage(3, res)

	if msg.Type != "forecast_update" {
		t.Errorf("type = %q, want %q", msg.Type, "forecast_update")
	}
	if msg.Seq != 3 {
		t.Errorf("seq = %d, want 3", msg.Seq)
	}
	if msg.T != "2026-01-01T12:00:00Z" {
		t.Errorf("t = %q, want %q", msg.T, "2026-01-01T12:00:00Z")
	}
	if msg.SatelliteID != "E01" || msg.Signal != forecast.SignalRadial {
		t.Errorf("satellite/signal = %s/%s, want E01/radial", msg.SatelliteID, msg.Signal)
	}
	if msg.Current != res.Current {
		t.Errorf("current = %v, want %v", msg.Current, res.Current)
	}
	if len(msg.Points) != previewPoints {
		t.Fatalf("points = %d, want %d", len(msg.Points), previewPoints)
	}
	if msg.Uncertainty != res.Forecast[0].Uncertainty {
		t.Errorf("uncertainty = %v, want first forecast point's %v", msg.Uncertainty, res.Forecast[0].Uncertainty)
	}
	for i, p := range msg.Points {
		if p.Epoch != res.Forecast[i].Epoch || p.Value != res.Forecast[i].Value {
			t.Errorf("point %d does not match forecast", i)
		}
	}
}

// TestBuildUpdateMessageShortForecast covers a realization with fewer points
// than the preview window.
func TestBuildUpdateMessageShortForecast(t *testing.T) {
	res := forecast.Result{
		SatelliteID: "G01",
		Signal:      forecast.SignalClock,
		GeneratedAt: testNow,
		Forecast:    []forecast.Point{{Epoch: 1, Uncertainty: 1.04}},
	}
	msg := buildUpdateMessage(1, res)
	if len(msg.Points) != 1 {
		t.Fatalf("points = %d, want 1", len(msg.Points))
	}
	if msg.Uncertainty != 1.04 {
		t.Errorf("uncertainty = %v, want 1.04", msg.Uncertainty)
	}

	empty := buildUpdateMessage(1, forecast.Result{GeneratedAt: testNow})
	if len(empty.Points) != 0 || empty.Uncertainty != 0 {
		t.Errorf("empty forecast produced %d points, uncertainty %v", len(empty.Points), empty.Uncertainty)
	}
}

// TestMetadataMessageJSON verifies the metadata message format.
func TestMetadataMessageJSON(t *testing.T) {
	msg := metadataMessage{
		Type:            "metadata",
		SatelliteID:     "R01",
		Constellation:   "GLONASS",
		Signal:          forecast.SignalClock,
		BaseRMS:         8,
		IntervalSeconds: 5,
		StepMinutes:     15,
	}

	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatal(err)
	}

	var parsed map[string]any
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatal(err)
	}

	if parsed["type"] != "metadata" {
		t.Errorf("type = %v, want metadata", parsed["type"])
	}
	if parsed["constellation"] != "GLONASS" {
		t.Errorf("constellation = %v, want GLONASS", parsed["constellation"])
	}
	if parsed["interval_seconds"].(float64) != 5 {
		t.Errorf("interval_seconds = %v, want 5", parsed["interval_seconds"])
	}
	if parsed["step_minutes"].(float64) != 15 {
		t.Errorf("step_minutes = %v, want 15", parsed["step_minutes"])
	}
}

// TestSSEMessageFormat verifies the SSE wire format: "data: {json}\n\n".
func TestSSEMessageFormat(t *testing.T) {
	handler := NewHandler(testGenerator(), testConfig(), testLogger())

	req := httptest.NewRequest("GET", "/api/v1/stream/forecast?satellite=c01&signal=along&interval=1", nil)
	req.RemoteAddr = "127.0.0.1:12345"

	ctx, cancel := context.WithTimeout(req.Context(), 1500*time.Millisecond)
	defer cancel()
	req = req.WithContext(ctx)

	w := httptest.NewRecorder()
	handler.HandleForecast(w, req)

	resp := w.Result()
	if resp.Header.Get("Content-Type") != "text/event-stream" {
		t.Errorf("Content-Type = %q, want text/event-stream", resp.Header.Get("Content-Type"))
	}
	if resp.Header.Get("Cache-Control") != "no-cache" {
		t.Errorf("Cache-Control = %q, want no-cache", resp.Header.Get("Cache-Control"))
	}

	body := w.Body.String()
	if !strings.HasPrefix(body, "retry: ") {
		t.Errorf("body should open with a retry directive, got %q", body[:min(len(body), 20)])
	}

	msgs := dataMessages(t, body)
	if len(msgs) < 2 {
		t.Fatalf("got %d data messages, want metadata plus at least one update", len(msgs))
	}
	if msgs[0]["type"] != "metadata" {
		t.Errorf("first message type = %v, want metadata", msgs[0]["type"])
	}
	if msgs[0]["satellite_id"] != "C01" || msgs[0]["constellation"] != "BeiDou" {
		t.Errorf("metadata = %v, want C01/BeiDou", msgs[0])
	}
	if msgs[0]["signal"] != "along" {
		t.Errorf("metadata signal = %v, want along", msgs[0]["signal"])
	}

	for i, m := range msgs[1:] {
		if m["type"] != "forecast_update" {
			t.Errorf("message %d type = %v, want forecast_update", i+1, m["type"])
		}
		if seq := m["seq"].(float64); int(seq) != i+1 {
			t.Errorf("message %d seq = %v, want %d", i+1, seq, i+1)
		}
		points, ok := m["points"].([]any)
		if !ok || len(points) != previewPoints {
			t.Errorf("message %d points = %v", i+1, m["points"])
		}
	}

	// Lines should be "data: ...", "retry: ...", ":" (keepalive) or empty.
	for _, line := range strings.Split(body, "\n") {
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "data: ") && !strings.HasPrefix(line, "retry: ") && line != ":" {
			t.Errorf("unexpected SSE line: %q", line)
		}
	}
}

// TestUnknownSatelliteStreamsFirst verifies unknown IDs resolve the same way
// the forecast endpoint does.
func TestUnknownSatelliteStreamsFirst(t *testing.T) {
	handler := NewHandler(testGenerator(), testConfig(), testLogger())

	req := httptest.NewRequest("GET", "/api/v1/stream/forecast?satellite=NOPE", nil)
	req.RemoteAddr = "127.0.0.1:12345"
	ctx, cancel := context.WithTimeout(req.Context(), 100*time.Millisecond)
	defer cancel()

	w := httptest.NewRecorder()
	handler.HandleForecast(w, req.WithContext(ctx))

	msgs := dataMessages(t, w.Body.String())
	if len(msgs) == 0 {
		t.Fatal("no messages")
	}
	if msgs[0]["satellite_id"] != "G01" {
		t.Errorf("satellite_id = %v, want G01", msgs[0]["satellite_id"])
	}
	if msgs[0]["signal"] != "clock" {
		t.Errorf("signal = %v, want clock default", msgs[0]["signal"])
	}
}

// TestRateLimiting verifies per-IP concurrent stream limits.
func TestRateLimiting(t *testing.T) {
	limiter := newStreamLimiter(3, 0)

	for i := 0; i < 3; i++ {
		if !limiter.acquire("10.0.0.1") {
			t.Fatalf("acquire %d should succeed", i+1)
		}
	}

	if limiter.acquire("10.0.0.1") {
		t.Error("acquire beyond limit should fail")
	}

	if !limiter.acquire("10.0.0.2") {
		t.Error("different IP should not be rate limited")
	}

	limiter.release("10.0.0.1")
	if !limiter.acquire("10.0.0.1") {
		t.Error("acquire after release should succeed")
	}

	if c := limiter.count("10.0.0.1"); c != 3 {
		t.Errorf("count = %d, want 3", c)
	}
	if c := limiter.count("10.0.0.2"); c != 1 {
		t.Errorf("count = %d, want 1", c)
	}
}

// TestGlobalLimit verifies the total cap applies across IPs.
func TestGlobalLimit(t *testing.T) {
	limiter := newStreamLimiter(5, 2)

	if !limiter.acquire("10.0.0.1") || !limiter.acquire("10.0.0.2") {
		t.Fatal("first two acquires should succeed")
	}
	if limiter.acquire("10.0.0.3") {
		t.Error("acquire beyond global cap should fail")
	}
	if c := limiter.totalCount(); c != 2 {
		t.Errorf("total = %d, want 2", c)
	}
}

// TestReleaseUnknownIP verifies a stray release does not drive counts negative.
func TestReleaseUnknownIP(t *testing.T) {
	limiter := newStreamLimiter(1, 0)
	limiter.release("10.0.0.9")
	if c := limiter.totalCount(); c != 0 {
		t.Errorf("total = %d, want 0", c)
	}
	if !limiter.acquire("10.0.0.9") {
		t.Error("acquire after stray release should succeed")
	}
}

// TestRateLimitingConcurrent verifies rate limiter thread safety.
func TestRateLimitingConcurrent(t *testing.T) {
	limiter := newStreamLimiter(100, 0)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if limiter.acquire("10.0.0.1") {
				defer limiter.release("10.0.0.1")
				time.Sleep(10 * time.Millisecond)
			}
		}()
	}
	wg.Wait()

	if c := limiter.count("10.0.0.1"); c != 0 {
		t.Errorf("count after all released = %d, want 0", c)
	}
}

// TestRateLimitHTTPResponse verifies 429 response when limit exceeded.
func TestRateLimitHTTPResponse(t *testing.T) {
	cfg := testConfig()
	cfg.MaxConcurrentPerIP = 1
	handler := NewHandler(testGenerator(), cfg, testLogger())

	ready := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		req := httptest.NewRequest("GET", "/api/v1/stream/forecast", nil)
		req.RemoteAddr = "10.0.0.1:12345"
		ctx, cancel := context.WithCancel(req.Context())
		req = req.WithContext(ctx)
		w := httptest.NewRecorder()

		go func() {
			time.Sleep(50 * time.Millisecond)
			close(ready)
			time.Sleep(200 * time.Millisecond)
			cancel()
		}()

		handler.HandleForecast(w, req)
	}()

	<-ready

	req := httptest.NewRequest("GET", "/api/v1/stream/forecast", nil)
	req.RemoteAddr = "10.0.0.1:54321"
	w := httptest.NewRecorder()
	handler.HandleForecast(w, req)

	if w.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want %d", w.Code, http.StatusTooManyRequests)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After header")
	}

	<-done
	if c := handler.limiter.count("10.0.0.1"); c != 0 {
		t.Errorf("slot not released after disconnect, count = %d", c)
	}
}

// TestInvalidQueryParams verifies error responses for bad signal/interval values.
func TestInvalidQueryParams(t *testing.T) {
	cfg := testConfig()
	cfg.MinInterval = 2 * time.Second
	handler := NewHandler(testGenerator(), cfg, testLogger())

	tests := []struct {
		name  string
		query string
	}{
		{"unknown signal", "?signal=doppler"},
		{"interval zero", "?interval=0"},
		{"interval below minimum", "?interval=1"},
		{"interval too large", "?interval=61"},
		{"interval non-numeric", "?interval=abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/v1/stream/forecast"+tt.query, nil)
			req.RemoteAddr = "127.0.0.1:12345"
			w := httptest.NewRecorder()
			handler.HandleForecast(w, req)

			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
			}
			if c := handler.limiter.count("127.0.0.1"); c != 0 {
				t.Errorf("rejected request held a stream slot")
			}
		})
	}
}

// TestNewHandlerDefaults verifies zero config values are replaced.
func TestNewHandlerDefaults(t *testing.T) {
	h := NewHandler(testGenerator(), Config{}, testLogger())
	if h.config.KeepaliveInterval != 30*time.Second {
		t.Errorf("keepalive = %v, want 30s", h.config.KeepaliveInterval)
	}
	if h.config.MinInterval != time.Second {
		t.Errorf("min interval = %v, want 1s", h.config.MinInterval)
	}
	if h.limiter.maxPerIP != 10 || h.limiter.maxTotal != defaultMaxTotal {
		t.Errorf("limits = %d/%d, want 10/%d", h.limiter.maxPerIP, h.limiter.maxTotal, defaultMaxTotal)
	}
}

// TestKeepaliveFormat verifies keep-alive is an SSE comment.
func TestKeepaliveFormat(t *testing.T) {
	if keepaliveFrame != ":\n\n" {
		t.Errorf("keepalive = %q, want %q", keepaliveFrame, ":\n\n")
	}
}

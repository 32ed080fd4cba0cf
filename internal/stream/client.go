package stream

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/diiviikk5/stellar-v1k/internal/metrics"
)

const writeTimeout = 30 * time.Second

// client owns the write side of one SSE connection.
type client struct {
	w       http.ResponseWriter
	flusher http.Flusher
	rc      *http.ResponseController
	ip      string
	logger  *slog.Logger

	messagesSent int64
	bytesSent    int64
}

// extendDeadline pushes the write deadline out before each write so the
// server's WriteTimeout does not cut a long-lived stream.
func (c *client) extendDeadline() {
	if err := c.rc.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		c.logger.Debug("could not set write deadline", "error", err)
	}
}

// sendJSON writes v as a single "data: {json}\n\n" event.
func (c *client) sendJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("json marshal: %w", err)
	}

	c.extendDeadline()
	n, err := fmt.Fprintf(c.w, "data: %s\n\n", data)
	if err != nil {
		return fmt.Errorf("write: %w", err)
	}

	c.flusher.Flush()
	c.messagesSent++
	c.bytesSent += int64(n)
	metrics.IncStreamMessages()
	metrics.AddStreamBytes(int64(n))
	return nil
}

// sendRetry tells the browser how long to wait before reconnecting.
func (c *client) sendRetry(ms int) error {
	n, err := fmt.Fprintf(c.w, "retry: %d\n\n", ms)
	if err != nil {
		return fmt.Errorf("retry write: %w", err)
	}
	c.flusher.Flush()
	c.bytesSent += int64(n)
	metrics.AddStreamBytes(int64(n))
	return nil
}

// sendKeepalive writes an SSE comment (":\n\n").
func (c *client) sendKeepalive() error {
	c.extendDeadline()
	n, err := fmt.Fprint(c.w, keepaliveFrame)
	if err != nil {
		return fmt.Errorf("keepalive write: %w", err)
	}

	c.flusher.Flush()
	c.bytesSent += int64(n)
	metrics.AddStreamBytes(int64(n))
	return nil
}

const keepaliveFrame = ":\n\n"

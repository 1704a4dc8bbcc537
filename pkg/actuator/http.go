package actuator

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/teslashibe/go-drowsy/internal/httpc"
	"github.com/teslashibe/go-drowsy/pkg/drowsiness"
)

// HTTP posts alerts to a remote indicator (e.g. a microcontroller on the
// vehicle network).
type HTTP struct {
	url      string
	duration time.Duration
}

// PulseRequest is the JSON body sent by the HTTP actuator.
type PulseRequest struct {
	Kind       drowsiness.Kind `json:"kind"`
	DurationMs int64           `json:"duration_ms"`
}

// NewHTTP creates an HTTP actuator.
func NewHTTP(url string, duration time.Duration) *HTTP {
	return &HTTP{url: url, duration: duration}
}

// Pulse posts the alert and returns once the endpoint acknowledges it.
func (h *HTTP) Pulse(ctx context.Context, kind drowsiness.Kind) error {
	body, err := json.Marshal(PulseRequest{Kind: kind, DurationMs: h.duration.Milliseconds()})
	if err != nil {
		return fmt.Errorf("marshal pulse: %w", err)
	}

	resp, err := httpc.PostJSON(ctx, h.url, body)
	if err != nil {
		return fmt.Errorf("post pulse: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("indicator returned %d", resp.StatusCode)
	}
	return nil
}

// Close is a no-op.
func (h *HTTP) Close() error {
	return nil
}

package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// maxErrorBodySize caps how much of an error response body is read back
// for diagnostics.
const maxErrorBodySize int64 = 64 * 1024

// postStream POSTs body as JSON and returns the open response body for
// incremental reading. The returned cancel func must be called when reading
// stops; it aborts the underlying request so a disconnected client never
// drains the upstream to completion.
//
// When idle is non-zero, a watchdog cancels the request when a read waits
// longer than the window for the next chunk, so a hung backend ends the
// stream instead of stalling the relay indefinitely.
func postStream(ctx context.Context, client *http.Client, url string, body any, idle time.Duration) (io.ReadCloser, context.CancelFunc, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		cancel()
		return nil, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		cancel()
		return nil, nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		resp.Body.Close()
		cancel()
		return nil, nil, fmt.Errorf("%w: %s - %s", ErrBackendUnavailable, resp.Status, string(errBody))
	}

	rc := resp.Body
	if idle > 0 {
		rc = newIdleReader(resp.Body, idle, cancel)
	}
	return rc, cancel, nil
}

// idleReader cancels the request context when a single Read stays blocked
// longer than the idle window. The timer is armed only while a Read is in
// flight: the relay is pull-driven, and time the consumer spends between
// pulls must not count against the upstream.
type idleReader struct {
	rc    io.ReadCloser
	idle  time.Duration
	timer *time.Timer
}

func newIdleReader(rc io.ReadCloser, idle time.Duration, cancel context.CancelFunc) *idleReader {
	timer := time.AfterFunc(idle, cancel)
	timer.Stop()
	return &idleReader{
		rc:    rc,
		idle:  idle,
		timer: timer,
	}
}

func (r *idleReader) Read(p []byte) (int, error) {
	r.timer.Reset(r.idle)
	n, err := r.rc.Read(p)
	r.timer.Stop()
	return n, err
}

func (r *idleReader) Close() error {
	r.timer.Stop()
	return r.rc.Close()
}

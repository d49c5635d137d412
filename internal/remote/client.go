// Package remote submits finished inspection records to the shared upsert
// endpoint, keyed by panel serial.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const userAgent = "quality-master/1.0 (compatible; Go)"

var (
	ErrSerialRequired = errors.New("remote: panel serial is required")
	ErrNoEndpoint     = errors.New("remote: no endpoint configured")
	ErrRejected       = errors.New("remote: record rejected")
)

// Result is the endpoint's reply.
type Result struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Details string `json:"details,omitempty"`
}

type request struct {
	Serial string          `json:"serial"`
	Data   json.RawMessage `json:"data"`
}

// Client posts records to one endpoint. The endpoint upserts on serial, so
// submitting the same record twice is harmless.
type Client struct {
	URL  string
	HTTP *http.Client
}

// New returns a client with a 30 second timeout.
func New(url string) *Client {
	return &Client{URL: url, HTTP: &http.Client{Timeout: 30 * time.Second}}
}

// Save submits data under serial. A reply with success=false is returned
// along with an error wrapping ErrRejected.
func (c *Client) Save(ctx context.Context, serial string, data json.RawMessage) (Result, error) {
	serial = strings.TrimSpace(serial)
	if serial == "" {
		return Result{}, ErrSerialRequired
	}
	if c.URL == "" {
		return Result{}, ErrNoEndpoint
	}
	if len(data) == 0 {
		return Result{}, errors.New("remote: record data is required")
	}

	body, err := json.Marshal(request{Serial: serial, Data: data})
	if err != nil {
		return Result{}, fmt.Errorf("encoding request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	hc := c.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("posting to %s: %w", c.URL, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Result{}, fmt.Errorf("reading response body: %w", err)
	}

	var res Result
	if err := json.Unmarshal(raw, &res); err != nil {
		return Result{}, fmt.Errorf("HTTP %d from %s: unreadable reply: %w", resp.StatusCode, c.URL, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !res.Success {
		msg := res.Error
		if res.Details != "" {
			msg += ": " + res.Details
		}
		return res, fmt.Errorf("%w: HTTP %d: %s", ErrRejected, resp.StatusCode, msg)
	}
	return res, nil
}

// Package fetch performs single static HTTP GETs with a hard time budget.
package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// DefaultTimeout is the hard budget for one static fetch.
const DefaultTimeout = 15 * time.Second

type Fetcher struct {
	client *http.Client
	logger *slog.Logger
}

func New(timeout time.Duration, logger *slog.Logger) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Fetcher{
		client: &http.Client{Timeout: timeout},
		logger: logger.With("component", "fetcher"),
	}
}

// Fetch performs one GET with the supplied headers and returns the raw
// document body. Connection failures, timeouts and non-2xx statuses come
// back as errors; no retry is performed here.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string, headers http.Header) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}
	for key, values := range headers {
		for _, v := range values {
			req.Header.Set(key, v)
		}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status: %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}

	f.logger.Debug("fetched document", "url", rawURL, "bytes", len(body))
	return body, nil
}

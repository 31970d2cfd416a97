// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/pdiddy/bibclean/pkg/types"
)

// maxPageBytes caps how much of a response body Fetch reads.
const maxPageBytes = 16 << 20

// StatusError reports a non-success HTTP response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetching %s: HTTP %d", e.URL, e.StatusCode)
}

// Fetcher retrieves result pages over HTTP.
type Fetcher struct {
	client    *http.Client
	userAgent string
	policy    RetryPolicy
	log       *zap.Logger
}

// NewFetcher returns a Fetcher configured from cfg.
func NewFetcher(cfg types.HTTPConfig, log *zap.Logger) *Fetcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Fetcher{
		client:    &http.Client{Timeout: cfg.Timeout},
		userAgent: cfg.UserAgent,
		policy:    PolicyFor(cfg),
		log:       log,
	}
}

// Fetch downloads url and returns the body as a string. Rate-limited
// requests are retried; any other non-2xx response is a *StatusError.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := DoWithRetry(ctx, f.client, req, f.policy, f.log)
	if err != nil {
		return "", fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &StatusError{URL: url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", url, err)
	}
	f.log.Debug("fetched page", zap.String("url", url), zap.Int("bytes", len(body)))
	return string(body), nil
}

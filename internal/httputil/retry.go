// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil fetches search result pages for the CLI. The
// extraction core never performs I/O; hosts fetch markup here and hand it
// over as a string.
package httputil

import (
	"context"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/bibclean/pkg/types"
)

// RetryBaseDelay is the first backoff on HTTP 429 when the server sends no
// Retry-After. Tests override it to avoid real sleeps.
var RetryBaseDelay = 10 * time.Second

// now is replaced in tests that resolve Retry-After dates.
var now = time.Now

const (
	defaultMaxRetries = 5
	defaultMaxBackoff = 2 * time.Minute
)

// RetryPolicy bounds how DoWithRetry waits out rate limiting.
type RetryPolicy struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int

	// MaxBackoff caps any single wait, including one a server asks for.
	MaxBackoff time.Duration
}

// PolicyFor returns the retry policy of cfg with defaults filled in.
func PolicyFor(cfg types.HTTPConfig) RetryPolicy {
	p := RetryPolicy{MaxRetries: cfg.MaxRetries, MaxBackoff: cfg.MaxBackoff}
	if p.MaxRetries <= 0 {
		p.MaxRetries = defaultMaxRetries
	}
	if p.MaxBackoff <= 0 {
		p.MaxBackoff = defaultMaxBackoff
	}
	return p
}

// DoWithRetry executes req and retries on HTTP 429 (Too Many Requests).
// Each wait is the server's Retry-After when it sends one, otherwise
// RetryBaseDelay doubled per attempt, capped at policy.MaxBackoff.
//
// Zero policy fields select the defaults. On each 429 the response body is
// drained and closed before sleeping. If the context is cancelled during a
// wait the function returns ctx.Err(). After exhausting retries the last
// 429 response is returned so the caller can inspect it.
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, policy RetryPolicy, log *zap.Logger) (*http.Response, error) {
	policy = PolicyFor(types.HTTPConfig{MaxRetries: policy.MaxRetries, MaxBackoff: policy.MaxBackoff})
	if log == nil {
		log = zap.NewNop()
	}

	for attempt := 0; ; attempt++ {
		resp, err := client.Do(req.Clone(ctx))
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusTooManyRequests || attempt >= policy.MaxRetries {
			return resp, nil
		}

		wait, fromServer := retryAfter(resp.Header.Get("Retry-After"))
		if !fromServer {
			wait = time.Duration(math.Pow(2, float64(attempt))) * RetryBaseDelay
		}
		wait = min(wait, policy.MaxBackoff)

		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		log.Warn("rate limited, backing off",
			zap.String("url", req.URL.Redacted()),
			zap.Duration("backoff", wait),
			zap.Bool("retry_after", fromServer),
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", policy.MaxRetries))

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
}

// retryAfter parses a Retry-After value, either delay seconds or an HTTP
// date. Dates in the past mean no wait.
func retryAfter(v string) (time.Duration, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0, false
		}
		return time.Duration(secs) * time.Second, true
	}
	t, err := http.ParseTime(v)
	if err != nil {
		return 0, false
	}
	return max(t.Sub(now()), 0), true
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers shared by the generation backends.
package httputil

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

// RetryBaseDelay controls the base duration for exponential backoff on
// overloaded responses. Tests override this to avoid real sleeps.
var RetryBaseDelay = 2 * time.Second

// maxRetryAfter caps how long a server-provided Retry-After may stall a call.
const maxRetryAfter = 2 * time.Minute

const defaultMaxRetries = 4

// Overloaded reports whether status signals a temporary capacity problem
// worth waiting out: 429 Too Many Requests, 503 Service Unavailable, or
// 529 (Anthropic's overloaded status).
func Overloaded(status int) bool {
	switch status {
	case http.StatusTooManyRequests, http.StatusServiceUnavailable, 529:
		return true
	}
	return false
}

// DoWithRetry executes req and retries while the response is Overloaded.
// The delay starts at RetryBaseDelay and doubles each attempt unless the
// server sends a Retry-After header in seconds.
//
// When maxRetries is 0 the default (4) is used. The request body is rewound
// through req.GetBody before every retry, so POST requests built with
// http.NewRequestWithContext over a bytes.Reader are safe to retry. If the
// context is cancelled during a backoff wait the function returns ctx.Err().
// After exhausting retries the last overloaded response is returned so the
// caller can inspect it.
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, maxRetries int) (*http.Response, error) {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	if client == nil {
		client = http.DefaultClient
	}

	for attempt := 0; ; attempt++ {
		clone := req.Clone(ctx)
		if attempt > 0 && req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, err
			}
			clone.Body = body
		}

		resp, err := client.Do(clone)
		if err != nil {
			return nil, err
		}

		if !Overloaded(resp.StatusCode) || attempt >= maxRetries {
			return resp, nil
		}

		wait := backoff(attempt, resp.Header.Get("Retry-After"))
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		slog.Default().Debug("generation backend overloaded, retrying",
			slog.Int("status", resp.StatusCode),
			slog.Duration("wait", wait),
			slog.Int("attempt", attempt+1),
			slog.Int("max_retries", maxRetries))

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
}

// backoff returns the Retry-After duration when the header holds a valid
// number of seconds, otherwise RetryBaseDelay * 2^attempt.
func backoff(attempt int, retryAfter string) time.Duration {
	if secs, err := strconv.Atoi(retryAfter); err == nil && secs >= 0 {
		d := time.Duration(secs) * time.Second
		if d > maxRetryAfter {
			d = maxRetryAfter
		}
		return d
	}
	return RetryBaseDelay << uint(attempt)
}

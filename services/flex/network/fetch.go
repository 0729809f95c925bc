// Copyright (C) 2025 The FLEX-Go Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package network

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/time/rate"
)

const (
	// defaultFetchTimeout bounds a single download attempt.
	defaultFetchTimeout = 60 * time.Second

	// defaultFetchRetries is the attempt budget per URL.
	defaultFetchRetries = 3

	// retryBackoff is multiplied by the attempt number between retries.
	retryBackoff = 2 * time.Second
)

// Fetcher downloads network files over HTTP with client-side rate
// limiting and bounded retries. Gzip payloads are decompressed
// transparently, whether flagged by the file suffix or detected from
// the payload itself.
//
// Thread Safety: safe for concurrent use.
type Fetcher struct {
	client  *http.Client
	limiter *rate.Limiter
	retries int
	backoff time.Duration
	log     *slog.Logger
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) FetcherOption {
	return func(f *Fetcher) {
		if c != nil {
			f.client = c
		}
	}
}

// WithRetries sets the attempt budget per URL. Values below 1 are
// clamped to 1.
func WithRetries(n int) FetcherOption {
	return func(f *Fetcher) {
		if n < 1 {
			n = 1
		}
		f.retries = n
	}
}

// WithRateLimit caps outbound requests at r per second with the given
// burst. Public genomics mirrors throttle aggressive clients, so the
// default is deliberately polite.
func WithRateLimit(r rate.Limit, burst int) FetcherOption {
	return func(f *Fetcher) {
		f.limiter = rate.NewLimiter(r, burst)
	}
}

// WithFetchLogger sets the structured logger used for retry warnings.
func WithFetchLogger(log *slog.Logger) FetcherOption {
	return func(f *Fetcher) {
		if log != nil {
			f.log = log
		}
	}
}

// NewFetcher builds a Fetcher with a 60s per-attempt timeout, 3
// attempts per URL, and a 2 req/s rate limit.
func NewFetcher(opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		client:  &http.Client{Timeout: defaultFetchTimeout},
		limiter: rate.NewLimiter(rate.Every(500*time.Millisecond), 1),
		retries: defaultFetchRetries,
		backoff: retryBackoff,
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch downloads url and returns the decompressed payload.
//
// Description:
//
//	Waits for the rate limiter, then attempts the download up to the
//	configured retry budget with linear backoff between attempts. A
//	404 fails immediately since retrying cannot help. All failures
//	wrap ErrFetchFailed.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= f.retries; attempt++ {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}

		payload, retryable, err := f.fetchOnce(ctx, url)
		if err == nil {
			recordFetch(ctx, true)
			return payload, nil
		}
		lastErr = err
		recordFetch(ctx, false)
		if !retryable {
			break
		}
		if attempt < f.retries {
			f.log.Warn("network fetch failed, retrying",
				"url", url,
				"attempt", attempt,
				"error", err)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * f.backoff):
			}
		}
	}
	return nil, fmt.Errorf("%w: %s: %v", ErrFetchFailed, url, lastErr)
}

// fetchOnce performs a single GET. The second return reports whether
// the failure is worth retrying.
func (f *Fetcher) fetchOnce(ctx context.Context, url string) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, fmt.Errorf("build request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, true, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, false, fmt.Errorf("status %s", resp.Status)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, true, fmt.Errorf("status %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("read body: %w", err)
	}
	return maybeGunzip(body)
}

// FetchFile returns the payload for url, serving from cachePath when a
// cached copy exists and downloading otherwise. A fresh download is
// written back to cachePath; a write failure is logged and the payload
// is still returned, since the caller's import can proceed without the
// cache.
func (f *Fetcher) FetchFile(ctx context.Context, url, cachePath string) ([]byte, error) {
	if payload, err := os.ReadFile(cachePath); err == nil {
		f.log.Debug("network cache hit", "path", cachePath)
		return payload, nil
	}

	payload, err := f.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	if err := writeCache(cachePath, payload); err != nil {
		f.log.Warn("network cache write failed", "path", cachePath, "error", err)
	}
	return payload, nil
}

func writeCache(path string, payload []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o644)
}

// gzipMagic is the two-byte member header every gzip stream starts with.
var gzipMagic = []byte{0x1f, 0x8b}

// maybeGunzip decompresses payload when it carries the gzip magic
// bytes and returns it unchanged otherwise. The bool mirrors
// fetchOnce's retryable flag: a corrupt gzip stream is not retryable
// because the server will serve the same bytes again.
func maybeGunzip(payload []byte) ([]byte, bool, error) {
	if !bytes.HasPrefix(payload, gzipMagic) {
		return payload, false, nil
	}
	zr, err := gzip.NewReader(bytes.NewReader(payload))
	if err != nil {
		return nil, false, fmt.Errorf("open gzip stream: %w", err)
	}
	defer zr.Close()
	plain, err := io.ReadAll(zr)
	if err != nil {
		return nil, false, fmt.Errorf("decompress: %w", err)
	}
	return plain, false, nil
}

package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/wezm/rsspls/app/cache"
)

// Fetcher retrieves pages with conditional requests driven by cached
// validators. One Fetcher is shared by all feeds; the underlying client
// is safe for concurrent use.
type Fetcher struct {
	client    *http.Client
	userAgent string
	timeout   time.Duration
}

func NewFetcher(userAgent string, timeout time.Duration) *Fetcher {
	return &Fetcher{
		client: &http.Client{
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
			},
		},
		userAgent: userAgent,
		timeout:   timeout,
	}
}

// Run performs a conditional GET of the URL. A prior cache record supplies
// the If-None-Match or If-Modified-Since precondition; nil means the URL has
// never been fetched and a plain GET is issued.
func (f *Fetcher) Run(ctx context.Context, url, userAgent string, prior *cache.Record) (*Result, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if userAgent == "" {
		userAgent = f.userAgent
	}
	req.Header.Set("User-Agent", userAgent)

	addPreconditions(req, prior)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified {
		slog.Debug("Server confirmed cached validators", "url", url)
		return &Result{Outcome: OutcomeNotModified}, nil
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, &StatusError{
			Code:   resp.StatusCode,
			Status: resp.Status,
		})
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body from %s: %w", url, err)
	}

	// The fingerprint covers the raw bytes, so any server-side change
	// registers even when validators are absent or broken.
	fingerprint := cache.Fingerprint(body)

	result := &Result{
		Outcome:     OutcomeModified,
		Body:        body,
		ContentType: resp.Header.Get("Content-Type"),
		Record: cache.Record{
			URL:          url,
			ETag:         resp.Header.Get("ETag"),
			LastModified: resp.Header.Get("Last-Modified"),
			Fingerprint:  fingerprint,
			FetchedAt:    time.Now().UTC(),
		},
		Unchanged: prior != nil && prior.Fingerprint == fingerprint,
	}

	return result, nil
}

// addPreconditions sets at most one conditional header, preferring the
// entity tag over the modification timestamp.
func addPreconditions(req *http.Request, prior *cache.Record) {
	if prior == nil {
		return
	}
	if prior.ETag != "" {
		slog.Debug("Add If-None-Match", "value", prior.ETag)
		req.Header.Set("If-None-Match", prior.ETag)
		return
	}
	if prior.LastModified != "" {
		slog.Debug("Add If-Modified-Since", "value", prior.LastModified)
		req.Header.Set("If-Modified-Since", prior.LastModified)
	}
}

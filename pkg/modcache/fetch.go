package modcache

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// DefaultMaxBytes bounds the size of a fetched module.
const DefaultMaxBytes = 1 << 20

// Request asks for a module, optionally conditional on a cached validator.
type Request struct {
	URL          string
	ETag         string
	LastModified string
}

// Response is a fetched module, or NotModified when the cached copy is
// still current.
type Response struct {
	NotModified  bool
	Body         string
	ETag         string
	LastModified string
}

// Fetcher retrieves module text.
type Fetcher interface {
	Fetch(ctx context.Context, req Request) (Response, error)
}

// HTTPFetcher fetches modules over http and https with conditional GETs.
type HTTPFetcher struct {
	Client   *http.Client // nil means http.DefaultClient
	MaxBytes int64        // zero means DefaultMaxBytes
}

var _ Fetcher = (*HTTPFetcher)(nil)

// Fetch issues a GET, sending If-None-Match and If-Modified-Since when the
// request carries validators.
func (f *HTTPFetcher) Fetch(ctx context.Context, req Request) (Response, error) {
	u, err := url.Parse(req.URL)
	if err != nil {
		return Response{}, fmt.Errorf("modcache: parse %q: %w", req.URL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return Response{}, fmt.Errorf("modcache: unsupported scheme %q in %q", u.Scheme, req.URL)
	}

	hreq, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Response{}, fmt.Errorf("modcache: build request: %w", err)
	}
	if req.ETag != "" {
		hreq.Header.Set("If-None-Match", req.ETag)
	}
	if req.LastModified != "" {
		hreq.Header.Set("If-Modified-Since", req.LastModified)
	}

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(hreq)
	if err != nil {
		return Response{}, fmt.Errorf("modcache: GET %s: %w", req.URL, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNotModified:
		return Response{
			NotModified:  true,
			ETag:         resp.Header.Get("ETag"),
			LastModified: resp.Header.Get("Last-Modified"),
		}, nil
	case http.StatusOK:
	default:
		return Response{}, fmt.Errorf("modcache: GET %s: unexpected status %d", req.URL, resp.StatusCode)
	}

	limit := f.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxBytes
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return Response{}, fmt.Errorf("modcache: read %s: %w", req.URL, err)
	}
	if int64(len(body)) > limit {
		return Response{}, fmt.Errorf("modcache: %s exceeds %d bytes", req.URL, limit)
	}
	return Response{
		Body:         string(body),
		ETag:         resp.Header.Get("ETag"),
		LastModified: resp.Header.Get("Last-Modified"),
	}, nil
}

package modcache

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// origin serves a module body with an ETag and honours If-None-Match.
type origin struct {
	mu       sync.Mutex
	body     string
	etag     string
	requests atomic.Int32
	notMod   atomic.Int32
}

func (o *origin) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	o.requests.Add(1)
	o.mu.Lock()
	body, etag := o.body, o.etag
	o.mu.Unlock()

	if r.Header.Get("If-None-Match") == etag {
		o.notMod.Add(1)
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Last-Modified", "Mon, 19 Oct 2026 10:00:00 GMT")
	_, _ = w.Write([]byte(body))
}

func (o *origin) set(body, etag string) {
	o.mu.Lock()
	o.body, o.etag = body, etag
	o.mu.Unlock()
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestCache(t *testing.T, srv *httptest.Server, clk *clock) *Cache {
	t.Helper()
	c, err := New(4,
		WithFetcher(&HTTPFetcher{Client: srv.Client()}),
		WithMaxAge(time.Minute),
		WithClock(clk.now),
	)
	require.NoError(t, err)
	return c
}

func TestLoadCachesWithinMaxAge(t *testing.T) {
	o := &origin{}
	o.set(`(defparam teeth 20)`, `"v1"`)
	srv := httptest.NewServer(o)
	defer srv.Close()

	clk := &clock{t: time.Unix(1000, 0)}
	c := newTestCache(t, srv, clk)
	ctx := context.Background()

	body, err := c.Load(ctx, srv.URL+"/gears.lisp")
	require.NoError(t, err)
	assert.Equal(t, `(defparam teeth 20)`, body)

	clk.advance(30 * time.Second)
	body, err = c.Load(ctx, srv.URL+"/gears.lisp")
	require.NoError(t, err)
	assert.Equal(t, `(defparam teeth 20)`, body)

	assert.Equal(t, int32(1), o.requests.Load())
	assert.Equal(t, Stats{Hits: 1, Fetched: 1}, c.Stats())

	e, ok := c.Peek(srv.URL + "/gears.lisp")
	require.True(t, ok)
	assert.Equal(t, `"v1"`, e.ETag)
	assert.NotEmpty(t, e.LastModified)
}

func TestLoadRevalidatesWithNotModified(t *testing.T) {
	o := &origin{}
	o.set("(+ 1 2)", `"v1"`)
	srv := httptest.NewServer(o)
	defer srv.Close()

	clk := &clock{t: time.Unix(1000, 0)}
	c := newTestCache(t, srv, clk)
	ctx := context.Background()

	_, err := c.Load(ctx, srv.URL)
	require.NoError(t, err)

	clk.advance(2 * time.Minute)
	body, err := c.Load(ctx, srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "(+ 1 2)", body)
	assert.Equal(t, int32(1), o.notMod.Load())
	assert.Equal(t, uint64(1), c.Stats().Revalidated)

	e, _ := c.Peek(srv.URL)
	assert.Equal(t, clk.now(), e.FetchedAt, "revalidation refreshes the entry age")

	// Fresh again after revalidation.
	_, err = c.Load(ctx, srv.URL)
	require.NoError(t, err)
	assert.Equal(t, int32(2), o.requests.Load())
}

func TestLoadRefetchesChangedModule(t *testing.T) {
	o := &origin{}
	o.set("old", `"v1"`)
	srv := httptest.NewServer(o)
	defer srv.Close()

	clk := &clock{t: time.Unix(1000, 0)}
	c := newTestCache(t, srv, clk)
	ctx := context.Background()

	_, err := c.Load(ctx, srv.URL)
	require.NoError(t, err)

	o.set("new", `"v2"`)
	clk.advance(2 * time.Minute)
	body, err := c.Load(ctx, srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "new", body)
	assert.Equal(t, uint64(2), c.Stats().Fetched)
}

func TestZeroMaxAgeAlwaysRevalidates(t *testing.T) {
	o := &origin{}
	o.set("body", `"v1"`)
	srv := httptest.NewServer(o)
	defer srv.Close()

	c, err := New(4, WithFetcher(&HTTPFetcher{Client: srv.Client()}), WithMaxAge(0))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := c.Load(context.Background(), srv.URL)
		require.NoError(t, err)
	}
	assert.Equal(t, int32(3), o.requests.Load())
	assert.Equal(t, int32(2), o.notMod.Load())
}

func TestLoadErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	c, err := New(4, WithFetcher(&HTTPFetcher{Client: srv.Client()}))
	require.NoError(t, err)

	_, err = c.Load(context.Background(), srv.URL+"/missing.lisp")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 404")
	assert.Equal(t, 0, c.Len())
}

func TestLoadRejectsNonHTTP(t *testing.T) {
	c, err := New(4)
	require.NoError(t, err)

	_, err = c.Load(context.Background(), "file:///etc/passwd")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported scheme")
}

func TestFetchSizeLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("0123456789"))
	}))
	defer srv.Close()

	f := &HTTPFetcher{Client: srv.Client(), MaxBytes: 4}
	_, err := f.Fetch(context.Background(), Request{URL: srv.URL})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds 4 bytes")
}

// fakeFetcher returns canned responses and records requests.
type fakeFetcher struct {
	mu    sync.Mutex
	resp  Response
	err   error
	calls []Request
	gate  chan struct{}
}

func (f *fakeFetcher) Fetch(ctx context.Context, req Request) (Response, error) {
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
	return f.resp, f.err
}

func TestStaleServedWhenRevalidationFails(t *testing.T) {
	clk := &clock{t: time.Unix(1000, 0)}
	f := &fakeFetcher{resp: Response{Body: "cached", ETag: "e1"}}
	c, err := New(4, WithFetcher(f), WithClock(clk.now), WithMaxAge(time.Minute))
	require.NoError(t, err)

	_, err = c.Load(context.Background(), "https://example.test/a")
	require.NoError(t, err)

	f.err = errors.New("network down")
	clk.advance(time.Hour)
	body, err := c.Load(context.Background(), "https://example.test/a")
	require.NoError(t, err)
	assert.Equal(t, "cached", body)
	assert.Equal(t, uint64(1), c.Stats().Stale)

	require.Len(t, f.calls, 2)
	assert.Equal(t, "e1", f.calls[1].ETag, "revalidation sends the cached validator")
}

func TestNotModifiedWithoutEntry(t *testing.T) {
	c, err := New(4, WithFetcher(&fakeFetcher{resp: Response{NotModified: true}}))
	require.NoError(t, err)

	_, err = c.Load(context.Background(), "https://example.test/a")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nothing is cached")
}

func TestConcurrentLoadsShareOneFetch(t *testing.T) {
	f := &fakeFetcher{resp: Response{Body: "shared"}, gate: make(chan struct{})}
	c, err := New(4, WithFetcher(f))
	require.NoError(t, err)

	const n = 8
	var wg sync.WaitGroup
	var started sync.WaitGroup
	results := make([]string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		started.Add(1)
		go func(i int) {
			defer wg.Done()
			started.Done()
			body, err := c.Load(context.Background(), "https://example.test/shared")
			assert.NoError(t, err)
			results[i] = body
		}(i)
	}
	started.Wait()
	time.Sleep(20 * time.Millisecond)
	close(f.gate)
	wg.Wait()

	for _, r := range results {
		assert.Equal(t, "shared", r)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	assert.LessOrEqual(t, len(f.calls), n)
	assert.GreaterOrEqual(t, len(f.calls), 1)
}

func TestEvictionAndInvalidate(t *testing.T) {
	f := &fakeFetcher{resp: Response{Body: "x"}}
	c, err := New(2, WithFetcher(f))
	require.NoError(t, err)
	ctx := context.Background()

	for _, u := range []string{"https://a.test", "https://b.test", "https://c.test"} {
		_, err := c.Load(ctx, u)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, c.Len())
	_, ok := c.Peek("https://a.test")
	assert.False(t, ok, "least recently used entry is evicted")

	c.Invalidate("https://b.test")
	assert.Equal(t, 1, c.Len())

	c.Purge()
	assert.Equal(t, 0, c.Len())
}

func TestNewDefaultsSize(t *testing.T) {
	c, err := New(0)
	require.NoError(t, err)
	assert.Equal(t, 0, c.Len())
}

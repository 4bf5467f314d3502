package cache

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"sync/atomic"
	"time"

	"bibmatch/internal/ratelimit"
)

const (
	defaultHTTPTimeout = 5 * time.Second
	httpTTLHeader      = "X-Cache-TTL-Seconds"

	// maxRemoteValueBytes caps what we accept back from the shared store so a
	// misbehaving server cannot balloon local memory.
	maxRemoteValueBytes = 4 << 20
)

// HTTPTier is the optional shared remote tier: a plain key/value HTTP store
// (GET /key, PUT /key). Every failure, whether network, status, or an
// oversized body, degrades to a cache miss; this tier must never fail a
// matching call.
type HTTPTier struct {
	baseURL  string
	client   *http.Client
	failures *ratelimit.Counter

	hits   atomic.Uint64
	misses atomic.Uint64
	writes atomic.Uint64
}

// HTTPOptions configures the remote tier.
type HTTPOptions struct {
	BaseURL string
	Timeout time.Duration
	Client  *http.Client
}

// NewHTTPTier builds the remote tier. BaseURL must be non-empty.
func NewHTTPTier(opts HTTPOptions) (*HTTPTier, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("cache: remote base URL is empty")
	}
	client := opts.Client
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultHTTPTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	return &HTTPTier{
		baseURL:  opts.BaseURL,
		client:   client,
		failures: ratelimit.NewCounter(time.Minute),
	}, nil
}

// Get fetches the value for key. Any error is a miss.
func (t *HTTPTier) Get(key string) ([]byte, bool) {
	resp, err := t.client.Get(t.keyURL(key))
	if err != nil {
		t.degrade("get", err)
		t.misses.Add(1)
		return nil, false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.misses.Add(1)
		return nil, false
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRemoteValueBytes+1))
	if err != nil || len(body) > maxRemoteValueBytes {
		t.degrade("get", fmt.Errorf("body read: %w", err))
		t.misses.Add(1)
		return nil, false
	}
	t.hits.Add(1)
	return body, true
}

// Set stores the value remotely. Errors are logged (throttled) and swallowed;
// the caller's critical path never depends on the shared tier.
func (t *HTTPTier) Set(key string, value []byte, ttl time.Duration) error {
	req, err := http.NewRequest(http.MethodPut, t.keyURL(key), bytes.NewReader(value))
	if err != nil {
		t.degrade("set", err)
		return nil
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	if ttl > 0 {
		req.Header.Set(httpTTLHeader, strconv.FormatInt(int64(ttl/time.Second), 10))
	}
	resp, err := t.client.Do(req)
	if err != nil {
		t.degrade("set", err)
		return nil
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if resp.StatusCode >= 300 {
		t.degrade("set", fmt.Errorf("status %d", resp.StatusCode))
		return nil
	}
	t.writes.Add(1)
	return nil
}

// Stats reports traffic counters. Entry count of the shared store is unknown
// to this client.
func (t *HTTPTier) Stats() TierStats {
	return TierStats{
		Name:   "remote",
		Hits:   t.hits.Load(),
		Misses: t.misses.Load(),
	}
}

// Close is a no-op; the HTTP client holds no resources worth reclaiming.
func (t *HTTPTier) Close() error {
	return nil
}

func (t *HTTPTier) keyURL(key string) string {
	return t.baseURL + "/" + url.PathEscape(key)
}

func (t *HTTPTier) degrade(op string, err error) {
	if total, allowed := t.failures.Inc(); allowed {
		log.Printf("Cache: remote tier %s failed (%v), degrading to miss (%d failures total)", op, err, total)
	}
}

// Package offline keeps the web view of the vault usable without a network.
//
// A Cache is an http.RoundTripper with a network-first strategy: GET
// requests go to the network, successful responses are copied into the
// current bucket in the background, and failed requests are answered from
// the bucket or with a synthetic 503. Install prefetches a manifest of paths
// and Activate drops buckets left behind by older manifest versions.
package offline

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// UnavailableBody is returned with a 503 when a request fails and nothing
// is cached for it.
const UnavailableBody = "Offline - resource not found"

const (
	installLimit = 4
	writeTimeout = 10 * time.Second
)

// Cache serves requests network-first with a bucket fallback.
type Cache struct {
	store    *Store
	manifest Manifest
	origin   *url.URL
	next     http.RoundTripper
	log      *slog.Logger

	pending sync.WaitGroup
}

// Option configures a Cache.
type Option func(*Cache)

// WithTransport sets the transport used for network requests.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Cache) { c.next = rt }
}

// WithLogger sets the logger for install and write warnings.
func WithLogger(l *slog.Logger) Option {
	return func(c *Cache) { c.log = l }
}

// New creates a cache over store for the resources in m, resolved against
// origin.
func New(store *Store, m Manifest, origin *url.URL, opts ...Option) *Cache {
	c := &Cache{
		store:    store,
		manifest: m,
		origin:   origin,
		next:     http.DefaultTransport,
		log:      slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Version returns the name of the current bucket.
func (c *Cache) Version() string {
	return c.manifest.Version
}

// Install opens the current bucket and prefetches every manifest path.
// Fetch failures are logged; only a failure to open the bucket is returned.
func (c *Cache) Install(ctx context.Context) error {
	if err := c.store.Open(ctx, c.manifest.Version); err != nil {
		return fmt.Errorf("install: %w", err)
	}
	c.log.Info("opened cache", "bucket", c.manifest.Version)

	var g errgroup.Group
	g.SetLimit(installLimit)

	for _, p := range c.manifest.Paths {
		g.Go(func() error {
			if err := c.prefetch(ctx, p); err != nil {
				c.log.Warn("cache prefetch failed", "path", p, "err", err)
				return err
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		c.log.Warn("cache install incomplete", "bucket", c.manifest.Version, "err", err)
	}
	return nil
}

func (c *Cache) prefetch(ctx context.Context, path string) error {
	u := c.origin.ResolveReference(&url.URL{Path: path})

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}

	resp, err := c.next.RoundTrip(req)
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}

	return c.store.Put(ctx, c.manifest.Version, Entry{
		Key:    requestKey(req),
		Status: resp.StatusCode,
		Header: resp.Header.Clone(),
		Body:   body,
	})
}

// Activate deletes every bucket whose name is not the current version and
// returns the names it removed.
func (c *Cache) Activate(ctx context.Context) ([]string, error) {
	names, err := c.store.Buckets(ctx)
	if err != nil {
		return nil, fmt.Errorf("activate: %w", err)
	}

	var removed []string
	for _, n := range names {
		if n == c.manifest.Version {
			continue
		}
		c.log.Info("deleting old cache", "bucket", n)
		if _, err := c.store.Delete(ctx, n); err != nil {
			return removed, fmt.Errorf("activate: %w", err)
		}
		removed = append(removed, n)
	}
	return removed, nil
}

// RoundTrip implements http.RoundTripper. Only GET requests touch the
// cache; everything else passes straight through.
func (c *Cache) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Method != http.MethodGet {
		return c.next.RoundTrip(req)
	}

	resp, err := c.next.RoundTrip(req)
	if err == nil {
		if resp.StatusCode == http.StatusOK {
			return c.keep(req, resp)
		}
		return resp, nil
	}

	c.log.Debug("network failed, trying cache", "url", req.URL.String(), "err", err)

	e, ok, merr := c.store.Match(req.Context(), c.manifest.Version, requestKey(req))
	if merr != nil {
		c.log.Warn("cache lookup failed", "url", req.URL.String(), "err", merr)
	}
	if ok {
		return e.Response(req), nil
	}
	return unavailable(req), nil
}

// keep buffers a successful response and stores a copy without waiting for
// the write.
func (c *Cache) keep(req *http.Request, resp *http.Response) (*http.Response, error) {
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))

	e := Entry{
		Key:    requestKey(req),
		Status: resp.StatusCode,
		Header: resp.Header.Clone(),
		Body:   body,
	}

	c.pending.Add(1)
	go func() {
		defer c.pending.Done()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(req.Context()), writeTimeout)
		defer cancel()

		if err := c.store.Put(ctx, c.manifest.Version, e); err != nil {
			c.log.Warn("cache write failed", "key", e.Key, "err", err)
		}
	}()

	return resp, nil
}

// Flush waits for background cache writes to finish.
func (c *Cache) Flush() {
	c.pending.Wait()
}

// requestKey identifies a request within a bucket. Fragments never reach
// the network so they are dropped.
func requestKey(req *http.Request) string {
	u := *req.URL
	u.Fragment = ""
	u.RawFragment = ""
	return u.String()
}

func unavailable(req *http.Request) *http.Response {
	return &http.Response{
		Status:        "503 " + http.StatusText(http.StatusServiceUnavailable),
		StatusCode:    http.StatusServiceUnavailable,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        http.Header{"Content-Type": {"text/plain"}},
		Body:          io.NopCloser(strings.NewReader(UnavailableBody)),
		ContentLength: int64(len(UnavailableBody)),
		Request:       req,
	}
}

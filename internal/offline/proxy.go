package offline

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// ParseOrigin validates an origin URL for the proxy and the cache.
func ParseOrigin(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("origin %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("origin %q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("origin %q has no host", raw)
	}
	return u, nil
}

// Proxy returns a handler that forwards every request to origin through the
// cache, so page loads keep working while origin is down.
func Proxy(origin *url.URL, c *Cache) http.Handler {
	rp := httputil.NewSingleHostReverseProxy(origin)
	rp.Transport = c

	rp.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		slog.Error("proxy: upstream error",
			"method", r.Method, "path", r.URL.Path, "err", err)
		http.Error(w, "Service temporarily unavailable", http.StatusBadGateway)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/_offline/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = fmt.Fprintf(w, "ok %s\n", c.Version())
	})
	r.Handle("/*", rp)

	return r
}

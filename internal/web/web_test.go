package web

import (
	"errors"
	"io"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/zarlcorp/core/pkg/zfilesystem"
	"github.com/zarlcorp/zkeep/internal/render"
	"github.com/zarlcorp/zkeep/internal/vault"
)

func serve(t *testing.T, h http.Handler, path string) (*http.Response, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	resp := rec.Result()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp, string(b)
}

func newSource(t *testing.T, records ...vault.Record) FileSource {
	t.Helper()
	fsys := zfilesystem.NewMemFS()
	v := vault.Open(fsys)
	for _, r := range records {
		if _, err := v.Add(r); err != nil {
			t.Fatal(err)
		}
	}
	return FileSource{FS: fsys}
}

func TestIndexEmpty(t *testing.T) {
	h := Handler(newSource(t))

	for _, path := range []string{"/", "/index.html"} {
		resp, body := serve(t, h, path)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%s: status = %d", path, resp.StatusCode)
		}
		if !strings.Contains(body, render.EmptyMessage) {
			t.Errorf("%s: missing empty message", path)
		}
		if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
			t.Errorf("%s: content type = %q", path, ct)
		}
	}
}

func TestIndexEscapesRecords(t *testing.T) {
	h := Handler(newSource(t,
		vault.Record{Login: "<script>alert(1)</script>", Password: "pw"},
		vault.Record{Login: "bob", Password: "secret-pw", URL: "bob.io"},
	))

	_, body := serve(t, h, "/")

	if strings.Contains(body, "<script>alert(1)</script>") {
		t.Error("login must be escaped")
	}
	if !strings.Contains(body, "&lt;script&gt;alert(1)&lt;/script&gt;") {
		t.Error("escaped login missing")
	}
	if !strings.Contains(body, "#1") || !strings.Contains(body, "#2") {
		t.Error("records should be numbered")
	}
	if strings.Contains(body, "secret-pw") {
		t.Error("passwords must never reach the page")
	}
}

func TestIndexReflectsFileChanges(t *testing.T) {
	src := newSource(t)
	h := Handler(src)

	if _, err := vault.Open(src.FS).Add(vault.Record{Login: "late", Password: "pw"}); err != nil {
		t.Fatal(err)
	}

	_, body := serve(t, h, "/")
	if !strings.Contains(body, "late") {
		t.Error("page should reload the vault")
	}
}

func TestDetail(t *testing.T) {
	src := newSource(t, vault.Record{Login: "alice", Password: "pw", URL: "alice.io"})
	records, err := src.List()
	if err != nil {
		t.Fatal(err)
	}
	id := records[0].ID
	h := Handler(src)

	resp, body := serve(t, h, "/p/"+id)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if !strings.Contains(body, "alice.io") {
		t.Error("detail should show the url")
	}

	resp, _ = serve(t, h, "/p/deadbeef")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestStaticAssets(t *testing.T) {
	h := Handler(newSource(t))

	tests := []struct {
		path string
		ct   string
	}{
		{"/styles.css", "text/css"},
		{"/app.js", "javascript"},
		{"/manifest.json", "json"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, body := serve(t, h, tt.path)
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("status = %d", resp.StatusCode)
			}
			if body == "" {
				t.Error("empty body")
			}
			if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, tt.ct) {
				t.Errorf("content type = %q, want %q", ct, tt.ct)
			}
		})
	}
}

func TestHealthz(t *testing.T) {
	resp, body := serve(t, Handler(newSource(t)), "/healthz")
	if resp.StatusCode != http.StatusOK || body != "ok\n" {
		t.Errorf("healthz = %d %q", resp.StatusCode, body)
	}
}

func TestUnknownPath(t *testing.T) {
	resp, _ := serve(t, Handler(newSource(t)), "/img/icon-192.png")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestCorruptVaultUnavailable(t *testing.T) {
	fsys := zfilesystem.NewMemFS()
	if err := fsys.WriteFile("passwords.json", []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	h := Handler(FileSource{FS: fsys})

	for _, path := range []string{"/", "/p/deadbeef"} {
		resp, _ := serve(t, h, path)
		if resp.StatusCode != http.StatusServiceUnavailable {
			t.Errorf("%s: status = %d, want 503", path, resp.StatusCode)
		}
	}

	if _, err := fsys.ReadFile("passwords.corrupt.json"); !errors.Is(err, fs.ErrNotExist) {
		t.Error("serving must not back up the blob")
	}
	data, err := fsys.ReadFile("passwords.json")
	if err != nil || string(data) != "{not json" {
		t.Errorf("blob changed: %q %v", data, err)
	}
}

// Package web serves a read-only HTML view of the vault. It is the origin
// the offline proxy caches.
package web

import (
	"embed"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/zarlcorp/core/pkg/zfilesystem"
	"github.com/zarlcorp/zkeep/internal/render"
	"github.com/zarlcorp/zkeep/internal/vault"
)

//go:embed static
var staticFS embed.FS

var page = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
<link rel="stylesheet" href="/styles.css">
<link rel="manifest" href="/manifest.json">
</head>
<body>
<h1>{{.Title}}</h1>
{{if .Filter}}<input id="filter" type="search" placeholder="filter by login">{{end}}
{{.Body}}
<script src="/app.js"></script>
</body>
</html>
`))

type pageData struct {
	Title  string
	Filter bool
	Body   template.HTML
}

// Source supplies the records to render.
type Source interface {
	List() ([]vault.Record, error)
}

// FileSource rereads the blob in FS on every call so the page reflects edits
// made in the terminal. It never writes.
type FileSource struct {
	FS zfilesystem.ReadWriteFileFS
}

func (s FileSource) List() ([]vault.Record, error) {
	return vault.Read(s.FS)
}

// Handler returns the router for the vault page and its static assets.
func Handler(src Source) http.Handler {
	assets, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err) // embedded at build time
	}
	files := http.FileServerFS(assets)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	list := func(w http.ResponseWriter, req *http.Request) {
		records, ok := load(w, req, src)
		if !ok {
			return
		}
		writePage(w, http.StatusOK, pageData{
			Title:  "Saved Passwords",
			Filter: true,
			Body:   template.HTML(render.ListHTML(records)),
		})
	}
	r.Get("/", list)
	r.Get("/index.html", list)

	r.Get("/p/{id}", func(w http.ResponseWriter, req *http.Request) {
		records, ok := load(w, req, src)
		if !ok {
			return
		}
		id := chi.URLParam(req, "id")
		for _, rec := range records {
			if rec.ID == id {
				writePage(w, http.StatusOK, pageData{
					Title: rec.Login,
					Body:  template.HTML(render.DetailHTML(rec)),
				})
				return
			}
		}
		http.NotFound(w, req)
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("ok\n"))
	})

	for _, name := range []string{"/styles.css", "/app.js", "/manifest.json"} {
		r.Get(name, files.ServeHTTP)
	}

	return r
}

// load reads the records, answering 503 when the vault cannot be read.
func load(w http.ResponseWriter, req *http.Request, src Source) ([]vault.Record, bool) {
	records, err := src.List()
	if err != nil {
		slog.Error("load vault", "path", req.URL.Path, "err", err)
		http.Error(w, "vault unavailable", http.StatusServiceUnavailable)
		return nil, false
	}
	return records, true
}

func writePage(w http.ResponseWriter, status int, d pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := page.Execute(w, d); err != nil {
		slog.Error("render page", "err", err)
	}
}

// Package render projects vault records into HTML fragments.
package render

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zarlcorp/zkeep/internal/vault"
)

// EmptyMessage is shown when there are no saved records.
const EmptyMessage = "No saved passwords yet"

// NoURL is shown in place of a missing url.
const NoURL = "not set"

// ErrNoURL is returned when a record has no url to open.
var ErrNoURL = errors.New("no url set")

var escaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#039;",
)

// Escape replaces the five HTML-reserved characters with entities.
func Escape(s string) string {
	return escaper.Replace(s)
}

// ListHTML renders records as numbered cards. An empty list renders the
// empty-state placeholder instead.
func ListHTML(records []vault.Record) string {
	if len(records) == 0 {
		return `<p class="empty-message">` + EmptyMessage + `</p>`
	}

	var b strings.Builder
	b.WriteString(`<div class="passwords-list">`)
	for i, r := range records {
		fmt.Fprintf(&b, `<div class="password-item" data-id="%s">`, Escape(r.ID))
		fmt.Fprintf(&b, `<div class="password-item-number">#%d</div>`, i+1)
		fmt.Fprintf(&b, `<div class="password-item-login">%s</div>`, Escape(r.Login))
		if r.URL != "" {
			fmt.Fprintf(&b, `<div class="password-item-url">%s</div>`, Escape(r.URL))
		}
		b.WriteString(`</div>`)
	}
	b.WriteString(`</div>`)
	return b.String()
}

// DetailHTML renders a single record. The password is left out; it is only
// ever shown in the terminal view.
func DetailHTML(r vault.Record) string {
	url := NoURL
	if r.URL != "" {
		url = Escape(r.URL)
	}

	var b strings.Builder
	b.WriteString(`<dl class="password-detail">`)
	fmt.Fprintf(&b, `<dt>login</dt><dd>%s</dd>`, Escape(r.Login))
	fmt.Fprintf(&b, `<dt>url</dt><dd>%s</dd>`, url)
	b.WriteString(`</dl>`)
	return b.String()
}

// ExternalURL returns raw with https:// prepended when it has no http(s)
// scheme.
func ExternalURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrNoURL
	}
	if strings.HasPrefix(raw, "http") {
		return raw, nil
	}
	return "https://" + raw, nil
}

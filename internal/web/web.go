// Package web serves the browser upload form.
package web

import (
	"embed"
	"net/http"
)

//go:embed static/index.html
var static embed.FS

// Index serves the upload page. The page posts to api/upload relative to
// its own path.
func Index(w http.ResponseWriter, r *http.Request) {
	page, err := static.ReadFile("static/index.html")
	if err != nil {
		http.Error(w, "page unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		_, _ = w.Write(page)
	}
}

package server

import (
	"embed"
	"net/http"
)

//go:embed web/index.html
var webFS embed.FS

// Index serves the embedded single-page UI.
func (h *Handlers) Index(w http.ResponseWriter, r *http.Request) {
	page, err := webFS.ReadFile("web/index.html")
	if err != nil {
		writeError(w, http.StatusInternalServerError, "UI not available", "UI_UNAVAILABLE")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(page)
}

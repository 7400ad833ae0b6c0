package server

import (
	"log/slog"
	"net/http"
)

// Config contains server configuration options.
type Config struct {
	// AllowedOrigins is the list of allowed CORS origins.
	AllowedOrigins []string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		AllowedOrigins: []string{"*"},
	}
}

// NewRouter creates a new HTTP router with all routes configured.
// It uses Go 1.22+ ServeMux with method-based routing.
func NewRouter(h *Handlers, logger *slog.Logger, cfg Config) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", h.Index)
	mux.HandleFunc("GET /health", h.Health)

	mux.HandleFunc("POST /api/generations", h.CreateGeneration)
	mux.HandleFunc("GET /api/generations/{id}", h.GetGeneration)
	mux.HandleFunc("GET /api/generations/{id}/videos/{n}", h.DownloadVideo)
	mux.HandleFunc("GET /api/generations/{id}/ws", h.Events)

	mux.HandleFunc("GET /api/key", h.GetKey)
	mux.HandleFunc("PUT /api/key", h.SaveKey)

	chain := ChainMiddleware(
		RecoveryMiddleware(logger),
		LoggingMiddleware(logger),
		CORSMiddleware(cfg.AllowedOrigins),
	)

	return chain(mux)
}

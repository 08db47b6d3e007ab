// Package api exposes the gateway over HTTP: a plain-text streaming chat
// endpoint, mode selection, history access, and a WebSocket stream variant.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"PrettyChat/internal/gateway"
)

// NewRouter creates and configures the chi router with all routes.
func NewRouter(gw *gateway.Gateway, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(SessionMiddleware)

	h := NewHandlers(gw, logger)

	// Liveness probe, no session semantics
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`)) //nolint:errcheck
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/history", h.History)
		r.Post("/send_message", h.SendMessage)
		r.Post("/set_mode", h.SetMode)
		r.Post("/clear_chat", h.ClearChat)
	})

	r.Get("/ws", h.ChatSocket)

	return r
}

package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"PrettyChat/internal/api/ctxkeys"
	"PrettyChat/internal/gateway"
)

// Handlers serves the gateway-facing HTTP API.
type Handlers struct {
	gateway *gateway.Gateway
	logger  *slog.Logger
}

// NewHandlers creates the HTTP handler set.
func NewHandlers(gw *gateway.Gateway, logger *slog.Logger) *Handlers {
	return &Handlers{gateway: gw, logger: logger}
}

type sendMessageRequest struct {
	Prompt string `json:"prompt"`
}

type setModeRequest struct {
	Mode string `json:"mode"`
}

// History returns the session's conversation as JSON.
func (h *Handlers) History(w http.ResponseWriter, r *http.Request) {
	sid := ctxkeys.SessionIDFrom(r.Context())
	writeJSON(w, http.StatusOK, h.gateway.History(sid))
}

// SendMessage relays a prompt through the active provider and streams each
// fragment to the client as plain text, unbuffered. Headers are committed
// before the first fragment is known, so once streaming begins the client
// always receives some terminated stream, never an HTTP error status.
func (h *Handlers) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// Reject non-streaming writers before the turn starts, so a rejected
	// request never leaves an unclosed user message in the conversation.
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	ctx := r.Context()
	sid := ctxkeys.SessionIDFrom(ctx)

	seq, err := h.gateway.SendMessage(ctx, sid, req.Prompt)
	if errors.Is(err, gateway.ErrEmptyPrompt) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "empty"})
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "send failed")
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	for fragment := range seq {
		if _, err := io.WriteString(w, fragment); err != nil {
			// Client went away; the gateway still commits the partial turn.
			h.logger.Info("client disconnected mid-stream", "session_id", sid)
			break
		}
		flusher.Flush()
	}
}

// SetMode switches the active provider variant for all sessions. Unknown
// names leave the mode unchanged; the response always reports the mode that
// is active after the call.
func (h *Handlers) SetMode(w http.ResponseWriter, r *http.Request) {
	var req setModeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	active := h.gateway.SelectMode(r.Context(), req.Mode)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "mode": active})
}

// ClearChat empties the conversation for this session only.
func (h *Handlers) ClearChat(w http.ResponseWriter, r *http.Request) {
	sid := ctxkeys.SessionIDFrom(r.Context())
	h.gateway.ClearHistory(r.Context(), sid)
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

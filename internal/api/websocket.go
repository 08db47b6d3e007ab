package api

import (
	"errors"
	"net/http"

	"github.com/gorilla/websocket"

	"PrettyChat/internal/api/ctxkeys"
	"PrettyChat/internal/gateway"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

type socketStatus struct {
	Status string `json:"status,omitempty"`
	Done   bool   `json:"done,omitempty"`
}

// ChatSocket is the WebSocket variant of SendMessage: the client sends
// {"prompt"} frames, the server answers each with one text frame per relayed
// fragment followed by a {"done":true} frame. The conversation semantics are
// identical to the plain HTTP stream.
func (h *Handlers) ChatSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx := r.Context()
	sid := ctxkeys.SessionIDFrom(ctx)

	for {
		var req sendMessageRequest
		if err := conn.ReadJSON(&req); err != nil {
			// Closed or broken connection ends the loop.
			return
		}

		seq, err := h.gateway.SendMessage(ctx, sid, req.Prompt)
		if errors.Is(err, gateway.ErrEmptyPrompt) {
			if err := conn.WriteJSON(socketStatus{Status: "empty"}); err != nil {
				return
			}
			continue
		}
		if err != nil {
			h.logger.Error("websocket send failed", "session_id", sid, "error", err)
			return
		}

		for fragment := range seq {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(fragment)); err != nil {
				h.logger.Info("websocket client disconnected mid-stream", "session_id", sid)
				break
			}
		}

		if err := conn.WriteJSON(socketStatus{Done: true}); err != nil {
			return
		}
	}
}

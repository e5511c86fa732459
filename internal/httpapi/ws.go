package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/antoniostano/wayfarer/internal/gateway"
)

const (
	wsReadLimit    = 1 << 20
	wsIdleTimeout  = 120 * time.Second
	wsWriteTimeout = 10 * time.Second
)

// handleChatWS serves chat turns over a websocket. Each text frame is a chat
// request; replies are written in order, one per request.
func (s *Server) handleChatWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn.SetReadLimit(wsReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(wsIdleTimeout))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(wsIdleTimeout))
		return nil
	})

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug("websocket closed", zap.Error(err))
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		_ = conn.SetReadDeadline(time.Now().Add(wsIdleTimeout))

		var out any
		var req gateway.ChatRequest
		if err := json.Unmarshal(data, &req); err != nil {
			out = errorResponse{Error: err.Error(), Code: "invalid_request"}
		} else if reply, err := s.chat.HandleChat(ctx, req); err != nil {
			status, code := statusForError(err)
			msg := err.Error()
			if status >= http.StatusInternalServerError {
				s.logger.Error("websocket chat turn failed", zap.Error(err))
				msg = "Failed to process chat message"
			}
			out = errorResponse{Error: msg, Code: code}
		} else {
			out = chatResponse{Response: reply}
		}

		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteJSON(out); err != nil {
			return
		}
	}
}

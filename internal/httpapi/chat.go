package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/antoniostano/wayfarer/internal/gateway"
)

type chatResponse struct {
	Response string `json:"response"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req gateway.ChatRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	reply, err := s.chat.HandleChat(r.Context(), req)
	if err != nil {
		status, code := statusForError(err)
		if status == http.StatusBadRequest {
			respondError(w, status, code, err.Error())
			return
		}
		s.logger.Error("chat turn failed", zap.Error(err))
		respondError(w, status, code, "Failed to process chat message")
		return
	}
	respondJSON(w, http.StatusOK, chatResponse{Response: reply})
}

func (s *Server) handleConversation(w http.ResponseWriter, r *http.Request) {
	msgs, err := s.chat.History(r.Context(), lastPathSegment(chi.URLParam(r, "*")))
	if err != nil {
		status, code := statusForError(err)
		s.logger.Error("load conversation failed", zap.Error(err))
		respondError(w, status, code, "Failed to load conversation")
		return
	}
	respondJSON(w, http.StatusOK, msgs)
}

// lastPathSegment returns what follows the final slash, so
// /api/conversation/a/b addresses conversation "b".
func lastPathSegment(p string) string {
	if i := strings.LastIndex(p, "/"); i >= 0 {
		return p[i+1:]
	}
	return p
}

func (s *Server) handlePerfLatency(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, s.metrics.SnapshotLatency())
}

package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/antoniostano/wayfarer/internal/conversation"
)

type successResponse struct {
	Success bool `json:"success"`
}

// The /store/{id} routes expose a single conversation store directly.

func (s *Server) handleStoreList(w http.ResponseWriter, r *http.Request) {
	key := s.storeKey(r)
	msgs, err := s.store.List(r.Context(), key)
	if err != nil {
		s.respondStoreError(w, key, err)
		return
	}
	respondJSON(w, http.StatusOK, msgs)
}

func (s *Server) handleStoreAppend(w http.ResponseWriter, r *http.Request) {
	key := s.storeKey(r)
	var msg conversation.Message
	if err := decodeJSON(r, &msg); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if err := s.store.Append(r.Context(), key, msg); err != nil {
		s.respondStoreError(w, key, err)
		return
	}
	respondJSON(w, http.StatusOK, successResponse{Success: true})
}

func (s *Server) handleStoreClear(w http.ResponseWriter, r *http.Request) {
	key := s.storeKey(r)
	if err := s.store.Clear(r.Context(), key); err != nil {
		s.respondStoreError(w, key, err)
		return
	}
	respondJSON(w, http.StatusOK, successResponse{Success: true})
}

// storeKey resolves a blank id to the default conversation, like the chat routes.
func (s *Server) storeKey(r *http.Request) string {
	return s.chat.ResolveConversationID(chi.URLParam(r, "id"))
}

func (s *Server) respondStoreError(w http.ResponseWriter, key string, err error) {
	status, code := statusForError(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("conversation store operation failed", zap.String("conversation_id", key), zap.Error(err))
	}
	respondError(w, status, code, err.Error())
}

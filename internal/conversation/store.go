// Package conversation implements the per-key durable message log.
package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/antoniostano/wayfarer/internal/logging"
	"github.com/antoniostano/wayfarer/internal/storage"
)

// Store owns the ordered message log of a single conversation key.
// All operations are serialized by mu. The first operation loads any
// persisted log while holding mu, so nothing observes a half-initialized
// instance.
type Store struct {
	key     string
	backend storage.Backend
	logger  *zap.Logger

	mu       sync.Mutex
	loaded   bool
	messages []Message
}

func NewStore(key string, backend storage.Backend, logger *zap.Logger) *Store {
	return &Store{
		key:     key,
		backend: backend,
		logger:  logging.OrNop(logger).With(zap.String("conversation_id", key)),
	}
}

func (s *Store) Key() string { return s.key }

// List returns a copy of the full ordered history, never nil.
func (s *Store) List(ctx context.Context) ([]Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out, nil
}

// Append validates msg, then persists the extended log before acknowledging.
// On a failed write the in-memory log is left unchanged.
func (s *Store) Append(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(ctx); err != nil {
		return err
	}

	next := make([]Message, len(s.messages), len(s.messages)+1)
	copy(next, s.messages)
	next = append(next, msg)

	record, err := json.Marshal(next)
	if err != nil {
		return &StorageError{Op: "encode", Key: s.key, Err: err}
	}
	if err := s.backend.Save(ctx, s.key, record); err != nil {
		s.logger.Error("persist append failed", zap.Error(err))
		return &StorageError{Op: "save", Key: s.key, Err: err}
	}
	s.messages = next
	return nil
}

// Clear empties the log and removes the persisted record. It is idempotent.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.backend.Delete(ctx, s.key); err != nil {
		s.logger.Error("persist clear failed", zap.Error(err))
		return &StorageError{Op: "delete", Key: s.key, Err: err}
	}
	s.messages = []Message{}
	s.loaded = true
	return nil
}

// ensureLoaded must be called with mu held.
func (s *Store) ensureLoaded(ctx context.Context) error {
	if s.loaded {
		return nil
	}
	record, err := s.backend.Load(ctx, s.key)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		s.messages = []Message{}
	case err != nil:
		return &StorageError{Op: "load", Key: s.key, Err: err}
	default:
		var msgs []Message
		if err := json.Unmarshal(record, &msgs); err != nil {
			return &StorageError{Op: "decode", Key: s.key, Err: err}
		}
		if msgs == nil {
			msgs = []Message{}
		}
		s.messages = msgs
	}
	s.loaded = true
	s.logger.Debug("conversation loaded", zap.Int("messages", len(s.messages)))
	return nil
}

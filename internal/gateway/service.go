// Package gateway orchestrates a single chat turn: persist the user turn,
// ask the model, persist the reply.
package gateway

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/antoniostano/wayfarer/internal/conversation"
	"github.com/antoniostano/wayfarer/internal/inference"
	"github.com/antoniostano/wayfarer/internal/logging"
	"github.com/antoniostano/wayfarer/internal/observability"
	"github.com/antoniostano/wayfarer/internal/policy"
	"github.com/antoniostano/wayfarer/internal/reliability"
)

// ConversationStore is the per-key log the gateway writes to.
type ConversationStore interface {
	List(ctx context.Context, key string) ([]conversation.Message, error)
	Append(ctx context.Context, key string, msg conversation.Message) error
	Clear(ctx context.Context, key string) error
}

// ChatRequest is the inbound chat payload.
type ChatRequest struct {
	ConversationID string         `json:"conversationId,omitempty"`
	Message        string         `json:"message"`
	History        []HistoryEntry `json:"history,omitempty"`
}

type Options struct {
	DefaultConversationID string
	HistoryWindow         int
	Temperature           float64
	MaxTokens             int
	Now                   func() time.Time
}

func DefaultOptions() Options {
	return Options{
		DefaultConversationID: "default",
		HistoryWindow:         4,
		Temperature:           0.7,
		MaxTokens:             800,
		Now:                   time.Now,
	}
}

type Service struct {
	store   ConversationStore
	adapter inference.Adapter
	metrics *observability.Metrics
	logger  *zap.Logger
	opts    Options
}

func New(store ConversationStore, adapter inference.Adapter, metrics *observability.Metrics, logger *zap.Logger, opts Options) *Service {
	if strings.TrimSpace(opts.DefaultConversationID) == "" {
		opts.DefaultConversationID = "default"
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		store:   store,
		adapter: adapter,
		metrics: metrics,
		logger:  logging.OrNop(logger),
		opts:    opts,
	}
}

// ResolveConversationID maps a blank id to the default conversation.
func (s *Service) ResolveConversationID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return s.opts.DefaultConversationID
	}
	return id
}

// HandleChat runs one turn and returns the assistant reply. Input problems
// wrap conversation.ErrValidation; storage failures return a
// *conversation.StorageError. A failed model call does not fail the turn:
// the fallback reply is stored and returned instead. When ctx is canceled
// during the model call the turn ends with ctx's error and no reply is
// stored. The user turn is never rolled back.
func (s *Service) HandleChat(ctx context.Context, req ChatRequest) (string, error) {
	if strings.TrimSpace(req.Message) == "" {
		s.metrics.ObserveChatTurn("rejected")
		return "", fmt.Errorf("%w: message is required", conversation.ErrValidation)
	}

	key := s.ResolveConversationID(req.ConversationID)
	log := s.logger.With(
		zap.String("conversation_id", key),
		zap.String("turn_id", uuid.NewString()),
	)
	start := time.Now()
	log.Debug("chat turn accepted", zap.String("preview", policy.LogPreview(req.Message, 80)))

	stageStart := time.Now()
	if err := s.store.Append(ctx, key, conversation.NewMessage(conversation.RoleUser, req.Message, s.opts.Now())); err != nil {
		s.metrics.ObserveChatTurn("storage_error")
		log.Error("store user turn failed", zap.Error(err))
		return "", err
	}
	s.metrics.ObserveStage(observability.StageStoreUserTurn, time.Since(stageStart))

	prompt := BuildPrompt(req.History, req.Message, s.opts.HistoryWindow)
	stageStart = time.Now()
	reply, err := s.generate(ctx, log, prompt)
	if err != nil {
		s.metrics.ObserveChatTurn("aborted")
		log.Info("chat turn aborted by caller", zap.Error(err))
		return "", err
	}
	s.metrics.ObserveStage(observability.StageInference, time.Since(stageStart))

	stageStart = time.Now()
	if err := s.store.Append(ctx, key, conversation.NewMessage(conversation.RoleAssistant, reply, s.opts.Now())); err != nil {
		s.metrics.ObserveChatTurn("storage_error")
		log.Error("store assistant turn failed", zap.Error(err))
		return "", err
	}
	s.metrics.ObserveStage(observability.StageStoreAssistantTurn, time.Since(stageStart))
	s.metrics.ObserveStage(observability.StageTurnTotal, time.Since(start))
	s.metrics.ObserveChatTurn("ok")

	log.Info("chat turn completed",
		zap.Int("history_entries", len(prompt)-2),
		zap.Int("reply_chars", len(reply)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return reply, nil
}

// generate returns the reply text, or the fallback when the model fails. It
// only errors when ctx itself is done; no assistant turn is stored then.
func (s *Service) generate(ctx context.Context, log *zap.Logger, prompt []inference.ChatMessage) (string, error) {
	raw, err := s.adapter.Run(ctx, inference.Request{
		Messages:    prompt,
		Temperature: s.opts.Temperature,
		MaxTokens:   s.opts.MaxTokens,
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		reason := reliability.Classify(err)
		s.metrics.ObserveUpstreamError(s.adapter.Mode(), reason)
		log.Warn("inference failed, using fallback reply",
			zap.String("mode", s.adapter.Mode()),
			zap.String("reason", reason),
			zap.Error(err),
		)
		return inference.FallbackReply, nil
	}
	text, ok := inference.Normalize(raw)
	if !ok {
		s.metrics.ObserveUpstreamError(s.adapter.Mode(), reliability.ReasonUnusable)
		log.Warn("inference returned no usable text, using fallback reply", zap.Int("raw_bytes", len(raw)))
		return inference.FallbackReply, nil
	}
	return text, nil
}

// History returns the stored log for a conversation.
func (s *Service) History(ctx context.Context, conversationID string) ([]conversation.Message, error) {
	return s.store.List(ctx, s.ResolveConversationID(conversationID))
}

// Clear drops the stored log for a conversation.
func (s *Service) Clear(ctx context.Context, conversationID string) error {
	return s.store.Clear(ctx, s.ResolveConversationID(conversationID))
}

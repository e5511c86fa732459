package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/antoniostano/wayfarer/internal/conversation"
	"github.com/antoniostano/wayfarer/internal/inference"
	"github.com/antoniostano/wayfarer/internal/observability"
	"github.com/antoniostano/wayfarer/internal/storage"
)

var metricsSeq atomic.Int64

func newTestMetrics() *observability.Metrics {
	return observability.NewMetrics(fmt.Sprintf("test_gateway_%d_%d", time.Now().UnixNano(), metricsSeq.Add(1)))
}

type scriptedAdapter struct {
	raw      []byte
	err      error
	requests []inference.Request
}

func (a *scriptedAdapter) Mode() string { return "scripted" }

func (a *scriptedAdapter) Run(_ context.Context, req inference.Request) ([]byte, error) {
	a.requests = append(a.requests, req)
	return a.raw, a.err
}

type brokenStore struct {
	appendErr error
	appends   int
}

func (b *brokenStore) List(context.Context, string) ([]conversation.Message, error) { return nil, nil }
func (b *brokenStore) Clear(context.Context, string) error                          { return nil }
func (b *brokenStore) Append(context.Context, string, conversation.Message) error {
	b.appends++
	return b.appendErr
}

func newService(t *testing.T, adapter inference.Adapter) (*Service, *conversation.Registry) {
	t.Helper()
	reg := conversation.NewRegistry(storage.NewInMemoryBackend(), time.Minute, nil)
	opts := DefaultOptions()
	var tick int64 = 1_700_000_000_000
	opts.Now = func() time.Time {
		tick++
		return time.UnixMilli(tick)
	}
	return New(reg, adapter, newTestMetrics(), nil, opts), reg
}

func TestHandleChatDefaultConversation(t *testing.T) {
	adapter := &scriptedAdapter{raw: []byte(`{"response":"Day 1: Shinjuku"}`)}
	svc, reg := newService(t, adapter)
	ctx := context.Background()

	reply, err := svc.HandleChat(ctx, ChatRequest{Message: "Plan a 3-day trip to Tokyo"})
	require.NoError(t, err)
	assert.Equal(t, "Day 1: Shinjuku", reply)

	msgs, err := reg.List(ctx, "default")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, conversation.RoleUser, msgs[0].Role)
	assert.Equal(t, "Plan a 3-day trip to Tokyo", msgs[0].Content)
	assert.Equal(t, conversation.RoleAssistant, msgs[1].Role)
	assert.Equal(t, "Day 1: Shinjuku", msgs[1].Content)
	assert.Less(t, msgs[0].Timestamp, msgs[1].Timestamp)
}

func TestHandleChatRejectsEmptyMessage(t *testing.T) {
	adapter := &scriptedAdapter{raw: []byte(`"unused"`)}
	svc, reg := newService(t, adapter)

	for _, msg := range []string{"", "   "} {
		_, err := svc.HandleChat(context.Background(), ChatRequest{ConversationID: "c1", Message: msg})
		require.ErrorIs(t, err, conversation.ErrValidation)
	}
	assert.Empty(t, adapter.requests)
	assert.Equal(t, 0, reg.Live(), "no store should be touched")
}

func TestHandleChatPromptUsesLastFourHistoryEntries(t *testing.T) {
	adapter := &scriptedAdapter{raw: []byte(`"ok"`)}
	svc, _ := newService(t, adapter)

	history := []HistoryEntry{
		{Role: "user", Content: "h1"},
		{Role: "assistant", Content: "h2"},
		{Role: "user", Content: "h3"},
		{Role: "assistant", Content: "h4"},
		{Role: "user", Content: "h5"},
		{Role: "assistant", Content: "h6"},
	}
	_, err := svc.HandleChat(context.Background(), ChatRequest{ConversationID: "c", Message: "now", History: history})
	require.NoError(t, err)

	require.Len(t, adapter.requests, 1)
	req := adapter.requests[0]
	assert.InDelta(t, 0.7, req.Temperature, 1e-9)
	assert.Equal(t, 800, req.MaxTokens)
	require.Len(t, req.Messages, 6)
	assert.Equal(t, "system", req.Messages[0].Role)
	assert.Equal(t, SystemPrompt, req.Messages[0].Content)
	assert.Equal(t, []string{"h3", "h4", "h5", "h6"}, []string{
		req.Messages[1].Content, req.Messages[2].Content, req.Messages[3].Content, req.Messages[4].Content,
	})
	assert.Equal(t, inference.ChatMessage{Role: "user", Content: "now"}, req.Messages[5])
}

func TestHandleChatPromptIgnoresStoredLog(t *testing.T) {
	adapter := &scriptedAdapter{raw: []byte(`"ok"`)}
	svc, _ := newService(t, adapter)
	ctx := context.Background()

	_, err := svc.HandleChat(ctx, ChatRequest{ConversationID: "c", Message: "first"})
	require.NoError(t, err)
	_, err = svc.HandleChat(ctx, ChatRequest{ConversationID: "c", Message: "second"})
	require.NoError(t, err)

	require.Len(t, adapter.requests, 2)
	assert.Len(t, adapter.requests[1].Messages, 2, "only system + current message without caller history")
}

func TestHandleChatUpstreamFailureUsesFallback(t *testing.T) {
	cases := map[string]*scriptedAdapter{
		"adapter error":   {err: &inference.StatusError{Code: 503, Body: "overloaded"}},
		"timeout":         {err: context.DeadlineExceeded},
		"unusable shape":  {raw: []byte(`{"usage":{}}`)},
		"empty text body": {raw: []byte(``)},
	}
	for name, adapter := range cases {
		t.Run(name, func(t *testing.T) {
			svc, reg := newService(t, adapter)
			reply, err := svc.HandleChat(context.Background(), ChatRequest{ConversationID: "x", Message: "hi"})
			require.NoError(t, err)
			assert.Equal(t, inference.FallbackReply, reply)

			msgs, err := reg.List(context.Background(), "x")
			require.NoError(t, err)
			require.Len(t, msgs, 2)
			assert.Equal(t, inference.FallbackReply, msgs[1].Content)
		})
	}
}

type blockingAdapter struct {
	started chan struct{}
}

func (a *blockingAdapter) Mode() string { return "blocking" }

func (a *blockingAdapter) Run(ctx context.Context, _ inference.Request) ([]byte, error) {
	close(a.started)
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestHandleChatCanceledDuringInferenceStoresNoReply(t *testing.T) {
	adapter := &blockingAdapter{started: make(chan struct{})}
	svc, reg := newService(t, adapter)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-adapter.started
		cancel()
	}()

	reply, err := svc.HandleChat(ctx, ChatRequest{ConversationID: "gone", Message: "hi"})
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, reply)

	msgs, err := reg.List(context.Background(), "gone")
	require.NoError(t, err)
	require.Len(t, msgs, 1, "only the user turn is kept")
	assert.Equal(t, conversation.RoleUser, msgs[0].Role)
}

func TestHandleChatStorageFailureSurfaces(t *testing.T) {
	cause := &conversation.StorageError{Op: "save", Key: "default", Err: errors.New("redis down")}
	store := &brokenStore{appendErr: cause}
	adapter := &scriptedAdapter{raw: []byte(`"ok"`)}
	svc := New(store, adapter, newTestMetrics(), nil, DefaultOptions())

	_, err := svc.HandleChat(context.Background(), ChatRequest{Message: "hi"})
	var serr *conversation.StorageError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, 1, store.appends)
	assert.Empty(t, adapter.requests, "model must not be called when the user turn was not stored")
}

func TestHistoryAndClear(t *testing.T) {
	svc, _ := newService(t, &scriptedAdapter{raw: []byte(`"ok"`)})
	ctx := context.Background()

	msgs, err := svc.History(ctx, "unused")
	require.NoError(t, err)
	assert.Empty(t, msgs)

	_, err = svc.HandleChat(ctx, ChatRequest{ConversationID: "unused", Message: "hello"})
	require.NoError(t, err)
	msgs, err = svc.History(ctx, "unused")
	require.NoError(t, err)
	assert.Len(t, msgs, 2)

	require.NoError(t, svc.Clear(ctx, "unused"))
	msgs, err = svc.History(ctx, "unused")
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestBuildPromptWindowBounds(t *testing.T) {
	h := []HistoryEntry{{Role: "user", Content: "a"}, {Role: "assistant", Content: "b"}}
	assert.Len(t, BuildPrompt(h, "c", 0), 2)
	assert.Len(t, BuildPrompt(h, "c", -3), 2)
	assert.Len(t, BuildPrompt(h, "c", 10), 4)
	assert.Len(t, BuildPrompt(nil, "c", 4), 2)
}

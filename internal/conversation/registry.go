package conversation

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/antoniostano/wayfarer/internal/logging"
	"github.com/antoniostano/wayfarer/internal/storage"
)

const (
	EventCreated = "created"
	EventEvicted = "evicted"
)

// Registry hands out the single live Store for each conversation key.
// Stores are created on first use and evicted once idle for longer than
// the configured TTL; a store with an operation in flight is never evicted.
type Registry struct {
	backend storage.Backend
	idleTTL time.Duration
	logger  *zap.Logger

	mu      sync.Mutex
	entries map[string]*entry
	onEvent func(event string, live int)
}

type entry struct {
	store    *Store
	refs     int
	lastUsed time.Time
}

func NewRegistry(backend storage.Backend, idleTTL time.Duration, logger *zap.Logger) *Registry {
	if idleTTL <= 0 {
		idleTTL = 10 * time.Minute
	}
	return &Registry{
		backend: backend,
		idleTTL: idleTTL,
		logger:  logging.OrNop(logger),
		entries: make(map[string]*entry),
	}
}

// SetEventHook registers a callback for created/evicted events. It runs
// outside the registry lock.
func (r *Registry) SetEventHook(hook func(event string, live int)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onEvent = hook
}

func (r *Registry) List(ctx context.Context, key string) ([]Message, error) {
	s, release := r.acquire(key)
	defer release()
	return s.List(ctx)
}

func (r *Registry) Append(ctx context.Context, key string, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	s, release := r.acquire(key)
	defer release()
	return s.Append(ctx, msg)
}

func (r *Registry) Clear(ctx context.Context, key string) error {
	s, release := r.acquire(key)
	defer release()
	return s.Clear(ctx)
}

// Live reports how many stores are currently held in memory.
func (r *Registry) Live() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func (r *Registry) StorageMode() string { return r.backend.Mode() }

func (r *Registry) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				r.evictIdle(now)
			}
		}
	}()
}

func (r *Registry) acquire(key string) (*Store, func()) {
	r.mu.Lock()
	e, ok := r.entries[key]
	created := !ok
	if !ok {
		e = &entry{store: NewStore(key, r.backend, r.logger)}
		r.entries[key] = e
	}
	e.refs++
	live := len(r.entries)
	hook := r.onEvent
	r.mu.Unlock()

	if created && hook != nil {
		hook(EventCreated, live)
	}

	var once sync.Once
	return e.store, func() {
		once.Do(func() {
			r.mu.Lock()
			e.refs--
			e.lastUsed = time.Now()
			r.mu.Unlock()
		})
	}
}

func (r *Registry) evictIdle(now time.Time) int {
	var evicted []*Store

	r.mu.Lock()
	for key, e := range r.entries {
		if e.refs > 0 || now.Sub(e.lastUsed) < r.idleTTL {
			continue
		}
		delete(r.entries, key)
		evicted = append(evicted, e.store)
	}
	live := len(r.entries)
	hook := r.onEvent
	r.mu.Unlock()

	for _, st := range evicted {
		r.logger.Debug("conversation evicted", zap.String("conversation_id", st.Key()))
		if hook != nil {
			hook(EventEvicted, live)
		}
	}
	return len(evicted)
}

package storage

import (
	"context"
	"sync"
)

// InMemoryBackend keeps records in process. Data is lost on restart.
type InMemoryBackend struct {
	mu      sync.RWMutex
	records map[string][]byte
}

func NewInMemoryBackend() *InMemoryBackend {
	return &InMemoryBackend{records: make(map[string][]byte)}
}

func (b *InMemoryBackend) Load(_ context.Context, key string) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	rec, ok := b.records[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), rec...), nil
}

func (b *InMemoryBackend) Save(_ context.Context, key string, record []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.records[key] = append([]byte(nil), record...)
	return nil
}

func (b *InMemoryBackend) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.records, key)
	return nil
}

func (b *InMemoryBackend) Mode() string { return "memory" }

func (b *InMemoryBackend) Close() error { return nil }

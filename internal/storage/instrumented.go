package storage

import (
	"context"
	"errors"

	"github.com/antoniostano/wayfarer/internal/observability"
)

type instrumented struct {
	Backend
	metrics *observability.Metrics
}

// WithMetrics counts every backend operation by result.
func WithMetrics(b Backend, m *observability.Metrics) Backend {
	if m == nil {
		return b
	}
	return &instrumented{Backend: b, metrics: m}
}

func (i *instrumented) Load(ctx context.Context, key string) ([]byte, error) {
	rec, err := i.Backend.Load(ctx, key)
	// A missing record is a normal first load.
	if errors.Is(err, ErrNotFound) {
		i.metrics.ObserveStorageOp(i.Mode(), "load", nil)
	} else {
		i.metrics.ObserveStorageOp(i.Mode(), "load", err)
	}
	return rec, err
}

func (i *instrumented) Save(ctx context.Context, key string, record []byte) error {
	err := i.Backend.Save(ctx, key, record)
	i.metrics.ObserveStorageOp(i.Mode(), "save", err)
	return err
}

func (i *instrumented) Delete(ctx context.Context, key string) error {
	err := i.Backend.Delete(ctx, key)
	i.metrics.ObserveStorageOp(i.Mode(), "delete", err)
	return err
}

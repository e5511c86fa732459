// Package storage holds the durable backends behind conversation stores.
// Each backend keeps exactly one record per conversation key: the full
// JSON-encoded message sequence.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Load when no record exists for the key.
var ErrNotFound = errors.New("conversation record not found")

// Backend persists one opaque record per conversation key.
type Backend interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, record []byte) error
	// Delete removes the record. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	Mode() string
	Close() error
}

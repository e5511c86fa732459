package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresBackend stores each conversation as one JSONB row.
type PostgresBackend struct {
	pool *pgxpool.Pool
}

func NewPostgresBackend(ctx context.Context, databaseURL string) (*PostgresBackend, error) {
	pool, err := pgxpool.New(ctx, strings.TrimSpace(databaseURL))
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := initConversationSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresBackend{pool: pool}, nil
}

func initConversationSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS conversations (
			conversation_id TEXT PRIMARY KEY,
			messages JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
	}
	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init conversation schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (b *PostgresBackend) Load(ctx context.Context, key string) ([]byte, error) {
	var raw []byte
	err := b.pool.QueryRow(ctx,
		`SELECT messages FROM conversations WHERE conversation_id=$1`,
		key,
	).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load conversation: %w", err)
	}
	return raw, nil
}

func (b *PostgresBackend) Save(ctx context.Context, key string, record []byte) error {
	_, err := b.pool.Exec(ctx,
		`INSERT INTO conversations (conversation_id, messages, updated_at)
		 VALUES ($1, $2::jsonb, now())
		 ON CONFLICT (conversation_id) DO UPDATE
		 SET messages = EXCLUDED.messages, updated_at = EXCLUDED.updated_at`,
		key,
		string(record),
	)
	if err != nil {
		return fmt.Errorf("save conversation: %w", err)
	}
	return nil
}

func (b *PostgresBackend) Delete(ctx context.Context, key string) error {
	if _, err := b.pool.Exec(ctx, `DELETE FROM conversations WHERE conversation_id=$1`, key); err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	return nil
}

func (b *PostgresBackend) Mode() string { return "postgres" }

func (b *PostgresBackend) Close() error {
	b.pool.Close()
	return nil
}

package storage

import (
	"context"
	"fmt"
	"strings"
)

// Config selects and configures a backend.
type Config struct {
	Mode        string // auto, memory, postgres, redis, sqlite
	DatabaseURL string
	RedisURL    string
	SQLitePath  string
}

// NewBackend builds the configured backend. In auto mode the first configured
// of DATABASE_URL, REDIS_URL and SQLITE_PATH wins, otherwise in-memory.
func NewBackend(ctx context.Context, cfg Config) (Backend, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	if mode == "" || mode == "auto" {
		mode = autoMode(cfg)
	}

	switch mode {
	case "memory":
		return NewInMemoryBackend(), nil
	case "postgres":
		if strings.TrimSpace(cfg.DatabaseURL) == "" {
			return nil, fmt.Errorf("DATABASE_URL is required for postgres storage")
		}
		return NewPostgresBackend(ctx, cfg.DatabaseURL)
	case "redis":
		if strings.TrimSpace(cfg.RedisURL) == "" {
			return nil, fmt.Errorf("REDIS_URL is required for redis storage")
		}
		return NewRedisBackend(ctx, cfg.RedisURL)
	case "sqlite":
		if strings.TrimSpace(cfg.SQLitePath) == "" {
			return nil, fmt.Errorf("SQLITE_PATH is required for sqlite storage")
		}
		return NewSQLiteBackend(ctx, cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.Mode)
	}
}

func autoMode(cfg Config) string {
	switch {
	case strings.TrimSpace(cfg.DatabaseURL) != "":
		return "postgres"
	case strings.TrimSpace(cfg.RedisURL) != "":
		return "redis"
	case strings.TrimSpace(cfg.SQLitePath) != "":
		return "sqlite"
	default:
		return "memory"
	}
}

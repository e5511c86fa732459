// Package inference talks to the hosted text-generation endpoint.
package inference

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ChatMessage is one prompt entry.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is the assembled prompt plus generation parameters.
type Request struct {
	Messages    []ChatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

// Adapter runs one generation and returns the raw response payload. The
// payload shape differs per endpoint; callers normalize it with Normalize.
type Adapter interface {
	Run(ctx context.Context, req Request) ([]byte, error)
	Mode() string
}

// Config controls adapter construction.
type Config struct {
	Mode                string
	CloudflareAccountID string
	CloudflareAPIToken  string
	CloudflareBaseURL   string
	Model               string
	HTTPURL             string
	Timeout             time.Duration
}

func NewAdapter(cfg Config) (Adapter, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	if mode == "" {
		mode = "auto"
	}

	switch mode {
	case "auto":
		return newAutoAdapter(cfg), nil
	case "cloudflare":
		if strings.TrimSpace(cfg.CloudflareAccountID) == "" || strings.TrimSpace(cfg.CloudflareAPIToken) == "" {
			return nil, errors.New("cloudflare account id and api token are required for cloudflare mode")
		}
		return NewCloudflareAdapter(cfg), nil
	case "http":
		if strings.TrimSpace(cfg.HTTPURL) == "" {
			return nil, errors.New("inference HTTP url is required for http mode")
		}
		return NewHTTPAdapter(cfg.HTTPURL, cfg.Model, cfg.Timeout), nil
	case "mock":
		return NewMockAdapter(), nil
	default:
		return nil, fmt.Errorf("unsupported inference mode %q", cfg.Mode)
	}
}

func newAutoAdapter(cfg Config) Adapter {
	if strings.TrimSpace(cfg.CloudflareAccountID) != "" && strings.TrimSpace(cfg.CloudflareAPIToken) != "" {
		return NewCloudflareAdapter(cfg)
	}
	if strings.TrimSpace(cfg.HTTPURL) != "" {
		return NewHTTPAdapter(cfg.HTTPURL, cfg.Model, cfg.Timeout)
	}
	return NewMockAdapter()
}

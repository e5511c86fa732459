package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	setCoreEnvEmpty(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.BindAddr != ":8787" {
		t.Fatalf("BindAddr = %q, want %q", cfg.BindAddr, ":8787")
	}
	if cfg.StorageBackend != "auto" {
		t.Fatalf("StorageBackend = %q, want %q", cfg.StorageBackend, "auto")
	}
	if cfg.InferenceMode != "auto" {
		t.Fatalf("InferenceMode = %q, want %q", cfg.InferenceMode, "auto")
	}
	if cfg.InferenceTemperature != 0.7 {
		t.Fatalf("InferenceTemperature = %v, want 0.7", cfg.InferenceTemperature)
	}
	if cfg.InferenceMaxTokens != 800 {
		t.Fatalf("InferenceMaxTokens = %d, want 800", cfg.InferenceMaxTokens)
	}
	if cfg.HistoryWindow != 4 {
		t.Fatalf("HistoryWindow = %d, want 4", cfg.HistoryWindow)
	}
	if cfg.DefaultConversationID != "default" {
		t.Fatalf("DefaultConversationID = %q, want %q", cfg.DefaultConversationID, "default")
	}
	if cfg.ConversationIdleTTL != 10*time.Minute {
		t.Fatalf("ConversationIdleTTL = %v, want 10m", cfg.ConversationIdleTTL)
	}
}

func TestLoadExplicitValues(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("STORAGE_BACKEND", "Redis")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("INFERENCE_TEMPERATURE", "0.2")
	t.Setenv("CHAT_HISTORY_WINDOW", "0")
	t.Setenv("CONVERSATION_IDLE_TTL", "90s")
	t.Setenv("APP_ALLOW_ANY_ORIGIN", "yes")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.StorageBackend != "redis" {
		t.Fatalf("StorageBackend = %q, want %q", cfg.StorageBackend, "redis")
	}
	if cfg.RedisURL != "redis://localhost:6379/0" {
		t.Fatalf("RedisURL = %q, want explicit value", cfg.RedisURL)
	}
	if cfg.InferenceTemperature != 0.2 {
		t.Fatalf("InferenceTemperature = %v, want 0.2", cfg.InferenceTemperature)
	}
	if cfg.HistoryWindow != 0 {
		t.Fatalf("HistoryWindow = %d, want 0", cfg.HistoryWindow)
	}
	if cfg.ConversationIdleTTL != 90*time.Second {
		t.Fatalf("ConversationIdleTTL = %v, want 90s", cfg.ConversationIdleTTL)
	}
	if !cfg.AllowAnyOrigin {
		t.Fatalf("AllowAnyOrigin = false, want true")
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"STORAGE_BACKEND":       "cassandra",
		"INFERENCE_MODE":        "carrier-pigeon",
		"INFERENCE_TEMPERATURE": "3",
		"INFERENCE_MAX_TOKENS":  "0",
		"CHAT_HISTORY_WINDOW":   "-1",
		"CONVERSATION_IDLE_TTL": "10ms",
		"APP_SHUTDOWN_TIMEOUT":  "soon",
		"APP_LOG_FORMAT":        "xml",
		"APP_ALLOW_ANY_ORIGIN":  "maybe",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			setCoreEnvEmpty(t)
			t.Setenv(key, value)
			if _, err := Load(); err == nil {
				t.Fatalf("Load() with %s=%q expected error", key, value)
			}
		})
	}
}

func setCoreEnvEmpty(t *testing.T) {
	t.Helper()
	keys := []string{
		"APP_BIND_ADDR",
		"APP_SHUTDOWN_TIMEOUT",
		"APP_METRICS_NAMESPACE",
		"APP_ALLOW_ANY_ORIGIN",
		"APP_LOG_LEVEL",
		"APP_LOG_FORMAT",
		"APP_LOG_FILE",
		"STORAGE_BACKEND",
		"DATABASE_URL",
		"REDIS_URL",
		"SQLITE_PATH",
		"CONVERSATION_IDLE_TTL",
		"DEFAULT_CONVERSATION_ID",
		"INFERENCE_MODE",
		"CLOUDFLARE_ACCOUNT_ID",
		"CLOUDFLARE_API_TOKEN",
		"INFERENCE_MODEL",
		"INFERENCE_HTTP_URL",
		"INFERENCE_TIMEOUT",
		"INFERENCE_TEMPERATURE",
		"INFERENCE_MAX_TOKENS",
		"CHAT_HISTORY_WINDOW",
	}
	for _, key := range keys {
		t.Setenv(key, "")
	}
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the travel chat service.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string
	AllowAnyOrigin   bool

	LogLevel  string
	LogFormat string
	LogFile   string

	StorageBackend string
	DatabaseURL    string
	RedisURL       string
	SQLitePath     string

	ConversationIdleTTL   time.Duration
	DefaultConversationID string

	InferenceMode        string
	CloudflareAccountID  string
	CloudflareAPIToken   string
	InferenceModel       string
	InferenceHTTPURL     string
	InferenceTimeout     time.Duration
	InferenceTemperature float64
	InferenceMaxTokens   int

	HistoryWindow int
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:              envOrDefault("APP_BIND_ADDR", ":8787"),
		MetricsNamespace:      envOrDefault("APP_METRICS_NAMESPACE", "wayfarer"),
		LogLevel:              strings.ToLower(envOrDefault("APP_LOG_LEVEL", "info")),
		LogFormat:             strings.ToLower(envOrDefault("APP_LOG_FORMAT", "json")),
		LogFile:               stringsTrimSpace("APP_LOG_FILE"),
		StorageBackend:        strings.ToLower(envOrDefault("STORAGE_BACKEND", "auto")),
		DatabaseURL:           stringsTrimSpace("DATABASE_URL"),
		RedisURL:              stringsTrimSpace("REDIS_URL"),
		SQLitePath:            stringsTrimSpace("SQLITE_PATH"),
		DefaultConversationID: envOrDefault("DEFAULT_CONVERSATION_ID", "default"),
		InferenceMode:         strings.ToLower(envOrDefault("INFERENCE_MODE", "auto")),
		CloudflareAccountID:   stringsTrimSpace("CLOUDFLARE_ACCOUNT_ID"),
		CloudflareAPIToken:    stringsTrimSpace("CLOUDFLARE_API_TOKEN"),
		// Same model the hosted worker ran against.
		InferenceModel:       envOrDefault("INFERENCE_MODEL", "@cf/meta/llama-3.3-70b-instruct-fp8-fast"),
		InferenceHTTPURL:     stringsTrimSpace("INFERENCE_HTTP_URL"),
		ShutdownTimeout:      15 * time.Second,
		ConversationIdleTTL:  10 * time.Minute,
		InferenceTimeout:     60 * time.Second,
		InferenceTemperature: 0.7,
		InferenceMaxTokens:   800,
		HistoryWindow:        4,
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.ConversationIdleTTL, err = durationFromEnv("CONVERSATION_IDLE_TTL", cfg.ConversationIdleTTL)
	if err != nil {
		return Config{}, err
	}
	cfg.InferenceTimeout, err = durationFromEnv("INFERENCE_TIMEOUT", cfg.InferenceTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}
	cfg.InferenceTemperature, err = floatFromEnv("INFERENCE_TEMPERATURE", cfg.InferenceTemperature)
	if err != nil {
		return Config{}, err
	}
	cfg.InferenceMaxTokens, err = intFromEnv("INFERENCE_MAX_TOKENS", cfg.InferenceMaxTokens)
	if err != nil {
		return Config{}, err
	}
	cfg.HistoryWindow, err = intFromEnv("CHAT_HISTORY_WINDOW", cfg.HistoryWindow)
	if err != nil {
		return Config{}, err
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.StorageBackend {
	case "auto", "memory", "postgres", "redis", "sqlite":
	default:
		return fmt.Errorf("invalid STORAGE_BACKEND %q (expected auto|memory|postgres|redis|sqlite)", c.StorageBackend)
	}
	switch c.InferenceMode {
	case "auto", "cloudflare", "http", "mock":
	default:
		return fmt.Errorf("invalid INFERENCE_MODE %q (expected auto|cloudflare|http|mock)", c.InferenceMode)
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("invalid APP_LOG_FORMAT %q (expected json|console)", c.LogFormat)
	}
	if strings.TrimSpace(c.DefaultConversationID) == "" {
		return fmt.Errorf("DEFAULT_CONVERSATION_ID must not be blank")
	}
	if c.ConversationIdleTTL < time.Second {
		return fmt.Errorf("CONVERSATION_IDLE_TTL must be at least 1s")
	}
	if c.InferenceTimeout <= 0 {
		return fmt.Errorf("INFERENCE_TIMEOUT must be positive")
	}
	if c.InferenceTemperature < 0 || c.InferenceTemperature > 2 {
		return fmt.Errorf("INFERENCE_TEMPERATURE must be in [0,2]")
	}
	if c.InferenceMaxTokens <= 0 {
		return fmt.Errorf("INFERENCE_MAX_TOKENS must be positive")
	}
	if c.HistoryWindow < 0 {
		return fmt.Errorf("CHAT_HISTORY_WINDOW must be >= 0")
	}
	return nil
}

func envOrDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func stringsTrimSpace(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func floatFromEnv(key string, fallback float64) (float64, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return f, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(stringsTrimSpace(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: invalid boolean %q", key, v)
	}
}

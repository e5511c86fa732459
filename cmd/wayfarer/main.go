package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/antoniostano/wayfarer/internal/config"
	"github.com/antoniostano/wayfarer/internal/conversation"
	"github.com/antoniostano/wayfarer/internal/gateway"
	"github.com/antoniostano/wayfarer/internal/httpapi"
	"github.com/antoniostano/wayfarer/internal/inference"
	"github.com/antoniostano/wayfarer/internal/logging"
	"github.com/antoniostano/wayfarer/internal/observability"
	"github.com/antoniostano/wayfarer/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger, err := logging.New(logging.Options{
		Level:      cfg.LogLevel,
		Format:     cfg.LogFormat,
		File:       cfg.LogFile,
		MaxBackups: 5,
		MaxAgeDays: 14,
	})
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	ctx := context.Background()
	backend, err := storage.NewBackend(ctx, storage.Config{
		Mode:        cfg.StorageBackend,
		DatabaseURL: cfg.DatabaseURL,
		RedisURL:    cfg.RedisURL,
		SQLitePath:  cfg.SQLitePath,
	})
	if err != nil {
		logger.Fatal("storage backend init failed", zap.Error(err))
	}
	defer backend.Close()
	logger.Info("storage backend ready", zap.String("mode", backend.Mode()))

	adapter, err := inference.NewAdapter(inference.Config{
		Mode:                cfg.InferenceMode,
		CloudflareAccountID: cfg.CloudflareAccountID,
		CloudflareAPIToken:  cfg.CloudflareAPIToken,
		Model:               cfg.InferenceModel,
		HTTPURL:             cfg.InferenceHTTPURL,
		Timeout:             cfg.InferenceTimeout,
	})
	if err != nil {
		logger.Fatal("inference adapter init failed", zap.Error(err))
	}
	logger.Info("inference adapter ready", zap.String("mode", adapter.Mode()), zap.String("model", cfg.InferenceModel))

	// Handlers report the resolved modes, not "auto".
	cfg.StorageBackend = backend.Mode()
	cfg.InferenceMode = adapter.Mode()

	conversations := conversation.NewRegistry(storage.WithMetrics(backend, metrics), cfg.ConversationIdleTTL, logger)
	conversations.SetEventHook(metrics.ObserveConversationEvent)

	opts := gateway.DefaultOptions()
	opts.DefaultConversationID = cfg.DefaultConversationID
	opts.HistoryWindow = cfg.HistoryWindow
	opts.Temperature = cfg.InferenceTemperature
	opts.MaxTokens = cfg.InferenceMaxTokens
	chat := gateway.New(conversations, adapter, metrics, logger, opts)

	api := httpapi.New(cfg, chat, conversations, metrics, logger)
	httpServer := &http.Server{
		Addr:              cfg.BindAddr,
		Handler:           api.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()
	conversations.StartJanitor(runCtx, 30*time.Second)

	go func() {
		logger.Info("server listening", zap.String("addr", cfg.BindAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen error", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info("shutdown signal received")

	runCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
		_ = httpServer.Close()
	}

	logger.Info("shutdown complete")
}

package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"ragstore/internal/api/rest"
	"ragstore/internal/auth"
	"ragstore/internal/chat"
	"ragstore/internal/chunker"
	"ragstore/internal/config"
	"ragstore/internal/domain"
	"ragstore/internal/embedding/openai"
	"ragstore/internal/engine"
	"ragstore/internal/pdf"
	"ragstore/internal/registry"
)

func main() {
	_ = godotenv.Load()

	var cfgPath string
	flag.StringVar(&cfgPath, "config", "config.yaml", "Path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("Failed to load config", "path", cfgPath, "error", err)
		os.Exit(1)
	}
	setupLogging(cfg.Logging)

	var emb domain.Embedder
	switch cfg.Embedder.Type {
	case "openai":
		client, err := openai.NewClient(openai.Config{
			BaseURL:   cfg.Embedder.OpenAI.BaseURL,
			APIKeyEnv: cfg.Embedder.OpenAI.APIKeyEnv,
			Model:     cfg.Embedder.OpenAI.Model,
			Timeout:   time.Duration(cfg.Embedder.OpenAI.TimeoutSecs) * time.Second,
		})
		if err != nil {
			slog.Error("Embedder init failed", "error", err)
			os.Exit(1)
		}
		emb = client
	default:
		slog.Error("Unknown embedder", "type", cfg.Embedder.Type)
		os.Exit(1)
	}

	reg, err := registry.New(cfg.Store.DataPath, emb)
	if err != nil {
		slog.Error("Registry init failed", "data_path", cfg.Store.DataPath, "error", err)
		os.Exit(1)
	}

	loader := pdf.NewLoader(chunker.NewSentenceChunker(cfg.Chunker.SentencesPerChunk, cfg.Chunker.OverlapSentences))

	opts := []engine.Option{}
	if cfg.Store.ScratchPath != "" {
		opts = append(opts, engine.WithScratchDir(cfg.Store.ScratchPath))
	}
	if cfg.Chat.Enabled {
		chatClient, err := chat.NewClient(chat.Config{
			BaseURL:   cfg.Chat.BaseURL,
			APIKeyEnv: cfg.Chat.APIKeyEnv,
			Model:     cfg.Chat.Model,
			Timeout:   time.Duration(cfg.Chat.TimeoutSecs) * time.Second,
		})
		if err != nil {
			slog.Error("Chat backend init failed", "error", err)
			os.Exit(1)
		}
		opts = append(opts, engine.WithChat(chatClient))
	}
	eng := engine.New(reg, loader, opts...)

	var authSvc *auth.Service
	if cfg.Auth.Enabled {
		authSvc, err = auth.NewService(cfg.Auth.SecretKey, cfg.Auth.AdminHash)
		if err != nil {
			slog.Error("Auth init failed", "error", err)
			os.Exit(1)
		}
	}

	handler := rest.NewHandler(eng, authSvc, cfg.Server.Origin)
	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("Server listening",
			"addr", cfg.Server.Addr,
			"auth_enabled", cfg.Auth.Enabled,
			"chat_enabled", cfg.Chat.Enabled,
			"data_path", cfg.Store.DataPath,
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Shutdown failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Server stopped")
}

func setupLogging(cfg config.LoggingConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}

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

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/datasynth-ai/datasynth-engine/pkg/config"
	"github.com/datasynth-ai/datasynth-engine/pkg/engine"
	"github.com/datasynth-ai/datasynth-engine/pkg/handlers"
	"github.com/datasynth-ai/datasynth-engine/pkg/jobs"
	"github.com/datasynth-ai/datasynth-engine/pkg/llm"
	"github.com/datasynth-ai/datasynth-engine/pkg/middleware"
	"github.com/datasynth-ai/datasynth-engine/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("configuration loaded",
		zap.String("environment", cfg.Env),
		zap.String("base_url", cfg.BaseURL),
		zap.String("redis", cfg.Redis.Addr),
		zap.Bool("openai", cfg.OpenAI.Configured()),
		zap.Bool("ollama", cfg.Ollama.Configured()))

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		pingCancel()
		logger.Fatal("redis unreachable", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
	}
	pingCancel()

	providers, err := buildProviders(cfg, logger)
	if err != nil {
		logger.Fatal("llm provider setup failed", zap.Error(err))
	}

	store := jobs.NewStore(rdb, logger)
	runner := jobs.NewRunner(cfg.Jobs.MaxConcurrent, logger)
	eng := engine.New(providers, logger)
	generation := services.NewGenerationService(store, runner, eng, logger)

	mux := http.NewServeMux()
	handlers.NewHealthHandler(cfg, logger).RegisterRoutes(mux)
	handlers.NewGenerateHandler(generation, cfg.Jobs.SyncRowLimit, logger).RegisterRoutes(mux)
	handlers.NewJobsHandler(generation, logger).RegisterRoutes(mux)
	handlers.NewWSHandler(store, logger).RegisterRoutes(mux)

	server := &http.Server{
		Addr:              cfg.BindAddr + ":" + cfg.Port,
		Handler:           middleware.RequestLogger(logger)(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting datasynth-engine",
			zap.String("addr", server.Addr),
			zap.String("version", cfg.Version))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	logger.Info("shutting down")

	grace := time.Duration(cfg.Jobs.ShutdownGraceSeconds) * time.Second
	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	if err := runner.Shutdown(shutdownCtx); err != nil {
		logger.Error("runner shutdown", zap.Error(err))
	}
	if err := rdb.Close(); err != nil {
		logger.Error("redis close", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

// newLogger builds a production logger, or a development one for local runs.
func newLogger(env string) (*zap.Logger, error) {
	if env == "local" || env == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// buildProviders creates an LLM client per configured provider, keyed by the
// provider name fields reference.
func buildProviders(cfg *config.Config, logger *zap.Logger) (map[string]llm.Client, error) {
	providers := make(map[string]llm.Client)

	if cfg.OpenAI.Configured() {
		client, err := llm.NewOpenAIClient(&llm.Config{
			Endpoint: cfg.OpenAI.BaseURL,
			Model:    cfg.OpenAI.Model,
			APIKey:   cfg.OpenAI.APIKey,
		}, logger)
		if err != nil {
			return nil, err
		}
		providers["openai"] = client
	}

	if cfg.Ollama.Configured() {
		client, err := llm.NewOpenAIClient(&llm.Config{
			Endpoint: cfg.Ollama.BaseURL,
			Model:    cfg.Ollama.Model,
			APIKey:   cfg.Ollama.APIKey,
		}, logger)
		if err != nil {
			return nil, err
		}
		providers["ollama"] = client
	}

	return providers, nil
}

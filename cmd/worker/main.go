package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/souschef-ai/backend/config"
	"github.com/souschef-ai/backend/internal/cancel"
	"github.com/souschef-ai/backend/internal/database"
	"github.com/souschef-ai/backend/internal/metrics"
	"github.com/souschef-ai/backend/internal/queue"
	"github.com/souschef-ai/backend/internal/service"
	"github.com/souschef-ai/backend/internal/worker"
	"github.com/souschef-ai/backend/pkg/logger"
)

// Standalone worker process. Multiple instances may run against the same
// Redis queue; the lease guarantees each job is held by at most one.
func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	zlog, err := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
		Development: config.IsDevelopment(),
	})
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	db, err := database.NewGorm(cfg)
	if err != nil {
		zlog.Fatal("database connection failed", zap.Error(err))
	}

	redisClient, err := database.NewRedisClient(cfg)
	if err != nil {
		zlog.Fatal("redis connection failed", zap.Error(err))
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	llmService, err := service.NewLLMService(cfg.LLMAPIKey, cfg.LLMAPIURL, zlog)
	if err != nil {
		zlog.Fatal("llm service init failed", zap.Error(err))
	}
	s3cfg, err := config.NewS3Config(ctx)
	if err != nil {
		zlog.Fatal("s3 config init failed", zap.Error(err))
	}
	imageService, err := service.NewImageService(cfg.ImageAPIKey, cfg.ImageAPIURL, s3cfg, zlog)
	if err != nil {
		zlog.Fatal("image service init failed", zap.Error(err))
	}
	recipeService := service.NewRecipeService(db)

	jobQueue := queue.NewRedisQueue(redisClient, zlog)
	registry := cancel.NewRedisRegistry(redisClient, cfg.CancelRetention, zlog)
	processor := worker.NewGenerationProcessor(llmService, imageService, recipeService, zlog)

	w := worker.New(jobQueue, registry, processor, metrics.NewDefault(), zlog, worker.Options{
		Concurrency: cfg.WorkerConcurrency,
	})

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		sig := <-quit
		zlog.Info("shutting down", zap.String("signal", sig.String()))
		stop()
	}()

	zlog.Info("worker started", zap.Int("concurrency", cfg.WorkerConcurrency))
	if err := w.Run(ctx); err != nil {
		zlog.Fatal("worker error", zap.Error(err))
	}
	zlog.Info("worker stopped")
}

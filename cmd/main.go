package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/RishiKendai/argus/internal/api"
	"github.com/RishiKendai/argus/internal/config"
	"github.com/RishiKendai/argus/internal/configs/env"
	"github.com/RishiKendai/argus/internal/detector"
	"github.com/RishiKendai/argus/internal/infra/mongo"
	redisInfra "github.com/RishiKendai/argus/internal/infra/redis"
	"github.com/RishiKendai/argus/internal/logger"
	"github.com/RishiKendai/argus/internal/repository"
	"github.com/RishiKendai/argus/internal/stream"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := env.LoadEnv(); err != nil {
		log.Warn().Err(err).Msg("Failed to load .env file, continuing with system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("Invalid configuration: %v", err))
	}

	logger.Init(cfg.LogLevel)
	log.Info().Msg("Starting ARGUS server")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect MongoDB
	mongoClient, err := mongo.NewClient(ctx, cfg.MongoURI, cfg.MongoDBName)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create MongoDB client")
	}
	defer mongoClient.Close(ctx)

	// Connect Redis
	redisClient, err := redisInfra.NewClient(ctx, cfg.RedisHost, cfg.RedisPassword, 0)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Redis client")
	}
	defer redisClient.Close()

	// Initialize repositories
	mongoRepo := repository.NewMongoRepository(mongoClient)
	reportsRepo := repository.NewReportsRepository(mongoRepo)

	// Initialize similarity engine
	det, err := detector.New(cfg.DetectorOptions())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create detector")
	}
	log.Info().
		Int("window_size", cfg.WindowSize).
		Float64("threshold", cfg.SimilarityThreshold).
		Int("tree_order", cfg.TreeOrder).
		Msg("Similarity engine initialized")

	// Initialize worker pool for concurrent tokenization/fingerprinting
	workerPool := detector.NewWorkerPool(ctx, cfg.Workers)
	defer workerPool.Close()

	// Initialize retry handler
	retryHandler := stream.NewRetryHandler(redisClient.Client, cfg.RedisDeadLetterKey)

	// Initialize Redis stream consumer
	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "unknown"
	}
	consumerName := fmt.Sprintf("consumer-%s-%d-%s", hostname, os.Getpid(), uuid.New().String()[:8])
	consumer := stream.NewConsumer(
		redisClient.Client,
		cfg.RedisStreamKey,
		cfg.RedisConsumerGroup,
		consumerName,
		det,
		workerPool,
		reportsRepo,
		retryHandler,
		cfg.StreamRetentionDuration,
	)
	log.Info().Str("consumer_name", consumerName).Msg("Redis stream consumer initialized")

	router := api.SetupRoutes(cfg, det, reportsRepo)

	// Start Redis consumer in background
	consumerCtx, consumerCancel := context.WithCancel(ctx)
	defer consumerCancel()
	go func() {
		if err := consumer.Start(consumerCtx); err != nil && err != context.Canceled {
			log.Error().Err(err).Msg("Redis consumer error")
		}
	}()
	log.Info().Msg("Redis consumer started")

	// Start Gin server - Gin handles all HTTP routing, middleware (auth, rate limiter), and request processing
	srv := api.StartServer(router, cfg.ServerPort)

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down gracefully...")

	// Shutdown Gin server gracefully
	if err := api.ShutdownServer(srv, 30*time.Second); err != nil {
		log.Error().Err(err).Msg("Error shutting down Gin server")
	}

	log.Info().Msg("Shutdown complete")
}

package config

import (
	"fmt"
	"time"

	"github.com/RishiKendai/argus/internal/configs/env"
	"github.com/RishiKendai/argus/internal/detector"
)

// Config holds all configuration for the application
type Config struct {
	// Detection engine
	WindowSize          int
	SimilarityThreshold float64
	TreeOrder           int

	// Concurrency
	Workers int

	// MongoDB
	MongoURI    string
	MongoDBName string

	// Redis
	RedisHost               string
	RedisPassword           string
	RedisStreamKey          string
	RedisConsumerGroup      string
	RedisDeadLetterKey      string
	StreamRetentionDuration time.Duration

	// JWT
	JWTSecret string
	JWTIssuer string

	// Rate Limiting
	RateLimitRPS float64

	// Logging
	LogLevel string

	// Server
	ServerPort string
}

func Load() (*Config, error) {
	cfg := &Config{}

	// Detection engine
	cfg.WindowSize = env.GetEnvInt("WINDOW_SIZE", 5)
	cfg.SimilarityThreshold = env.GetEnvFloat("SIMILARITY_THRESHOLD", 0.7)
	cfg.TreeOrder = env.GetEnvInt("TREE_ORDER", 4)

	// Concurrency (0 = CPU-based pool sizing)
	cfg.Workers = env.GetEnvInt("WORKERS", 0)

	// MongoDB
	cfg.MongoURI = env.GetEnv("MONGO_URI", "")
	cfg.MongoDBName = env.GetEnv("MONGO_DB_NAME", "")

	// Redis
	cfg.RedisHost = env.GetEnv("REDIS_HOST", "localhost:6379")
	cfg.RedisPassword = env.GetEnv("REDIS_PASSWORD", "")
	cfg.RedisStreamKey = env.GetEnv("REDIS_STREAM_KEY", "submissions:stream")
	cfg.RedisConsumerGroup = env.GetEnv("REDIS_CONSUMER_GROUP", "submissions:group")
	cfg.RedisDeadLetterKey = env.GetEnv("REDIS_DEAD_LETTER_KEY", "submissions:dlq")
	retentionHours := env.GetEnvInt("STREAM_RETENTION_DURATION", 24)
	cfg.StreamRetentionDuration = time.Duration(retentionHours) * time.Hour

	// JWT
	cfg.JWTSecret = env.GetEnv("JWT_SECRET", "")
	cfg.JWTIssuer = env.GetEnv("JWT_ISSUER", "argus")

	// Rate Limiting
	cfg.RateLimitRPS = env.GetEnvFloat("RATE_LIMIT_RPS", 10.0)

	// Logging
	cfg.LogLevel = env.GetEnv("LOG_LEVEL", "info")

	// Server
	cfg.ServerPort = env.GetEnv("SERVER_PORT", "8080")

	return cfg, nil
}

// DetectorOptions projects the engine parameters for detector.New.
func (c *Config) DetectorOptions() detector.Options {
	return detector.Options{
		WindowSize:          c.WindowSize,
		SimilarityThreshold: c.SimilarityThreshold,
		TreeOrder:           c.TreeOrder,
	}
}

// Validate rejects an unusable configuration before any ingestion starts.
func (c *Config) Validate() error {
	if err := c.DetectorOptions().Validate(); err != nil {
		return err
	}
	if c.MongoURI == "" {
		return fmt.Errorf("MONGO_URI is required")
	}
	if c.MongoDBName == "" {
		return fmt.Errorf("MONGO_DB_NAME is required")
	}
	if c.RedisHost == "" {
		return fmt.Errorf("REDIS_HOST is required")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.StreamRetentionDuration <= 0 {
		return fmt.Errorf("STREAM_RETENTION_DURATION must be greater than 0")
	}
	return nil
}

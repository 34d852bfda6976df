package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Client wraps the Redis client.
type Client struct {
	Client *redis.Client
}

// NewClient connects to Redis and verifies the connection with a ping.
func NewClient(ctx context.Context, addr, password string, db int) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	log.Info().Str("addr", addr).Msg("Connected to Redis")

	return &Client{Client: client}, nil
}

// Close closes the Redis connection.
func (c *Client) Close() {
	if err := c.Client.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close Redis connection")
		return
	}
	log.Info().Msg("Redis connection closed")
}

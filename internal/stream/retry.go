package stream

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// RetryHandler retries transient failures with exponential backoff and parks
// messages that keep failing on a dead letter stream.
type RetryHandler struct {
	client        *redis.Client
	deadLetterKey string
	maxRetries    int
	baseDelay     time.Duration
}

func NewRetryHandler(client *redis.Client, deadLetterKey string) *RetryHandler {
	return &RetryHandler{
		client:        client,
		deadLetterKey: deadLetterKey,
		maxRetries:    3,
		baseDelay:     500 * time.Millisecond,
	}
}

// RetryWithBackoff runs fn up to maxRetries+1 times. After the final failure
// the original message is copied to the dead letter stream and the last error
// is returned.
func (r *RetryHandler) RetryWithBackoff(ctx context.Context, fn func() error, messageID string, fields map[string]interface{}) error {
	var lastErr error

	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		if attempt > 0 {
			delay := r.baseDelay * time.Duration(1<<(attempt-1))
			log.Warn().
				Str("message_id", messageID).
				Int("attempt", attempt).
				Dur("delay", delay).
				Err(lastErr).
				Msg("Retrying message after failure")

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		if lastErr = fn(); lastErr == nil {
			return nil
		}
	}

	if err := r.sendToDeadLetter(ctx, messageID, fields, lastErr); err != nil {
		log.Error().Err(err).Str("message_id", messageID).Msg("Failed to send message to dead letter stream")
	}

	return fmt.Errorf("message %s failed after %d retries: %w", messageID, r.maxRetries, lastErr)
}

func (r *RetryHandler) sendToDeadLetter(ctx context.Context, messageID string, fields map[string]interface{}, cause error) error {
	values := make(map[string]interface{}, len(fields)+3)
	for k, v := range fields {
		values[k] = v
	}
	values["original_message_id"] = messageID
	values["error"] = cause.Error()
	values["failed_at"] = time.Now().Format(time.RFC3339)

	err := r.client.XAdd(ctx, &redis.XAddArgs{
		Stream: r.deadLetterKey,
		Values: values,
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to add message to dead letter stream: %w", err)
	}

	log.Info().
		Str("message_id", messageID).
		Str("dead_letter_key", r.deadLetterKey).
		Msg("Message moved to dead letter stream")

	return nil
}

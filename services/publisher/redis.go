package publisher

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"apartment-hunter/internal/scorer"
	apperrors "apartment-hunter/pkg/errors"
)

// RedisPublisher implements Publisher on a Redis stream. The stream is
// capped so repeated runs do not grow it without bound.
type RedisPublisher struct {
	client *redis.Client
	stream string
	maxLen int64
}

// NewRedisPublisher creates a new Redis publisher
func NewRedisPublisher(addr string, db int, stream string, maxLen int) *RedisPublisher {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	return &RedisPublisher{
		client: client,
		stream: stream,
		maxLen: int64(maxLen),
	}
}

// Publish appends one ranked listing to the stream as JSON.
func (p *RedisPublisher) Publish(ctx context.Context, listing scorer.ScoredListing) error {
	data, err := json.Marshal(listing)
	if err != nil {
		return apperrors.NewPublisher("redis", "could not encode listing", err)
	}

	err = p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: p.maxLen,
		Approx: true,
		Values: map[string]interface{}{"listing": data},
	}).Err()
	if err != nil {
		return apperrors.NewPublisher("redis", "could not publish listing", err)
	}
	return nil
}

// Close closes the Redis connection
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}

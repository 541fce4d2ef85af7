package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/canpl-analytics/cplodds/internal/models"
	"github.com/canpl-analytics/cplodds/pkg/poisson"
)

// Cache is a Redis-backed prediction cache. It is strictly optional: a nil
// *Cache is valid and every method on it is a no-op, so callers never need
// to branch on whether Redis is configured.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// New connects to Redis and verifies the connection with a ping.
func New(addr, password string, db int, ttl time.Duration) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}

	return &Cache{client: client, ttl: ttl}, nil
}

// Key builds the cache key for a fixture: prediction:<home>:<away> with
// team names slugged the same way match ids are.
func Key(homeTeam, awayTeam string) string {
	return fmt.Sprintf("prediction:%s:%s", models.TeamSlug(homeTeam), models.TeamSlug(awayTeam))
}

// GetPrediction returns the cached prediction for a fixture, or false on a
// miss. Redis errors degrade to a miss with a warning; they never fail a
// request.
func (c *Cache) GetPrediction(ctx context.Context, homeTeam, awayTeam string) (*poisson.Prediction, bool) {
	if c == nil {
		return nil, false
	}

	key := Key(homeTeam, awayTeam)
	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Cache read failed, treating as miss")
		return nil, false
	}

	var p poisson.Prediction
	if err := json.Unmarshal(data, &p); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Cache payload unreadable, treating as miss")
		return nil, false
	}
	return &p, true
}

// SetPrediction stores a prediction as JSON under its fixture key with the
// configured TTL. Failures are logged and swallowed.
func (c *Cache) SetPrediction(ctx context.Context, p *poisson.Prediction) {
	if c == nil || p == nil {
		return
	}

	key := Key(p.HomeTeam, p.AwayTeam)
	data, err := json.Marshal(p)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Failed to marshal prediction for cache")
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Cache write failed")
	}
}

// Flush deletes every prediction key. Called after a refit so stale
// probabilities never outlive the model that produced them. Only keys under
// the prediction: prefix are touched.
func (c *Cache) Flush(ctx context.Context) error {
	if c == nil {
		return nil
	}

	var deleted int64
	iter := c.client.Scan(ctx, 0, "prediction:*", 100).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("failed to delete cache key %s: %w", iter.Val(), err)
		}
		deleted++
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("cache scan failed: %w", err)
	}

	log.Info().Int64("keys", deleted).Msg("Prediction cache flushed")
	return nil
}

// Close releases the Redis connection. Safe on nil.
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}

// Package cache provides a tiny Redis client wrapper for caching per-input
// predictions between serve requests.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultTTL = time.Hour

// Prediction is one cached model output.
type Prediction struct {
	Mean float64
	Var  float64
}

// Cache wraps a Redis client for prediction storage.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// New creates a new Cache instance connected to the specified Redis address.
// If addr is empty, defaults to localhost:6379. ttl <= 0 falls back to one
// hour.
func New(addr string, ttl time.Duration) (*Cache, error) {
	if addr == "" {
		addr = "localhost:6379"
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: "", // No password by default
		DB:       0,  // Default DB
	})

	// Test connection
	ctx := context.Background()
	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}

	return &Cache{client: client, ttl: ttl}, nil
}

// Set stores the prediction for one identifier.
func (c *Cache) Set(ctx context.Context, id string, p Prediction) error {
	if c.client == nil {
		return fmt.Errorf("cache client is nil")
	}
	err := c.client.Set(ctx, key(id), encode(p), c.ttl).Err()
	if err != nil {
		return fmt.Errorf("failed to cache prediction for %q: %w", id, err)
	}
	return nil
}

// Get retrieves the prediction for one identifier. A miss returns ok=false
// with no error.
func (c *Cache) Get(ctx context.Context, id string) (Prediction, bool, error) {
	if c.client == nil {
		return Prediction{}, false, fmt.Errorf("cache client is nil")
	}
	data, err := c.client.Get(ctx, key(id)).Result()
	if err == redis.Nil {
		return Prediction{}, false, nil // Key does not exist
	}
	if err != nil {
		return Prediction{}, false, fmt.Errorf("failed to get prediction for %q: %w", id, err)
	}
	p, err := decode(data)
	if err != nil {
		return Prediction{}, false, err
	}
	return p, true, nil
}

// GetMany retrieves predictions for several identifiers in one round trip.
// Missing identifiers are simply absent from the result.
func (c *Cache) GetMany(ctx context.Context, ids []string) (map[string]Prediction, error) {
	if c.client == nil {
		return nil, fmt.Errorf("cache client is nil")
	}
	if len(ids) == 0 {
		return map[string]Prediction{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = key(id)
	}
	values, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get %d predictions: %w", len(ids), err)
	}

	out := make(map[string]Prediction, len(ids))
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			continue // miss
		}
		p, err := decode(s)
		if err != nil {
			continue // stale or foreign value, treat as miss
		}
		out[ids[i]] = p
	}
	return out, nil
}

// SetMany stores several predictions in one pipelined round trip.
func (c *Cache) SetMany(ctx context.Context, preds map[string]Prediction) error {
	if c.client == nil {
		return fmt.Errorf("cache client is nil")
	}
	if len(preds) == 0 {
		return nil
	}

	pipe := c.client.Pipeline()
	for id, p := range preds {
		pipe.Set(ctx, key(id), encode(p), c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to cache %d predictions: %w", len(preds), err)
	}
	return nil
}

// Close closes the Redis connection.
func (c *Cache) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

func key(id string) string {
	return "prediction:" + id
}

func encode(p Prediction) string {
	return fmt.Sprintf("%g %g", p.Mean, p.Var)
}

func decode(s string) (Prediction, error) {
	var p Prediction
	if _, err := fmt.Sscanf(s, "%g %g", &p.Mean, &p.Var); err != nil {
		return Prediction{}, fmt.Errorf("malformed cached prediction %q: %w", s, err)
	}
	return p, nil
}

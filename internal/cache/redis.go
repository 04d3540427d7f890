package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Alias1177/InsiderScan/models"
)

// BaselineTTL keeps a trading day's baselines around a little past the close
const BaselineTTL = 24 * time.Hour

// BaselineCache shares per-day baselines between processes through Redis
type BaselineCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewBaselineCache creates a cache; ttl <= 0 uses BaselineTTL
func NewBaselineCache(client redis.Cmdable, ttl time.Duration) *BaselineCache {
	if ttl <= 0 {
		ttl = BaselineTTL
	}
	return &BaselineCache{
		client: client,
		ttl:    ttl,
	}
}

// NewClient parses a redis:// URL and checks connectivity
func NewClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	return client, nil
}

// BaselineKey is the Redis key of a symbol's baseline for a trading date
func BaselineKey(symbol string, date time.Time) string {
	return fmt.Sprintf("baseline:%s:%s", date.Format("2006-01-02"), symbol)
}

// Get returns the cached baseline; ok is false on a miss
func (c *BaselineCache) Get(ctx context.Context, symbol string, date time.Time) (models.SymbolBaseline, bool, error) {
	data, err := c.client.Get(ctx, BaselineKey(symbol, date)).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.SymbolBaseline{}, false, nil
	}
	if err != nil {
		return models.SymbolBaseline{}, false, fmt.Errorf("reading baseline: %w", err)
	}

	var b models.SymbolBaseline
	if err := json.Unmarshal(data, &b); err != nil {
		return models.SymbolBaseline{}, false, fmt.Errorf("unmarshaling baseline: %w", err)
	}
	return b, true, nil
}

// Set stores a baseline for its trading date
func (c *BaselineCache) Set(ctx context.Context, date time.Time, b models.SymbolBaseline) error {
	data, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("marshaling baseline: %w", err)
	}
	return c.client.Set(ctx, BaselineKey(b.Symbol, date), data, c.ttl).Err()
}

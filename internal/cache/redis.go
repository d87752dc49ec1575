// Package cache provides optional Redis-backed read caches. Every method is
// nil-receiver safe so callers can wire a nil cache when Redis is not
// configured; reads then always fall through to the database.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

type Config struct {
	Addr     string
	Password string
	DB       int
	PoolSize int
}

type Cache struct {
	rdb *redis.Client
}

// New connects to Redis and pings it; an unreachable server is an error so
// misconfiguration fails at startup rather than silently at read time.
func New(ctx context.Context, cfg Config) (*Cache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	return &Cache{rdb: rdb}, nil
}

func (c *Cache) Close() error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}

func priceKey(marketID string) string {
	return "price:" + marketID
}

// SetPrice stores the latest implied probabilities for a market as a hash.
func (c *Cache) SetPrice(ctx context.Context, marketID string, yes, no float64, ttl time.Duration) {
	if c == nil || c.rdb == nil {
		return
	}
	key := priceKey(marketID)
	pipe := c.rdb.Pipeline()
	pipe.HSet(ctx, key, map[string]any{
		"yes": strconv.FormatFloat(yes, 'f', -1, 64),
		"no":  strconv.FormatFloat(no, 'f', -1, 64),
		"ts":  strconv.FormatInt(time.Now().UnixNano(), 10),
	})
	if ttl > 0 {
		pipe.Expire(ctx, key, ttl)
	}
	_, _ = pipe.Exec(ctx)
}

// GetPrice returns cached probabilities; ok is false on miss or any error.
func (c *Cache) GetPrice(ctx context.Context, marketID string) (yes, no float64, ok bool) {
	if c == nil || c.rdb == nil {
		return 0, 0, false
	}
	vals, err := c.rdb.HGetAll(ctx, priceKey(marketID)).Result()
	if err != nil || len(vals) == 0 {
		return 0, 0, false
	}
	yes, errYes := strconv.ParseFloat(vals["yes"], 64)
	no, errNo := strconv.ParseFloat(vals["no"], 64)
	if errYes != nil || errNo != nil {
		return 0, 0, false
	}
	return yes, no, true
}

func (c *Cache) InvalidatePrice(ctx context.Context, marketID string) {
	if c == nil || c.rdb == nil {
		return
	}
	_ = c.rdb.Del(ctx, priceKey(marketID)).Err()
}

func leaderboardKey(days, limit int) string {
	return fmt.Sprintf("leaderboard:%d:%d", days, limit)
}

// GetLeaderboard returns a cached leaderboard payload, unmarshalled into dst.
func (c *Cache) GetLeaderboard(ctx context.Context, days, limit int, dst any) bool {
	if c == nil || c.rdb == nil {
		return false
	}
	raw, err := c.rdb.Get(ctx, leaderboardKey(days, limit)).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(raw, dst) == nil
}

func (c *Cache) SetLeaderboard(ctx context.Context, days, limit int, value any, ttl time.Duration) {
	if c == nil || c.rdb == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	_ = c.rdb.Set(ctx, leaderboardKey(days, limit), raw, ttl).Err()
}

// InvalidateLeaderboards drops every cached leaderboard window. Called after
// resolution, which is the only event that changes rankings.
func (c *Cache) InvalidateLeaderboards(ctx context.Context) {
	if c == nil || c.rdb == nil {
		return
	}
	iter := c.rdb.Scan(ctx, 0, "leaderboard:*", 100).Iterator()
	for iter.Next(ctx) {
		_ = c.rdb.Del(ctx, iter.Val()).Err()
	}
}

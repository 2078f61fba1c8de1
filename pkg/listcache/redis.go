package listcache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/platinummonkey/projecthub/pkg/projects"
)

// RedisCache keeps visible-projects lists in redis
type RedisCache struct {
	client *redis.Client
}

// RedisConfig holds connection settings for NewRedisClient
type RedisConfig struct {
	URL        string
	Password   string
	DB         int
	PoolSize   int
	MaxRetries int
}

// NewRedisClient parses cfg.URL, applies overrides and pings the server
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	if cfg.DB > 0 {
		opts.DB = cfg.DB
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if cfg.MaxRetries > 0 {
		opts.MaxRetries = cfg.MaxRetries
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return client, nil
}

// NewRedisCache wraps an existing client
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

// Get retrieves a user's list. redis.Nil is a miss, not an error.
func (c *RedisCache) Get(ctx context.Context, userID int64) ([]*projects.Project, bool, error) {
	data, err := c.client.Get(ctx, Key(userID)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get cached projects: %w", err)
	}

	var list []*projects.Project
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached projects: %w", err)
	}
	if list == nil {
		list = []*projects.Project{}
	}
	return list, true, nil
}

// Put stores a user's list for ttl. A non-positive ttl stores without expiry.
func (c *RedisCache) Put(ctx context.Context, userID int64, list []*projects.Project, ttl time.Duration) error {
	if list == nil {
		list = []*projects.Project{}
	}
	data, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("failed to encode projects: %w", err)
	}
	if ttl < 0 {
		ttl = 0
	}
	if err := c.client.Set(ctx, Key(userID), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache projects: %w", err)
	}
	return nil
}

// Invalidate deletes every listed user's entry in one round trip
func (c *RedisCache) Invalidate(ctx context.Context, userIDs ...int64) error {
	if len(userIDs) == 0 {
		return nil
	}
	keys := make([]string, len(userIDs))
	for i, id := range userIDs {
		keys[i] = Key(id)
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to invalidate cached projects: %w", err)
	}
	return nil
}

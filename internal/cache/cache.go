package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/sahanas/mailsense/pkg/models"
)

// AnalysisTTL bounds how long a cached analysis record lives. The database
// row is authoritative; the cache only short-circuits repeated lookups.
const AnalysisTTL = 24 * time.Hour

// Cache is the caching interface. All cache operations go through here.
// Implementations must be safe for concurrent use.
type Cache interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	SetAnalysis(ctx context.Context, a *models.Analysis) error
	GetAnalysis(ctx context.Context, userID uuid.UUID, messageID string) (*models.Analysis, bool, error)
	SetOAuthToken(ctx context.Context, userID uuid.UUID, token []byte, ttl time.Duration) error
	GetOAuthToken(ctx context.Context, userID uuid.UUID) ([]byte, bool, error)
	IncrWithExpiry(ctx context.Context, key string, expiry time.Duration) (int64, error)
}

// RedisCache implements the Cache interface using go-redis/v9.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache creates a new RedisCache from a Redis URL.
func NewRedisCache(redisURL string) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	return &RedisCache{client: redis.NewClient(opts)}, nil
}

var _ Cache = (*RedisCache)(nil)

// Close releases the underlying Redis connection pool.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.client.Set(ctx, key, value, ttl).Err()
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}

func (c *RedisCache) SetAnalysis(ctx context.Context, a *models.Analysis) error {
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal analysis: %w", err)
	}
	return c.client.Set(ctx, AnalysisKey(a.UserID, a.ID), data, AnalysisTTL).Err()
}

func (c *RedisCache) GetAnalysis(ctx context.Context, userID uuid.UUID, messageID string) (*models.Analysis, bool, error) {
	data, err := c.client.Get(ctx, AnalysisKey(userID, messageID)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var a models.Analysis
	if err := json.Unmarshal(data, &a); err != nil {
		// A corrupt entry is treated as a miss; the caller falls through to
		// the database and rewrites it.
		return nil, false, nil
	}
	return &a, true, nil
}

func (c *RedisCache) SetOAuthToken(ctx context.Context, userID uuid.UUID, token []byte, ttl time.Duration) error {
	return c.client.Set(ctx, OAuthTokenKey(userID), token, ttl).Err()
}

func (c *RedisCache) GetOAuthToken(ctx context.Context, userID uuid.UUID) ([]byte, bool, error) {
	val, err := c.client.Get(ctx, OAuthTokenKey(userID)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func (c *RedisCache) IncrWithExpiry(ctx context.Context, key string, expiry time.Duration) (int64, error) {
	pipe := c.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, expiry)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

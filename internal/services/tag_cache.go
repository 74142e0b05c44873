package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/yungbote/mediahub-backend/internal/platform/envutil"
	"github.com/yungbote/mediahub-backend/internal/platform/logger"
)

const tagVocabularyKey = "mediahub:tags:vocabulary"

// TagCache holds the tag vocabulary between refreshes.
type TagCache interface {
	Get(ctx context.Context) ([]string, bool, error)
	Set(ctx context.Context, names []string) error
	Invalidate(ctx context.Context) error
}

type redisTagCache struct {
	log *logger.Logger
	rdb redis.UniversalClient
	ttl time.Duration
}

// NewRedisTagCache returns nil, nil when REDIS_ADDR is unset.
func NewRedisTagCache(log *logger.Logger) (TagCache, error) {
	addr := envutil.String("REDIS_ADDR", "")
	if addr == "" {
		return nil, nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:        addr,
		Password:    envutil.String("REDIS_PASSWORD", ""),
		DB:          envutil.Int("REDIS_DB", 0),
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return newRedisTagCache(log, rdb, envutil.Seconds("TAG_CACHE_TTL_SECONDS", 10*time.Minute)), nil
}

func newRedisTagCache(log *logger.Logger, rdb redis.UniversalClient, ttl time.Duration) *redisTagCache {
	return &redisTagCache{log: log.With("service", "RedisTagCache"), rdb: rdb, ttl: ttl}
}

func (c *redisTagCache) Get(ctx context.Context) ([]string, bool, error) {
	raw, err := c.rdb.Get(ctx, tagVocabularyKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var names []string
	if err := json.Unmarshal(raw, &names); err != nil {
		c.log.Warn("Dropping unreadable tag vocabulary cache entry", "error", err)
		return nil, false, nil
	}
	return names, true, nil
}

func (c *redisTagCache) Set(ctx context.Context, names []string) error {
	raw, err := json.Marshal(names)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, tagVocabularyKey, raw, c.ttl).Err()
}

func (c *redisTagCache) Invalidate(ctx context.Context) error {
	return c.rdb.Del(ctx, tagVocabularyKey).Err()
}

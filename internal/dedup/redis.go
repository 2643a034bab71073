package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const redisKeyPrefix = "jobfeed:seen:"

// RedisCache is a Cache shared through Redis; entries expire on their own.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	log    logrus.FieldLogger
}

func NewRedisCache(ctx context.Context, addr, password string, db int, ttl time.Duration, log logrus.FieldLogger) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", addr, err)
	}

	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisCache{client: client, ttl: ttl, log: log}, nil
}

// IsSeen reports a link as unseen when Redis cannot be reached.
func (c *RedisCache) IsSeen(ctx context.Context, link string) bool {
	n, err := c.client.Exists(ctx, redisKeyPrefix+link).Result()
	if err != nil {
		c.log.WithError(err).Warn("⚠️ Redis lookup failed")
		return false
	}
	return n > 0
}

func (c *RedisCache) Add(ctx context.Context, links []string) {
	pipe := c.client.Pipeline()
	now := time.Now().UnixMilli()
	for _, link := range links {
		if link == "" {
			continue
		}
		pipe.Set(ctx, redisKeyPrefix+link, now, c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		c.log.WithError(err).Warn("⚠️ Failed to store seen links in Redis")
	}
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

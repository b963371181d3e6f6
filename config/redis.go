package config

import (
	"context"
	"errors"
	"strings"

	"github.com/redis/go-redis/v9"
)

// InitRedis connects to the cache configured in c. It returns (nil, nil)
// when no address is set so callers can run without a cache.
func InitRedis(ctx context.Context, c CacheConfig) (*redis.Client, error) {
	val := strings.TrimSpace(c.RedisAddr)
	if val == "" {
		return nil, nil
	}

	var client *redis.Client
	if strings.HasPrefix(val, "redis://") || strings.HasPrefix(val, "rediss://") {
		opt, err := redis.ParseURL(val)
		if err != nil {
			return nil, err
		}
		client = redis.NewClient(opt)
	} else {
		client = redis.NewClient(&redis.Options{Addr: val})
	}

	if _, err := client.Ping(ctx).Result(); err != nil {
		_ = client.Close()
		return nil, errors.Join(errors.New("redis ping failed"), err)
	}
	return client, nil
}

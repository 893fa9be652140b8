package database

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/guruqool/guruqool-backend/internal/config"
	"github.com/guruqool/guruqool-backend/pkg/logger"
	"github.com/redis/go-redis/v9"
)

// Redis is nil when no server is configured. A configured but unreachable
// server disables the history cache until it comes back.
var Redis *redis.Client

var ErrCacheDisabled = errors.New("cache disabled")

func InitRedis() {
	if config.AppConfig.RedisAddr == "" {
		logger.Warn().Msg("REDIS_ADDR not set, history cache disabled")
		return
	}

	Redis = redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := Redis.Ping(ctx).Err(); err != nil {
		logger.Warn().Err(err).Msg("Failed to connect to Redis. Caching will be disabled until it is reachable.")
	} else {
		logger.Info().Str("addr", config.AppConfig.RedisAddr).Msg("Connected to Redis")
	}
}

func CacheSet(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if Redis == nil {
		return ErrCacheDisabled
	}
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return Redis.Set(ctx, key, data, expiration).Err()
}

// CacheGet returns redis.Nil on a miss.
func CacheGet(ctx context.Context, key string, dest interface{}) error {
	if Redis == nil {
		return ErrCacheDisabled
	}
	val, err := Redis.Get(ctx, key).Bytes()
	if err != nil {
		return err
	}
	return json.Unmarshal(val, dest)
}

func CacheInvalidate(ctx context.Context, keys ...string) error {
	if Redis == nil || len(keys) == 0 {
		return nil
	}
	return Redis.Del(ctx, keys...).Err()
}

// BlacklistToken revokes a token id until it would have expired anyway.
func BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error {
	if Redis == nil {
		return ErrCacheDisabled
	}
	return Redis.Set(ctx, "blacklist:"+jti, 1, ttl).Err()
}

// IsTokenBlacklisted fails open when Redis is unavailable.
func IsTokenBlacklisted(ctx context.Context, jti string) bool {
	if Redis == nil || jti == "" {
		return false
	}
	n, err := Redis.Exists(ctx, "blacklist:"+jti).Result()
	return err == nil && n > 0
}

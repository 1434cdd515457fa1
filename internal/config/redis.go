package config

// Redis backs the response cache on browse endpoints and the request
// rate limiter. If a connection cannot be established at startup the
// constructor returns nil and callers degrade gracefully by disabling
// both features.

import (
	"context"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient instantiates a Redis client using environment
// variables:
//
//	REDIS_ADDR     – host:port of the Redis server (default localhost:6379)
//	REDIS_PASSWORD – optional password
//	REDIS_DB       – database number (default 0)
//
// The returned client is nil when the server cannot be reached.
func NewRedisClient() *redis.Client {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	dbNum := 0
	if s := os.Getenv("REDIS_DB"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			dbNum = n
		}
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       dbNum,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil
	}
	return client
}

// CacheConfig defines settings for the response cache middleware.
// Caching is disabled when Enabled is false or no Redis client is
// available.
type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
	Prefix  string
}

// LoadCacheConfig reads environment variables to build a CacheConfig.
// Defaults are used when variables are not set.
func LoadCacheConfig() CacheConfig {
	ttl, err := time.ParseDuration(getenv("CACHE_TTL", "30s"))
	if err != nil {
		ttl = 30 * time.Second
	}
	return CacheConfig{
		Enabled: getenv("CACHE_ENABLED", "true") == "true",
		TTL:     ttl,
		Prefix:  getenv("CACHE_PREFIX", "cache"),
	}
}

// RateLimitConfig defines settings for the fixed-window rate limiter.
type RateLimitConfig struct {
	Enabled bool
	Limit   int           // requests allowed per window
	Window  time.Duration // window length
}

// LoadRateLimitConfig reads environment variables to build a
// RateLimitConfig. Defaults allow 120 requests per minute per client.
func LoadRateLimitConfig() RateLimitConfig {
	window, err := time.ParseDuration(getenv("RATE_LIMIT_WINDOW", "1m"))
	if err != nil {
		window = time.Minute
	}
	limit, err := strconv.Atoi(getenv("RATE_LIMIT_MAX", "120"))
	if err != nil {
		limit = 120
	}
	return RateLimitConfig{
		Enabled: getenv("RATE_LIMIT_ENABLED", "true") == "true",
		Limit:   limit,
		Window:  window,
	}
}

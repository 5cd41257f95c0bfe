package utils

import (
	"context"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cppla/yatube/config"
)

var (
	redisClient *redis.Client
	redisInit   bool
	redisMu     sync.Mutex
)

// GetRedis returns the shared Redis client, or nil when Redis is disabled or unreachable.
// Callers fall back to in-process storage on nil.
func GetRedis() *redis.Client {
	redisMu.Lock()
	defer redisMu.Unlock()
	if redisInit {
		return redisClient
	}
	redisInit = true

	cfg := config.Get()
	if cfg.RedisHost == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:         net.JoinHostPort(cfg.RedisHost, strconv.Itoa(cfg.RedisPort)),
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		Sugar.Warnf("redis unavailable at %s, using in-memory stores: %v", client.Options().Addr, err)
		_ = client.Close()
		return nil
	}
	redisClient = client
	return redisClient
}

// SetRedis replaces the shared client; nil forces the in-memory fallbacks.
func SetRedis(client *redis.Client) {
	redisMu.Lock()
	redisClient = client
	redisInit = true
	redisMu.Unlock()
}

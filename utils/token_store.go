package utils

import (
	"context"
	"strconv"
	"time"
)

// Token kinds share one keyspace, namespaced by kind.
const (
	TokenOAuthState    = "oauth:state"
	TokenPasswordReset = "pwreset"
)

const getDelScript = `local v=redis.call('GET', KEYS[1]); if v then redis.call('DEL', KEYS[1]); end; return v`

func tokenKey(kind, token string) string {
	return "token:" + kind + ":" + token
}

// SaveToken stores a single-use token with TTL. Prefer Redis; fallback to memory.
func SaveToken(kind, token, value string, ttl time.Duration) {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	key := tokenKey(kind, token)
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := rc.Set(ctx, key, value, ttl).Err(); err == nil {
			return
		}
	}
	memCache.set(key, []byte(value), ttl)
}

// ConsumeToken returns the stored value and removes the token.
func ConsumeToken(kind, token string) (string, bool) {
	if token == "" {
		return "", false
	}
	key := tokenKey(kind, token)
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		// Prefer GETDEL (Redis >= 6.2)
		if v, err := rc.GetDel(ctx, key).Result(); err == nil {
			return v, true
		}
		if res, err := rc.Eval(ctx, getDelScript, []string{key}).Result(); err == nil {
			if s, ok := res.(string); ok {
				return s, true
			}
			return "", false
		}
		// On Redis error, fall through to memory fallback
	}
	b, ok := memCache.take(key)
	if !ok {
		return "", false
	}
	return string(b), true
}

// PeekToken returns the stored value without consuming it.
func PeekToken(kind, token string) (string, bool) {
	if token == "" {
		return "", false
	}
	key := tokenKey(kind, token)
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if v, err := rc.Get(ctx, key).Result(); err == nil {
			return v, true
		}
	}
	b, ok := memCache.get(key)
	return string(b), ok
}

// CooldownTrySet sets a cooldown key. Returns true if set, false if still cooling down.
func CooldownTrySet(key string, cooldown time.Duration) bool {
	key = "cooldown:" + key
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		ok, err := rc.SetNX(ctx, key, "1", cooldown).Result()
		if err == nil {
			return ok
		}
	}
	return memCache.setNX(key, []byte("1"), cooldown)
}

func atoiSafe(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

func itoa(n int) string { return strconv.Itoa(n) }

package utils

import (
	"context"
	"time"
)

// BlacklistToken revokes a session by its jti until the token would have expired.
func BlacklistToken(jti string, expiresAt time.Time) {
	ttl := time.Until(expiresAt)
	if jti == "" || ttl <= 0 {
		return
	}
	key := "jwt:blacklist:" + jti
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := rc.Set(ctx, key, "1", ttl).Err(); err == nil {
			return
		}
	}
	memCache.set(key, []byte("1"), ttl)
}

// IsTokenBlacklisted checks if a session was revoked before natural expiration.
func IsTokenBlacklisted(jti string) bool {
	if jti == "" {
		return false
	}
	key := "jwt:blacklist:" + jti
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		n, err := rc.Exists(ctx, key).Result()
		if err == nil {
			return n > 0
		}
		// fail-open to avoid accidental lockout
		return false
	}
	_, ok := memCache.get(key)
	return ok
}

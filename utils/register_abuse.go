package utils

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cppla/yatube/config"
)

// Signup abuse counters. Every check fails open on storage errors.

func regKey(parts ...string) string {
	return "reg:" + strings.Join(parts, ":")
}

// RegistrationCooldownTry enforces a short cooldown between attempts per IP.
func RegistrationCooldownTry(ip string) bool {
	sec := config.Get().RegisterAttemptCooldownSec
	if sec <= 0 {
		return true
	}
	return CooldownTrySet(regKey("attempt", ip), time.Duration(sec)*time.Second)
}

// RegistrationDailyLimitCheck allows up to N successful registrations per day per IP.
func RegistrationDailyLimitCheck(ip string) bool {
	limit := config.Get().RegisterMaxPerIPPerDay
	if limit <= 0 {
		return true
	}
	key := regKey("succday", ip, time.Now().Format("20060102"))
	if cli := GetRedis(); cli != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
		defer cancel()
		n, err := cli.Get(ctx, key).Int()
		if err == redis.Nil {
			n = 0
		} else if err != nil {
			return true
		}
		return n < limit
	}
	b, ok := memCache.get(key)
	if !ok {
		return true
	}
	return atoiSafe(string(b)) < limit
}

// RegistrationDailyIncrement increments the success counter for today.
func RegistrationDailyIncrement(ip string) {
	key := regKey("succday", ip, time.Now().Format("20060102"))
	ttl := time.Until(time.Now().Truncate(24 * time.Hour).Add(24 * time.Hour))
	incrCounter(key, ttl)
}

// RegistrationFailRecord increments failure count per hour and bans the IP once the limit is hit.
func RegistrationFailRecord(ip string) int {
	key := regKey("failhour", ip, time.Now().Format("2006010215"))
	n := incrCounter(key, time.Hour)
	if max := config.Get().RegisterFailedMaxPerIPPerHour; max > 0 && n >= max {
		RegistrationBan(ip)
	}
	return n
}

// RegistrationIsBanned checks temporary ban status for IP.
func RegistrationIsBanned(ip string) bool {
	key := regKey("ban", ip)
	if cli := GetRedis(); cli != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
		defer cancel()
		exists, err := cli.Exists(ctx, key).Result()
		if err != nil {
			return false
		}
		return exists > 0
	}
	_, ok := memCache.get(key)
	return ok
}

// RegistrationBan sets a temporary ban for IP.
func RegistrationBan(ip string) {
	minutes := config.Get().RegisterTempBanMinutes
	if minutes <= 0 {
		minutes = 60
	}
	ttl := time.Duration(minutes) * time.Minute
	key := regKey("ban", ip)
	if cli := GetRedis(); cli != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
		defer cancel()
		if err := cli.Set(ctx, key, "ban-"+ip, ttl).Err(); err == nil {
			return
		}
	}
	memCache.set(key, []byte("1"), ttl)
}

func incrCounter(key string, ttl time.Duration) int {
	if cli := GetRedis(); cli != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
		defer cancel()
		n, err := cli.Incr(ctx, key).Result()
		if err == nil {
			if n == 1 {
				_ = cli.Expire(ctx, key, ttl).Err()
			}
			return int(n)
		}
	}
	return memCache.incr(key, ttl)
}

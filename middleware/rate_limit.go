package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/cppla/yatube/config"
	"github.com/cppla/yatube/utils"
)

type rateLimiter struct {
	limiter *rate.Limiter
	expires time.Time
}

type limiterSet struct {
	mu       sync.Mutex
	limiters map[string]*rateLimiter
}

// RateLimitMiddleware applies a token bucket per client IP to write endpoints.
// A non-positive RateLimitPerMinute disables limiting.
func RateLimitMiddleware() gin.HandlerFunc {
	perMinute := config.Get().RateLimitPerMinute
	if perMinute <= 0 {
		return func(ctx *gin.Context) { ctx.Next() }
	}
	r := rate.Every(time.Minute / time.Duration(perMinute))
	burst := max(perMinute/2, 1)
	set := &limiterSet{limiters: map[string]*rateLimiter{}}

	return func(ctx *gin.Context) {
		if !set.get(ctx.ClientIP(), r, burst).Allow() {
			utils.Error(ctx, http.StatusTooManyRequests, 42901, "rate limit exceeded")
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}

func (s *limiterSet) get(key string, limit rate.Limit, burst int) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for k, l := range s.limiters {
		if now.After(l.expires) {
			delete(s.limiters, k)
		}
	}

	if l, ok := s.limiters[key]; ok {
		l.expires = now.Add(5 * time.Minute)
		return l.limiter
	}
	l := &rateLimiter{
		limiter: rate.NewLimiter(limit, burst),
		expires: now.Add(5 * time.Minute),
	}
	s.limiters[key] = l
	return l.limiter
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

package utils

import (
	"context"
	"time"

	"github.com/mojocn/base64Captcha"
)

const captchaTTL = 10 * time.Minute

// captchaStore implements base64Captcha.Store on Redis, falling back to process memory,
// so captchas survive behind a load balancer when Redis is available.
type captchaStore struct {
	ttl time.Duration
}

var defaultCaptchaStore base64Captcha.Store = &captchaStore{ttl: captchaTTL}

func (s *captchaStore) key(id string) string {
	return "captcha:" + id
}

func (s *captchaStore) Set(id string, value string) error {
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := rc.Set(ctx, s.key(id), value, s.ttl).Err(); err == nil {
			return nil
		}
	}
	memCache.set(s.key(id), []byte(value), s.ttl)
	return nil
}

func (s *captchaStore) Get(id string, clear bool) string {
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if clear {
			if v, err := rc.GetDel(ctx, s.key(id)).Result(); err == nil {
				return v
			}
		} else if v, err := rc.Get(ctx, s.key(id)).Result(); err == nil {
			return v
		}
	}
	var (
		b  []byte
		ok bool
	)
	if clear {
		b, ok = memCache.take(s.key(id))
	} else {
		b, ok = memCache.get(s.key(id))
	}
	if !ok {
		return ""
	}
	return string(b)
}

func (s *captchaStore) Verify(id, answer string, clear bool) bool {
	v := s.Get(id, clear)
	return v != "" && v == answer
}

// GenerateCaptcha creates a digit captcha and returns (id, dataURI) for the signup form.
func GenerateCaptcha() (string, string, error) {
	driver := base64Captcha.NewDriverDigit(40, 120, 5, 0.7, 80)
	c := base64Captcha.NewCaptcha(driver, defaultCaptchaStore)
	id, b64, _, err := c.Generate()
	return id, b64, err
}

// VerifyCaptcha verifies the provided answer; it consumes the captcha.
func VerifyCaptcha(id, answer string) bool {
	if id == "" || answer == "" {
		return false
	}
	return defaultCaptchaStore.Verify(id, answer, true)
}

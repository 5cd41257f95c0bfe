package utils_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/cppla/yatube/config"
	"github.com/cppla/yatube/testutil"
	"github.com/cppla/yatube/utils"
)

func TestTokensAreSingleUse(t *testing.T) {
	for _, backend := range []string{"memory", "redis"} {
		t.Run(backend, func(t *testing.T) {
			testutil.UseConfig(t)
			if backend == "redis" {
				testutil.UseMiniredis(t)
			}

			utils.SaveToken(utils.TokenPasswordReset, "abc", "42", time.Minute)
			v, ok := utils.PeekToken(utils.TokenPasswordReset, "abc")
			assert.True(t, ok)
			assert.Equal(t, "42", v)

			v, ok = utils.ConsumeToken(utils.TokenPasswordReset, "abc")
			assert.True(t, ok)
			assert.Equal(t, "42", v)

			_, ok = utils.ConsumeToken(utils.TokenPasswordReset, "abc")
			assert.False(t, ok)
			_, ok = utils.ConsumeToken(utils.TokenOAuthState, "abc")
			assert.False(t, ok)
		})
	}
}

func TestCooldownTrySet(t *testing.T) {
	testutil.UseConfig(t)
	assert.True(t, utils.CooldownTrySet("reset:a@example.com", time.Minute))
	assert.False(t, utils.CooldownTrySet("reset:a@example.com", time.Minute))
	assert.True(t, utils.CooldownTrySet("reset:b@example.com", time.Minute))
}

func TestRegistrationBanAfterFailures(t *testing.T) {
	testutil.UseConfig(t, func(c *config.AppConfig) {
		c.RegisterFailedMaxPerIPPerHour = 3
	})
	ip := "203.0.113.7"
	assert.False(t, utils.RegistrationIsBanned(ip))
	utils.RegistrationFailRecord(ip)
	utils.RegistrationFailRecord(ip)
	assert.False(t, utils.RegistrationIsBanned(ip))
	assert.Equal(t, 3, utils.RegistrationFailRecord(ip))
	assert.True(t, utils.RegistrationIsBanned(ip))
}

func TestRegistrationDailyLimit(t *testing.T) {
	testutil.UseConfig(t, func(c *config.AppConfig) {
		c.RegisterMaxPerIPPerDay = 2
	})
	testutil.UseMiniredis(t)
	ip := "198.51.100.1"
	assert.True(t, utils.RegistrationDailyLimitCheck(ip))
	utils.RegistrationDailyIncrement(ip)
	assert.True(t, utils.RegistrationDailyLimitCheck(ip))
	utils.RegistrationDailyIncrement(ip)
	assert.False(t, utils.RegistrationDailyLimitCheck(ip))
}

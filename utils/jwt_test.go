package utils_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/yatube/config"
	"github.com/cppla/yatube/testutil"
	"github.com/cppla/yatube/utils"
)

func TestTokenRoundTrip(t *testing.T) {
	testutil.UseConfig(t)

	tok, err := utils.GenerateToken(7, "leo", 0, time.Hour)
	require.NoError(t, err)
	claims, err := utils.ParseToken(tok)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)
	assert.Equal(t, "leo", claims.Username)
	assert.NotEmpty(t, claims.ID)
}

func TestTokenExpiredOrForeign(t *testing.T) {
	testutil.UseConfig(t)

	expired, err := utils.GenerateToken(1, "a", 0, -time.Minute)
	require.NoError(t, err)
	_, err = utils.ParseToken(expired)
	assert.Error(t, err)

	tok, err := utils.GenerateToken(1, "a", 0, time.Hour)
	require.NoError(t, err)
	testutil.UseConfig(t, func(c *config.AppConfig) { c.JWTSecret = "another" })
	_, err = utils.ParseToken(tok)
	assert.Error(t, err)
}

func TestRevokeToken(t *testing.T) {
	testutil.UseConfig(t)
	testutil.UseMiniredis(t)

	tok, err := utils.GenerateToken(3, "b", 0, time.Hour)
	require.NoError(t, err)
	other, err := utils.GenerateToken(3, "b", 0, time.Hour)
	require.NoError(t, err)

	utils.RevokeToken(tok)
	_, err = utils.ParseToken(tok)
	assert.Error(t, err)
	_, err = utils.ParseToken(other)
	assert.NoError(t, err)
}

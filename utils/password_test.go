package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse", hash)
	assert.True(t, CheckPassword(hash, "correct horse"))
	assert.False(t, CheckPassword(hash, "wrong horse"))
}

func TestValidatePassword(t *testing.T) {
	cases := []struct {
		password, username string
		problems           int
	}{
		{"short", "leo", 1},
		{"12345678901", "leo", 1},
		{"1234", "leo", 2},
		{"leo-the-lion", "leo", 1},
		{"quiet-river-42", "leo", 0},
	}
	for _, tc := range cases {
		assert.Len(t, ValidatePassword(tc.password, tc.username), tc.problems, tc.password)
	}
}

//go:build !integration

package redis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"popup-shop/internal/config"
)

func TestOptions(t *testing.T) {
	opts, err := options(&config.RedisConfig{URL: "localhost:6379", Password: "pw", DB: 2})
	require.NoError(t, err)
	assert.Equal(t, "localhost:6379", opts.Addr)
	assert.Equal(t, "pw", opts.Password)
	assert.Equal(t, 2, opts.DB)

	opts, err = options(&config.RedisConfig{URL: "redis://:secret@cache:6380/3", DB: 9})
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 3, opts.DB)

	_, err = options(&config.RedisConfig{URL: "redis://cache:6380/notadb"})
	assert.Error(t, err)
}

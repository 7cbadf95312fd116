package redisclient

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/ncecere/fedramp_marketplace/internal/config"
)

func TestNewAcceptsURLAndBareAddress(t *testing.T) {
	server := miniredis.RunT(t)

	for _, url := range []string{"redis://" + server.Addr() + "/0", server.Addr()} {
		client := New(config.RedisConfig{URL: url, PoolSize: 2})
		require.NoError(t, Ping(context.Background(), client))
		require.Equal(t, 2, client.Options().PoolSize)
		require.NoError(t, client.Close())
	}
}

func TestEnabled(t *testing.T) {
	require.False(t, Enabled(config.RedisConfig{URL: "  "}))
	require.True(t, Enabled(config.RedisConfig{URL: "localhost:6379"}))
}

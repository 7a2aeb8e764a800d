package cache

import (
	"errors"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YKLee98/naver-sub003/internal/infrastructure/config"
)

func failingConnect(RedisConfig) (*redis.Client, error) {
	return nil, errors.New("connection refused")
}

func TestStoreFactory_Create(t *testing.T) {
	t.Run("disabled redis uses memory", func(t *testing.T) {
		stores, err := NewStoreFactory(config.RedisConfig{Enabled: false}).Create()
		require.NoError(t, err)
		defer stores.Close()
		assert.IsType(t, &MemoryCache{}, stores.Cache)
		assert.IsType(t, &InMemoryReceiptStore{}, stores.Receipts)
		assert.Nil(t, stores.Redis)
	})

	t.Run("falls back when redis is unreachable", func(t *testing.T) {
		f := NewStoreFactory(config.RedisConfig{Enabled: true, Host: "localhost", Port: 1})
		f.connect = failingConnect
		stores, err := f.Create()
		require.NoError(t, err)
		defer stores.Close()
		assert.IsType(t, &InMemoryReceiptStore{}, stores.Receipts)
	})

	t.Run("fails when fallback is disallowed", func(t *testing.T) {
		f := NewStoreFactory(config.RedisConfig{Enabled: true}, WithInMemoryFallback(false))
		f.connect = failingConnect
		_, err := f.Create()
		assert.ErrorContains(t, err, "Redis required")
	})
}

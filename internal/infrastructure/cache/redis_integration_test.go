//go:build integration

package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/YKLee98/naver-sub003/internal/domain/webhook"
)

func startRedis(t *testing.T) *redis.Client {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	client, err := NewRedisClient(RedisConfig{Host: host, Port: port.Int()})
	require.NoError(t, err)
	return client
}

func TestRedisCache_Integration(t *testing.T) {
	client := startRedis(t)
	c := NewRedisCache(client, "sync:")
	ctx := context.Background()

	for i := 0; i < 150; i++ {
		require.NoError(t, c.Set(ctx, fmt.Sprintf("exchange_rate:%d", i), i, time.Minute))
	}
	require.NoError(t, c.Set(ctx, "metrics:fleet", "x", time.Minute))

	var v int
	found, err := c.Get(ctx, "exchange_rate:7", &v)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 7, v)

	n, err := c.DeleteByPattern(ctx, "exchange_rate:*")
	require.NoError(t, err)
	assert.Equal(t, 150, n)

	var s string
	found, err = c.Get(ctx, "metrics:fleet", &s)
	require.NoError(t, err)
	assert.True(t, found)
}

func TestRedisReceiptStore_Integration(t *testing.T) {
	client := startRedis(t)
	store := NewRedisReceiptStore(client)
	defer store.Close()
	ctx := context.Background()

	ok, err := store.Record(ctx, newReceipt("evt-9"), time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Record(ctx, newReceipt("evt-9"), time.Hour)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := store.Lookup(ctx, "evt-9")
	require.NoError(t, err)
	assert.Equal(t, webhook.EventOrderPaid, got.EventType)

	_, err = store.LookupOrder(ctx, "missing")
	assert.ErrorIs(t, err, webhook.ErrReceiptNotFound)

	order := &webhook.OrderRecord{OrderID: "2001", Cancelled: true}
	order.MarkApplied("SKU-1", "SKU-1", 3)
	require.NoError(t, store.RecordOrder(ctx, order, time.Hour))

	gotOrder, err := store.LookupOrder(ctx, "2001")
	require.NoError(t, err)
	assert.True(t, gotOrder.Cancelled)
	assert.True(t, gotOrder.Applied("SKU-1"))
	assert.Equal(t, []int{0}, gotOrder.Uncompensated())
}

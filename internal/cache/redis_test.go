package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nsridhar76/go-ordermgmt/internal/cache"
)

func newClient(t *testing.T) (*cache.Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	c := cache.NewClient("redis://"+mr.Addr(), nil)
	require.NoError(t, c.Connect(context.Background()))
	t.Cleanup(func() { _ = c.Close() })

	return c, mr
}

func TestOrderKey(t *testing.T) {
	assert.Equal(t, "order:42", cache.OrderKey(42))
}

func TestClient_set_get_delete(t *testing.T) {
	c, mr := newClient(t)
	ctx := context.Background()

	_, found, err := c.Get(ctx, "order:1")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, c.Set(ctx, "order:1", `{"id":1}`, cache.DefaultTTL))

	value, found, err := c.Get(ctx, "order:1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, `{"id":1}`, value)
	assert.Equal(t, time.Hour, mr.TTL("order:1"))

	exists, err := c.Exists(ctx, "order:1")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, c.Delete(ctx, "order:1"))

	exists, err = c.Exists(ctx, "order:1")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestClient_ttl_expiry(t *testing.T) {
	c, mr := newClient(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "order:1", "x", time.Minute))
	mr.FastForward(2 * time.Minute)

	_, found, err := c.Get(ctx, "order:1")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestClient_not_connected(t *testing.T) {
	c := cache.NewClient("redis://localhost:1", nil)

	_, _, err := c.Get(context.Background(), "k")
	assert.ErrorIs(t, err, cache.ErrNotConnected)
	assert.ErrorIs(t, c.Ping(context.Background()), cache.ErrNotConnected)
	assert.NoError(t, c.Close())
}

func TestClient_errors_propagate(t *testing.T) {
	c, mr := newClient(t)
	mr.SetError("server down")

	_, _, err := c.Get(context.Background(), "order:1")
	assert.Error(t, err)
	assert.Error(t, c.Set(context.Background(), "order:1", "x", time.Minute))
}

func TestClient_Connect_gives_up_with_context(t *testing.T) {
	c := cache.NewClient("redis://127.0.0.1:1", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	assert.Error(t, c.Connect(ctx))
}

package handlers_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/alicebob/miniredis/v2"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nsridhar76/go-ordermgmt/internal/cache"
	"github.com/nsridhar76/go-ordermgmt/internal/domain"
	"github.com/nsridhar76/go-ordermgmt/internal/messaging"
	"github.com/nsridhar76/go-ordermgmt/internal/messaging/handlers"
	"github.com/nsridhar76/go-ordermgmt/internal/repository/memory"
)

func order() map[string]any {
	return map[string]any{
		"id":          int64(42),
		"customerId":  int64(7),
		"orderDate":   "2026-10-01T10:00:00Z",
		"status":      "PENDING",
		"totalAmount": 66.0,
		"createdAt":   "2026-10-01T10:00:00Z",
		"updatedAt":   "2026-10-01T10:00:00Z",
		"lines": []any{
			map[string]any{"id": int64(1), "productId": int64(1001), "quantity": 2, "unitPrice": 25.5},
			map[string]any{"id": int64(2), "productId": int64(1002), "quantity": 1, "unitPrice": 15.0},
		},
	}
}

func newCache(t *testing.T) (*cache.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := cache.NewClient("redis://"+mr.Addr(), nil)
	require.NoError(t, c.Connect(context.Background()))
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestHandlers_accept_order_events_only(t *testing.T) {
	c, _ := newCache(t)
	hs := []messaging.Handler{
		handlers.NewCacheHandler(c, 0, nil),
		handlers.NewHistoryHandler(memory.NewStore(), nil),
	}

	created, err := messaging.NewOrderCreated(order())
	require.NoError(t, err)

	for _, h := range hs {
		assert.True(t, h.CanHandle(created), h.Name())
		assert.True(t, h.CanHandle(messaging.NewOrderUpdated(42, order(), order())), h.Name())
		assert.True(t, h.CanHandle(messaging.NewOrderDeleted(42, order())), h.Name())
		assert.False(t, h.CanHandle(messaging.NewEvent("CustomerCreated", nil)), h.Name())
	}
}

func TestCacheHandler_created(t *testing.T) {
	c, mr := newCache(t)
	h := handlers.NewCacheHandler(c, 0, nil)

	e, err := messaging.NewOrderCreated(order())
	require.NoError(t, err)
	require.NoError(t, h.Handle(context.Background(), e))

	raw, err := mr.Get("order:42")
	require.NoError(t, err)
	assert.Equal(t, time.Hour, mr.TTL("order:42"))

	var snapshot domain.OrderSnapshot
	require.NoError(t, json.Unmarshal([]byte(raw), &snapshot))
	assert.EqualValues(t, 42, snapshot.ID)
	assert.Equal(t, 66.0, snapshot.TotalAmount)
	assert.Len(t, snapshot.Lines, 2)
}

func TestCacheHandler_updated_overwrites_and_resets_ttl(t *testing.T) {
	c, mr := newCache(t)
	h := handlers.NewCacheHandler(c, 0, nil)

	created, err := messaging.NewOrderCreated(order())
	require.NoError(t, err)
	require.NoError(t, h.Handle(context.Background(), created))
	mr.FastForward(30 * time.Minute)

	newData := order()
	newData["status"] = "SHIPPED"
	require.NoError(t, h.Handle(context.Background(), messaging.NewOrderUpdated(42, order(), newData)))

	raw, err := mr.Get("order:42")
	require.NoError(t, err)
	assert.Contains(t, raw, `"status":"SHIPPED"`)
	assert.Equal(t, time.Hour, mr.TTL("order:42"))
}

func TestCacheHandler_deleted(t *testing.T) {
	c, mr := newCache(t)
	h := handlers.NewCacheHandler(c, 0, nil)

	require.NoError(t, mr.Set("order:42", "{}"))
	require.NoError(t, h.Handle(context.Background(), messaging.NewOrderDeleted(42, order())))

	assert.False(t, mr.Exists("order:42"))
}

func TestCacheHandler_swallows_cache_errors(t *testing.T) {
	c, mr := newCache(t)
	logger := watermill.NewCaptureLogger()
	h := handlers.NewCacheHandler(c, 0, logger)

	mr.SetError("cache down")

	e, err := messaging.NewOrderCreated(order())
	require.NoError(t, err)

	assert.NoError(t, h.Handle(context.Background(), e))
	assert.NoError(t, h.Handle(context.Background(), messaging.NewOrderDeleted(42, order())))
	assert.Len(t, logger.Captured()[watermill.ErrorLogLevel], 2)
}

func TestHistoryHandler_records(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	h := handlers.NewHistoryHandler(store, nil)

	created, err := messaging.NewOrderCreated(order())
	require.NoError(t, err)
	require.NoError(t, h.Handle(ctx, created))

	newData := order()
	newData["status"] = "SHIPPED"
	require.NoError(t, h.Handle(ctx, messaging.NewOrderUpdated(42, order(), newData)))

	require.NoError(t, h.Handle(ctx, messaging.NewOrderDeleted(42, newData)))

	entries, err := store.ListHistory(ctx, 42)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, domain.HistoryActionCreated, entries[0].Action)
	assert.Nil(t, entries[0].Changes)
	assert.EqualValues(t, 7, entries[0].PerformedBy)

	assert.Equal(t, domain.HistoryActionUpdated, entries[1].Action)
	require.NotNil(t, entries[1].Changes)
	assert.JSONEq(t, `{"status":{"from":"PENDING","to":"SHIPPED"}}`, *entries[1].Changes)

	assert.Equal(t, domain.HistoryActionDeleted, entries[2].Action)
	require.NotNil(t, entries[2].Changes)
	assert.JSONEq(t, `{"deleted_data":{"id":42,"customerId":7,"status":"SHIPPED"}}`, *entries[2].Changes)
	assert.EqualValues(t, 7, entries[2].PerformedBy)
}

type failingHistoryStore struct {
	err error
}

var _ handlers.HistoryStore = failingHistoryStore{}

func (s failingHistoryStore) AppendHistory(context.Context, domain.HistoryEntry) error {
	return s.err
}

func TestHistoryHandler_returns_store_errors(t *testing.T) {
	storeErr := errors.New("db down")
	h := handlers.NewHistoryHandler(failingHistoryStore{err: storeErr}, nil)

	e, err := messaging.NewOrderCreated(order())
	require.NoError(t, err)

	err = h.Handle(context.Background(), e)
	require.Error(t, err)
	assert.ErrorIs(t, err, storeErr)
}

func TestHistoryHandler_failure_does_not_block_cache_handler(t *testing.T) {
	c, mr := newCache(t)
	logger := watermill.NewCaptureLogger()

	storeErr := errors.New("db down")
	bus := messaging.NewBus(messaging.BusConfig{HistorySize: 10}, logger)
	bus.RegisterHandlers(
		handlers.NewCacheHandler(c, 0, nil),
		handlers.NewHistoryHandler(failingHistoryStore{err: storeErr}, nil),
	)

	e, err := messaging.NewOrderCreated(order())
	require.NoError(t, err)
	bus.Publish(context.Background(), e)

	assert.True(t, mr.Exists("order:42"))

	var logged bool
	for _, msg := range logger.Captured()[watermill.ErrorLogLevel] {
		if errors.Is(msg.Err, storeErr) {
			logged = true
		}
	}
	assert.True(t, logged)
}

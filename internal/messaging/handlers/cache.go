// Package handlers contains the bus handlers reacting to order events.
package handlers

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/pkg/errors"

	"github.com/nsridhar76/go-ordermgmt/internal/cache"
	"github.com/nsridhar76/go-ordermgmt/internal/messaging"
)

// Cache is the subset of the cache store the handlers and the order service
// rely on.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// CacheHandler mirrors order mutations into the cache. Cache failures are
// logged and swallowed.
type CacheHandler struct {
	cache  Cache
	ttl    time.Duration
	logger watermill.LoggerAdapter
}

var _ messaging.Handler = (*CacheHandler)(nil)

func NewCacheHandler(c Cache, ttl time.Duration, logger watermill.LoggerAdapter) *CacheHandler {
	if ttl <= 0 {
		ttl = cache.DefaultTTL
	}
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	return &CacheHandler{cache: c, ttl: ttl, logger: logger}
}

func (h *CacheHandler) Name() string { return "CacheHandler" }

func (h *CacheHandler) CanHandle(event messaging.Event) bool {
	return messaging.IsOrderEvent(event)
}

func (h *CacheHandler) Handle(ctx context.Context, event messaging.Event) error {
	h.logger.Debug("CacheHandler processing event", watermill.LogFields{
		"event_type": event.Type(),
		"event_id":   event.ID(),
	})

	orderID, err := messaging.OrderID(event)
	if err != nil {
		h.logger.Error("Cannot read order id from event", err, watermill.LogFields{"event_id": event.ID()})
		return nil
	}
	fields := watermill.LogFields{"order_id": orderID, "event_id": event.ID()}

	switch event.Type() {
	case messaging.EventOrderCreated, messaging.EventOrderUpdated:
		if err := h.store(ctx, orderID, event); err != nil {
			h.logger.Error("Failed to cache order", err, fields)
			return nil
		}
		h.logger.Debug("Cached order", fields)
	case messaging.EventOrderDeleted:
		if err := h.cache.Delete(ctx, cache.OrderKey(orderID)); err != nil {
			h.logger.Error("Failed to remove order from cache", err, fields)
			return nil
		}
		h.logger.Debug("Removed order from cache", fields)
	}

	return nil
}

func (h *CacheHandler) store(ctx context.Context, orderID int64, event messaging.Event) error {
	data, err := messaging.OrderData(event)
	if err != nil {
		return err
	}
	b, err := json.Marshal(data)
	if err != nil {
		return errors.Wrap(err, "cannot marshal order snapshot")
	}
	return h.cache.Set(ctx, cache.OrderKey(orderID), string(b), h.ttl)
}

// Package service implements the order and authentication use cases.
package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/pkg/errors"

	"github.com/nsridhar76/go-ordermgmt/internal/cache"
	"github.com/nsridhar76/go-ordermgmt/internal/domain"
	"github.com/nsridhar76/go-ordermgmt/internal/messaging"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// OrderStore is the record store behind the order service.
type OrderStore interface {
	CreateOrder(ctx context.Context, order domain.Order) (domain.Order, error)
	// FindOrder returns domain.ErrOrderNotFound unless the order exists and
	// belongs to customerID.
	FindOrder(ctx context.Context, orderID, customerID int64) (domain.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID int64, status domain.OrderStatus) (domain.Order, error)
	DeleteOrder(ctx context.Context, orderID int64) error
	ListOrders(ctx context.Context, customerID int64, skip, take int) ([]domain.Order, error)
	CountOrders(ctx context.Context, customerID int64) (int, error)
	ListHistory(ctx context.Context, orderID int64) ([]domain.HistoryEntry, error)
}

type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

type OrderServiceConfig struct {
	CacheTTL time.Duration

	// Now is the clock used for validation. Defaults to time.Now.
	Now func() time.Time
}

func (c *OrderServiceConfig) setDefaults() {
	if c.CacheTTL <= 0 {
		c.CacheTTL = cache.DefaultTTL
	}
	if c.Now == nil {
		c.Now = time.Now
	}
}

// OrderPage is one page of a customer's orders.
type OrderPage struct {
	Orders  []domain.OrderSnapshot `json:"orders"`
	Total   int                    `json:"total"`
	Page    int                    `json:"page"`
	Size    int                    `json:"size"`
	HasNext bool                   `json:"hasNext"`
	HasPrev bool                   `json:"hasPrev"`
}

// OrderService mutates orders in the record store and publishes the
// matching events before returning. Reads go through the cache first.
// Updates and deletes evict the cached copy before publishing, so reads
// stay fresh also when no handler maintains the cache.
type OrderService struct {
	config    OrderServiceConfig
	store     OrderStore
	cache     Cache
	publisher messaging.Publisher
	logger    watermill.LoggerAdapter
}

func NewOrderService(
	config OrderServiceConfig,
	store OrderStore,
	cache Cache,
	publisher messaging.Publisher,
	logger watermill.LoggerAdapter,
) *OrderService {
	config.setDefaults()
	if logger == nil {
		logger = watermill.NopLogger{}
	}

	return &OrderService{
		config:    config,
		store:     store,
		cache:     cache,
		publisher: publisher,
		logger:    logger,
	}
}

func (s *OrderService) CreateOrder(ctx context.Context, in domain.NewOrderInput) (domain.OrderSnapshot, error) {
	if err := in.Validate(s.config.Now()); err != nil {
		return domain.OrderSnapshot{}, err
	}

	order := domain.Order{
		CustomerID:  in.CustomerID,
		OrderDate:   in.OrderDate,
		Status:      in.Status,
		TotalAmount: domain.TotalAmount(in.Lines),
		Lines:       make([]domain.OrderLine, 0, len(in.Lines)),
	}
	for _, l := range in.Lines {
		order.Lines = append(order.Lines, domain.OrderLine{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
		})
	}

	created, err := s.store.CreateOrder(ctx, order)
	if err != nil {
		return domain.OrderSnapshot{}, errors.Wrap(err, "cannot create order")
	}
	snapshot := domain.NewSnapshot(created)

	event, err := messaging.NewOrderCreated(snapshot.Map())
	if err != nil {
		return domain.OrderSnapshot{}, err
	}
	s.publish(ctx, event)

	s.logger.Info("Order created", watermill.LogFields{"order_id": created.ID, "customer_id": created.CustomerID})
	return snapshot, nil
}

// GetOrder returns the caller's order, from the cache when a cached copy
// belongs to customerID, otherwise from the record store, caching the
// result.
func (s *OrderService) GetOrder(ctx context.Context, orderID, customerID int64) (domain.OrderSnapshot, error) {
	key := cache.OrderKey(orderID)
	fields := watermill.LogFields{"order_id": orderID, "customer_id": customerID}

	cached, found, err := s.cache.Get(ctx, key)
	if err != nil {
		return domain.OrderSnapshot{}, errors.Wrap(err, "cannot read order cache")
	}
	if found {
		var snapshot domain.OrderSnapshot
		if err := json.Unmarshal([]byte(cached), &snapshot); err != nil {
			s.logger.Error("Ignoring unreadable cached order", err, fields)
		} else if snapshot.CustomerID == customerID {
			s.logger.Debug("Order retrieved from cache", fields)
			return snapshot, nil
		} else {
			s.logger.Info("Cached order owner mismatch, reading from store", fields)
		}
	}

	order, err := s.store.FindOrder(ctx, orderID, customerID)
	if err != nil {
		return domain.OrderSnapshot{}, err
	}
	snapshot := domain.NewSnapshot(order)

	b, err := json.Marshal(snapshot)
	if err != nil {
		return domain.OrderSnapshot{}, errors.Wrap(err, "cannot marshal order snapshot")
	}
	if err := s.cache.Set(ctx, key, string(b), s.config.CacheTTL); err != nil {
		return domain.OrderSnapshot{}, errors.Wrap(err, "cannot cache order")
	}

	s.logger.Debug("Order retrieved from store and cached", fields)
	return snapshot, nil
}

// UpdateOrder changes the status of the caller's order.
func (s *OrderService) UpdateOrder(ctx context.Context, orderID, customerID int64, in domain.UpdateOrderInput) (domain.OrderSnapshot, error) {
	if err := in.Validate(); err != nil {
		return domain.OrderSnapshot{}, err
	}

	current, err := s.store.FindOrder(ctx, orderID, customerID)
	if err != nil {
		return domain.OrderSnapshot{}, err
	}
	oldData := domain.NewSnapshot(current).HeaderMap()

	updated, err := s.store.UpdateOrderStatus(ctx, orderID, in.Status)
	if err != nil {
		return domain.OrderSnapshot{}, errors.Wrapf(err, "cannot update order %d", orderID)
	}
	snapshot := domain.NewSnapshot(updated)

	s.evict(ctx, orderID)
	s.publish(ctx, messaging.NewOrderUpdated(orderID, oldData, snapshot.Map()))

	s.logger.Info("Order updated", watermill.LogFields{"order_id": orderID, "status": in.Status})
	return snapshot, nil
}

// DeleteOrder removes the caller's order. The snapshot is taken before the
// delete and the event is published only once the delete succeeded.
func (s *OrderService) DeleteOrder(ctx context.Context, orderID, customerID int64) error {
	current, err := s.store.FindOrder(ctx, orderID, customerID)
	if err != nil {
		return err
	}
	snapshot := domain.NewSnapshot(current).Map()

	if err := s.store.DeleteOrder(ctx, orderID); err != nil {
		return errors.Wrapf(err, "cannot delete order %d", orderID)
	}

	s.evict(ctx, orderID)
	s.publish(ctx, messaging.NewOrderDeleted(orderID, snapshot))

	s.logger.Info("Order deleted", watermill.LogFields{"order_id": orderID})
	return nil
}

// ListOrders returns a page of the customer's orders, newest first. Pages
// start at 1.
func (s *OrderService) ListOrders(ctx context.Context, customerID int64, page, size int) (OrderPage, error) {
	if page < 1 {
		return OrderPage{}, domain.NewValidationError("page", "must be at least 1")
	}
	if size < 1 || size > MaxPageSize {
		return OrderPage{}, domain.NewValidationError("size", "must be between 1 and 100")
	}

	total, err := s.store.CountOrders(ctx, customerID)
	if err != nil {
		return OrderPage{}, errors.Wrap(err, "cannot count orders")
	}
	orders, err := s.store.ListOrders(ctx, customerID, (page-1)*size, size)
	if err != nil {
		return OrderPage{}, errors.Wrap(err, "cannot list orders")
	}

	snapshots := make([]domain.OrderSnapshot, 0, len(orders))
	for _, o := range orders {
		snapshots = append(snapshots, domain.NewSnapshot(o))
	}

	return OrderPage{
		Orders:  snapshots,
		Total:   total,
		Page:    page,
		Size:    size,
		HasNext: page*size < total,
		HasPrev: page > 1,
	}, nil
}

// OrderHistory returns the audit trail the caller produced for an order,
// deleted orders included.
func (s *OrderService) OrderHistory(ctx context.Context, orderID, customerID int64) ([]domain.HistoryEntry, error) {
	entries, err := s.store.ListHistory(ctx, orderID)
	if err != nil {
		return nil, errors.Wrap(err, "cannot list order history")
	}

	owned := make([]domain.HistoryEntry, 0, len(entries))
	for _, e := range entries {
		if e.PerformedBy == customerID {
			owned = append(owned, e)
		}
	}
	if len(owned) == 0 {
		return nil, domain.ErrOrderNotFound
	}
	return owned, nil
}

// evict drops the cached copy of an order. The record store already holds
// the change, so a failure is logged and not returned.
func (s *OrderService) evict(ctx context.Context, orderID int64) {
	if err := s.cache.Delete(ctx, cache.OrderKey(orderID)); err != nil {
		s.logger.Error("Cannot evict cached order", err, watermill.LogFields{"order_id": orderID})
	}
}

func (s *OrderService) publish(ctx context.Context, event messaging.Event) {
	if id := messaging.CorrelationIDFromContext(ctx); id != "" {
		event = event.WithCorrelationID(id)
	}
	s.publisher.Publish(ctx, event)
}

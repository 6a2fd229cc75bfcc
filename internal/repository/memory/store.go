// Package memory is an in-process order and history store.
package memory

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/nsridhar76/go-ordermgmt/internal/domain"
)

// Store keeps orders and audit records in memory. It is safe for concurrent
// use; returned orders never alias internal state.
type Store struct {
	mu      sync.Mutex
	now     func() time.Time
	orders  map[int64]domain.Order
	history []domain.HistoryEntry

	nextOrderID   int64
	nextLineID    int64
	nextHistoryID int64
}

func NewStore() *Store {
	return &Store{
		now:    func() time.Time { return time.Now().UTC() },
		orders: make(map[int64]domain.Order),
	}
}

// WithClock replaces the time source, used for deterministic timestamps.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) CreateOrder(_ context.Context, order domain.Order) (domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.nextOrderID++
	order.ID = s.nextOrderID
	order.CreatedAt = now
	order.UpdatedAt = now

	lines := make([]domain.OrderLine, len(order.Lines))
	for i, l := range order.Lines {
		s.nextLineID++
		l.ID = s.nextLineID
		l.OrderID = order.ID
		l.CreatedAt = now
		lines[i] = l
	}
	order.Lines = lines

	s.orders[order.ID] = order
	return clone(order), nil
}

func (s *Store) FindOrder(_ context.Context, orderID, customerID int64) (domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[orderID]
	if !ok || o.CustomerID != customerID {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return clone(o), nil
}

func (s *Store) UpdateOrderStatus(_ context.Context, orderID int64, status domain.OrderStatus) (domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[orderID]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	o.Status = status
	o.UpdatedAt = s.now()
	s.orders[orderID] = o
	return clone(o), nil
}

func (s *Store) DeleteOrder(_ context.Context, orderID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.orders[orderID]; !ok {
		return domain.ErrOrderNotFound
	}
	delete(s.orders, orderID)
	return nil
}

// ListOrders returns the customer's orders newest first.
func (s *Store) ListOrders(_ context.Context, customerID int64, skip, take int) ([]domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var owned []domain.Order
	for _, o := range s.orders {
		if o.CustomerID == customerID {
			owned = append(owned, o)
		}
	}
	sort.Slice(owned, func(i, j int) bool {
		if owned[i].CreatedAt.Equal(owned[j].CreatedAt) {
			return owned[i].ID > owned[j].ID
		}
		return owned[i].CreatedAt.After(owned[j].CreatedAt)
	})

	if skip >= len(owned) {
		return []domain.Order{}, nil
	}
	owned = owned[skip:]
	if take < len(owned) {
		owned = owned[:take]
	}

	out := make([]domain.Order, len(owned))
	for i, o := range owned {
		out[i] = clone(o)
	}
	return out, nil
}

func (s *Store) CountOrders(_ context.Context, customerID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, o := range s.orders {
		if o.CustomerID == customerID {
			n++
		}
	}
	return n, nil
}

func (s *Store) AppendHistory(_ context.Context, entry domain.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextHistoryID++
	entry.ID = s.nextHistoryID
	entry.CreatedAt = s.now()
	s.history = append(s.history, entry)
	return nil
}

// ListHistory returns the audit records of an order oldest first.
func (s *Store) ListHistory(_ context.Context, orderID int64) ([]domain.HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []domain.HistoryEntry{}
	for _, e := range s.history {
		if e.OrderID == orderID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *Store) Ping(context.Context) error { return nil }

func clone(o domain.Order) domain.Order {
	o.Lines = slices.Clone(o.Lines)
	return o
}

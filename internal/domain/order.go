// Package domain defines the order aggregate and the values shared between
// the service, the record store and the event handlers.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusShipped   OrderStatus = "SHIPPED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// Valid reports whether s is one of the known statuses.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusShipped, OrderStatusCancelled:
		return true
	}
	return false
}

// Order is an order header together with its lines.
type Order struct {
	ID          int64
	CustomerID  int64
	OrderDate   time.Time
	Status      OrderStatus
	TotalAmount decimal.Decimal
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Lines       []OrderLine
}

// OrderLine is immutable once the order is created.
type OrderLine struct {
	ID        int64
	OrderID   int64
	ProductID int64
	Quantity  int
	UnitPrice decimal.Decimal
	CreatedAt time.Time
}

// TotalAmount sums quantity * unit price over all lines.
func TotalAmount(lines []NewOrderLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Amount())
	}
	return total
}

// HistoryAction is the kind of mutation recorded in the audit trail.
type HistoryAction string

const (
	HistoryActionCreated HistoryAction = "CREATED"
	HistoryActionUpdated HistoryAction = "UPDATED"
	HistoryActionDeleted HistoryAction = "DELETED"
)

// HistoryEntry is one audit record. Changes is opaque serialized text.
type HistoryEntry struct {
	ID          int64
	OrderID     int64
	Action      HistoryAction
	Changes     *string
	PerformedBy int64
	CreatedAt   time.Time
}

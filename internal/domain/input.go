package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	MaxOrderLines   = 50
	MaxLineQuantity = 1000
)

// MaxUnitPrice is the largest accepted unit price.
var MaxUnitPrice = decimal.RequireFromString("999999.99")

// NewOrderInput is what a customer submits to place an order.
type NewOrderInput struct {
	CustomerID int64
	OrderDate  time.Time
	Status     OrderStatus
	Lines      []NewOrderLine
}

type NewOrderLine struct {
	ProductID int64
	Quantity  int
	UnitPrice decimal.Decimal
}

// Amount returns quantity * unit price.
func (l NewOrderLine) Amount() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Validate checks the input against the order rules. now bounds the order
// date. An empty status defaults to PENDING.
func (in *NewOrderInput) Validate(now time.Time) error {
	if in.CustomerID <= 0 {
		return NewValidationError("customer_id", "must be positive")
	}
	if in.OrderDate.IsZero() {
		return NewValidationError("order_date", "is required")
	}
	if in.OrderDate.After(now) {
		return NewValidationError("order_date", "cannot be in the future")
	}
	if in.Status == "" {
		in.Status = OrderStatusPending
	}
	if !in.Status.Valid() {
		return NewValidationError("status", "must be one of PENDING, SHIPPED, CANCELLED")
	}
	if len(in.Lines) == 0 {
		return NewValidationError("lines", "order must have at least one line")
	}
	if len(in.Lines) > MaxOrderLines {
		return NewValidationError("lines", "order cannot have more than 50 lines")
	}
	for _, l := range in.Lines {
		if l.ProductID <= 0 {
			return NewValidationError("lines.product_id", "must be positive")
		}
		if l.Quantity <= 0 || l.Quantity > MaxLineQuantity {
			return NewValidationError("lines.quantity", "must be between 1 and 1000")
		}
		if l.UnitPrice.IsNegative() || l.UnitPrice.GreaterThan(MaxUnitPrice) {
			return NewValidationError("lines.unit_price", "must be between 0 and 999999.99")
		}
		if !l.UnitPrice.Equal(l.UnitPrice.Round(2)) {
			return NewValidationError("lines.unit_price", "must have at most 2 decimal places")
		}
	}
	return nil
}

// UpdateOrderInput carries the only mutable field of an order.
type UpdateOrderInput struct {
	Status OrderStatus
}

func (in UpdateOrderInput) Validate() error {
	if !in.Status.Valid() {
		return NewValidationError("status", "must be one of PENDING, SHIPPED, CANCELLED")
	}
	return nil
}

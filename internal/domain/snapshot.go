package domain

import (
	"time"
)

// OrderSnapshot is the JSON-safe, point-in-time copy of an order used in
// event payloads, the cache and API responses. Amounts are floats and
// instants serialize as ISO-8601 strings.
type OrderSnapshot struct {
	ID          int64          `json:"id"`
	CustomerID  int64          `json:"customerId"`
	OrderDate   time.Time      `json:"orderDate"`
	Status      OrderStatus    `json:"status"`
	TotalAmount float64        `json:"totalAmount"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
	Lines       []LineSnapshot `json:"lines"`
}

type LineSnapshot struct {
	ID        int64     `json:"id"`
	ProductID int64     `json:"productId"`
	Quantity  int       `json:"quantity"`
	UnitPrice float64   `json:"unitPrice"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewSnapshot normalizes o into its serializable form.
func NewSnapshot(o Order) OrderSnapshot {
	s := OrderSnapshot{
		ID:          o.ID,
		CustomerID:  o.CustomerID,
		OrderDate:   o.OrderDate.UTC(),
		Status:      o.Status,
		TotalAmount: o.TotalAmount.InexactFloat64(),
		CreatedAt:   o.CreatedAt.UTC(),
		UpdatedAt:   o.UpdatedAt.UTC(),
		Lines:       make([]LineSnapshot, 0, len(o.Lines)),
	}
	for _, l := range o.Lines {
		s.Lines = append(s.Lines, LineSnapshot{
			ID:        l.ID,
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice.InexactFloat64(),
			CreatedAt: l.CreatedAt.UTC(),
		})
	}
	return s
}

// HeaderMap returns the header fields as a key-value map, without lines.
func (s OrderSnapshot) HeaderMap() map[string]any {
	return map[string]any{
		"id":          s.ID,
		"customerId":  s.CustomerID,
		"orderDate":   formatTime(s.OrderDate),
		"status":      string(s.Status),
		"totalAmount": s.TotalAmount,
		"createdAt":   formatTime(s.CreatedAt),
		"updatedAt":   formatTime(s.UpdatedAt),
	}
}

// Map returns the full snapshot, lines included, as a key-value map.
func (s OrderSnapshot) Map() map[string]any {
	m := s.HeaderMap()
	lines := make([]any, 0, len(s.Lines))
	for _, l := range s.Lines {
		lines = append(lines, map[string]any{
			"id":        l.ID,
			"productId": l.ProductID,
			"quantity":  l.Quantity,
			"unitPrice": l.UnitPrice,
			"createdAt": formatTime(l.CreatedAt),
		})
	}
	m["lines"] = lines
	return m
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

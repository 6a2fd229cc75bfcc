package httpapi

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nsridhar76/go-ordermgmt/internal/domain"
)

// orderDate accepts an RFC 3339 timestamp or a plain YYYY-MM-DD date.
type orderDate struct {
	time.Time
}

func (d *orderDate) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		d.Time = time.Time{}
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			d.Time = t
			return nil
		}
	}
	return domain.NewValidationError("order_date", "must be an ISO-8601 date or timestamp")
}

type createOrderRequest struct {
	CustomerID int64                `json:"customer_id"`
	OrderDate  orderDate            `json:"order_date"`
	Status     domain.OrderStatus   `json:"status"`
	Lines      []createOrderLineDTO `json:"lines"`
}

type createOrderLineDTO struct {
	ProductID int64           `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

func (req createOrderRequest) toInput(customerID int64) domain.NewOrderInput {
	in := domain.NewOrderInput{
		CustomerID: customerID,
		OrderDate:  req.OrderDate.Time,
		Status:     domain.OrderStatus(strings.ToUpper(string(req.Status))),
		Lines:      make([]domain.NewOrderLine, 0, len(req.Lines)),
	}
	for _, l := range req.Lines {
		in.Lines = append(in.Lines, domain.NewOrderLine{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
		})
	}
	return in
}

type updateOrderRequest struct {
	Status domain.OrderStatus `json:"status"`
}

type historyResponse struct {
	ID          int64     `json:"id"`
	OrderID     int64     `json:"order_id"`
	Action      string    `json:"action"`
	Changes     *string   `json:"changes"`
	PerformedBy int64     `json:"performed_by"`
	CreatedAt   time.Time `json:"created_at"`
}

func newHistoryResponse(entries []domain.HistoryEntry) []historyResponse {
	out := make([]historyResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, historyResponse{
			ID:          e.ID,
			OrderID:     e.OrderID,
			Action:      string(e.Action),
			Changes:     e.Changes,
			PerformedBy: e.PerformedBy,
			CreatedAt:   e.CreatedAt.UTC(),
		})
	}
	return out
}

type loginRequest struct {
	CustomerID int64 `json:"customer_id"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type messageResponse struct {
	Message string `json:"message"`
}

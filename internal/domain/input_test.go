package domain_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nsridhar76/go-ordermgmt/internal/domain"
)

func validInput(now time.Time) domain.NewOrderInput {
	return domain.NewOrderInput{
		CustomerID: 1,
		OrderDate:  now.Add(-time.Hour),
		Lines: []domain.NewOrderLine{
			{ProductID: 1001, Quantity: 2, UnitPrice: decimal.RequireFromString("25.50")},
			{ProductID: 1002, Quantity: 1, UnitPrice: decimal.RequireFromString("15.00")},
		},
	}
}

func TestNewOrderInput_Validate(t *testing.T) {
	now := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

	t.Run("defaults status to pending", func(t *testing.T) {
		in := validInput(now)
		require.NoError(t, in.Validate(now))
		assert.Equal(t, domain.OrderStatusPending, in.Status)
	})

	testCases := []struct {
		Name   string
		Mutate func(in *domain.NewOrderInput)
		Field  string
	}{
		{"non-positive customer", func(in *domain.NewOrderInput) { in.CustomerID = 0 }, "customer_id"},
		{"future order date", func(in *domain.NewOrderInput) { in.OrderDate = now.Add(time.Minute) }, "order_date"},
		{"unknown status", func(in *domain.NewOrderInput) { in.Status = "LOST" }, "status"},
		{"no lines", func(in *domain.NewOrderInput) { in.Lines = nil }, "lines"},
		{"too many lines", func(in *domain.NewOrderInput) {
			in.Lines = make([]domain.NewOrderLine, domain.MaxOrderLines+1)
		}, "lines"},
		{"zero quantity", func(in *domain.NewOrderInput) { in.Lines[0].Quantity = 0 }, "lines.quantity"},
		{"quantity above limit", func(in *domain.NewOrderInput) { in.Lines[0].Quantity = 1001 }, "lines.quantity"},
		{"product id", func(in *domain.NewOrderInput) { in.Lines[1].ProductID = -1 }, "lines.product_id"},
		{"negative price", func(in *domain.NewOrderInput) {
			in.Lines[0].UnitPrice = decimal.RequireFromString("-0.01")
		}, "lines.unit_price"},
		{"price above limit", func(in *domain.NewOrderInput) {
			in.Lines[0].UnitPrice = decimal.RequireFromString("1000000")
		}, "lines.unit_price"},
		{"price with sub-cent precision", func(in *domain.NewOrderInput) {
			in.Lines[0].UnitPrice = decimal.RequireFromString("25.555")
		}, "lines.unit_price"},
	}

	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			in := validInput(now)
			tc.Mutate(&in)

			err := in.Validate(now)
			require.Error(t, err)
			require.True(t, domain.IsValidation(err))

			var vErr *domain.ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tc.Field, vErr.Field)
		})
	}
}

func TestTotalAmount(t *testing.T) {
	now := time.Now()
	in := validInput(now)

	total := domain.TotalAmount(in.Lines)
	assert.True(t, total.Equal(decimal.RequireFromString("66.00")), total.String())
	assert.True(t, in.Lines[0].Amount().Equal(decimal.RequireFromString("51.00")), in.Lines[0].Amount().String())
}

func TestNewOrderInput_Validate_accepts_trailing_zeros(t *testing.T) {
	now := time.Now()
	in := validInput(now)
	in.Lines[0].UnitPrice = decimal.RequireFromString("25.500")

	require.NoError(t, in.Validate(now))
}

func TestUpdateOrderInput_Validate(t *testing.T) {
	assert.NoError(t, domain.UpdateOrderInput{Status: domain.OrderStatusShipped}.Validate())
	assert.True(t, domain.IsValidation(domain.UpdateOrderInput{Status: "shipped"}.Validate()))
}

func TestNewSnapshot(t *testing.T) {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.FixedZone("X", 3600))
	o := domain.Order{
		ID:          7,
		CustomerID:  3,
		OrderDate:   created,
		Status:      domain.OrderStatusPending,
		TotalAmount: decimal.RequireFromString("66.00"),
		CreatedAt:   created,
		UpdatedAt:   created,
		Lines: []domain.OrderLine{
			{ID: 1, OrderID: 7, ProductID: 1001, Quantity: 2, UnitPrice: decimal.RequireFromString("25.50"), CreatedAt: created},
		},
	}

	s := domain.NewSnapshot(o)
	assert.Equal(t, 66.0, s.TotalAmount)
	assert.Equal(t, time.UTC, s.CreatedAt.Location())
	require.Len(t, s.Lines, 1)
	assert.Equal(t, 25.5, s.Lines[0].UnitPrice)

	m := s.Map()
	assert.Equal(t, "2026-01-02T02:04:05Z", m["orderDate"])
	assert.Equal(t, "PENDING", m["status"])
	assert.Len(t, m["lines"], 1)

	_, hasLines := s.HeaderMap()["lines"]
	assert.False(t, hasLines)
}

package messaging

import (
	"encoding/json"
	"reflect"

	"github.com/pkg/errors"

	"github.com/nsridhar76/go-ordermgmt/internal/domain"
)

// Payload keys of the order events.
const (
	KeyOrderID   = "order_id"
	KeyOldData   = "old_data"
	KeyNewData   = "new_data"
	KeyChanges   = "changes"
	KeyOrderData = "order_data"
)

var orderCreatedRequired = []string{"id", "customerId", "orderDate", "status"}

// Fields that always move on update and carry no information for the diff.
var diffIgnored = map[string]struct{}{
	"updatedAt": {},
}

// Change is a single field transition in an OrderUpdated event.
type Change struct {
	From any `json:"from"`
	To   any `json:"to"`
}

// NewOrderCreated builds an OrderCreated event whose payload is the order
// snapshot itself. It fails with a *domain.ValidationError when a required
// field is missing.
func NewOrderCreated(order map[string]any) (Event, error) {
	for _, field := range orderCreatedRequired {
		if _, ok := order[field]; !ok {
			return Event{}, domain.NewValidationError(field, "missing required field")
		}
	}
	return NewEvent(EventOrderCreated, order), nil
}

// NewOrderUpdated builds an OrderUpdated event. The changes are computed from
// the fields present in both snapshots.
func NewOrderUpdated(orderID int64, oldData, newData map[string]any) Event {
	return NewEvent(EventOrderUpdated, Payload{
		KeyOrderID: orderID,
		KeyOldData: oldData,
		KeyNewData: newData,
		KeyChanges: CalculateChanges(oldData, newData),
	})
}

// NewOrderDeleted builds an OrderDeleted event carrying the snapshot taken
// before the order was removed.
func NewOrderDeleted(orderID int64, orderData map[string]any) Event {
	return NewEvent(EventOrderDeleted, Payload{
		KeyOrderID:   orderID,
		KeyOrderData: orderData,
	})
}

// CalculateChanges returns field -> {from, to} for every field present in
// both maps whose values differ.
func CalculateChanges(oldData, newData map[string]any) map[string]Change {
	changes := make(map[string]Change)
	for key, newValue := range newData {
		if _, ignored := diffIgnored[key]; ignored {
			continue
		}
		oldValue, ok := oldData[key]
		if !ok {
			continue
		}
		if !reflect.DeepEqual(oldValue, newValue) {
			changes[key] = Change{From: oldValue, To: newValue}
		}
	}
	return changes
}

// IsOrderEvent reports whether e is one of the three order events.
func IsOrderEvent(e Event) bool {
	switch e.Type() {
	case EventOrderCreated, EventOrderUpdated, EventOrderDeleted:
		return true
	}
	return false
}

// OrderID returns the id of the order an order event refers to.
func OrderID(e Event) (int64, error) {
	key := KeyOrderID
	if e.Type() == EventOrderCreated {
		key = "id"
	}
	v, ok := e.Get(key)
	if !ok {
		return 0, errors.Errorf("event %s has no %s", e.Type(), key)
	}
	id, ok := int64Value(v)
	if !ok {
		return 0, errors.Errorf("event %s: %s is %T, not an integer", e.Type(), key, v)
	}
	return id, nil
}

// OrderData returns the order snapshot an event carries: the payload itself
// for OrderCreated, the new data for OrderUpdated and the pre-deletion data
// for OrderDeleted.
func OrderData(e Event) (map[string]any, error) {
	switch e.Type() {
	case EventOrderCreated:
		return e.Payload(), nil
	case EventOrderUpdated:
		return nestedMap(e, KeyNewData)
	case EventOrderDeleted:
		return nestedMap(e, KeyOrderData)
	}
	return nil, errors.Errorf("event %s does not carry order data", e.Type())
}

// OrderChanges returns the diff of an OrderUpdated event.
func OrderChanges(e Event) map[string]Change {
	v, _ := e.Get(KeyChanges)
	changes, _ := v.(map[string]Change)
	return changes
}

// CustomerID returns the customer owning the order in data.
func CustomerID(data map[string]any) (int64, error) {
	v, ok := data["customerId"]
	if !ok {
		return 0, errors.New("order data has no customerId")
	}
	id, ok := int64Value(v)
	if !ok {
		return 0, errors.Errorf("customerId is %T, not an integer", v)
	}
	return id, nil
}

func nestedMap(e Event, key string) (map[string]any, error) {
	v, ok := e.Get(key)
	if !ok {
		return nil, errors.Errorf("event %s has no %s", e.Type(), key)
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, errors.Errorf("event %s: %s is %T, not an object", e.Type(), key, v)
	}
	return m, nil
}

func int64Value(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case float64:
		return int64(n), n == float64(int64(n))
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	}
	return 0, false
}

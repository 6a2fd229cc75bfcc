package handlers

import (
	"context"
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/pkg/errors"

	"github.com/nsridhar76/go-ordermgmt/internal/domain"
	"github.com/nsridhar76/go-ordermgmt/internal/messaging"
)

// HistoryStore persists audit records.
type HistoryStore interface {
	AppendHistory(ctx context.Context, entry domain.HistoryEntry) error
}

// HistoryHandler appends one audit record per order event. Unlike
// CacheHandler it returns its failures, so the bus logs them.
type HistoryHandler struct {
	store  HistoryStore
	logger watermill.LoggerAdapter
}

var _ messaging.Handler = (*HistoryHandler)(nil)

func NewHistoryHandler(store HistoryStore, logger watermill.LoggerAdapter) *HistoryHandler {
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	return &HistoryHandler{store: store, logger: logger}
}

func (h *HistoryHandler) Name() string { return "HistoryHandler" }

func (h *HistoryHandler) CanHandle(event messaging.Event) bool {
	return messaging.IsOrderEvent(event)
}

func (h *HistoryHandler) Handle(ctx context.Context, event messaging.Event) error {
	h.logger.Debug("HistoryHandler processing event", watermill.LogFields{
		"event_type": event.Type(),
		"event_id":   event.ID(),
	})

	entry, err := historyEntry(event)
	if err != nil {
		return errors.Wrapf(err, "cannot build history entry for event %s", event.ID())
	}
	if err := h.store.AppendHistory(ctx, entry); err != nil {
		return errors.Wrapf(err, "cannot append history for order %d", entry.OrderID)
	}

	h.logger.Debug("Created history entry", watermill.LogFields{
		"order_id": entry.OrderID,
		"action":   entry.Action,
	})
	return nil
}

func historyEntry(event messaging.Event) (domain.HistoryEntry, error) {
	orderID, err := messaging.OrderID(event)
	if err != nil {
		return domain.HistoryEntry{}, err
	}
	data, err := messaging.OrderData(event)
	if err != nil {
		return domain.HistoryEntry{}, err
	}
	performedBy, err := messaging.CustomerID(data)
	if err != nil {
		return domain.HistoryEntry{}, err
	}

	entry := domain.HistoryEntry{OrderID: orderID, PerformedBy: performedBy}

	switch event.Type() {
	case messaging.EventOrderCreated:
		entry.Action = domain.HistoryActionCreated
	case messaging.EventOrderUpdated:
		entry.Action = domain.HistoryActionUpdated
		changes, err := serialize(messaging.OrderChanges(event))
		if err != nil {
			return domain.HistoryEntry{}, err
		}
		entry.Changes = &changes
	case messaging.EventOrderDeleted:
		entry.Action = domain.HistoryActionDeleted
		changes, err := serialize(map[string]any{
			"deleted_data": map[string]any{
				"id":         data["id"],
				"customerId": data["customerId"],
				"status":     data["status"],
			},
		})
		if err != nil {
			return domain.HistoryEntry{}, err
		}
		entry.Changes = &changes
	default:
		return domain.HistoryEntry{}, errors.Errorf("unsupported event type %s", event.Type())
	}

	return entry, nil
}

func serialize(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", errors.Wrap(err, "cannot serialize changes")
	}
	return string(b), nil
}

package noop

import (
	"context"

	"github.com/nsridhar76/go-ordermgmt/internal/messaging"
)

// Publisher is a no-op messaging.Publisher used when the event system is
// disabled. Mutations still succeed, but the cache and audit trail are not
// updated.
type Publisher struct{}

var _ messaging.Publisher = Publisher{}

func (Publisher) Publish(_ context.Context, _ messaging.Event) {}

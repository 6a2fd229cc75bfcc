package messaging

import (
	"context"
	"fmt"
	"runtime/debug"
	"slices"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// BusConfig configures a Bus.
type BusConfig struct {
	// HandlerTimeout bounds a single Handle call. A handler that does not
	// return in time is reported as failed and no longer blocks Publish.
	HandlerTimeout time.Duration

	// HistorySize is the number of published events retained for
	// inspection. Zero disables retention.
	HistorySize int

	// Metrics is optional.
	Metrics *Metrics
}

func (c *BusConfig) setDefaults() {
	if c.HandlerTimeout <= 0 {
		c.HandlerTimeout = 5 * time.Second
	}
}

// RecoveredPanicError is the failure reported for a handler that panicked.
type RecoveredPanicError struct {
	V          any
	Stacktrace string
}

func (p RecoveredPanicError) Error() string {
	return fmt.Sprintf("panic occurred: %#v, stacktrace: \n%s", p.V, p.Stacktrace)
}

// Bus dispatches each published event to every registered handler that
// accepts it. Handlers run concurrently and Publish waits for all of them.
// Handler failures are logged and never reach the publisher.
type Bus struct {
	config BusConfig
	logger watermill.LoggerAdapter

	handlersLock sync.RWMutex
	handlers     []Handler

	history *history
}

func NewBus(config BusConfig, logger watermill.LoggerAdapter) *Bus {
	config.setDefaults()
	if logger == nil {
		logger = watermill.NopLogger{}
	}

	return &Bus{
		config:  config,
		logger:  logger,
		history: newHistory(config.HistorySize),
	}
}

// RegisterHandler appends h to the subscribers. Registering the same handler
// twice makes it run twice per event.
func (b *Bus) RegisterHandler(h Handler) {
	b.handlersLock.Lock()
	b.handlers = append(b.handlers, h)
	b.handlersLock.Unlock()

	b.logger.Info("Registered handler", watermill.LogFields{"handler": h.Name()})
}

// RegisterHandlers registers handlers in order.
func (b *Bus) RegisterHandlers(handlers ...Handler) {
	for _, h := range handlers {
		b.RegisterHandler(h)
	}
}

// Publish records event in the history and runs the accepting handlers
// concurrently, returning once all of them finished or timed out.
//
// Handlers get a context that keeps the values of ctx but is not canceled
// with it.
func (b *Bus) Publish(ctx context.Context, event Event) {
	logFields := watermill.LogFields{
		"event_type":     event.Type(),
		"event_id":       event.ID(),
		"correlation_id": event.CorrelationID(),
	}
	b.logger.Info("Publishing event", logFields)

	b.history.append(event)
	b.config.Metrics.eventPublished(event.Type())

	selected := b.selectHandlers(event)
	if len(selected) == 0 {
		b.logger.Info("No handlers found for event", logFields)
		return
	}

	handlerCtx := context.WithoutCancel(ctx)
	results := make([]error, len(selected))

	wg := sync.WaitGroup{}
	wg.Add(len(selected))
	for i, h := range selected {
		go func() {
			defer wg.Done()
			results[i] = b.execute(handlerCtx, h, event)
		}()
	}
	wg.Wait()

	var result *multierror.Error
	for i, err := range results {
		fields := logFields.Add(watermill.LogFields{"handler": selected[i].Name()})
		if err != nil {
			b.logger.Error("Handler failed", err, fields)
			result = multierror.Append(result, errors.Wrapf(err, "handler %s", selected[i].Name()))
			continue
		}
		b.logger.Debug("Handler completed successfully", fields)
	}

	if err := result.ErrorOrNil(); err != nil {
		b.logger.Info("Event published with handler failures", logFields.Add(watermill.LogFields{
			"failed_handlers": len(result.Errors),
			"handlers":        len(selected),
			"errors":          err.Error(),
		}))
	}
}

// History returns the retained events oldest first. A non-empty eventType
// keeps only events of that type.
func (b *Bus) History(eventType string) []Event {
	return b.history.list(eventType)
}

func (b *Bus) selectHandlers(event Event) []Handler {
	b.handlersLock.RLock()
	handlers := slices.Clone(b.handlers)
	b.handlersLock.RUnlock()

	selected := make([]Handler, 0, len(handlers))
	for _, h := range handlers {
		if h.CanHandle(event) {
			selected = append(selected, h)
		}
	}
	return selected
}

func (b *Bus) execute(ctx context.Context, h Handler, event Event) (err error) {
	start := time.Now()
	defer func() {
		elapsed := time.Since(start)
		b.config.Metrics.handlerExecuted(h.Name(), elapsed, err)
		b.logger.Trace("Handler finished", watermill.LogFields{
			"handler":  h.Name(),
			"event_id": event.ID(),
			"duration": elapsed.String(),
		})
	}()

	ctx, cancel := context.WithTimeout(ctx, b.config.HandlerTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- errors.WithStack(RecoveredPanicError{V: r, Stacktrace: string(debug.Stack())})
			}
		}()
		done <- h.Handle(ctx, event)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return errors.Wrapf(ctx.Err(), "handler did not finish within %s", b.config.HandlerTimeout)
	}
}

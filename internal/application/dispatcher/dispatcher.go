package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/garyjia/trash-inspection/internal/domain/event"
)

var (
	// ErrNoHandler is returned when an event type has no registered handler
	ErrNoHandler = errors.New("no handler registered for event type")

	// ErrDuplicateHandler is returned when a second handler is registered for a type
	ErrDuplicateHandler = errors.New("handler already registered for event type")

	// ErrClosed is returned after Close
	ErrClosed = errors.New("dispatcher is closed")
)

// Dispatcher routes each lifecycle event to the single handler registered for its type
type Dispatcher interface {
	// Register binds a named handler to an event type
	Register(eventType event.Type, name string, handler Handler) error

	// Dispatch runs the handler for the event synchronously and returns its error
	Dispatch(ctx context.Context, evt *event.Event) error

	// Handles reports whether a handler is registered for the type
	Handles(eventType event.Type) bool

	// ListHandlers returns registered handlers ordered by event type
	ListHandlers() []HandlerInfo

	// Close rejects further dispatches and waits for in-flight ones
	Close() error
}

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

type eventDispatcher struct {
	mu       sync.RWMutex
	handlers map[event.Type]HandlerInfo
	logger   Logger

	inflight sync.WaitGroup
	closed   atomic.Bool
}

// Option configures the dispatcher
type Option func(*eventDispatcher)

// WithLogger sets a logger for the dispatcher
func WithLogger(logger Logger) Option {
	return func(d *eventDispatcher) {
		d.logger = logger
	}
}

// NewDispatcher creates a new event dispatcher
func NewDispatcher(opts ...Option) Dispatcher {
	d := &eventDispatcher{
		handlers: make(map[event.Type]HandlerInfo),
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

func (d *eventDispatcher) Register(eventType event.Type, name string, handler Handler) error {
	if !eventType.IsValid() {
		return fmt.Errorf("cannot register handler %s: unknown event type %q", name, eventType)
	}
	if handler == nil {
		return fmt.Errorf("cannot register handler %s: handler is nil", name)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if existing, ok := d.handlers[eventType]; ok {
		return fmt.Errorf("%w: %s (registered as %s)", ErrDuplicateHandler, eventType, existing.Name)
	}

	d.handlers[eventType] = HandlerInfo{
		Name:      name,
		EventType: eventType,
		Handler:   handler,
	}

	if d.logger != nil {
		d.logger.Info("Handler registered",
			"event_type", eventType,
			"handler_name", name,
		)
	}

	return nil
}

func (d *eventDispatcher) Dispatch(ctx context.Context, evt *event.Event) error {
	if d.closed.Load() {
		return ErrClosed
	}
	if err := evt.Validate(); err != nil {
		return err
	}

	d.mu.RLock()
	info, ok := d.handlers[evt.Type]
	d.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrNoHandler, evt.Type)
	}

	d.inflight.Add(1)
	defer d.inflight.Done()

	if err := d.safeExecute(ctx, evt, info); err != nil {
		if d.logger != nil {
			d.logger.Error("Handler error",
				"event_type", evt.Type,
				"event_id", evt.ID,
				"case_id", evt.CaseID,
				"handler_name", info.Name,
				"error", err,
			)
		}
		return fmt.Errorf("handler %s failed: %w", info.Name, err)
	}

	return nil
}

func (d *eventDispatcher) Handles(eventType event.Type) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.handlers[eventType]
	return ok
}

func (d *eventDispatcher) ListHandlers() []HandlerInfo {
	d.mu.RLock()
	defer d.mu.RUnlock()

	result := make([]HandlerInfo, 0, len(d.handlers))
	for _, h := range d.handlers {
		// handler func is not exposed
		result = append(result, HandlerInfo{Name: h.Name, EventType: h.EventType})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].EventType < result[j].EventType })

	return result
}

func (d *eventDispatcher) Close() error {
	if !d.closed.CompareAndSwap(false, true) {
		return fmt.Errorf("dispatcher already closed")
	}

	if d.logger != nil {
		d.logger.Info("Closing dispatcher, waiting for in-flight handlers")
	}

	d.inflight.Wait()

	if d.logger != nil {
		d.logger.Info("Dispatcher closed")
	}

	return nil
}

// safeExecute runs a handler with panic recovery
func (d *eventDispatcher) safeExecute(ctx context.Context, evt *event.Event, info HandlerInfo) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
			if d.logger != nil {
				d.logger.Error("Handler panic recovered",
					"event_type", evt.Type,
					"event_id", evt.ID,
					"handler_name", info.Name,
					"panic", r,
				)
			}
		}
	}()

	return info.Handler(ctx, evt)
}

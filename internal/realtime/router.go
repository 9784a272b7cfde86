package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/kevsands/prop-ie/internal/event"
	"github.com/kevsands/prop-ie/internal/metrics"
)

// HandlerFunc processes the payload of one event.
type HandlerFunc func(ctx context.Context, name event.Name, data json.RawMessage) error

// Router dispatches envelopes to the handler registered for their event name.
type Router struct {
	handlers map[event.Name]HandlerFunc
	logger   *zap.Logger
}

// NewRouter returns an empty Router.
func NewRouter(logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		handlers: make(map[event.Name]HandlerFunc),
		logger:   logger,
	}
}

// Handle registers h for name, replacing any previous handler.
func (r *Router) Handle(name event.Name, h HandlerFunc) {
	r.handlers[name] = h
}

// Names returns the registered event names in sorted order.
func (r *Router) Names() []event.Name {
	names := make([]event.Name, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// Dispatch runs the handler for env. A panicking handler is recovered and
// reported as an error.
func (r *Router) Dispatch(ctx context.Context, env Envelope) (err error) {
	metrics.RecordEventReceived(string(env.Event))

	h, ok := r.handlers[env.Event]
	if !ok {
		metrics.RecordEventRejected(string(env.Event), "unknown")
		return fmt.Errorf("%w: %q", event.ErrUnknownEvent, env.Event)
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("Panic in event handler",
				zap.String("event", string(env.Event)),
				zap.Any("panic", rec),
			)
			err = fmt.Errorf("handling %s: panic: %v", env.Event, rec)
		}
	}()

	return h(ctx, env.Event, env.Data)
}

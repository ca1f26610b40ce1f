package realtime

import (
	"encoding/json"
	"sync"
)

// Handler receives the raw payload of one event.
type Handler func(data json.RawMessage)

// Router dispatches incoming events to at most one handler per channel.
//
// Registering a handler for a channel replaces any handler already attached
// to that exact channel. This is a deliberate simplification over additive
// multi-subscriber pub/sub: delivery is never duplicated, and callers that
// need several concerns to react to one channel compose a single handler.
type Router struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRouter creates an empty router.
func NewRouter() *Router {
	return &Router{
		handlers: make(map[string]Handler),
	}
}

// On attaches the handler to the channel, detaching any previous one.
func (r *Router) On(channel string, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[channel] = handler
}

// Off detaches the channel's handler, if any.
func (r *Router) Off(channel string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handlers, channel)
}

// Dispatch invokes the channel's handler with the payload. Channels without
// a handler drop the event; delivery is fire-and-forget, there is no
// acknowledgement path.
func (r *Router) Dispatch(channel string, data json.RawMessage) {
	r.mu.RLock()
	handler := r.handlers[channel]
	r.mu.RUnlock()

	if handler != nil {
		handler(data)
	}
}

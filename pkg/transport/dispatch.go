package transport

import (
	"context"
	"encoding/json"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/minimact-dev/minimact/pkg/protocol"
)

// Handler receives a server-to-client invocation's arguments.
type Handler func(args []json.RawMessage)

// handlerEntry pairs a handler with a removal id, since funcs are not
// comparable.
type handlerEntry struct {
	id      uint64
	handler Handler
}

// On registers a handler for a server-to-client target. Handlers for
// the same target run in registration order. The returned func
// removes the registration.
func (c *Connection) On(target string, handler Handler) (off func()) {
	c.handlersMu.Lock()
	c.handlerSeq++
	id := c.handlerSeq
	c.handlers[target] = append(c.handlers[target], &handlerEntry{id: id, handler: handler})
	c.handlersMu.Unlock()

	return func() {
		c.handlersMu.Lock()
		defer c.handlersMu.Unlock()
		entries := c.handlers[target]
		for i, e := range entries {
			if e.id == id {
				c.handlers[target] = append(entries[:i], entries[i+1:]...)
				return
			}
		}
	}
}

// dispatch runs every handler registered for the invocation's target.
// A panic in one handler is recovered so the rest still run.
func (c *Connection) dispatch(inv *protocol.Invocation) {
	c.handlersMu.Lock()
	entries := append([]*handlerEntry(nil), c.handlers[inv.Target]...)
	c.handlersMu.Unlock()

	if len(entries) == 0 {
		c.logger.Warn("no handler for server invocation", "target", inv.Target)
		return
	}

	_, span := c.tracer.Start(context.Background(), "transport.dispatch",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("minimact.target", inv.Target),
			attribute.Int("minimact.handlers", len(entries)),
		))
	defer span.End()

	for _, e := range entries {
		c.safeInvoke(inv.Target, e.handler, inv.Arguments)
	}
}

// safeInvoke runs one handler with panic recovery.
func (c *Connection) safeInvoke(target string, h Handler, args []json.RawMessage) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("dispatch handler panic", "target", target, "panic", r)
		}
	}()
	h(args)
}

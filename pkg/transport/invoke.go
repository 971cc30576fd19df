package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/minimact-dev/minimact/pkg/metrics"
	"github.com/minimact-dev/minimact/pkg/protocol"
)

// Invoke calls a server method and waits for its completion. It fails
// immediately unless the connection is Connected. The wait is bounded
// by the configured invocation timeout and by ctx.
func (c *Connection) Invoke(ctx context.Context, target string, args ...any) (json.RawMessage, error) {
	if c.State() != StateConnected {
		return nil, ErrNotConnected
	}

	ctx, span := c.tracer.Start(ctx, "transport.invoke",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("minimact.target", target)))
	defer span.End()

	id := strconv.FormatUint(c.invocationSeq.Add(1), 10)
	inv, err := protocol.NewInvocation(id, target, args...)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	ch := make(chan *protocol.Completion, 1)
	c.pendingMu.Lock()
	c.pending[id] = ch
	c.pendingMu.Unlock()

	metrics.RecordInvocation(target)

	if err := c.writeMessage(inv); err != nil {
		c.removePending(id)
		metrics.RecordInvocationError(target)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	timeout, cancel := context.WithTimeout(ctx, c.config.InvocationTimeout)
	defer cancel()

	select {
	case <-timeout.Done():
		c.removePending(id)
		metrics.RecordInvocationError(target)
		err := timeout.Err()
		if ctx.Err() == nil {
			err = fmt.Errorf("%w: %s", ErrInvocationTimeout, target)
		}
		span.SetStatus(codes.Error, err.Error())
		return nil, err

	case comp, ok := <-ch:
		if !ok {
			metrics.RecordInvocationError(target)
			span.SetStatus(codes.Error, ErrConnectionClosed.Error())
			return nil, ErrConnectionClosed
		}
		if comp.Error != "" {
			metrics.RecordInvocationError(target)
			span.SetStatus(codes.Error, comp.Error)
			return nil, fmt.Errorf("transport: invocation %s failed: %s", target, comp.Error)
		}
		return comp.Result, nil
	}
}

// Send fires an invocation without an id; no completion will arrive.
// Sends are serialized onto the socket immediately, preserving
// emission order.
func (c *Connection) Send(target string, args ...any) error {
	if c.State() != StateConnected {
		return ErrNotConnected
	}
	inv, err := protocol.NewInvocation("", target, args...)
	if err != nil {
		return err
	}
	metrics.RecordInvocation(target)
	if err := c.writeMessage(inv); err != nil {
		metrics.RecordInvocationError(target)
		return err
	}
	return nil
}

// complete resolves a pending invocation from an inbound completion.
func (c *Connection) complete(m *protocol.Completion) {
	if m.InvocationID == "" {
		c.logger.Warn("completion without invocation id ignored")
		return
	}

	c.pendingMu.Lock()
	ch, ok := c.pending[m.InvocationID]
	delete(c.pending, m.InvocationID)
	c.pendingMu.Unlock()

	if !ok {
		c.logger.Warn("completion for unknown invocation", "invocationId", m.InvocationID)
		return
	}
	ch <- m
}

// removePending forgets a pending invocation without resolving it.
func (c *Connection) removePending(id string) {
	c.pendingMu.Lock()
	delete(c.pending, id)
	c.pendingMu.Unlock()
}

// rejectPending fails every pending invocation, closing their
// channels so waiters observe ErrConnectionClosed.
func (c *Connection) rejectPending(err error) {
	c.pendingMu.Lock()
	pending := c.pending
	c.pending = make(map[string]chan *protocol.Completion)
	c.pendingMu.Unlock()

	if len(pending) > 0 {
		c.logger.Debug("rejecting pending invocations", "count", len(pending), "error", err)
	}
	for _, ch := range pending {
		close(ch)
	}
}

package transport

import (
	"context"
	"time"

	"github.com/minimact-dev/minimact/pkg/metrics"
)

// reconnectDelay returns the backoff delay for the given attempt. The
// final schedule entry repeats indefinitely.
func (c *Connection) reconnectDelay(attempt int) time.Duration {
	delays := c.config.ReconnectDelays
	if len(delays) == 0 {
		delays = defaultReconnectDelays
	}
	if attempt >= len(delays) {
		attempt = len(delays) - 1
	}
	return delays[attempt]
}

// scheduleReconnect arms the reconnect timer for the given attempt.
func (c *Connection) scheduleReconnect(attempt int) {
	delay := c.reconnectDelay(attempt)

	c.mu.Lock()
	if c.stopped || c.state != StateReconnecting {
		c.mu.Unlock()
		return
	}
	c.reconnect = time.AfterFunc(delay, func() {
		c.attemptReconnect(attempt)
	})
	c.mu.Unlock()

	c.fireReconnecting(attempt)
	c.logger.Info("reconnect scheduled", "attempt", attempt, "delay", delay)
}

// attemptReconnect tries one dial+handshake cycle, falling back onto
// the schedule on failure.
func (c *Connection) attemptReconnect(attempt int) {
	c.mu.Lock()
	if c.stopped || c.state != StateReconnecting {
		c.mu.Unlock()
		return
	}
	c.reconnect = nil
	c.mu.Unlock()

	conn, rest, err := c.dialAndHandshake(context.Background())
	if err != nil {
		c.logger.Warn("reconnect attempt failed", "attempt", attempt, "error", err)
		c.scheduleReconnect(attempt + 1)
		return
	}

	c.adopt(conn)
	metrics.RecordReconnect()
	c.logger.Info("reconnected", "attempt", attempt)
	c.fireReconnected()

	if len(rest) > 0 {
		c.processFrame(rest)
	}
}

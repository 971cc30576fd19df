package transport

// OnConnected registers a callback fired after the initial handshake
// completes.
func (c *Connection) OnConnected(fn func()) {
	c.lifecycleMu.Lock()
	defer c.lifecycleMu.Unlock()
	c.onConnected = append(c.onConnected, fn)
}

// OnDisconnected registers a callback fired when the connection
// settles into Disconnected. The error is nil for a deliberate stop.
func (c *Connection) OnDisconnected(fn func(err error)) {
	c.lifecycleMu.Lock()
	defer c.lifecycleMu.Unlock()
	c.onDisconnected = append(c.onDisconnected, fn)
}

// OnReconnecting registers a callback fired per reconnect attempt.
func (c *Connection) OnReconnecting(fn func(attempt int)) {
	c.lifecycleMu.Lock()
	defer c.lifecycleMu.Unlock()
	c.onReconnecting = append(c.onReconnecting, fn)
}

// OnReconnected registers a callback fired after a successful
// reconnection.
func (c *Connection) OnReconnected(fn func()) {
	c.lifecycleMu.Lock()
	defer c.lifecycleMu.Unlock()
	c.onReconnected = append(c.onReconnected, fn)
}

func (c *Connection) fireConnected() {
	for _, fn := range c.snapshotConnected() {
		fn()
	}
}

func (c *Connection) fireDisconnected(err error) {
	c.lifecycleMu.Lock()
	fns := append([]func(error)(nil), c.onDisconnected...)
	c.lifecycleMu.Unlock()
	for _, fn := range fns {
		fn(err)
	}
}

func (c *Connection) fireReconnecting(attempt int) {
	c.lifecycleMu.Lock()
	fns := append([]func(int)(nil), c.onReconnecting...)
	c.lifecycleMu.Unlock()
	for _, fn := range fns {
		fn(attempt)
	}
}

func (c *Connection) fireReconnected() {
	c.lifecycleMu.Lock()
	fns := append([]func()(nil), c.onReconnected...)
	c.lifecycleMu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func (c *Connection) snapshotConnected() []func() {
	c.lifecycleMu.Lock()
	defer c.lifecycleMu.Unlock()
	return append([]func()(nil), c.onConnected...)
}

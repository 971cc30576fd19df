// Package transport maintains the persistent connection to the
// minimact server.
//
// A Connection is a WebSocket client speaking the SignalR-JSON
// protocol from pkg/protocol. It owns the socket lifecycle:
//
//	Disconnected → Connecting → Connected
//	                   ↑             │ close ∉ {1000, 1001}
//	                   └─ Reconnecting ┘
//
// Client-to-server calls go out as invocations; blocking invocations
// are correlated with completions by monotonically increasing ids.
// Server-to-client invocations dispatch to handlers registered by
// target name, in registration order; a panic in one handler never
// prevents the rest from running.
//
// Reconnection follows a fixed backoff schedule (0ms, 2s, 10s, 30s,
// then 60s indefinitely). Pending invocations are rejected when the
// socket closes; dispatch handlers survive reconnection.
//
// Messages within one inbound frame are processed synchronously in
// frame order, so a hint queued in the same frame as the event that
// consumes it is honored.
package transport

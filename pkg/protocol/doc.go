// Package protocol implements the minimact wire protocol.
//
// The protocol is JSON over WebSocket text frames, compatible with the
// SignalR JSON hub protocol. Every message is a single UTF-8 JSON
// object terminated by the record-separator byte 0x1E. A single
// WebSocket frame may carry several concatenated messages; receivers
// must split on the separator and process messages in frame order.
//
// # Handshake
//
// Immediately after the socket opens, the client sends a handshake
// request and waits for the server's response before any other
// traffic flows:
//
//	Client                          Server
//	  │                                │
//	  │── {"protocol":"json",          │
//	  │    "version":1}␞ ────────────>│
//	  │                                │
//	  │<──────────────────── {}␞ ─────│
//	  │                                │
//
// A handshake response containing an "error" field fails the
// connection.
//
// # Message types
//
// Messages carry a numeric "type" field:
//
//   - 1 Invocation: call a target method. Client→server invocations
//     without an invocationId are fire-and-forget. Server→client
//     invocations name a dispatch target.
//   - 3 Completion: terminates a pending invocation with a result or
//     an error.
//   - 6 Ping: keep-alive. A received ping is reflected back.
//   - 7 Close: connection shutdown, optionally allowing reconnect.
//
// Unknown types decode to a Raw message so that future protocol
// additions degrade to a logged no-op rather than a dropped
// connection.
package protocol

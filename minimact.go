// Package minimact is the client runtime for the minimact
// server-driven UI framework.
//
// A minimact server owns component state and computes virtual-DOM
// patches; this runtime receives them over a persistent WebSocket
// channel, applies them surgically to a live document tree, and ships
// user-initiated state mutations back. The central design bet is
// predictive rendering: the server speculatively pre-computes patches
// for likely state transitions and pushes them as hints; the runtime
// caches hints and applies a match in the same tick as the triggering
// event.
//
// Typical use:
//
//	rt := minimact.New("ws://localhost:3000/minimact/ws")
//	if err := rt.LoadHTML(pageHTML); err != nil {
//	    log.Fatal(err)
//	}
//	if err := rt.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer rt.Stop()
//
// The runtime is headless: the live DOM is an in-memory HTML tree,
// and all mutation is serialized onto one runtime loop, matching the
// single-threaded cooperative model of the browser original.
package minimact

// Version is the runtime version.
const Version = "0.3.0"

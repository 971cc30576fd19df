// Package component owns the per-component client state: hook slots,
// the useState-shaped setter pipeline, hydration of server-rendered
// markup, and delegated event dispatch.
//
// Components are created by hydrating markup the server rendered, not
// by client-side rendering: a container carrying
// data-minimact-component binds to a Context whose root is the
// container's first element child. Hook slots are identified by call
// order; the i-th state hook call always binds slot "state_<i>".
//
// The setter is the heart of predictive rendering. Setting a value
// probes the hint queue with the predicted state change; a hit
// applies the server's pre-computed patches in the same tick, then
// the canonical state is synced to the server fire-and-forget. The
// server remains authoritative on conflict — a failed sync logs and
// never rolls back local state.
package component

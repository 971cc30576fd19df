// Package hints implements the predictive hint queue.
//
// The server speculatively pre-computes patch batches for state
// transitions it considers likely and pushes them as hints. The queue
// caches them keyed by componentId:hintId. When a local state change
// occurs, the setter pipeline probes the queue; a hit applies the
// pre-computed patches in the same tick as the triggering event,
// skipping the server round-trip.
//
// Hints are consumed on match and never matched twice. Entries older
// than the TTL (5 seconds) are silently evicted; expiry is the soft
// backpressure bound on queue growth.
package hints

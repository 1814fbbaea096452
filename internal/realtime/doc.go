// Package realtime implements the WebSocket broadcaster: authenticated
// session registry, per-session delivery subscriptions, and an event router
// fanning domain events out to the right connections.
//
// Publish never blocks the caller. Events land in a growable FIFO consumed
// by a single router goroutine, which preserves per-delivery ordering and
// keeps fan-out off the write transaction's critical path. Each session owns
// a bounded send buffer; a slow consumer gets dropped rather than slowing
// anyone else down.
package realtime

// Package metrics provides Prometheus metrics for monitoring.
//
// Key metrics:
//   - WebSocket session counts, frame rates and slow-consumer drops
//   - Event routing throughput by event type
//   - Delivery subscription gauge
//   - HTTP request latencies by route and status
//   - Dispatch sweeper re-announcements
//
// All observation methods are nil-safe so components can run without
// metrics wired in.
package metrics

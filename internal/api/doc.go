// Package api exposes the couriertrack HTTP surface: REST endpoints under
// /api, the WebSocket upgrade at /ws, health at /healthz and Prometheus
// metrics at /metrics.
//
// Handlers stay thin. They decode the request, resolve the caller's identity
// from the request context and delegate to the service layer; service and
// store sentinel errors map onto HTTP status codes in one place (respond.go).
package api

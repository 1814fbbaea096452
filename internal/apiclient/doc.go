// Package apiclient is a typed client for the couriertrack REST API. It
// carries the bearer token across calls, retries idempotent reads with
// jittered exponential backoff, and surfaces HTTP failures as *APIError.
package apiclient

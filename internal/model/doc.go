// Package model defines shared data types for the courier tracking platform.
//
// Conventions:
//   - IDs: int64 database identifiers; tracking numbers are "PKG-" + 8 hex chars
//   - Timestamps: time.Time in UTC, serialized as RFC 3339
//   - Role and status vocabularies are closed sets with validation helpers
package model

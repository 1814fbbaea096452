// Package store provides PostgreSQL persistence for users, packages,
// deliveries and notifications.
//
// Stores take a pgxpool.Pool and a context per call; SQL is inline. Writes
// that race with concurrent transitions use optimistic status predicates and
// surface ErrStaleStatus instead of clobbering. Multi-recipient notification
// writes go through one pgx.Batch round trip.
package store

// Package dispatch re-offers stale packages to couriers.
//
// The sweeper periodically finds packages still awaiting assignment past a
// staleness cutoff, re-announces each one to the couriers currently online
// and writes reminder notifications. Notification writes run with bounded
// concurrency so a large backlog cannot saturate the database pool.
package dispatch

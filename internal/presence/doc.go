// Package presence tracks which couriers currently hold a live WebSocket
// session.
//
// Each online courier is a Redis key with a TTL. Sessions refresh the key on
// every pong, so entries left behind by a crashed server expire on their own
// instead of marking couriers online forever. Reads use SCAN so the dispatch
// path never blocks Redis.
package presence

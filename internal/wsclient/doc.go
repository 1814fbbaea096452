// Package wsclient is a reconnecting WebSocket client for the couriertrack
// live channel. It dials /ws with a bearer token, surfaces decoded frames
// on a channel, and on connection loss redials with exponential backoff,
// replaying the caller's delivery subscriptions once the new connection is
// up.
package wsclient

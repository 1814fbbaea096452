// Package event defines the domain events produced by the service layer and
// the JSON wire frames exchanged over the live channel.
//
// Domain events are a closed set: the Event interface is implemented only by
// the types in this package, and consumers dispatch with an exhaustive type
// switch. Events are immutable once constructed and carry their intended
// audience (sender, courier, recipient, eligibility list) so the router never
// needs a database lookup.
//
// Wire frames are JSON text messages with a "type" discriminator and an
// RFC 3339 "timestamp". Both the server fan-out path and the reconnecting
// client use the types here.
package event

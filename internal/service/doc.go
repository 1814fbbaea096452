// Package service implements the application operations behind the REST API:
// registration and login, the package lifecycle, courier location reporting
// and notification reads. Every operation checks the caller's identity before
// touching storage. State changes publish domain events to the realtime
// router only after the database write has succeeded, so the live channel
// stays advisory and never gates the write path.
package service

// Package database provides the PostgreSQL connection pool for the courier
// platform. Tables are provisioned out of band; this package only connects
// and verifies reachability.
package database

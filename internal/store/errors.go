package store

import "errors"

var (
	// ErrNotFound indicates the requested row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateEmail indicates a user with that email already exists.
	ErrDuplicateEmail = errors.New("email already registered")

	// ErrStaleStatus indicates a conditional update matched no rows because
	// the package status (or assignment) changed under us.
	ErrStaleStatus = errors.New("package state changed concurrently")
)

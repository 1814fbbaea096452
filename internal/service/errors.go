package service

import "errors"

// Errors
var (
	ErrPermissionDenied = errors.New("permission denied")

	// ErrInvalidCredentials covers bad email/password pairs without revealing
	// which half failed.
	ErrInvalidCredentials = errors.New("invalid credentials")

	ErrAccountDisabled   = errors.New("account disabled")
	ErrInvalidTransition = errors.New("illegal status transition")

	// ErrNotCourier rejects assignment targets that are missing, inactive or
	// not courier accounts.
	ErrNotCourier = errors.New("assignee is not an active courier")

	ErrDeliveryClosed = errors.New("delivery already completed")
	ErrInvalidInput   = errors.New("invalid input")
)

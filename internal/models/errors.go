package models

import "errors"

// Domain errors that can be returned by repositories
var (
	// ErrNotFound indicates the requested entity was not found
	ErrNotFound = errors.New("not found")

	// ErrDuplicateTransaction indicates a transaction with the same
	// idempotency key already exists
	ErrDuplicateTransaction = errors.New("duplicate transaction")

	// ErrStaleTransition indicates a state advance was rejected because the
	// row is no longer in any of the expected states. Duplicate or
	// out-of-order webhooks surface as this error.
	ErrStaleTransition = errors.New("stale state transition")

	// ErrDuplicateEvent indicates a webhook event id was already processed
	ErrDuplicateEvent = errors.New("duplicate webhook event")
)

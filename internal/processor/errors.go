package processor

import (
	"errors"
	"fmt"
)

// Error codes returned by the processor that the orchestration layer acts on
const (
	CodeCardDeclined           = "card_declined"
	CodeAuthenticationRequired = "authentication_required"
	CodeDestinationNotPayable  = "destination_not_payable"
	CodeRateLimited            = "rate_limited"
	CodeAPIError               = "api_error"
)

// Error is a decoded processor failure. Transient errors (5xx, rate limits,
// network) may be retried with backoff; permanent ones (declines, missing
// capabilities) must not be.
type Error struct {
	Code       string
	Message    string
	HTTPStatus int
	Transient  bool
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("processor: %s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("processor: %s", e.Code)
}

// IsTransient reports whether the error is worth retrying. Network-level
// failures without a decoded processor error also count as transient.
func IsTransient(err error) bool {
	var procErr *Error
	if errors.As(err, &procErr) {
		return procErr.Transient
	}
	return err != nil
}

// errCode extracts the processor error code, or "" for non-processor errors
func errCode(err error) string {
	var procErr *Error
	if errors.As(err, &procErr) {
		return procErr.Code
	}
	return ""
}

// IsCardDeclined reports whether a charge was declined by the issuer
func IsCardDeclined(err error) bool {
	return errCode(err) == CodeCardDeclined
}

// IsAuthenticationRequired reports whether the charge needs user action
// before it can complete
func IsAuthenticationRequired(err error) bool {
	return errCode(err) == CodeAuthenticationRequired
}

// IsDestinationNotPayable reports whether the destination account cannot
// receive payouts yet
func IsDestinationNotPayable(err error) bool {
	return errCode(err) == CodeDestinationNotPayable
}

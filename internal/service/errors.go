package service

import "fmt"

// ServiceError represents a business logic error with a code
type ServiceError struct {
	Err     error
	Message string
	Code    string
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// Common error codes
const (
	ErrCodeValidation             = "validation_error"
	ErrCodeNotOnboarded           = "not_onboarded"
	ErrCodeCardDeclined           = "card_declined"
	ErrCodeAuthenticationRequired = "authentication_required"
	ErrCodeDestinationNotPayable  = "destination_not_payable"
	ErrCodeServiceUnavailable     = "service_unavailable"
	ErrCodeConsentRequired        = "consent_required"
	ErrCodeTransactionNotFound    = "transaction_not_found"
	ErrCodeInvalidState           = "invalid_state"
	ErrCodeInternalError          = "internal_error"
)

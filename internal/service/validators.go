package service

import "fmt"

// MaxAmountCents caps a single P2P payment. Matches the processor's
// per-charge limit for unreviewed platform accounts.
const MaxAmountCents = 1_000_000_00

// ValidateAmount checks that an amount in minor units is chargeable
func ValidateAmount(amountCents int64) error {
	if amountCents <= 0 {
		return fmt.Errorf("amount must be positive, got %d", amountCents)
	}
	if amountCents > MaxAmountCents {
		return fmt.Errorf("amount %d exceeds maximum of %d", amountCents, MaxAmountCents)
	}
	return nil
}

// ValidateCurrency checks the ISO 4217 shape of a currency code
func ValidateCurrency(currency string) error {
	if len(currency) != 3 {
		return fmt.Errorf("currency must be a 3-letter code, got %q", currency)
	}
	for _, r := range currency {
		if r < 'A' || r > 'Z' {
			return fmt.Errorf("currency must be uppercase letters, got %q", currency)
		}
	}
	return nil
}

// ValidateUserID checks an internal user identifier
func ValidateUserID(userID string) error {
	if userID == "" {
		return fmt.Errorf("user id cannot be empty")
	}
	if len(userID) > 128 {
		return fmt.Errorf("user id exceeds 128 characters")
	}
	return nil
}

// ValidateIdempotencyKey checks a caller-supplied idempotency key
func ValidateIdempotencyKey(key string) error {
	if key == "" {
		return fmt.Errorf("idempotency key cannot be empty")
	}
	if len(key) > 255 {
		return fmt.Errorf("idempotency key exceeds 255 characters")
	}
	return nil
}

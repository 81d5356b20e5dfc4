package models

import "time"

// AccountMapping links an internal user to their processor-side identities:
// the customer used to charge them and the connected account that can
// receive payouts on their behalf. Created on first onboarding, capability
// flags refreshed whenever the processor is consulted, never deleted.
type AccountMapping struct {
	CreatedAt            time.Time `db:"created_at"`
	UpdatedAt            time.Time `db:"updated_at"`
	UserID               string    `db:"user_id"`
	ProcessorCustomerID  string    `db:"processor_customer_id"`
	ProcessorPayeeAcctID string    `db:"processor_payee_account_id"`
	ChargesEnabled       bool      `db:"charges_enabled"`
	PayoutsEnabled       bool      `db:"payouts_enabled"`
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// TransactionState represents where a payment sits in its lifecycle
type TransactionState string

const (
	StateInitiated         TransactionState = "INITIATED"
	StateChargePending     TransactionState = "CHARGE_PENDING"
	StateChargeFailed      TransactionState = "CHARGE_FAILED"
	StateChargeSucceeded   TransactionState = "CHARGE_SUCCEEDED"
	StateTransferPending   TransactionState = "TRANSFER_PENDING"
	StateTransferFailed    TransactionState = "TRANSFER_FAILED"
	StateTransferSucceeded TransactionState = "TRANSFER_SUCCEEDED"
	StateRefunded          TransactionState = "REFUNDED"
)

// allowedTransitions is the forward edge set of the payment state machine.
// Anything not listed is a backward or nonsensical move and gets rejected.
var allowedTransitions = map[TransactionState][]TransactionState{
	StateInitiated:       {StateChargePending},
	StateChargePending:   {StateChargeFailed, StateChargeSucceeded},
	StateChargeSucceeded: {StateTransferPending},
	StateTransferPending: {StateTransferFailed, StateTransferSucceeded},
	// TRANSFER_FAILED is recoverable: the transfer may be retried, or the
	// settled charge refunded by an operator.
	StateTransferFailed:    {StateTransferPending, StateRefunded},
	StateTransferSucceeded: {StateRefunded},
}

// CanTransition reports whether moving from one state to another is a legal
// forward step of the state machine.
func CanTransition(from, to TransactionState) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// PriorStates returns every state from which a transition to the given
// state is legal. The ledger uses this set as the guard of its conditional
// state-advance write.
func PriorStates(to TransactionState) []TransactionState {
	var from []TransactionState
	for state, nexts := range allowedTransitions {
		for _, next := range nexts {
			if next == to {
				from = append(from, state)
			}
		}
	}
	return from
}

// IsTerminal reports whether no further transition is expected. REFUNDED and
// CHARGE_FAILED end a payment outright; TRANSFER_SUCCEEDED ends it unless an
// operator later refunds.
func (s TransactionState) IsTerminal() bool {
	return s == StateChargeFailed || s == StateRefunded
}

// InFlight reports whether the payment is still waiting on a processor
// outcome. Callers polling for a concurrent attempt's result wait on these.
func (s TransactionState) InFlight() bool {
	switch s {
	case StateInitiated, StateChargePending, StateTransferPending:
		return true
	}
	return false
}

// Transaction is the ledger row for one logical payment. Rows are append
// only: state moves forward, failure rows stay around, nothing is deleted.
type Transaction struct {
	CreatedAt       time.Time        `db:"created_at"`
	UpdatedAt       time.Time        `db:"updated_at"`
	IdempotencyKey  string           `db:"idempotency_key"`
	SenderUserID    string           `db:"sender_user_id"`
	RecipientUserID string           `db:"recipient_user_id"`
	Currency        string           `db:"currency"`
	ChargeID        string           `db:"charge_id"`
	TransferID      string           `db:"transfer_id"`
	FailureCode     string           `db:"failure_code"`
	State           TransactionState `db:"state"`
	AmountCents     int64            `db:"amount_cents"`
	ID              uuid.UUID        `db:"id"`
}

// IdempotencyRecord maps a caller-supplied key to the single orchestration
// attempt it claimed. Expiry bounds storage, not re-execution: the unique
// constraint on transactions.idempotency_key holds regardless.
type IdempotencyRecord struct {
	CreatedAt     time.Time `db:"created_at"`
	ExpiresAt     time.Time `db:"expires_at"`
	Key           string    `db:"key"`
	TransactionID uuid.UUID `db:"transaction_id"`
}

package models

// ChargeStatus is the processor's view of a charge
type ChargeStatus string

const (
	ChargeStatusRequiresConfirmation ChargeStatus = "requires_confirmation"
	ChargeStatusSucceeded            ChargeStatus = "succeeded"
	ChargeStatusFailed               ChargeStatus = "failed"
)

// TransferStatus is the processor's view of a transfer
type TransferStatus string

const (
	TransferStatusPending TransferStatus = "pending"
	TransferStatusPaid    TransferStatus = "paid"
	TransferStatusFailed  TransferStatus = "failed"
)

// Charge is a snapshot of a processor-side charge. The processor owns the
// object; we record the id and terminal status on the transaction and return
// the snapshot to callers.
type Charge struct {
	ID              string            `json:"id"`
	CustomerID      string            `json:"customer_id"`
	PaymentMethodID string            `json:"payment_method_id"`
	Currency        string            `json:"currency"`
	Status          ChargeStatus      `json:"status"`
	Metadata        map[string]string `json:"metadata,omitempty"`
	AmountCents     int64             `json:"amount"`
}

// Transfer is a snapshot of a processor-side transfer. SourceChargeID is the
// transfer group linking it back to the charge that funded it.
type Transfer struct {
	ID                   string         `json:"id"`
	DestinationAccountID string         `json:"destination_account_id"`
	SourceChargeID       string         `json:"source_charge_id"`
	Currency             string         `json:"currency"`
	Status               TransferStatus `json:"status"`
	AmountCents          int64          `json:"amount"`
}

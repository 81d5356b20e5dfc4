package processor

// Customer is a processor-side payer record
type Customer struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// ConnectedAccount is a processor-side payee sub-account with its
// capability flags
type ConnectedAccount struct {
	ID             string `json:"id"`
	Email          string `json:"email"`
	ChargesEnabled bool   `json:"charges_enabled"`
	PayoutsEnabled bool   `json:"payouts_enabled"`
}

// ChargeRequest creates and confirms a charge against a customer's payment
// method. Metadata travels to the processor and comes back on webhooks.
type ChargeRequest struct {
	CustomerID      string            `json:"customer"`
	PaymentMethodID string            `json:"payment_method"`
	Currency        string            `json:"currency"`
	TransferGroup   string            `json:"transfer_group,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
	AmountCents     int64             `json:"amount"`
	Confirm         bool              `json:"confirm"`
}

// Charge is the processor's charge object
type Charge struct {
	ID              string            `json:"id"`
	CustomerID      string            `json:"customer"`
	PaymentMethodID string            `json:"payment_method"`
	Currency        string            `json:"currency"`
	Status          string            `json:"status"`
	TransferGroup   string            `json:"transfer_group,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
	FailureCode     string            `json:"failure_code,omitempty"`
	AmountCents     int64             `json:"amount"`
}

// TransferRequest moves captured funds to a connected account. SourceCharge
// is the transfer group tying the payout back to the charge that funded it.
type TransferRequest struct {
	DestinationAccountID string `json:"destination"`
	Currency             string `json:"currency"`
	SourceCharge         string `json:"source_charge"`
	AmountCents          int64  `json:"amount"`
}

// Transfer is the processor's transfer object
type Transfer struct {
	ID                   string `json:"id"`
	DestinationAccountID string `json:"destination"`
	SourceCharge         string `json:"source_charge"`
	Currency             string `json:"currency"`
	Status               string `json:"status"`
	FailureCode          string `json:"failure_code,omitempty"`
	AmountCents          int64  `json:"amount"`
}

// RefundRequest refunds a settled charge, in full or in part
type RefundRequest struct {
	ChargeID    string `json:"charge"`
	AmountCents int64  `json:"amount,omitempty"`
}

// Refund is the processor's refund object
type Refund struct {
	ID          string `json:"id"`
	ChargeID    string `json:"charge"`
	Status      string `json:"status"`
	AmountCents int64  `json:"amount"`
}

type errorEnvelope struct {
	Error struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/KDR9MGR/digital-payments-sub001/internal/models"
	"github.com/KDR9MGR/digital-payments-sub001/internal/service"
)

// errorResponse is the JSON envelope for every non-2xx response. Payment is
// present when the request advanced the ledger before failing, so callers
// can see how far their payment got.
type errorResponse struct {
	Error   string           `json:"error"`
	Message string           `json:"message"`
	Payment *paymentResponse `json:"payment,omitempty"`
}

// paymentResponse is the wire form of a payment and its processor snapshots
type paymentResponse struct {
	TransactionID   string           `json:"transaction_id"`
	State           string           `json:"state"`
	SenderUserID    string           `json:"sender_user_id"`
	RecipientUserID string           `json:"recipient_user_id"`
	Amount          int64            `json:"amount"`
	Currency        string           `json:"currency"`
	ChargeID        string           `json:"charge_id,omitempty"`
	TransferID      string           `json:"transfer_id,omitempty"`
	FailureCode     string           `json:"failure_code,omitempty"`
	Charge          *models.Charge   `json:"charge,omitempty"`
	Transfer        *models.Transfer `json:"transfer,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

func toPaymentResponse(result *service.PaymentResult) *paymentResponse {
	if result == nil || result.Transaction == nil {
		return nil
	}
	txn := result.Transaction
	return &paymentResponse{
		TransactionID:   txn.ID.String(),
		State:           string(txn.State),
		SenderUserID:    txn.SenderUserID,
		RecipientUserID: txn.RecipientUserID,
		Amount:          txn.AmountCents,
		Currency:        txn.Currency,
		ChargeID:        txn.ChargeID,
		TransferID:      txn.TransferID,
		FailureCode:     txn.FailureCode,
		Charge:          result.Charge,
		Transfer:        result.Transfer,
		CreatedAt:       txn.CreatedAt,
		UpdatedAt:       txn.UpdatedAt,
	}
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("failed to encode response body", "error", err)
	}
}

// respondServiceError maps a saga error to its HTTP status. Errors that
// carry a partial result include it in the envelope.
func (h *Handler) respondServiceError(w http.ResponseWriter, err error, result *service.PaymentResult) {
	svcErr := extractServiceError(err)
	if svcErr == nil {
		h.logger.Error("unexpected error from payment service", "error", err)
		h.respondError(w, http.StatusInternalServerError, service.ErrCodeInternalError, "internal error")
		return
	}

	h.respondJSON(w, statusForCode(svcErr.Code), errorResponse{
		Error:   svcErr.Code,
		Message: svcErr.Message,
		Payment: toPaymentResponse(result),
	})
}

func (h *Handler) respondError(w http.ResponseWriter, status int, code, message string) {
	h.respondJSON(w, status, errorResponse{Error: code, Message: message})
}

func statusForCode(code string) int {
	switch code {
	case service.ErrCodeValidation, service.ErrCodeConsentRequired:
		return http.StatusBadRequest
	case service.ErrCodeCardDeclined, service.ErrCodeAuthenticationRequired:
		return http.StatusPaymentRequired
	case service.ErrCodeTransactionNotFound:
		return http.StatusNotFound
	case service.ErrCodeNotOnboarded, service.ErrCodeDestinationNotPayable, service.ErrCodeInvalidState:
		return http.StatusConflict
	case service.ErrCodeServiceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func extractServiceError(err error) *service.ServiceError {
	var svcErr *service.ServiceError
	if errors.As(err, &svcErr) {
		return svcErr
	}
	return nil
}

func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/KDR9MGR/digital-payments-sub001/internal/service"
)

type initiatePaymentRequest struct {
	RecipientUserID string `json:"recipient_user_id"`
	Currency        string `json:"currency"`
	PaymentMethodID string `json:"payment_method_id"`
	CustomerID      string `json:"customer_id,omitempty"`
	Amount          int64  `json:"amount"`
}

// InitiateP2PPayment handles POST /api/v1/payments/p2p/initiate.
//
// The caller identifies the sender via X-User-ID and supplies an
// Idempotency-Key; replays with the same key return the original attempt's
// outcome, whatever it was.
func (h *Handler) InitiateP2PPayment(w http.ResponseWriter, r *http.Request) {
	senderID := r.Header.Get("X-User-ID")
	idemKey := r.Header.Get("Idempotency-Key")

	var body initiatePaymentRequest
	if err := decodeBody(r, &body); err != nil {
		h.respondError(w, http.StatusBadRequest, service.ErrCodeValidation, "invalid request body")
		return
	}

	result, err := h.payments.InitiatePayment(r.Context(), service.InitiateRequest{
		SenderUserID:    senderID,
		RecipientUserID: body.RecipientUserID,
		Currency:        body.Currency,
		PaymentMethodID: body.PaymentMethodID,
		CustomerID:      body.CustomerID,
		IdempotencyKey:  idemKey,
		AmountCents:     body.Amount,
	})
	if err != nil {
		h.respondServiceError(w, err, result)
		return
	}

	h.respondJSON(w, http.StatusOK, toPaymentResponse(result))
}

type confirmTransferRequest struct {
	PaymentIntentID string `json:"payment_intent_id"`
	UserConsent     bool   `json:"user_consent"`
}

// ConfirmTransfer handles POST /api/v1/payments/transfers/confirm.
//
// Completes a payment whose charge stopped at requires_confirmation: the
// charge is confirmed with the processor and the transfer leg runs.
func (h *Handler) ConfirmTransfer(w http.ResponseWriter, r *http.Request) {
	var body confirmTransferRequest
	if err := decodeBody(r, &body); err != nil {
		h.respondError(w, http.StatusBadRequest, service.ErrCodeValidation, "invalid request body")
		return
	}
	if body.PaymentIntentID == "" {
		h.respondError(w, http.StatusBadRequest, service.ErrCodeValidation, "payment_intent_id is required")
		return
	}

	result, err := h.payments.ConfirmTransfer(r.Context(), body.PaymentIntentID, body.UserConsent)
	if err != nil {
		h.respondServiceError(w, err, result)
		return
	}

	h.respondJSON(w, http.StatusOK, toPaymentResponse(result))
}

// GetTransferStatus handles GET /api/v1/payments/transfers/{id}/status.
// The id may be either a ledger transaction id or a processor charge id.
func (h *Handler) GetTransferStatus(w http.ResponseWriter, r *http.Request) {
	ref := mux.Vars(r)["id"]

	result, err := h.payments.GetStatus(r.Context(), ref)
	if err != nil {
		h.respondServiceError(w, err, nil)
		return
	}

	h.respondJSON(w, http.StatusOK, toPaymentResponse(result))
}

// RetryTransfer handles POST /api/v1/payments/{id}/transfer/retry
func (h *Handler) RetryTransfer(w http.ResponseWriter, r *http.Request) {
	txnID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		h.respondError(w, http.StatusNotFound, service.ErrCodeTransactionNotFound, "transaction not found")
		return
	}

	result, err := h.payments.RetryTransfer(r.Context(), txnID)
	if err != nil {
		h.respondServiceError(w, err, result)
		return
	}

	h.respondJSON(w, http.StatusOK, toPaymentResponse(result))
}

type refundRequest struct {
	Amount int64 `json:"amount,omitempty"`
}

// RefundPayment handles POST /api/v1/payments/{id}/refund.
// A zero or absent amount refunds the full charge.
func (h *Handler) RefundPayment(w http.ResponseWriter, r *http.Request) {
	txnID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		h.respondError(w, http.StatusNotFound, service.ErrCodeTransactionNotFound, "transaction not found")
		return
	}

	var body refundRequest
	if r.ContentLength > 0 {
		if err := decodeBody(r, &body); err != nil {
			h.respondError(w, http.StatusBadRequest, service.ErrCodeValidation, "invalid request body")
			return
		}
	}
	if body.Amount < 0 {
		h.respondError(w, http.StatusBadRequest, service.ErrCodeValidation, "amount must not be negative")
		return
	}

	result, err := h.payments.Refund(r.Context(), txnID, body.Amount)
	if err != nil {
		h.respondServiceError(w, err, result)
		return
	}

	h.respondJSON(w, http.StatusOK, toPaymentResponse(result))
}

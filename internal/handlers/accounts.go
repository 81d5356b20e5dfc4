package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/KDR9MGR/digital-payments-sub001/internal/directory"
	"github.com/KDR9MGR/digital-payments-sub001/internal/models"
	"github.com/KDR9MGR/digital-payments-sub001/internal/processor"
	"github.com/KDR9MGR/digital-payments-sub001/internal/service"
)

type onboardRequest struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

type accountResponse struct {
	UserID              string    `json:"user_id"`
	ProcessorCustomerID string    `json:"processor_customer_id"`
	PayeeAccountID      string    `json:"payee_account_id"`
	ChargesEnabled      bool      `json:"charges_enabled"`
	PayoutsEnabled      bool      `json:"payouts_enabled"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

func toAccountResponse(mapping *models.AccountMapping) accountResponse {
	return accountResponse{
		UserID:              mapping.UserID,
		ProcessorCustomerID: mapping.ProcessorCustomerID,
		PayeeAccountID:      mapping.ProcessorPayeeAcctID,
		ChargesEnabled:      mapping.ChargesEnabled,
		PayoutsEnabled:      mapping.PayoutsEnabled,
		CreatedAt:           mapping.CreatedAt,
		UpdatedAt:           mapping.UpdatedAt,
	}
}

// OnboardAccount handles POST /api/v1/accounts/onboard.
//
// Creates the user's processor identities on first call; repeated calls
// return the existing mapping with refreshed capability flags.
func (h *Handler) OnboardAccount(w http.ResponseWriter, r *http.Request) {
	var body onboardRequest
	if err := decodeBody(r, &body); err != nil {
		h.respondError(w, http.StatusBadRequest, service.ErrCodeValidation, "invalid request body")
		return
	}
	if err := service.ValidateUserID(body.UserID); err != nil {
		h.respondError(w, http.StatusBadRequest, service.ErrCodeValidation, err.Error())
		return
	}

	mapping, err := h.directory.Ensure(r.Context(), body.UserID, body.Email)
	if err != nil {
		h.logger.Error("failed to onboard account", "user_id", body.UserID, "error", err)
		if processor.IsTransient(err) {
			h.respondError(w, http.StatusServiceUnavailable, service.ErrCodeServiceUnavailable, "payment processor unavailable")
			return
		}
		h.respondError(w, http.StatusInternalServerError, service.ErrCodeInternalError, "internal error")
		return
	}

	h.respondJSON(w, http.StatusOK, toAccountResponse(mapping))
}

// GetAccount handles GET /api/v1/accounts/{id}
func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["id"]

	mapping, err := h.directory.Resolve(r.Context(), userID)
	if err != nil {
		if errors.Is(err, directory.ErrNotOnboarded) || errors.Is(err, models.ErrNotFound) {
			h.respondError(w, http.StatusNotFound, service.ErrCodeNotOnboarded, "account not onboarded")
			return
		}
		h.logger.Error("failed to resolve account", "user_id", userID, "error", err)
		h.respondError(w, http.StatusInternalServerError, service.ErrCodeInternalError, "internal error")
		return
	}

	h.respondJSON(w, http.StatusOK, toAccountResponse(mapping))
}

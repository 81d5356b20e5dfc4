package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/KDR9MGR/digital-payments-sub001/internal/directory"
	"github.com/KDR9MGR/digital-payments-sub001/internal/models"
	"github.com/KDR9MGR/digital-payments-sub001/internal/processor"
	"github.com/KDR9MGR/digital-payments-sub001/internal/service"
)

func testMapping(userID string) *models.AccountMapping {
	return &models.AccountMapping{
		UserID:               userID,
		ProcessorCustomerID:  "cus_" + userID,
		ProcessorPayeeAcctID: "acct_" + userID,
		ChargesEnabled:       true,
		PayoutsEnabled:       true,
		CreatedAt:            time.Now(),
		UpdatedAt:            time.Now(),
	}
}

func TestOnboardAccount(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		th := newTestHandler(t)
		th.directory.On("Ensure", mock.Anything, "alice", "alice@example.com").
			Return(testMapping("alice"), nil)

		body := `{"user_id":"alice","email":"alice@example.com"}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/accounts/onboard", strings.NewReader(body))
		rec := httptest.NewRecorder()

		th.handler.OnboardAccount(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp accountResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "cus_alice", resp.ProcessorCustomerID)
		assert.Equal(t, "acct_alice", resp.PayeeAccountID)
		assert.True(t, resp.PayoutsEnabled)
	})

	t.Run("missing user id", func(t *testing.T) {
		th := newTestHandler(t)

		body := `{"email":"alice@example.com"}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/accounts/onboard", strings.NewReader(body))
		rec := httptest.NewRecorder()

		th.handler.OnboardAccount(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		th.directory.AssertNotCalled(t, "Ensure", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("processor down", func(t *testing.T) {
		th := newTestHandler(t)
		th.directory.On("Ensure", mock.Anything, "alice", "").
			Return(nil, fmt.Errorf("create customer: %w", &processor.Error{
				Code:      processor.CodeAPIError,
				Message:   "gateway timeout",
				Transient: true,
			}))

		body := `{"user_id":"alice"}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/accounts/onboard", strings.NewReader(body))
		rec := httptest.NewRecorder()

		th.handler.OnboardAccount(rec, req)

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		var resp errorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, service.ErrCodeServiceUnavailable, resp.Error)
	})

	t.Run("permanent failure", func(t *testing.T) {
		th := newTestHandler(t)
		th.directory.On("Ensure", mock.Anything, "alice", "").
			Return(nil, &processor.Error{Code: processor.CodeAPIError, Message: "bad request", HTTPStatus: http.StatusBadRequest})

		body := `{"user_id":"alice"}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/accounts/onboard", strings.NewReader(body))
		rec := httptest.NewRecorder()

		th.handler.OnboardAccount(rec, req)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestGetAccount(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		th := newTestHandler(t)
		th.directory.On("Resolve", mock.Anything, "bob").Return(testMapping("bob"), nil)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/accounts/bob", nil)
		req = mux.SetURLVars(req, map[string]string{"id": "bob"})
		rec := httptest.NewRecorder()

		th.handler.GetAccount(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp accountResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "bob", resp.UserID)
	})

	t.Run("not onboarded", func(t *testing.T) {
		th := newTestHandler(t)
		th.directory.On("Resolve", mock.Anything, "ghost").
			Return(nil, fmt.Errorf("user ghost: %w", directory.ErrNotOnboarded))

		req := httptest.NewRequest(http.MethodGet, "/api/v1/accounts/ghost", nil)
		req = mux.SetURLVars(req, map[string]string{"id": "ghost"})
		rec := httptest.NewRecorder()

		th.handler.GetAccount(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
		var resp errorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, service.ErrCodeNotOnboarded, resp.Error)
	})
}

package handlers

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/KDR9MGR/digital-payments-sub001/internal/models"
	"github.com/KDR9MGR/digital-payments-sub001/internal/webhook"
)

func signedWebhookRequest(t *testing.T, payload []byte) *http.Request {
	t.Helper()
	ts := time.Now().Unix()
	sig := webhook.ComputeSignature(payload, ts, testWebhookSecret)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/processor", bytes.NewReader(payload))
	req.Header.Set(webhook.SignatureHeader, fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(sig)))
	return req
}

func TestProcessorWebhook(t *testing.T) {
	payload := []byte(`{"id":"evt_1","type":"charge.succeeded","data":{"object":{"id":"ch_1","status":"succeeded"}},"created":1724995200}`)

	t.Run("valid delivery", func(t *testing.T) {
		th := newTestHandler(t)
		th.reconciler.On("Handle", mock.Anything, mock.MatchedBy(func(e *models.WebhookEvent) bool {
			return e.ID == "evt_1" && e.Type == models.EventChargeSucceeded
		})).Return(nil)

		rec := httptest.NewRecorder()
		th.handler.ProcessorWebhook(rec, signedWebhookRequest(t, payload))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"received":"true"}`, rec.Body.String())
	})

	t.Run("missing signature", func(t *testing.T) {
		th := newTestHandler(t)

		req := httptest.NewRequest(http.MethodPost, "/webhooks/processor", bytes.NewReader(payload))
		rec := httptest.NewRecorder()
		th.handler.ProcessorWebhook(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		th.reconciler.AssertNotCalled(t, "Handle", mock.Anything, mock.Anything)
	})

	t.Run("tampered payload", func(t *testing.T) {
		th := newTestHandler(t)

		req := signedWebhookRequest(t, payload)
		tampered := []byte(`{"id":"evt_1","type":"charge.succeeded","data":{"object":{"id":"ch_2","status":"succeeded"}},"created":1724995200}`)
		req.Body = httptest.NewRequest(http.MethodPost, "/webhooks/processor", bytes.NewReader(tampered)).Body

		rec := httptest.NewRecorder()
		th.handler.ProcessorWebhook(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		th.reconciler.AssertNotCalled(t, "Handle", mock.Anything, mock.Anything)
	})

	t.Run("signed but malformed event", func(t *testing.T) {
		th := newTestHandler(t)

		rec := httptest.NewRecorder()
		th.handler.ProcessorWebhook(rec, signedWebhookRequest(t, []byte("not json")))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		th.reconciler.AssertNotCalled(t, "Handle", mock.Anything, mock.Anything)
	})

	t.Run("handler failure requests redelivery", func(t *testing.T) {
		th := newTestHandler(t)
		th.reconciler.On("Handle", mock.Anything, mock.Anything).
			Return(errors.New("ledger unavailable"))

		rec := httptest.NewRecorder()
		th.handler.ProcessorWebhook(rec, signedWebhookRequest(t, payload))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

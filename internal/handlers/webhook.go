package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/KDR9MGR/digital-payments-sub001/internal/metrics"
	"github.com/KDR9MGR/digital-payments-sub001/internal/models"
	"github.com/KDR9MGR/digital-payments-sub001/internal/service"
	"github.com/KDR9MGR/digital-payments-sub001/internal/webhook"
)

const maxWebhookBody = 1 << 20

// ProcessorWebhook handles POST /webhooks/processor.
//
// The signature is verified over the raw body before anything is parsed; a
// bad signature is rejected without touching state. A 5xx tells the
// processor to redeliver, so handler errors only surface as 5xx when a
// retry can actually help.
func (h *Handler) ProcessorWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, service.ErrCodeValidation, "unreadable payload")
		return
	}

	sigHeader := r.Header.Get(webhook.SignatureHeader)
	if err := webhook.VerifySignature(payload, sigHeader, h.webhookSecret, h.webhookTolerance); err != nil {
		metrics.SignatureFailures.Inc()
		h.logger.Warn("rejected webhook delivery", "error", err)
		h.respondError(w, http.StatusBadRequest, "signature_invalid", "signature verification failed")
		return
	}

	var event models.WebhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		h.respondError(w, http.StatusBadRequest, service.ErrCodeValidation, "malformed event payload")
		return
	}

	if err := h.reconciler.Handle(r.Context(), &event); err != nil {
		h.logger.Error("webhook handling failed, requesting redelivery",
			"event_id", event.ID,
			"type", event.Type,
			"error", err,
		)
		h.respondError(w, http.StatusInternalServerError, service.ErrCodeInternalError, "event handling failed")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]string{"received": "true"})
}

package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/KDR9MGR/digital-payments-sub001/internal/metrics"
	"github.com/KDR9MGR/digital-payments-sub001/internal/models"
	"github.com/KDR9MGR/digital-payments-sub001/internal/processor"
	"github.com/KDR9MGR/digital-payments-sub001/internal/repository"
	"github.com/KDR9MGR/digital-payments-sub001/internal/service"
)

// Saga is the slice of the orchestrator the reconciler drives
type Saga interface {
	ApplyChargeSucceeded(ctx context.Context, charge *processor.Charge) error
	ApplyChargeFailed(ctx context.Context, charge *processor.Charge, failureCode string) error
	ApplyTransferPaid(ctx context.Context, transfer *processor.Transfer) error
	ApplyTransferFailed(ctx context.Context, transfer *processor.Transfer, failureCode string) error
}

// Reconciler consumes processor events and advances or corrects ledger
// state. Deliveries are at-least-once and unordered; the processed-event
// table and the ledger's monotonic guard make handling order-independent.
type Reconciler struct {
	saga   Saga
	events repository.WebhookEventRepository
	logger *slog.Logger
}

// NewReconciler creates a Reconciler
func NewReconciler(saga Saga, events repository.WebhookEventRepository, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		saga:   saga,
		events: events,
		logger: logger,
	}
}

// Handle processes one verified event. Replays of an already-processed
// event id are no-ops. A returned error means the delivery should be
// retried by the processor; everything else is consumed, with failures
// logged rather than surfaced (the original caller got their response long
// ago).
func (r *Reconciler) Handle(ctx context.Context, event *models.WebhookEvent) error {
	if event.ID == "" || event.Type == "" {
		return fmt.Errorf("event missing id or type")
	}

	err := r.events.MarkProcessed(ctx, event.ID, event.Type)
	if errors.Is(err, models.ErrDuplicateEvent) {
		metrics.WebhookEvents.WithLabelValues(event.Type, "duplicate").Inc()
		r.logger.Debug("ignoring replayed webhook event", "event_id", event.ID, "type", event.Type)
		return nil
	}
	if err != nil {
		return err
	}

	if err := r.dispatch(ctx, event); err != nil {
		var svcErr *service.ServiceError
		if errors.As(err, &svcErr) && svcErr.Code == service.ErrCodeTransactionNotFound {
			// An event for a payment this ledger never owned (or a charge
			// created outside the P2P flow). Nothing to reconcile.
			metrics.WebhookEvents.WithLabelValues(event.Type, "orphan").Inc()
			r.logger.Warn("webhook event references unknown payment", "event_id", event.ID, "type", event.Type)
			return nil
		}
		if errors.Is(err, errMalformed) {
			// Redelivery cannot fix a malformed payload; keep the id
			// marked and drop the event.
			metrics.WebhookEvents.WithLabelValues(event.Type, "malformed").Inc()
			r.logger.Error("dropping malformed webhook event", "event_id", event.ID, "error", err)
			return nil
		}
		// Give the event id back so the processor's redelivery is not
		// swallowed by the dedup table.
		if forgetErr := r.events.Forget(ctx, event.ID); forgetErr != nil {
			r.logger.Error("failed to release webhook event for redelivery",
				"event_id", event.ID,
				"error", forgetErr,
			)
		}
		metrics.WebhookEvents.WithLabelValues(event.Type, "error").Inc()
		return err
	}

	metrics.WebhookEvents.WithLabelValues(event.Type, "processed").Inc()
	return nil
}

func (r *Reconciler) dispatch(ctx context.Context, event *models.WebhookEvent) error {
	switch event.Type {
	case models.EventChargeSucceeded:
		charge, err := decodeObject[processor.Charge](event)
		if err != nil {
			return err
		}
		return r.saga.ApplyChargeSucceeded(ctx, charge)

	case models.EventChargeFailed:
		charge, err := decodeObject[processor.Charge](event)
		if err != nil {
			return err
		}
		return r.saga.ApplyChargeFailed(ctx, charge, charge.FailureCode)

	case models.EventTransferPaid:
		transfer, err := decodeObject[processor.Transfer](event)
		if err != nil {
			return err
		}
		return r.saga.ApplyTransferPaid(ctx, transfer)

	case models.EventTransferFailed:
		transfer, err := decodeObject[processor.Transfer](event)
		if err != nil {
			return err
		}
		return r.saga.ApplyTransferFailed(ctx, transfer, transfer.FailureCode)

	default:
		// Unknown event types are consumed silently; the processor sends
		// plenty we have no interest in.
		r.logger.Debug("ignoring webhook event type", "event_id", event.ID, "type", event.Type)
		return nil
	}
}

var errMalformed = errors.New("malformed event payload")

// decodeObject unwraps the event payload's object envelope
func decodeObject[T any](event *models.WebhookEvent) (*T, error) {
	var envelope struct {
		Object json.RawMessage `json:"object"`
	}
	if err := json.Unmarshal(event.Data, &envelope); err != nil || envelope.Object == nil {
		return nil, fmt.Errorf("event %s data envelope: %w", event.ID, errMalformed)
	}

	var obj T
	if err := json.Unmarshal(envelope.Object, &obj); err != nil {
		return nil, fmt.Errorf("event %s object payload: %w", event.ID, errMalformed)
	}
	return &obj, nil
}

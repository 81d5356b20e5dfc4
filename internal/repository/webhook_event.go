package repository

import (
	"context"
	"fmt"

	"github.com/KDR9MGR/digital-payments-sub001/internal/db"
	"github.com/KDR9MGR/digital-payments-sub001/internal/models"
)

// WebhookEventRepository tracks processed webhook event ids so at-least-once
// delivery cannot be applied twice.
type WebhookEventRepository interface {
	MarkProcessed(ctx context.Context, eventID, eventType string) error
	Forget(ctx context.Context, eventID string) error
}

// webhookEventRepository implements WebhookEventRepository
type webhookEventRepository struct {
	db db.Querier
}

// NewWebhookEventRepository creates a new WebhookEventRepository
func NewWebhookEventRepository(q db.Querier) WebhookEventRepository {
	return &webhookEventRepository{db: q}
}

// MarkProcessed records the event id, returning ErrDuplicateEvent if it was
// already seen. The conditional insert makes first-seen detection atomic
// under concurrent deliveries of the same event.
func (r *webhookEventRepository) MarkProcessed(ctx context.Context, eventID, eventType string) error {
	query := `
		INSERT INTO webhook_events (event_id, event_type)
		VALUES ($1, $2)
		ON CONFLICT (event_id) DO NOTHING
	`

	result, err := r.db.ExecContext(ctx, query, eventID, eventType)
	if err != nil {
		return fmt.Errorf("failed to mark webhook event processed: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("event %s already processed: %w", eventID, models.ErrDuplicateEvent)
	}

	return nil
}

// Forget releases an event id so the processor's redelivery is handled
// again. Used when processing failed transiently after the id was claimed.
func (r *webhookEventRepository) Forget(ctx context.Context, eventID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM webhook_events WHERE event_id = $1`, eventID)
	if err != nil {
		return fmt.Errorf("failed to forget webhook event: %w", err)
	}
	return nil
}

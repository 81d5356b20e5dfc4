// Package handlers implements the HTTP surface of the payments API.
package handlers

import (
	"context"
	"log/slog"
	"time"

	"github.com/KDR9MGR/digital-payments-sub001/internal/models"
	"github.com/KDR9MGR/digital-payments-sub001/internal/service"
)

// WebhookProcessor consumes one verified processor event
type WebhookProcessor interface {
	Handle(ctx context.Context, event *models.WebhookEvent) error
}

// HealthChecker reports whether the backing database is reachable
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// Handler holds the service dependencies for all endpoints
type Handler struct {
	payments      service.PaymentInitiator
	directory     service.Directory
	reconciler    WebhookProcessor
	healthChecker HealthChecker
	logger        *slog.Logger

	webhookSecret    string
	webhookTolerance time.Duration
}

// NewHandler creates a new Handler with injected service dependencies.
func NewHandler(
	payments service.PaymentInitiator,
	dir service.Directory,
	reconciler WebhookProcessor,
	healthChecker HealthChecker,
	logger *slog.Logger,
	webhookSecret string,
	webhookTolerance time.Duration,
) *Handler {
	return &Handler{
		payments:         payments,
		directory:        dir,
		reconciler:       reconciler,
		healthChecker:    healthChecker,
		logger:           logger,
		webhookSecret:    webhookSecret,
		webhookTolerance: webhookTolerance,
	}
}

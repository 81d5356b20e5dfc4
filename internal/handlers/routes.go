package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/KDR9MGR/digital-payments-sub001/internal/api"
	"github.com/KDR9MGR/digital-payments-sub001/internal/config"
	"github.com/KDR9MGR/digital-payments-sub001/internal/db"
	"github.com/KDR9MGR/digital-payments-sub001/internal/directory"
	"github.com/KDR9MGR/digital-payments-sub001/internal/idempotency"
	"github.com/KDR9MGR/digital-payments-sub001/internal/middleware"
	"github.com/KDR9MGR/digital-payments-sub001/internal/processor"
	"github.com/KDR9MGR/digital-payments-sub001/internal/repository"
	"github.com/KDR9MGR/digital-payments-sub001/internal/service"
	"github.com/KDR9MGR/digital-payments-sub001/internal/webhook"
)

// NewRouter wires the repository, service and webhook layers and returns the
// configured HTTP router together with the orchestrator, which the caller
// also hands to the background sweep.
func NewRouter(
	database *db.DB,
	cfg *config.Config,
	logger *slog.Logger,
) (http.Handler, *service.Orchestrator) {
	transactions := repository.NewTransactionRepository(database)
	accounts := repository.NewAccountRepository(database)
	events := repository.NewWebhookEventRepository(database)

	processorClient := processor.NewClient(&cfg.Processor, logger)
	dir := directory.NewService(accounts, processorClient, logger)
	keys := idempotency.NewManager(
		database,
		transactions,
		logger,
		cfg.Sweep.IdempotencyKeyTTL,
		cfg.Sweep.AwaitResultInterval,
		cfg.Sweep.AwaitResultTimeout,
	)

	orchestrator := service.NewOrchestrator(transactions, dir, keys, processorClient, logger)
	reconciler := webhook.NewReconciler(orchestrator, events, logger)

	handler := NewHandler(
		orchestrator,
		dir,
		reconciler,
		database,
		logger,
		cfg.Processor.WebhookSecret,
		webhook.DefaultTolerance,
	)

	r := mux.NewRouter()
	r.Use(middleware.Recover(logger))
	r.Use(middleware.Observe(logger))

	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/health", handler.Health).Methods(http.MethodGet)
	r.HandleFunc("/webhooks/processor", handler.ProcessorWebhook).Methods(http.MethodPost)

	api.RegisterDocsRoutes(r)

	v1 := r.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/payments/p2p/initiate", handler.InitiateP2PPayment).Methods(http.MethodPost)
	v1.HandleFunc("/payments/transfers/confirm", handler.ConfirmTransfer).Methods(http.MethodPost)
	v1.HandleFunc("/payments/transfers/{id}/status", handler.GetTransferStatus).Methods(http.MethodGet)
	v1.HandleFunc("/payments/{id}/transfer/retry", handler.RetryTransfer).Methods(http.MethodPost)
	v1.HandleFunc("/payments/{id}/refund", handler.RefundPayment).Methods(http.MethodPost)
	v1.HandleFunc("/accounts/onboard", handler.OnboardAccount).Methods(http.MethodPost)
	v1.HandleFunc("/accounts/{id}", handler.GetAccount).Methods(http.MethodGet)

	return r, orchestrator
}

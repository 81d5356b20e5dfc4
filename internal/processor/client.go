// Package processor implements the HTTP client for the external payment
// processor: customers, connected accounts, charges, transfers and refunds.
package processor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/KDR9MGR/digital-payments-sub001/internal/config"
)

const idempotencyKeyHeader = "Idempotency-Key"

// API is the processor surface the orchestration layer depends on
type API interface {
	CreateCustomer(ctx context.Context, email string) (*Customer, error)
	CreateConnectedAccount(ctx context.Context, email string) (*ConnectedAccount, error)
	GetConnectedAccount(ctx context.Context, accountID string) (*ConnectedAccount, error)
	CreateCharge(ctx context.Context, req ChargeRequest, idempotencyKey string) (*Charge, error)
	GetCharge(ctx context.Context, chargeID string) (*Charge, error)
	ConfirmCharge(ctx context.Context, chargeID string) (*Charge, error)
	CreateTransfer(ctx context.Context, req TransferRequest, idempotencyKey string) (*Transfer, error)
	CreateRefund(ctx context.Context, req RefundRequest, idempotencyKey string) (*Refund, error)
}

// Client talks to the processor's REST API. Transient failures are retried
// with exponential backoff up to the configured bound; permanent outcomes
// (declines, missing capabilities) are returned immediately.
type Client struct {
	httpClient     *http.Client
	logger         *slog.Logger
	baseURL        string
	secretKey      string
	maxRetries     int
	initialBackoff time.Duration
}

var _ API = (*Client)(nil)

// NewClient creates a processor client from configuration. The transport is
// wrapped in a circuit breaker so a hard processor outage fails fast instead
// of stacking up timed-out requests.
func NewClient(cfg *config.ProcessorConfig, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout:   cfg.RequestTimeout,
			Transport: newBreakerTransport(http.DefaultTransport, breakerDefaults()),
		},
		logger:         logger,
		baseURL:        cfg.BaseURL,
		secretKey:      cfg.SecretKey,
		maxRetries:     cfg.MaxRetries,
		initialBackoff: cfg.InitialBackoff,
	}
}

// CreateCustomer registers a payer with the processor
func (c *Client) CreateCustomer(ctx context.Context, email string) (*Customer, error) {
	body := map[string]string{"email": email}
	var customer Customer
	if err := c.do(ctx, http.MethodPost, "/v1/customers", body, "", &customer); err != nil {
		return nil, err
	}
	return &customer, nil
}

// CreateConnectedAccount registers a payee sub-account able to receive
// payouts once the processor enables its capabilities
func (c *Client) CreateConnectedAccount(ctx context.Context, email string) (*ConnectedAccount, error) {
	body := map[string]string{"type": "express", "email": email}
	var account ConnectedAccount
	if err := c.do(ctx, http.MethodPost, "/v1/accounts", body, "", &account); err != nil {
		return nil, err
	}
	return &account, nil
}

// GetConnectedAccount fetches current capability flags for a payee account
func (c *Client) GetConnectedAccount(ctx context.Context, accountID string) (*ConnectedAccount, error) {
	var account ConnectedAccount
	if err := c.do(ctx, http.MethodGet, "/v1/accounts/"+accountID, nil, "", &account); err != nil {
		return nil, err
	}
	return &account, nil
}

// CreateCharge creates and confirms a charge. The caller's idempotency key
// is passed verbatim so processor-side retries are deduplicated upstream too.
func (c *Client) CreateCharge(ctx context.Context, req ChargeRequest, idempotencyKey string) (*Charge, error) {
	var charge Charge
	if err := c.do(ctx, http.MethodPost, "/v1/payment_intents", req, idempotencyKey, &charge); err != nil {
		return nil, err
	}
	return &charge, nil
}

// GetCharge fetches the current status of a charge
func (c *Client) GetCharge(ctx context.Context, chargeID string) (*Charge, error) {
	var charge Charge
	if err := c.do(ctx, http.MethodGet, "/v1/payment_intents/"+chargeID, nil, "", &charge); err != nil {
		return nil, err
	}
	return &charge, nil
}

// ConfirmCharge completes a charge that required user action
func (c *Client) ConfirmCharge(ctx context.Context, chargeID string) (*Charge, error) {
	var charge Charge
	if err := c.do(ctx, http.MethodPost, "/v1/payment_intents/"+chargeID+"/confirm", nil, "", &charge); err != nil {
		return nil, err
	}
	return &charge, nil
}

// CreateTransfer moves captured funds to a connected account
func (c *Client) CreateTransfer(ctx context.Context, req TransferRequest, idempotencyKey string) (*Transfer, error) {
	var transfer Transfer
	if err := c.do(ctx, http.MethodPost, "/v1/transfers", req, idempotencyKey, &transfer); err != nil {
		return nil, err
	}
	return &transfer, nil
}

// CreateRefund refunds a settled charge
func (c *Client) CreateRefund(ctx context.Context, req RefundRequest, idempotencyKey string) (*Refund, error) {
	var refund Refund
	if err := c.do(ctx, http.MethodPost, "/v1/refunds", req, idempotencyKey, &refund); err != nil {
		return nil, err
	}
	return &refund, nil
}

// do performs one logical API call with bounded retries for transient
// failures only. The idempotency key makes the retries safe.
func (c *Client) do(ctx context.Context, method, path string, body any, idempotencyKey string, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
	}

	backoff := c.initialBackoff
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			c.logger.Warn("retrying processor call",
				"method", method,
				"path", path,
				"attempt", attempt,
				"backoff", backoff,
				"error", lastErr,
			)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		lastErr = c.doOnce(ctx, method, path, payload, idempotencyKey, out)
		if lastErr == nil {
			return nil
		}
		if !IsTransient(lastErr) {
			return lastErr
		}
	}

	return lastErr
}

func (c *Client) doOnce(ctx context.Context, method, path string, payload []byte, idempotencyKey string, out any) error {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build processor request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/json")
	if idempotencyKey != "" {
		req.Header.Set(idempotencyKeyHeader, idempotencyKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &Error{Code: CodeAPIError, Message: err.Error(), Transient: true}
	}
	defer resp.Body.Close() //nolint:errcheck // close error is not actionable

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Code: CodeAPIError, Message: err.Error(), Transient: true}
	}

	if resp.StatusCode >= 400 {
		return decodeError(resp.StatusCode, respBody)
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			// A malformed success body will not parse differently on a
			// retry, so this is a permanent failure.
			return &Error{
				Code:       CodeAPIError,
				Message:    fmt.Sprintf("failed to decode processor response: %v", err),
				HTTPStatus: resp.StatusCode,
			}
		}
	}

	return nil
}

func decodeError(status int, body []byte) error {
	var envelope errorEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil || envelope.Error.Code == "" {
		return &Error{
			Code:       CodeAPIError,
			Message:    fmt.Sprintf("unexpected processor response (status %d)", status),
			HTTPStatus: status,
			Transient:  status >= 500 || status == http.StatusTooManyRequests,
		}
	}

	return &Error{
		Code:       envelope.Error.Code,
		Message:    envelope.Error.Message,
		HTTPStatus: status,
		Transient:  status >= 500 || envelope.Error.Code == CodeRateLimited,
	}
}

package paddle

import (
	"context"
	"fmt"
	"strings"

	paddle "github.com/PaddleHQ/paddle-go-sdk/v4"
)

// EffectiveFrom values accepted by CancelSubscription.
const (
	EffectiveImmediately       = "immediately"
	EffectiveNextBillingPeriod = "next_billing_period"
)

// Client wraps the official Paddle SDK for the outbound calls the billing
// service makes: subscription cancellation, refunds, and invoice retrieval.
// It is constructed once at process start and injected into whatever needs
// it; there is no lazily-initialized shared handle.
type Client struct {
	sdk    *paddle.SDK
	config Config
}

// NewClient creates a Paddle API client for the configured environment.
func NewClient(config Config) (*Client, error) {
	if config.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if config.WebhookSecret == "" {
		return nil, ErrMissingWebhookSecret
	}

	var sdk *paddle.SDK
	var err error

	switch strings.ToLower(config.Environment) {
	case "sandbox":
		sdk, err = paddle.NewSandbox(config.APIKey)
	case "production", "":
		sdk, err = paddle.New(config.APIKey)
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidEnvironment, config.Environment)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create paddle client: %w", err)
	}

	return &Client{sdk: sdk, config: config}, nil
}

// WebhookSecret exposes the shared secret for signature verification.
func (c *Client) WebhookSecret() string {
	return c.config.WebhookSecret
}

// CancelSubscription cancels a provider subscription either immediately or
// at the end of the current billing period.
func (c *Client) CancelSubscription(ctx context.Context, subscriptionID, effectiveFrom string) error {
	if subscriptionID == "" {
		return fmt.Errorf("subscription ID is required")
	}

	when := paddle.EffectiveFromNextBillingPeriod
	if effectiveFrom == EffectiveImmediately {
		when = paddle.EffectiveFromImmediately
	}

	if _, err := c.sdk.SubscriptionsClient.CancelSubscription(ctx, &paddle.CancelSubscriptionRequest{
		SubscriptionID: subscriptionID,
		EffectiveFrom:  paddle.PtrTo(when),
	}); err != nil {
		return fmt.Errorf("failed to cancel paddle subscription: %w", err)
	}
	return nil
}

// RefundTransaction creates a full refund adjustment for a billed transaction.
// The refund is requested, not guaranteed; Paddle approves or rejects it
// asynchronously and reports the outcome via adjustment webhooks.
func (c *Client) RefundTransaction(ctx context.Context, transactionID, reason string) error {
	if transactionID == "" {
		return fmt.Errorf("transaction ID is required")
	}
	if reason == "" {
		reason = "requested by customer"
	}

	if _, err := c.sdk.AdjustmentsClient.CreateAdjustment(ctx, &paddle.CreateAdjustmentRequest{
		Action:        paddle.AdjustmentActionRefund,
		TransactionID: transactionID,
		Reason:        reason,
		Type:          paddle.PtrTo(paddle.AdjustmentTypeFull),
	}); err != nil {
		return fmt.Errorf("failed to create paddle refund adjustment: %w", err)
	}
	return nil
}

// RefundStatus is the current state of a refund adjustment, as reported by
// the provider.
type RefundStatus struct {
	ID            string `json:"id"`
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
	Reason        string `json:"reason"`
}

// GetRefundStatus looks up a refund adjustment by its adjustment id.
// Refunds are approved or rejected asynchronously, so callers poll this
// after RefundTransaction.
func (c *Client) GetRefundStatus(ctx context.Context, refundID string) (RefundStatus, error) {
	if refundID == "" {
		return RefundStatus{}, fmt.Errorf("refund ID is required")
	}

	res, err := c.sdk.AdjustmentsClient.ListAdjustments(ctx, &paddle.ListAdjustmentsRequest{
		ID: []string{refundID},
	})
	if err != nil {
		return RefundStatus{}, fmt.Errorf("failed to fetch paddle adjustment: %w", err)
	}

	var adj *paddle.Adjustment
	if err := res.Iter(ctx, func(a *paddle.Adjustment) (bool, error) {
		adj = a
		return false, nil
	}); err != nil {
		return RefundStatus{}, fmt.Errorf("failed to read paddle adjustment: %w", err)
	}
	if adj == nil {
		return RefundStatus{}, ErrRefundNotFound
	}

	return RefundStatus{
		ID:            adj.ID,
		TransactionID: adj.TransactionID,
		Status:        string(adj.Status),
		Reason:        adj.Reason,
	}, nil
}

// GetInvoicePDF returns a short-lived URL to the PDF invoice for a
// completed transaction.
func (c *Client) GetInvoicePDF(ctx context.Context, transactionID string) (string, error) {
	if transactionID == "" {
		return "", fmt.Errorf("transaction ID is required")
	}

	invoice, err := c.sdk.TransactionsClient.GetTransactionInvoice(ctx, &paddle.GetTransactionInvoiceRequest{
		TransactionID: transactionID,
	})
	if err != nil {
		return "", fmt.Errorf("failed to fetch paddle invoice: %w", err)
	}
	if invoice == nil || invoice.URL == "" {
		return "", ErrNoInvoiceURL
	}
	return invoice.URL, nil
}

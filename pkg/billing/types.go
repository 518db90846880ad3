package billing

import (
	"time"

	"github.com/google/uuid"
)

// SubscriptionStatus is the provider-reported lifecycle state of a
// subscription. Local status always mirrors the provider's last-known value.
type SubscriptionStatus string

const (
	StatusActive   SubscriptionStatus = "active"
	StatusTrialing SubscriptionStatus = "trialing"
	StatusPastDue  SubscriptionStatus = "past_due"
	StatusPaused   SubscriptionStatus = "paused"
	StatusCanceled SubscriptionStatus = "canceled"
	StatusExpired  SubscriptionStatus = "expired"
)

// TransactionStatus mirrors the provider's payment states. Values are passed
// through as received, not reinterpreted.
type TransactionStatus string

const (
	TxnBilled        TransactionStatus = "billed"
	TxnPaid          TransactionStatus = "paid"
	TxnPastDue       TransactionStatus = "past_due"
	TxnPaymentFailed TransactionStatus = "payment_failed"
	TxnCanceled      TransactionStatus = "canceled"
	TxnRevised       TransactionStatus = "revised"
	TxnCompleted     TransactionStatus = "completed"
	TxnFailed        TransactionStatus = "failed"
	TxnUnknown       TransactionStatus = "unknown"
)

// Event is one received webhook delivery. Provider event ids repeat on
// provider retries, so the log is insert-only and every delivery attempt is
// preserved for audit.
type Event struct {
	ID              uuid.UUID
	ProviderEventID string
	EventType       string
	Payload         []byte // raw request body, retained verbatim
	Processed       bool
	ReceivedAt      time.Time
}

// Subscription is the local mirror of a provider subscription. At most one
// row exists per provider subscription id; cancellation is a status, never a
// row removal.
type Subscription struct {
	ID                     uuid.UUID
	UserID                 uuid.UUID
	ProviderSubscriptionID string
	ProviderCustomerID     string
	Status                 SubscriptionStatus
	PlanID                 string // provider price id
	Price                  *float64
	Currency               string
	CurrentPeriodStart     *time.Time
	CurrentPeriodEnd       *time.Time
	TrialStart             *time.Time
	TrialEnd               *time.Time
	NextBilledAt           *time.Time
	CanceledAt             *time.Time
	LastEventType          string
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// IsTrialing reports whether the subscription is in trial status.
func (s *Subscription) IsTrialing() bool {
	return s.Status == StatusTrialing
}

// IsActive reports whether the subscription is active (paid).
func (s *Subscription) IsActive() bool {
	return s.Status == StatusActive
}

// Transaction is one billing transaction (invoice/charge), optionally tied
// to a subscription. Upserts are keyed on ProviderTransactionID so
// reprocessing the same provider event is idempotent.
type Transaction struct {
	ID                    uuid.UUID
	UserID                uuid.UUID
	SubscriptionID        *uuid.UUID // internal subscription id, not the provider's
	ProviderTransactionID string
	ProviderCustomerID    string
	Amount                float64
	Currency              string
	Status                TransactionStatus
	InvoiceID             string
	InvoiceNumber         string
	CollectionMode        string
	Origin                string
	Subtotal              float64
	TaxTotal              float64
	FeeTotal              float64
	DiscountTotal         float64
	GrandTotal            float64
	PaymentStatus         string
	PaymentMethodType     string
	BillingPeriodStart    *time.Time
	BillingPeriodEnd      *time.Time
	BilledAt              *time.Time
	RawData               []byte // provider payload retained for audit
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// Profile is the denormalized read-optimization derived from subscription
// status. It is recomputed from status on every transition, never patched
// incrementally.
type Profile struct {
	UserID             uuid.UUID
	SubscriptionActive bool
	IsOnFreeTrial      bool
}

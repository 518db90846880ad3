package billing

import (
	"context"

	"github.com/google/uuid"
)

// EventStore is the append-only delivery log. Record inserts uncondition-
// ally: provider event ids are not unique across retries, and audit requires
// every delivery attempt preserved. Deduplication of processing, when
// enabled, happens in front of dispatch (see EventGuard), not here.
type EventStore interface {
	// Record persists a delivery with processed=false and returns it.
	Record(ctx context.Context, event *Event) error

	// MarkProcessed sets the processed flag. Idempotent.
	MarkProcessed(ctx context.Context, id uuid.UUID) error
}

// SubscriptionStore persists the subscription ledger.
// Implementations must key Upsert on ProviderSubscriptionID.
type SubscriptionStore interface {
	// GetByProviderID returns the subscription mirroring the given provider
	// subscription id, or ErrSubscriptionNotFound.
	GetByProviderID(ctx context.Context, providerSubscriptionID string) (*Subscription, error)

	// GetByProviderCustomerID returns the subscription for the given
	// provider customer id, or ErrSubscriptionNotFound.
	GetByProviderCustomerID(ctx context.Context, providerCustomerID string) (*Subscription, error)

	// GetLatestByUserID returns the most recently created subscription
	// owned by the user, or ErrSubscriptionNotFound.
	GetLatestByUserID(ctx context.Context, userID uuid.UUID) (*Subscription, error)

	// Upsert creates or updates a subscription keyed on its provider
	// subscription id.
	Upsert(ctx context.Context, sub *Subscription) error
}

// TransactionStore persists billing transactions.
// Implementations must key Upsert on ProviderTransactionID so reapplying the
// same event never produces duplicate rows (latest write wins on mutable
// fields).
type TransactionStore interface {
	// GetByProviderID returns the transaction for the given provider
	// transaction id, or ErrTransactionNotFound.
	GetByProviderID(ctx context.Context, providerTransactionID string) (*Transaction, error)

	// Upsert creates or updates a transaction keyed on its provider
	// transaction id.
	Upsert(ctx context.Context, txn *Transaction) error
}

// ProfileStore persists the derived profile flags keyed by user id. User
// identity itself is owned elsewhere; this subsystem only projects onto it.
type ProfileStore interface {
	// UpdateSubscriptionFlags replaces both derived booleans on the user's
	// profile.
	UpdateSubscriptionFlags(ctx context.Context, userID uuid.UUID, active, onTrial bool) error
}

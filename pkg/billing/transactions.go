package billing

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"billingd/pkg/logger"
)

// TransactionReconciler records payment history. Every transaction event
// funnels into one upsert keyed on the provider transaction id, so replays
// and later lifecycle events for the same transaction update in place.
type TransactionReconciler struct {
	txns      TransactionStore
	subs      SubscriptionStore
	projector *ProfileProjector
	log       *slog.Logger
	now       func() time.Time
}

func NewTransactionReconciler(txns TransactionStore, subs SubscriptionStore, projector *ProfileProjector, log *slog.Logger) *TransactionReconciler {
	return &TransactionReconciler{
		txns:      txns,
		subs:      subs,
		projector: projector,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Apply upserts the transaction described by the event. Transactions that
// cannot be attributed to a user are skipped rather than stored orphaned.
func (r *TransactionReconciler) Apply(ctx context.Context, env *Envelope) (Outcome, error) {
	details := ExtractTransactionDetails(env.Data)
	if details.ProviderTransactionID == "" {
		r.log.WarnContext(ctx, "Transaction event without transaction id, skipping",
			logger.EventType(env.EventType), logger.EventID(env.EventID))
		return OutcomeSkipped, nil
	}

	userID, err := ResolveUserID(ctx, r.subs, env.Data)
	if err != nil {
		r.log.WarnContext(ctx, "Transaction without resolvable user, skipping",
			logger.TransactionID(details.ProviderTransactionID),
			logger.CustomerID(details.ProviderCustomerID), logger.EventID(env.EventID))
		return OutcomeSkipped, nil
	}

	var sub *Subscription
	if details.ProviderSubscriptionID != "" {
		sub, err = r.subs.GetByProviderID(ctx, details.ProviderSubscriptionID)
		if err != nil && !errors.Is(err, ErrSubscriptionNotFound) {
			return OutcomeIgnored, err
		}
	}

	now := r.now()
	txn := &Transaction{
		ID:                    uuid.New(),
		ProviderTransactionID: details.ProviderTransactionID,
		CreatedAt:             now,
	}
	if existing, err := r.txns.GetByProviderID(ctx, details.ProviderTransactionID); err == nil {
		txn = existing
	} else if !errors.Is(err, ErrTransactionNotFound) {
		return OutcomeIgnored, err
	}

	txn.UserID = userID
	if sub != nil {
		txn.SubscriptionID = &sub.ID
	}
	txn.ProviderCustomerID = details.ProviderCustomerID
	txn.Amount = details.Amount
	txn.Currency = details.Currency
	txn.Status = statusForTransactionEvent(env.EventType, details.Status)
	txn.InvoiceID = details.InvoiceID
	txn.InvoiceNumber = details.InvoiceNumber
	txn.CollectionMode = details.CollectionMode
	txn.Origin = details.Origin
	txn.Subtotal = details.Subtotal
	txn.TaxTotal = details.TaxTotal
	txn.FeeTotal = details.FeeTotal
	txn.DiscountTotal = details.DiscountTotal
	txn.GrandTotal = details.GrandTotal
	txn.PaymentStatus = details.PaymentStatus
	txn.PaymentMethodType = details.PaymentMethodType
	txn.BillingPeriodStart = details.BillingPeriodStart
	txn.BillingPeriodEnd = details.BillingPeriodEnd
	txn.BilledAt = details.BilledAt
	if raw, err := json.Marshal(env.Data); err == nil {
		txn.RawData = raw
	}
	txn.UpdatedAt = now

	if err := r.txns.Upsert(ctx, txn); err != nil {
		return OutcomeIgnored, err
	}

	r.log.InfoContext(ctx, "Transaction recorded",
		logger.TransactionID(txn.ProviderTransactionID), logger.UserID(txn.UserID),
		logger.Status(string(txn.Status)), slog.Float64("amount", txn.Amount))

	if EventType(env.EventType) == EventTransactionCompleted && sub != nil && sub.IsTrialing() {
		// A completed payment ends the trial: promote the owning
		// subscription to active and re-project the profile.
		sub.Status = StatusActive
		sub.LastEventType = env.EventType
		sub.UpdatedAt = now
		if err := r.subs.Upsert(ctx, sub); err != nil {
			return OutcomeIgnored, err
		}
		r.log.InfoContext(ctx, "Trial converted to paid subscription",
			logger.SubscriptionID(sub.ProviderSubscriptionID), logger.UserID(sub.UserID))
		r.projector.Apply(ctx, sub.UserID, sub.Status)
	}

	return OutcomeApplied, nil
}

// statusForTransactionEvent derives the stored status. The event type is the
// stronger signal; the payload's own status field fills in for generic
// updates and unknown types.
func statusForTransactionEvent(eventType, payloadStatus string) TransactionStatus {
	switch EventType(eventType) {
	case EventTransactionBilled:
		return TxnBilled
	case EventTransactionPaid:
		return TxnPaid
	case EventTransactionCompleted:
		return TxnCompleted
	case EventTransactionPastDue:
		return TxnPastDue
	case EventTransactionPaymentFailed:
		return TxnPaymentFailed
	case EventTransactionCanceled:
		return TxnCanceled
	case EventTransactionRevised:
		return TxnRevised
	case EventTransactionFailed:
		return TxnFailed
	}
	if payloadStatus != "" {
		return TransactionStatus(payloadStatus)
	}
	return TxnUnknown
}

package billing

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"billingd/pkg/logger"
)

// Outcome classifies what a reconciler did with an event. Skip paths are
// normal results, not faults: they must not be confused with errors that
// should make the provider retry.
type Outcome string

const (
	// OutcomeApplied means the ledger was mutated.
	OutcomeApplied Outcome = "applied"
	// OutcomeSkipped means a required field was genuinely absent; retrying
	// the same payload cannot help.
	OutcomeSkipped Outcome = "skipped"
	// OutcomeIgnored means the event referenced an unknown target or an
	// unhandled type; a later created-equivalent event self-heals the gap.
	OutcomeIgnored Outcome = "ignored"
)

// SubscriptionReconciler applies subscription events to the ledger: create,
// transition status, or mark canceled. Status is provider-authoritative; no
// local validation of transition legality is performed.
type SubscriptionReconciler struct {
	subs      SubscriptionStore
	projector *ProfileProjector
	log       *slog.Logger
	now       func() time.Time
}

func NewSubscriptionReconciler(subs SubscriptionStore, projector *ProfileProjector, log *slog.Logger) *SubscriptionReconciler {
	return &SubscriptionReconciler{
		subs:      subs,
		projector: projector,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Apply routes a subscription event to the matching transition.
func (r *SubscriptionReconciler) Apply(ctx context.Context, env *Envelope) (Outcome, error) {
	details := ExtractSubscriptionDetails(env.Data)
	if details.ProviderSubscriptionID == "" {
		r.log.WarnContext(ctx, "Subscription event without subscription id, skipping",
			logger.EventType(env.EventType), logger.EventID(env.EventID))
		return OutcomeSkipped, nil
	}

	switch EventType(env.EventType) {
	case EventSubscriptionCreated:
		return r.create(ctx, env, details)
	case EventSubscriptionTrialing:
		return r.trialing(ctx, env, details)
	case EventSubscriptionCanceled:
		return r.cancel(ctx, env, details)
	default:
		// Generic "sync to provider" transition: updated, activated,
		// resumed, paused, past_due all copy the reported status.
		return r.update(ctx, env, details)
	}
}

// create inserts the subscription in the status the event reports. A replayed
// create for a known provider subscription id degrades to an update, which
// keeps provider retries idempotent.
func (r *SubscriptionReconciler) create(ctx context.Context, env *Envelope, details SubscriptionDetails) (Outcome, error) {
	if details.Status == "" {
		r.log.WarnContext(ctx, "Subscription create without status, skipping",
			logger.SubscriptionID(details.ProviderSubscriptionID), logger.EventID(env.EventID))
		return OutcomeSkipped, nil
	}

	userID, err := ResolveUserID(ctx, r.subs, env.Data)
	if err != nil {
		r.log.WarnContext(ctx, "Subscription create without resolvable user, skipping",
			logger.SubscriptionID(details.ProviderSubscriptionID),
			logger.CustomerID(details.ProviderCustomerID), logger.EventID(env.EventID))
		return OutcomeSkipped, nil
	}

	now := r.now()
	sub := &Subscription{
		ID:                     uuid.New(),
		UserID:                 userID,
		ProviderSubscriptionID: details.ProviderSubscriptionID,
		CreatedAt:              now,
	}
	if existing, err := r.subs.GetByProviderID(ctx, details.ProviderSubscriptionID); err == nil {
		sub = existing
	} else if !errors.Is(err, ErrSubscriptionNotFound) {
		return OutcomeIgnored, err
	}

	r.applyDetails(sub, details, env.EventType)
	sub.Status = SubscriptionStatus(details.Status)
	sub.UpdatedAt = now

	if err := r.subs.Upsert(ctx, sub); err != nil {
		return OutcomeIgnored, err
	}

	r.log.InfoContext(ctx, "Subscription created",
		logger.SubscriptionID(sub.ProviderSubscriptionID), logger.UserID(sub.UserID),
		logger.Status(string(sub.Status)))
	r.projector.Apply(ctx, sub.UserID, sub.Status)
	return OutcomeApplied, nil
}

// trialing moves the subscription into trial, refreshing the trial window
// and next billing timestamp and clearing any stale cancellation. An absent
// row is treated as an implicit create.
func (r *SubscriptionReconciler) trialing(ctx context.Context, env *Envelope, details SubscriptionDetails) (Outcome, error) {
	sub, err := r.subs.GetByProviderID(ctx, details.ProviderSubscriptionID)
	switch {
	case errors.Is(err, ErrSubscriptionNotFound):
		details.Status = string(StatusTrialing)
		return r.create(ctx, env, details)
	case err != nil:
		return OutcomeIgnored, err
	}

	r.applyDetails(sub, details, env.EventType)
	sub.Status = StatusTrialing
	sub.CanceledAt = nil
	sub.UpdatedAt = r.now()

	if err := r.subs.Upsert(ctx, sub); err != nil {
		return OutcomeIgnored, err
	}

	r.log.InfoContext(ctx, "Subscription set to trialing",
		logger.SubscriptionID(sub.ProviderSubscriptionID), logger.UserID(sub.UserID))
	r.projector.Apply(ctx, sub.UserID, sub.Status)
	return OutcomeApplied, nil
}

// update copies whatever status the provider reports. A target that doesn't
// exist locally is a reconciliation gap, not a fault: log and move on.
func (r *SubscriptionReconciler) update(ctx context.Context, env *Envelope, details SubscriptionDetails) (Outcome, error) {
	sub, err := r.subs.GetByProviderID(ctx, details.ProviderSubscriptionID)
	switch {
	case errors.Is(err, ErrSubscriptionNotFound):
		r.log.WarnContext(ctx, "Subscription not found for update, skipping",
			logger.SubscriptionID(details.ProviderSubscriptionID), logger.EventType(env.EventType))
		return OutcomeIgnored, nil
	case err != nil:
		return OutcomeIgnored, err
	}

	if details.Status == "" {
		details.Status = string(sub.Status)
	}

	incoming := SubscriptionStatus(details.Status)
	if phaseRank(incoming) < phaseRank(sub.Status) {
		// Last received wins, but a move to an earlier lifecycle phase is
		// worth surfacing: it usually means out-of-order delivery.
		r.log.WarnContext(ctx, "Subscription status moved to earlier lifecycle phase",
			logger.SubscriptionID(sub.ProviderSubscriptionID),
			slog.String("stored_status", string(sub.Status)),
			slog.String("incoming_status", string(incoming)))
	}

	r.applyDetails(sub, details, env.EventType)
	sub.Status = incoming
	sub.UpdatedAt = r.now()

	if err := r.subs.Upsert(ctx, sub); err != nil {
		return OutcomeIgnored, err
	}

	r.log.InfoContext(ctx, "Subscription updated",
		logger.SubscriptionID(sub.ProviderSubscriptionID), logger.Status(string(sub.Status)))
	r.projector.Apply(ctx, sub.UserID, sub.Status)
	return OutcomeApplied, nil
}

// cancel stamps the cancellation. Cancellation is a status change, never a
// row removal.
func (r *SubscriptionReconciler) cancel(ctx context.Context, env *Envelope, details SubscriptionDetails) (Outcome, error) {
	sub, err := r.subs.GetByProviderID(ctx, details.ProviderSubscriptionID)
	switch {
	case errors.Is(err, ErrSubscriptionNotFound):
		r.log.WarnContext(ctx, "Subscription not found for cancellation, skipping",
			logger.SubscriptionID(details.ProviderSubscriptionID))
		return OutcomeIgnored, nil
	case err != nil:
		return OutcomeIgnored, err
	}

	r.applyDetails(sub, details, env.EventType)
	sub.Status = StatusCanceled
	if details.CanceledAt != nil {
		sub.CanceledAt = details.CanceledAt
	} else {
		now := r.now()
		sub.CanceledAt = &now
	}
	sub.UpdatedAt = r.now()

	if err := r.subs.Upsert(ctx, sub); err != nil {
		return OutcomeIgnored, err
	}

	r.log.InfoContext(ctx, "Subscription canceled",
		logger.SubscriptionID(sub.ProviderSubscriptionID), logger.UserID(sub.UserID))
	r.projector.Apply(ctx, sub.UserID, sub.Status)
	return OutcomeApplied, nil
}

// applyDetails refreshes the mutable billing fields that are present on the
// event; absent fields keep their stored values.
func (r *SubscriptionReconciler) applyDetails(sub *Subscription, details SubscriptionDetails, eventType string) {
	if details.ProviderCustomerID != "" {
		sub.ProviderCustomerID = details.ProviderCustomerID
	}
	if details.PlanID != "" {
		sub.PlanID = details.PlanID
	}
	if details.Price != nil {
		sub.Price = details.Price
	}
	if details.Currency != "" {
		sub.Currency = details.Currency
	}
	if details.CurrentPeriodStart != nil {
		sub.CurrentPeriodStart = details.CurrentPeriodStart
	}
	if details.CurrentPeriodEnd != nil {
		sub.CurrentPeriodEnd = details.CurrentPeriodEnd
	}
	if details.TrialStart != nil {
		sub.TrialStart = details.TrialStart
	}
	if details.TrialEnd != nil {
		sub.TrialEnd = details.TrialEnd
	}
	if details.NextBilledAt != nil {
		sub.NextBilledAt = details.NextBilledAt
	}
	if details.CanceledAt != nil {
		sub.CanceledAt = details.CanceledAt
	}
	sub.LastEventType = eventType
}

// phaseRank orders statuses by lifecycle phase for regression detection.
// Unknown statuses rank highest so they never trigger a false warning.
func phaseRank(s SubscriptionStatus) int {
	switch s {
	case StatusTrialing:
		return 0
	case StatusActive:
		return 1
	case StatusPastDue, StatusPaused:
		return 2
	case StatusCanceled:
		return 3
	case StatusExpired:
		return 4
	default:
		return 5
	}
}

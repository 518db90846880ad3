package billing

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"billingd/pkg/logger"
)

// EventType enumerates the webhook event types the dispatcher understands.
// Anything outside this set is acknowledged and logged, never rejected:
// rejecting would make the provider retry an event we will never handle.
type EventType string

const (
	EventSubscriptionCreated   EventType = "subscription.created"
	EventSubscriptionTrialing  EventType = "subscription.trialing"
	EventSubscriptionActivated EventType = "subscription.activated"
	EventSubscriptionUpdated   EventType = "subscription.updated"
	EventSubscriptionPaused    EventType = "subscription.paused"
	EventSubscriptionResumed   EventType = "subscription.resumed"
	EventSubscriptionPastDue   EventType = "subscription.past_due"
	EventSubscriptionCanceled  EventType = "subscription.canceled"

	EventTransactionBilled        EventType = "transaction.billed"
	EventTransactionPaid          EventType = "transaction.paid"
	EventTransactionUpdated       EventType = "transaction.updated"
	EventTransactionCompleted     EventType = "transaction.completed"
	EventTransactionPastDue       EventType = "transaction.past_due"
	EventTransactionPaymentFailed EventType = "transaction.payment_failed"
	EventTransactionCanceled      EventType = "transaction.canceled"
	EventTransactionRevised       EventType = "transaction.revised"
	EventTransactionFailed        EventType = "transaction.failed"
)

// SignatureVerifier checks a raw request body against its signature header.
// It reports false for any malformed or mismatching signature and reserves
// the error for diagnostics; verification fails closed either way.
type SignatureVerifier func(rawBody []byte, signatureHeader string) (bool, error)

// EventGuard is an optional duplicate-delivery check keyed on the provider
// event id. It is purely an optimization: when absent or failing, duplicate
// deliveries are reprocessed, which the reconcilers tolerate. Release undoes
// a claim so a failed dispatch does not suppress the provider's retry.
type EventGuard interface {
	FirstDelivery(ctx context.Context, providerEventID string) (bool, error)
	Release(ctx context.Context, providerEventID string) error
}

// Service is the webhook ingestion pipeline: verify, log, dispatch, mark
// processed. The HTTP layer translates its errors into status codes; a nil
// return means the event was fully handled and may be acknowledged.
type Service struct {
	verify SignatureVerifier
	events EventStore
	subs   SubscriptionStore
	subRec *SubscriptionReconciler
	txnRec *TransactionReconciler
	guard  EventGuard
	log    *slog.Logger
	now    func() time.Time
}

// ServiceOption configures optional Service collaborators.
type ServiceOption func(*Service)

// WithEventGuard enables the duplicate-delivery fast path.
func WithEventGuard(guard EventGuard) ServiceOption {
	return func(s *Service) { s.guard = guard }
}

// NewService panics on nil required dependencies; wiring mistakes should
// surface at startup, not on the first webhook.
func NewService(
	verify SignatureVerifier,
	events EventStore,
	subs SubscriptionStore,
	subRec *SubscriptionReconciler,
	txnRec *TransactionReconciler,
	log *slog.Logger,
	opts ...ServiceOption,
) *Service {
	if verify == nil {
		panic("billing: signature verifier is required")
	}
	if events == nil {
		panic("billing: event store is required")
	}
	if subs == nil {
		panic("billing: subscription store is required")
	}
	if subRec == nil || txnRec == nil {
		panic("billing: reconcilers are required")
	}
	if log == nil {
		log = slog.Default()
	}

	s := &Service{
		verify: verify,
		events: events,
		subs:   subs,
		subRec: subRec,
		txnRec: txnRec,
		log:    log,
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// HandleWebhook runs one delivery through the pipeline. The returned error
// classes matter to the HTTP layer: ErrInvalidSignature means reject without
// side effects, anything else means the event row exists with processed=false
// and the provider should retry.
func (s *Service) HandleWebhook(ctx context.Context, rawBody []byte, signatureHeader string) error {
	ok, err := s.verify(rawBody, signatureHeader)
	if !ok {
		if err != nil {
			return errors.Join(ErrInvalidSignature, err)
		}
		return ErrInvalidSignature
	}

	env, err := ParseEnvelope(rawBody)
	if err != nil {
		return err
	}

	event := &Event{
		ID:              uuid.New(),
		ProviderEventID: env.EventID,
		EventType:       env.EventType,
		Payload:         rawBody,
		ReceivedAt:      s.now(),
	}
	if err := s.events.Record(ctx, event); err != nil {
		return errors.Join(ErrFailedToRecordEvent, err)
	}

	s.log.InfoContext(ctx, "Webhook event received",
		logger.EventType(env.EventType), logger.EventID(env.EventID))

	claimed := false
	if s.guard != nil && env.EventID != "" {
		first, err := s.guard.FirstDelivery(ctx, env.EventID)
		switch {
		case err != nil:
			// Guard is best effort; a broken guard degrades to
			// reprocessing, not to dropped events.
			s.log.WarnContext(ctx, "Duplicate-delivery guard unavailable, reprocessing",
				logger.EventID(env.EventID), logger.Error(err))
		case !first:
			s.log.InfoContext(ctx, "Duplicate webhook delivery, already handled",
				logger.EventType(env.EventType), logger.EventID(env.EventID))
			return s.events.MarkProcessed(ctx, event.ID)
		default:
			claimed = true
		}
	}

	if _, err := s.dispatch(ctx, env); err != nil {
		// The claim must not outlive a failed dispatch, or the provider's
		// retry would be treated as a duplicate and the event's effects
		// lost.
		if claimed {
			if relErr := s.guard.Release(ctx, env.EventID); relErr != nil {
				s.log.WarnContext(ctx, "Failed to release duplicate-delivery claim",
					logger.EventID(env.EventID), logger.Error(relErr))
			}
		}
		s.log.ErrorContext(ctx, "Webhook event processing failed",
			logger.EventType(env.EventType), logger.EventID(env.EventID), logger.Error(err))
		return err
	}

	return s.events.MarkProcessed(ctx, event.ID)
}

// dispatch routes by event family. The prefix check keeps the router total:
// new subscription.* or transaction.* types flow to the right reconciler
// without a code change here.
func (s *Service) dispatch(ctx context.Context, env *Envelope) (Outcome, error) {
	switch {
	case strings.HasPrefix(env.EventType, "subscription."):
		return s.subRec.Apply(ctx, env)
	case strings.HasPrefix(env.EventType, "transaction."):
		return s.txnRec.Apply(ctx, env)
	default:
		s.log.InfoContext(ctx, "Unhandled webhook event type, acknowledging",
			logger.EventType(env.EventType), logger.EventID(env.EventID))
		return OutcomeIgnored, nil
	}
}

// VerifyUser reports the entitlement flags for a user, derived from their
// most recent subscription, along with the catalog plan the subscription is
// on when its price id is known. A user with no subscription at all gets the
// zero-value profile and a nil plan rather than an error.
func (s *Service) VerifyUser(ctx context.Context, userID uuid.UUID) (Profile, *Plan, error) {
	profile := Profile{UserID: userID}

	sub, err := s.subs.GetLatestByUserID(ctx, userID)
	switch {
	case errors.Is(err, ErrSubscriptionNotFound):
		return profile, nil, nil
	case err != nil:
		return profile, nil, err
	}

	active, onTrial, known := ProjectStatus(sub.Status)
	if !known {
		s.log.WarnContext(ctx, "Unrecognized subscription status during verification",
			logger.UserID(userID), logger.Status(string(sub.Status)))
	}
	profile.SubscriptionActive = active
	profile.IsOnFreeTrial = onTrial

	var plan *Plan
	if p, ok := PlanByPriceID(sub.PlanID); ok {
		plan = &p
	}
	return profile, plan, nil
}

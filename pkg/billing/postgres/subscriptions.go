package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"billingd/pkg/billing"
	"billingd/pkg/pg"
)

const subscriptionColumns = `
	id, user_id, provider_subscription_id, provider_customer_id, status,
	plan_id, price, currency, current_period_start, current_period_end,
	trial_start, trial_end, next_billed_at, canceled_at, last_event_type,
	created_at, updated_at`

// SubscriptionStore persists the subscription ledger with one row per
// provider subscription id.
type SubscriptionStore struct {
	pool *pgxpool.Pool
}

func NewSubscriptionStore(pool *pgxpool.Pool) *SubscriptionStore {
	if pool == nil {
		panic("postgres: pool is required")
	}
	return &SubscriptionStore{pool: pool}
}

func (s *SubscriptionStore) GetByProviderID(ctx context.Context, providerSubscriptionID string) (*billing.Subscription, error) {
	query := `SELECT` + subscriptionColumns + `
		FROM subscriptions WHERE provider_subscription_id = $1`

	return s.get(ctx, query, providerSubscriptionID)
}

func (s *SubscriptionStore) GetByProviderCustomerID(ctx context.Context, providerCustomerID string) (*billing.Subscription, error) {
	// A customer may accumulate several subscriptions over time; the most
	// recent one is the relevant owner for attribution.
	query := `SELECT` + subscriptionColumns + `
		FROM subscriptions WHERE provider_customer_id = $1
		ORDER BY created_at DESC LIMIT 1`

	return s.get(ctx, query, providerCustomerID)
}

func (s *SubscriptionStore) GetLatestByUserID(ctx context.Context, userID uuid.UUID) (*billing.Subscription, error) {
	query := `SELECT` + subscriptionColumns + `
		FROM subscriptions WHERE user_id = $1
		ORDER BY created_at DESC LIMIT 1`

	return s.get(ctx, query, userID)
}

func (s *SubscriptionStore) Upsert(ctx context.Context, sub *billing.Subscription) error {
	const query = `
		INSERT INTO subscriptions (
			id, user_id, provider_subscription_id, provider_customer_id, status,
			plan_id, price, currency, current_period_start, current_period_end,
			trial_start, trial_end, next_billed_at, canceled_at, last_event_type,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (provider_subscription_id) DO UPDATE SET
			user_id = EXCLUDED.user_id,
			provider_customer_id = EXCLUDED.provider_customer_id,
			status = EXCLUDED.status,
			plan_id = EXCLUDED.plan_id,
			price = EXCLUDED.price,
			currency = EXCLUDED.currency,
			current_period_start = EXCLUDED.current_period_start,
			current_period_end = EXCLUDED.current_period_end,
			trial_start = EXCLUDED.trial_start,
			trial_end = EXCLUDED.trial_end,
			next_billed_at = EXCLUDED.next_billed_at,
			canceled_at = EXCLUDED.canceled_at,
			last_event_type = EXCLUDED.last_event_type,
			updated_at = EXCLUDED.updated_at`

	_, err := s.pool.Exec(ctx, query,
		sub.ID, sub.UserID, sub.ProviderSubscriptionID, sub.ProviderCustomerID, sub.Status,
		sub.PlanID, sub.Price, sub.Currency, sub.CurrentPeriodStart, sub.CurrentPeriodEnd,
		sub.TrialStart, sub.TrialEnd, sub.NextBilledAt, sub.CanceledAt, sub.LastEventType,
		sub.CreatedAt, sub.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert subscription %s: %w", sub.ProviderSubscriptionID, err)
	}
	return nil
}

func (s *SubscriptionStore) get(ctx context.Context, query string, arg any) (*billing.Subscription, error) {
	sub, err := scanSubscription(s.pool.QueryRow(ctx, query, arg))
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, billing.ErrSubscriptionNotFound
		}
		return nil, fmt.Errorf("query subscription: %w", err)
	}
	return sub, nil
}

func scanSubscription(row pgx.Row) (*billing.Subscription, error) {
	var sub billing.Subscription
	err := row.Scan(
		&sub.ID, &sub.UserID, &sub.ProviderSubscriptionID, &sub.ProviderCustomerID, &sub.Status,
		&sub.PlanID, &sub.Price, &sub.Currency, &sub.CurrentPeriodStart, &sub.CurrentPeriodEnd,
		&sub.TrialStart, &sub.TrialEnd, &sub.NextBilledAt, &sub.CanceledAt, &sub.LastEventType,
		&sub.CreatedAt, &sub.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

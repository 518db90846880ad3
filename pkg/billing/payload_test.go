package billing_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"billingd/pkg/billing"
)

func TestParseEnvelope(t *testing.T) {
	t.Parallel()

	t.Run("valid body", func(t *testing.T) {
		t.Parallel()

		env, err := billing.ParseEnvelope([]byte(`{
			"event_id": "evt_1",
			"event_type": "subscription.created",
			"occurred_at": "2024-01-15T10:00:00Z",
			"data": {"id": "sub_1"}
		}`))
		require.NoError(t, err)
		assert.Equal(t, "evt_1", env.EventID)
		assert.Equal(t, "subscription.created", env.EventType)
		assert.Equal(t, "sub_1", env.Data["id"])
	})

	t.Run("missing data object tolerated", func(t *testing.T) {
		t.Parallel()

		env, err := billing.ParseEnvelope([]byte(`{"event_type": "transaction.paid"}`))
		require.NoError(t, err)
		assert.Nil(t, env.Data)
	})

	t.Run("invalid json", func(t *testing.T) {
		t.Parallel()

		_, err := billing.ParseEnvelope([]byte(`{not json`))
		require.ErrorIs(t, err, billing.ErrMalformedPayload)
	})

	t.Run("missing event type", func(t *testing.T) {
		t.Parallel()

		_, err := billing.ParseEnvelope([]byte(`{"event_id": "evt_1", "data": {}}`))
		require.ErrorIs(t, err, billing.ErrMalformedPayload)
	})
}

func TestExtractUserID(t *testing.T) {
	t.Parallel()

	u1 := uuid.New()
	u2 := uuid.New()

	t.Run("custom data on data object wins", func(t *testing.T) {
		t.Parallel()

		id, ok := billing.ExtractUserID(map[string]any{
			"custom_data": map[string]any{"userId": u1.String()},
			"subscription": map[string]any{
				"custom_data": map[string]any{"userId": u2.String()},
			},
		})
		require.True(t, ok)
		assert.Equal(t, u1, id)
	})

	t.Run("falls through to embedded subscription then customer", func(t *testing.T) {
		t.Parallel()

		id, ok := billing.ExtractUserID(map[string]any{
			"subscription": map[string]any{
				"custom_data": map[string]any{"user_id": u1.String()},
			},
		})
		require.True(t, ok)
		assert.Equal(t, u1, id)

		id, ok = billing.ExtractUserID(map[string]any{
			"customer": map[string]any{
				"custom_data": map[string]any{"userId": u2.String()},
			},
		})
		require.True(t, ok)
		assert.Equal(t, u2, id)
	})

	t.Run("camelCase preferred over snake_case", func(t *testing.T) {
		t.Parallel()

		id, ok := billing.ExtractUserID(map[string]any{
			"custom_data": map[string]any{
				"userId":  u1.String(),
				"user_id": u2.String(),
			},
		})
		require.True(t, ok)
		assert.Equal(t, u1, id)
	})

	t.Run("legacy passthrough as bare id", func(t *testing.T) {
		t.Parallel()

		id, ok := billing.ExtractUserID(map[string]any{"passthrough": u1.String()})
		require.True(t, ok)
		assert.Equal(t, u1, id)
	})

	t.Run("legacy passthrough as json object", func(t *testing.T) {
		t.Parallel()

		id, ok := billing.ExtractUserID(map[string]any{
			"passthrough": `{"userId": "` + u1.String() + `"}`,
		})
		require.True(t, ok)
		assert.Equal(t, u1, id)
	})

	t.Run("invalid uuid skipped in favor of next candidate", func(t *testing.T) {
		t.Parallel()

		id, ok := billing.ExtractUserID(map[string]any{
			"custom_data": map[string]any{"userId": "not-a-uuid"},
			"subscription": map[string]any{
				"custom_data": map[string]any{"userId": u2.String()},
			},
		})
		require.True(t, ok)
		assert.Equal(t, u2, id)
	})

	t.Run("nothing resolvable", func(t *testing.T) {
		t.Parallel()

		_, ok := billing.ExtractUserID(map[string]any{"id": "sub_1"})
		assert.False(t, ok)
	})
}

func TestResolveUserID(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	owner := uuid.New()

	seed := func(t *testing.T) *memSubscriptionStore {
		t.Helper()
		subs := newMemSubscriptionStore()
		require.NoError(t, subs.Upsert(ctx, &billing.Subscription{
			ID:                     uuid.New(),
			UserID:                 owner,
			ProviderSubscriptionID: "sub_known",
			ProviderCustomerID:     "ctm_known",
			Status:                 billing.StatusActive,
		}))
		return subs
	}

	t.Run("payload id wins over ledger", func(t *testing.T) {
		t.Parallel()

		direct := uuid.New()
		id, err := billing.ResolveUserID(ctx, seed(t), map[string]any{
			"custom_data":     map[string]any{"userId": direct.String()},
			"subscription_id": "sub_known",
		})
		require.NoError(t, err)
		assert.Equal(t, direct, id)
	})

	t.Run("falls back to ledger by subscription id", func(t *testing.T) {
		t.Parallel()

		id, err := billing.ResolveUserID(ctx, seed(t), map[string]any{
			"subscription_id": "sub_known",
		})
		require.NoError(t, err)
		assert.Equal(t, owner, id)
	})

	t.Run("falls back to ledger by customer id", func(t *testing.T) {
		t.Parallel()

		id, err := billing.ResolveUserID(ctx, seed(t), map[string]any{
			"customer_id": "ctm_known",
		})
		require.NoError(t, err)
		assert.Equal(t, owner, id)
	})

	t.Run("unresolvable", func(t *testing.T) {
		t.Parallel()

		_, err := billing.ResolveUserID(ctx, seed(t), map[string]any{
			"subscription_id": "sub_stranger",
			"customer_id":     "ctm_stranger",
		})
		require.ErrorIs(t, err, billing.ErrUserNotResolved)
	})
}

func TestExtractSubscriptionDetails(t *testing.T) {
	t.Parallel()

	data := map[string]any{
		"id":             "sub_1",
		"customer_id":    "ctm_1",
		"status":         "trialing",
		"currency_code":  "USD",
		"next_billed_at": "2024-02-01T00:00:00Z",
		"current_billing_period": map[string]any{
			"starts_at": "2024-01-01T00:00:00Z",
			"ends_at":   "2024-02-01T00:00:00Z",
		},
		"trial_dates": map[string]any{
			"starts_at": "2024-01-01T00:00:00Z",
			"ends_at":   "2024-01-15T00:00:00Z",
		},
		"items": []any{
			map[string]any{
				"price": map[string]any{
					"id": "pri_02",
					"unit_price": map[string]any{
						"amount":        "2900",
						"currency_code": "USD",
					},
				},
			},
		},
	}

	d := billing.ExtractSubscriptionDetails(data)
	assert.Equal(t, "sub_1", d.ProviderSubscriptionID)
	assert.Equal(t, "ctm_1", d.ProviderCustomerID)
	assert.Equal(t, "trialing", d.Status)
	assert.Equal(t, "pri_02", d.PlanID)
	require.NotNil(t, d.Price)
	assert.InDelta(t, 29.0, *d.Price, 0.0001)
	assert.Equal(t, "USD", d.Currency)
	require.NotNil(t, d.TrialEnd)
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), d.TrialEnd.UTC())
	require.NotNil(t, d.CurrentPeriodEnd)
	assert.Nil(t, d.CanceledAt)
}

func TestExtractTransactionDetails(t *testing.T) {
	t.Parallel()

	t.Run("minor units converted once", func(t *testing.T) {
		t.Parallel()

		d := billing.ExtractTransactionDetails(map[string]any{
			"id":              "txn_1",
			"subscription_id": "sub_1",
			"customer_id":     "ctm_1",
			"status":          "completed",
			"currency_code":   "USD",
			"origin":          "subscription_recurring",
			"collection_mode": "automatic",
			"invoice_id":      "inv_1",
			"invoice_number":  "325-10001",
			"billed_at":       "2024-01-15T10:00:00Z",
			"details": map[string]any{
				"totals": map[string]any{
					"subtotal":    "2900",
					"tax":         "580",
					"fee":         "145",
					"discount":    "0",
					"total":       "3480",
					"grand_total": "3480",
				},
			},
			"payments": []any{
				map[string]any{
					"status": "captured",
					"method_details": map[string]any{
						"type": "card",
					},
				},
			},
			"billing_period": map[string]any{
				"starts_at": "2024-01-15T00:00:00Z",
				"ends_at":   "2024-02-15T00:00:00Z",
			},
		})

		assert.Equal(t, "txn_1", d.ProviderTransactionID)
		assert.InDelta(t, 34.80, d.Amount, 0.0001)
		assert.InDelta(t, 29.00, d.Subtotal, 0.0001)
		assert.InDelta(t, 5.80, d.TaxTotal, 0.0001)
		assert.InDelta(t, 1.45, d.FeeTotal, 0.0001)
		assert.InDelta(t, 34.80, d.GrandTotal, 0.0001)
		assert.Equal(t, "captured", d.PaymentStatus)
		assert.Equal(t, "card", d.PaymentMethodType)
		require.NotNil(t, d.BilledAt)
		require.NotNil(t, d.BillingPeriodStart)
	})

	t.Run("absent totals default to zero", func(t *testing.T) {
		t.Parallel()

		d := billing.ExtractTransactionDetails(map[string]any{"id": "txn_2"})
		assert.Zero(t, d.Amount)
		assert.Zero(t, d.GrandTotal)
		assert.Empty(t, d.PaymentStatus)
		assert.Nil(t, d.BilledAt)
	})
}

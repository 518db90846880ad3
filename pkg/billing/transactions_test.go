package billing_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"billingd/pkg/billing"
)

type txnFixture struct {
	txns       *memTransactionStore
	subs       *memSubscriptionStore
	profiles   *memProfileStore
	reconciler *billing.TransactionReconciler
}

func newTxnFixture() *txnFixture {
	txns := newMemTransactionStore()
	subs := newMemSubscriptionStore()
	profiles := newMemProfileStore()
	log := slog.New(slog.DiscardHandler)
	projector := billing.NewProfileProjector(profiles, log)
	return &txnFixture{
		txns:       txns,
		subs:       subs,
		profiles:   profiles,
		reconciler: billing.NewTransactionReconciler(txns, subs, projector, log),
	}
}

func txnEnvelope(eventType string, data map[string]any) *billing.Envelope {
	return &billing.Envelope{
		EventID:   "evt_" + uuid.NewString()[:8],
		EventType: eventType,
		Data:      data,
	}
}

func txnData(userID uuid.UUID) map[string]any {
	return map[string]any{
		"id":              "txn_1",
		"subscription_id": "sub_1",
		"customer_id":     "ctm_1",
		"status":          "completed",
		"currency_code":   "USD",
		"custom_data":     map[string]any{"userId": userID.String()},
		"details": map[string]any{
			"totals": map[string]any{
				"total":       "2900",
				"grand_total": "2900",
			},
		},
	}
}

func TestTransactionReconciler_Apply(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	userID := uuid.New()

	t.Run("records transaction", func(t *testing.T) {
		t.Parallel()

		f := newTxnFixture()
		outcome, err := f.reconciler.Apply(ctx, txnEnvelope("transaction.completed", txnData(userID)))
		require.NoError(t, err)
		assert.Equal(t, billing.OutcomeApplied, outcome)

		txn, err := f.txns.GetByProviderID(ctx, "txn_1")
		require.NoError(t, err)
		assert.Equal(t, userID, txn.UserID)
		assert.Equal(t, billing.TxnCompleted, txn.Status)
		assert.InDelta(t, 29.0, txn.Amount, 0.0001)
		assert.NotEmpty(t, txn.RawData)
		assert.Nil(t, txn.SubscriptionID) // no local subscription to attach
	})

	t.Run("same provider transaction id updates in place", func(t *testing.T) {
		t.Parallel()

		f := newTxnFixture()
		_, err := f.reconciler.Apply(ctx, txnEnvelope("transaction.billed", txnData(userID)))
		require.NoError(t, err)

		first, err := f.txns.GetByProviderID(ctx, "txn_1")
		require.NoError(t, err)
		assert.Equal(t, billing.TxnBilled, first.Status)

		_, err = f.reconciler.Apply(ctx, txnEnvelope("transaction.completed", txnData(userID)))
		require.NoError(t, err)

		assert.Equal(t, 1, f.txns.count())
		second, err := f.txns.GetByProviderID(ctx, "txn_1")
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, billing.TxnCompleted, second.Status)
	})

	t.Run("failure event updates rather than re-inserts", func(t *testing.T) {
		t.Parallel()

		f := newTxnFixture()
		_, err := f.reconciler.Apply(ctx, txnEnvelope("transaction.billed", txnData(userID)))
		require.NoError(t, err)
		_, err = f.reconciler.Apply(ctx, txnEnvelope("transaction.payment_failed", txnData(userID)))
		require.NoError(t, err)

		assert.Equal(t, 1, f.txns.count())
		txn, err := f.txns.GetByProviderID(ctx, "txn_1")
		require.NoError(t, err)
		assert.Equal(t, billing.TxnPaymentFailed, txn.Status)
	})

	t.Run("unresolvable user skips without error", func(t *testing.T) {
		t.Parallel()

		f := newTxnFixture()
		data := txnData(userID)
		delete(data, "custom_data")

		outcome, err := f.reconciler.Apply(ctx, txnEnvelope("transaction.completed", data))
		require.NoError(t, err)
		assert.Equal(t, billing.OutcomeSkipped, outcome)
		assert.Zero(t, f.txns.count())
	})

	t.Run("user resolved from ledger when payload omits it", func(t *testing.T) {
		t.Parallel()

		f := newTxnFixture()
		require.NoError(t, f.subs.Upsert(ctx, &billing.Subscription{
			ID:                     uuid.New(),
			UserID:                 userID,
			ProviderSubscriptionID: "sub_1",
			Status:                 billing.StatusActive,
		}))

		data := txnData(userID)
		delete(data, "custom_data")

		outcome, err := f.reconciler.Apply(ctx, txnEnvelope("transaction.completed", data))
		require.NoError(t, err)
		assert.Equal(t, billing.OutcomeApplied, outcome)

		txn, err := f.txns.GetByProviderID(ctx, "txn_1")
		require.NoError(t, err)
		assert.Equal(t, userID, txn.UserID)
		require.NotNil(t, txn.SubscriptionID)
	})

	t.Run("missing transaction id skips", func(t *testing.T) {
		t.Parallel()

		f := newTxnFixture()
		outcome, err := f.reconciler.Apply(ctx, txnEnvelope("transaction.completed", map[string]any{
			"custom_data": map[string]any{"userId": userID.String()},
		}))
		require.NoError(t, err)
		assert.Equal(t, billing.OutcomeSkipped, outcome)
	})
}

func TestTransactionReconciler_TrialPromotion(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	userID := uuid.New()

	seedTrial := func(t *testing.T, f *txnFixture) {
		t.Helper()
		require.NoError(t, f.subs.Upsert(ctx, &billing.Subscription{
			ID:                     uuid.New(),
			UserID:                 userID,
			ProviderSubscriptionID: "sub_1",
			Status:                 billing.StatusTrialing,
		}))
	}

	t.Run("completed payment promotes trialing subscription", func(t *testing.T) {
		t.Parallel()

		f := newTxnFixture()
		seedTrial(t, f)

		_, err := f.reconciler.Apply(ctx, txnEnvelope("transaction.completed", txnData(userID)))
		require.NoError(t, err)

		sub, err := f.subs.GetByProviderID(ctx, "sub_1")
		require.NoError(t, err)
		assert.Equal(t, billing.StatusActive, sub.Status)

		p, ok := f.profiles.get(userID)
		require.True(t, ok)
		assert.True(t, p.SubscriptionActive)
		assert.False(t, p.IsOnFreeTrial)
	})

	t.Run("non-completed events leave trial untouched", func(t *testing.T) {
		t.Parallel()

		f := newTxnFixture()
		seedTrial(t, f)

		_, err := f.reconciler.Apply(ctx, txnEnvelope("transaction.billed", txnData(userID)))
		require.NoError(t, err)

		sub, err := f.subs.GetByProviderID(ctx, "sub_1")
		require.NoError(t, err)
		assert.Equal(t, billing.StatusTrialing, sub.Status)
	})

	t.Run("completed payment on active subscription is a plain upsert", func(t *testing.T) {
		t.Parallel()

		f := newTxnFixture()
		require.NoError(t, f.subs.Upsert(ctx, &billing.Subscription{
			ID:                     uuid.New(),
			UserID:                 userID,
			ProviderSubscriptionID: "sub_1",
			Status:                 billing.StatusActive,
		}))

		_, err := f.reconciler.Apply(ctx, txnEnvelope("transaction.completed", txnData(userID)))
		require.NoError(t, err)

		sub, err := f.subs.GetByProviderID(ctx, "sub_1")
		require.NoError(t, err)
		assert.Equal(t, billing.StatusActive, sub.Status)
	})
}

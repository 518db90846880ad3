package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"billingd/pkg/billing"
	"billingd/pkg/pg"
)

// TransactionStore persists billing transactions with one row per provider
// transaction id.
type TransactionStore struct {
	pool *pgxpool.Pool
}

func NewTransactionStore(pool *pgxpool.Pool) *TransactionStore {
	if pool == nil {
		panic("postgres: pool is required")
	}
	return &TransactionStore{pool: pool}
}

func (s *TransactionStore) GetByProviderID(ctx context.Context, providerTransactionID string) (*billing.Transaction, error) {
	const query = `
		SELECT id, user_id, subscription_id, provider_transaction_id, provider_customer_id,
			amount, currency, status, invoice_id, invoice_number, collection_mode, origin,
			subtotal, tax_total, fee_total, discount_total, grand_total,
			payment_status, payment_method_type,
			billing_period_start, billing_period_end, billed_at, raw_data,
			created_at, updated_at
		FROM transactions WHERE provider_transaction_id = $1`

	var txn billing.Transaction
	err := s.pool.QueryRow(ctx, query, providerTransactionID).Scan(
		&txn.ID, &txn.UserID, &txn.SubscriptionID, &txn.ProviderTransactionID, &txn.ProviderCustomerID,
		&txn.Amount, &txn.Currency, &txn.Status, &txn.InvoiceID, &txn.InvoiceNumber, &txn.CollectionMode, &txn.Origin,
		&txn.Subtotal, &txn.TaxTotal, &txn.FeeTotal, &txn.DiscountTotal, &txn.GrandTotal,
		&txn.PaymentStatus, &txn.PaymentMethodType,
		&txn.BillingPeriodStart, &txn.BillingPeriodEnd, &txn.BilledAt, &txn.RawData,
		&txn.CreatedAt, &txn.UpdatedAt,
	)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, billing.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("query transaction: %w", err)
	}
	return &txn, nil
}

func (s *TransactionStore) Upsert(ctx context.Context, txn *billing.Transaction) error {
	const query = `
		INSERT INTO transactions (
			id, user_id, subscription_id, provider_transaction_id, provider_customer_id,
			amount, currency, status, invoice_id, invoice_number, collection_mode, origin,
			subtotal, tax_total, fee_total, discount_total, grand_total,
			payment_status, payment_method_type,
			billing_period_start, billing_period_end, billed_at, raw_data,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17,
			$18, $19, $20, $21, $22, $23, $24, $25
		)
		ON CONFLICT (provider_transaction_id) DO UPDATE SET
			user_id = EXCLUDED.user_id,
			subscription_id = EXCLUDED.subscription_id,
			provider_customer_id = EXCLUDED.provider_customer_id,
			amount = EXCLUDED.amount,
			currency = EXCLUDED.currency,
			status = EXCLUDED.status,
			invoice_id = EXCLUDED.invoice_id,
			invoice_number = EXCLUDED.invoice_number,
			collection_mode = EXCLUDED.collection_mode,
			origin = EXCLUDED.origin,
			subtotal = EXCLUDED.subtotal,
			tax_total = EXCLUDED.tax_total,
			fee_total = EXCLUDED.fee_total,
			discount_total = EXCLUDED.discount_total,
			grand_total = EXCLUDED.grand_total,
			payment_status = EXCLUDED.payment_status,
			payment_method_type = EXCLUDED.payment_method_type,
			billing_period_start = EXCLUDED.billing_period_start,
			billing_period_end = EXCLUDED.billing_period_end,
			billed_at = EXCLUDED.billed_at,
			raw_data = EXCLUDED.raw_data,
			updated_at = EXCLUDED.updated_at`

	_, err := s.pool.Exec(ctx, query,
		txn.ID, txn.UserID, txn.SubscriptionID, txn.ProviderTransactionID, txn.ProviderCustomerID,
		txn.Amount, txn.Currency, txn.Status, txn.InvoiceID, txn.InvoiceNumber, txn.CollectionMode, txn.Origin,
		txn.Subtotal, txn.TaxTotal, txn.FeeTotal, txn.DiscountTotal, txn.GrandTotal,
		txn.PaymentStatus, txn.PaymentMethodType,
		txn.BillingPeriodStart, txn.BillingPeriodEnd, txn.BilledAt, txn.RawData,
		txn.CreatedAt, txn.UpdatedAt,
	)
	if err != nil {
		// The owning subscription can be deleted between the reconciler's
		// lookup and this insert.
		if pg.IsForeignKeyViolationError(err) {
			return errors.Join(billing.ErrSubscriptionNotFound, err)
		}
		return fmt.Errorf("upsert transaction %s: %w", txn.ProviderTransactionID, err)
	}
	return nil
}

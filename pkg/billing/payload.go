package billing

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Envelope is the outer structure of every Paddle webhook delivery.
// Data stays loosely typed: the payload shape varies by event type and
// provider API version, so all field access goes through the tolerant
// lookups below instead of struct decoding.
type Envelope struct {
	EventID    string         `json:"event_id"`
	EventType  string         `json:"event_type"`
	OccurredAt string         `json:"occurred_at"`
	Data       map[string]any `json:"data"`
}

// ParseEnvelope decodes the raw webhook body. Unparseable JSON is a hard
// error so the provider retries; a missing data object is tolerated (some
// event types carry none).
func ParseEnvelope(raw []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, errors.Join(ErrMalformedPayload, err)
	}
	if env.EventType == "" {
		return nil, errors.Join(ErrMalformedPayload, errors.New("event_type is required"))
	}
	return &env, nil
}

// SubscriptionDetails is the flat, defaulted view of a subscription event
// payload. Every field defaults instead of erroring: the provider omits
// fields depending on lifecycle stage.
type SubscriptionDetails struct {
	ProviderSubscriptionID string
	ProviderCustomerID     string
	Status                 string
	PlanID                 string // first item's price id
	Price                  *float64
	Currency               string
	CurrentPeriodStart     *time.Time
	CurrentPeriodEnd       *time.Time
	TrialStart             *time.Time
	TrialEnd               *time.Time
	NextBilledAt           *time.Time
	CanceledAt             *time.Time
}

// TransactionDetails is the flat, defaulted view of a transaction event
// payload, including the totals breakdown retained for audit.
type TransactionDetails struct {
	ProviderTransactionID  string
	ProviderSubscriptionID string
	ProviderCustomerID     string
	Status                 string
	Amount                 float64 // details.totals.total, converted from minor units
	Currency               string
	InvoiceID              string
	InvoiceNumber          string
	CollectionMode         string
	Origin                 string
	Subtotal               float64
	TaxTotal               float64
	FeeTotal               float64
	DiscountTotal          float64
	GrandTotal             float64
	PaymentStatus          string // first payment's status
	PaymentMethodType      string
	BillingPeriodStart     *time.Time
	BillingPeriodEnd       *time.Time
	BilledAt               *time.Time
}

// ExtractUserID locates the logical user identity in an event payload.
// The search order is fixed: custom metadata on the data object itself,
// then on an embedded subscription object, then on an embedded customer
// object, then the legacy passthrough field. At each location both the
// camelCase and snake_case key spellings are accepted; the first non-empty
// match wins.
func ExtractUserID(data map[string]any) (uuid.UUID, bool) {
	candidates := []string{
		customDataUserID(data),
		customDataUserID(nestedMap(data, "subscription")),
		customDataUserID(nestedMap(data, "customer")),
		passthroughUserID(data),
	}
	for _, raw := range candidates {
		if raw == "" {
			continue
		}
		if id, err := uuid.Parse(raw); err == nil {
			return id, true
		}
	}
	return uuid.Nil, false
}

// ResolveUserID extracts the user id from the payload, falling back to the
// local subscription ledger by provider subscription id, then by provider
// customer id. Returns ErrUserNotResolved when every avenue is exhausted.
func ResolveUserID(ctx context.Context, subs SubscriptionStore, data map[string]any) (uuid.UUID, error) {
	if id, ok := ExtractUserID(data); ok {
		return id, nil
	}

	if subID := stringField(data, "subscription_id"); subID != "" {
		if sub, err := subs.GetByProviderID(ctx, subID); err == nil {
			return sub.UserID, nil
		}
	}
	if customerID := stringField(data, "customer_id"); customerID != "" {
		if sub, err := subs.GetByProviderCustomerID(ctx, customerID); err == nil {
			return sub.UserID, nil
		}
	}

	return uuid.Nil, ErrUserNotResolved
}

// ExtractSubscriptionDetails flattens a subscription event payload.
func ExtractSubscriptionDetails(data map[string]any) SubscriptionDetails {
	d := SubscriptionDetails{
		ProviderSubscriptionID: stringField(data, "id"),
		ProviderCustomerID:     stringField(data, "customer_id"),
		Status:                 stringField(data, "status"),
		Currency:               stringField(data, "currency_code"),
		NextBilledAt:           timeField(data, "next_billed_at"),
		CanceledAt:             timeField(data, "canceled_at"),
	}

	if period := nestedMap(data, "current_billing_period"); period != nil {
		d.CurrentPeriodStart = timeField(period, "starts_at")
		d.CurrentPeriodEnd = timeField(period, "ends_at")
	}
	if trial := nestedMap(data, "trial_dates"); trial != nil {
		d.TrialStart = timeField(trial, "starts_at")
		d.TrialEnd = timeField(trial, "ends_at")
	}

	// First line item carries the price; later items are not billed by this
	// application's single-plan checkouts.
	if price := firstItemPrice(data); price != nil {
		d.PlanID = stringField(price, "id")
		if unit := nestedMap(price, "unit_price"); unit != nil {
			if amount, ok := minorUnits(stringField(unit, "amount")); ok {
				d.Price = &amount
			}
			if d.Currency == "" {
				d.Currency = stringField(unit, "currency_code")
			}
		}
	}

	return d
}

// ExtractTransactionDetails flattens a transaction event payload. Monetary
// amounts arrive as minor-unit strings and are converted here, exactly once;
// downstream consumers must not divide again.
func ExtractTransactionDetails(data map[string]any) TransactionDetails {
	d := TransactionDetails{
		ProviderTransactionID:  stringField(data, "id"),
		ProviderSubscriptionID: stringField(data, "subscription_id"),
		ProviderCustomerID:     stringField(data, "customer_id"),
		Status:                 stringField(data, "status"),
		Currency:               stringField(data, "currency_code"),
		InvoiceID:              stringField(data, "invoice_id"),
		InvoiceNumber:          stringField(data, "invoice_number"),
		CollectionMode:         stringField(data, "collection_mode"),
		Origin:                 stringField(data, "origin"),
		BilledAt:               timeField(data, "billed_at"),
	}

	if totals := nestedMap(nestedMap(data, "details"), "totals"); totals != nil {
		d.Amount, _ = minorUnits(stringField(totals, "total"))
		d.Subtotal, _ = minorUnits(stringField(totals, "subtotal"))
		d.TaxTotal, _ = minorUnits(stringField(totals, "tax"))
		d.FeeTotal, _ = minorUnits(stringField(totals, "fee"))
		d.DiscountTotal, _ = minorUnits(stringField(totals, "discount"))
		d.GrandTotal, _ = minorUnits(stringField(totals, "grand_total"))
	}

	// First payment is the most recent attempt.
	if payments, ok := data["payments"].([]any); ok && len(payments) > 0 {
		if payment, ok := payments[0].(map[string]any); ok {
			d.PaymentStatus = stringField(payment, "status")
			if method := nestedMap(payment, "method_details"); method != nil {
				d.PaymentMethodType = stringField(method, "type")
			}
		}
	}

	if period := nestedMap(data, "billing_period"); period != nil {
		d.BillingPeriodStart = timeField(period, "starts_at")
		d.BillingPeriodEnd = timeField(period, "ends_at")
	}

	return d
}

// customDataUserID reads custom_data.userId / custom_data.user_id from the
// given object. Returns "" when absent.
func customDataUserID(m map[string]any) string {
	custom := nestedMap(m, "custom_data")
	if custom == nil {
		return ""
	}
	if v := stringField(custom, "userId"); v != "" {
		return v
	}
	return stringField(custom, "user_id")
}

// passthroughUserID handles the legacy passthrough field, which is either a
// bare user id or a JSON object with a userId key.
func passthroughUserID(m map[string]any) string {
	raw := stringField(m, "passthrough")
	if raw == "" {
		return ""
	}

	var wrapped map[string]any
	if err := json.Unmarshal([]byte(raw), &wrapped); err == nil {
		if v := stringField(wrapped, "userId"); v != "" {
			return v
		}
		if v := stringField(wrapped, "user_id"); v != "" {
			return v
		}
		return ""
	}
	return raw
}

func firstItemPrice(data map[string]any) map[string]any {
	items, ok := data["items"].([]any)
	if !ok || len(items) == 0 {
		return nil
	}
	item, ok := items[0].(map[string]any)
	if !ok {
		return nil
	}
	return nestedMap(item, "price")
}

func stringField(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	v, _ := m[key].(string)
	return v
}

func nestedMap(m map[string]any, key string) map[string]any {
	if m == nil {
		return nil
	}
	v, _ := m[key].(map[string]any)
	return v
}

func timeField(m map[string]any, key string) *time.Time {
	raw := stringField(m, key)
	if raw == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil
	}
	return &t
}

// minorUnits converts a provider-native minor-unit amount string ("1099")
// into major units (10.99). This is the single conversion point in the
// pipeline.
func minorUnits(raw string) (float64, bool) {
	if raw == "" {
		return 0, false
	}
	n, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return n / 100, true
}

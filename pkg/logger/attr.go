package logger

import "log/slog"

// Error creates an attribute for a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// UserID records the user identifier under the key "user_id".
// If id is nil, it returns an empty Attr.
func UserID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("user_id", id)
}

// EventID records the provider event identifier under the key "event_id".
func EventID(id string) slog.Attr {
	return slog.String("event_id", id)
}

// EventType records the webhook event type under the key "event_type".
func EventType(eventType string) slog.Attr {
	return slog.String("event_type", eventType)
}

// SubscriptionID records the provider subscription identifier under the key
// "subscription_id".
func SubscriptionID(id string) slog.Attr {
	return slog.String("subscription_id", id)
}

// TransactionID records the provider transaction identifier under the key
// "transaction_id".
func TransactionID(id string) slog.Attr {
	return slog.String("transaction_id", id)
}

// RefundID records the provider refund adjustment identifier under the key
// "refund_id".
func RefundID(id string) slog.Attr {
	return slog.String("refund_id", id)
}

// CustomerID records the provider customer identifier under the key
// "customer_id".
func CustomerID(id string) slog.Attr {
	return slog.String("customer_id", id)
}

// Status records a provider status string under the key "status".
func Status(status string) slog.Attr {
	return slog.String("status", status)
}

// Component records the originating component under the key "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

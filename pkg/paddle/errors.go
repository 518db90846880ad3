package paddle

import "errors"

var (
	ErrMissingAPIKey        = errors.New("paddle API key is required")
	ErrMissingWebhookSecret = errors.New("paddle webhook secret is required")
	ErrInvalidEnvironment   = errors.New("invalid paddle environment")

	ErrMissingSignatureHeader = errors.New("missing paddle signature header")
	ErrMalformedSignature     = errors.New("malformed paddle signature header")
	ErrSignatureMismatch      = errors.New("paddle signature mismatch")

	ErrNoInvoiceURL   = errors.New("no invoice URL returned from paddle")
	ErrRefundNotFound = errors.New("refund adjustment not found")
)

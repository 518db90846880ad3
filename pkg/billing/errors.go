package billing

import "errors"

var (
	ErrInvalidSignature = errors.New("webhook signature verification failed")
	ErrMalformedPayload = errors.New("malformed webhook payload")

	ErrEventNotFound        = errors.New("webhook event not found")
	ErrSubscriptionNotFound = errors.New("subscription not found")
	ErrTransactionNotFound  = errors.New("transaction not found")

	ErrUserNotResolved = errors.New("user id could not be resolved from event")

	ErrFailedToRecordEvent = errors.New("failed to record webhook event")
)

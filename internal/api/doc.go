// Package api exposes the billing service over HTTP: the provider webhook
// endpoint plus a small management surface for cancellations, refunds,
// invoice retrieval, and entitlement checks.
package api

// Package redis provides a small connection helper around go-redis with
// retry on startup and a health check closure. The billing service uses
// Redis only for the webhook event-id dedup guard, so the API surface stays
// minimal.
package redis

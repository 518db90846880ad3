// Package billing ingests payment-provider webhook events and reconciles
// them into a local subscription and transaction ledger.
//
// The pipeline is: verify the delivery signature, append the raw event to an
// insert-only log, route it by event family to a reconciler, then mark the
// log row processed. Reconcilers are idempotent so provider retries and
// duplicate deliveries converge to the same state. Every subscription
// transition re-projects the user's denormalized profile flags from the new
// status.
//
// Storage and transport are behind small interfaces (EventStore,
// SubscriptionStore, TransactionStore, ProfileStore, SignatureVerifier);
// see the postgres subpackage for the production implementations.
package billing

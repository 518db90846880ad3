// Package paddle integrates with the Paddle Billing API: webhook signature
// verification for inbound deliveries and a thin client over the official
// SDK for the outbound calls (cancel, refund, invoice PDF).
//
// Signature verification implements Paddle's scheme directly rather than
// going through the SDK's request-based verifier: the digest is
// HMAC-SHA256(secret, "{ts}:{rawBody}") where ts comes from the
// Paddle-Signature header, and VerifySignature is a pure function over the
// raw request bytes so it can be exercised byte-for-byte in tests.
package paddle

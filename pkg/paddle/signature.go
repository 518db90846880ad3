package paddle

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// SignatureParts holds the parsed components of a Paddle-Signature header.
// The header is a semicolon-separated key=value list; Paddle sends a unix
// timestamp under "ts" and a hex-encoded HMAC-SHA256 digest under "h1".
type SignatureParts struct {
	Timestamp string
	H1        string
}

// ParseSignatureHeader splits a Paddle-Signature header into its parts.
// Unknown keys are ignored so future additions by the provider don't break
// verification.
func ParseSignatureHeader(header string) (SignatureParts, error) {
	if header == "" {
		return SignatureParts{}, ErrMissingSignatureHeader
	}

	var parts SignatureParts
	for _, part := range strings.Split(header, ";") {
		key, value, ok := strings.Cut(part, "=")
		if !ok || key == "" || value == "" {
			continue
		}
		switch key {
		case "ts":
			parts.Timestamp = value
		case "h1":
			parts.H1 = value
		}
	}

	if parts.Timestamp == "" || parts.H1 == "" {
		return SignatureParts{}, fmt.Errorf("%w: ts and h1 are required", ErrMalformedSignature)
	}
	return parts, nil
}

// VerifySignature validates a webhook delivery against the shared secret.
// The signed message is "{ts}:{rawBody}" over the exact raw request bytes;
// re-serialized JSON changes whitespace and breaks the digest. Comparison is
// constant-time. Fails closed: any missing or malformed input rejects.
//
// The boolean result is the authoritative accept/reject decision; the error
// carries the diagnostic for logging and is non-nil whenever the result is
// false.
func VerifySignature(rawBody []byte, signatureHeader, secret string) (bool, error) {
	if secret == "" {
		return false, ErrMissingWebhookSecret
	}

	parts, err := ParseSignatureHeader(signatureHeader)
	if err != nil {
		return false, err
	}

	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(parts.Timestamp))
	h.Write([]byte(":"))
	h.Write(rawBody)
	computed := hex.EncodeToString(h.Sum(nil))

	if !hmac.Equal([]byte(computed), []byte(parts.H1)) {
		return false, ErrSignatureMismatch
	}
	return true, nil
}

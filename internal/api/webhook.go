package api

import (
	"errors"
	"io"
	"net/http"

	"billingd/pkg/billing"
	"billingd/pkg/logger"
)

// signatureHeader is the provider's webhook signature header.
const signatureHeader = "Paddle-Signature"

// handleWebhook is the provider-facing ingestion endpoint. The response
// code is a contract with the provider's retry loop: 200 acknowledges, 401
// rejects a delivery that was never trusted, and anything 5xx asks for a
// retry with the event row left unprocessed.
func (h *handlers) handleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.cfg.MaxBodyBytes))
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	err = h.deps.Billing.HandleWebhook(r.Context(), body, r.Header.Get(signatureHeader))
	switch {
	case err == nil:
		respondSuccess(w)
	case errors.Is(err, billing.ErrInvalidSignature):
		h.deps.Log.WarnContext(r.Context(), "Rejected webhook with invalid signature",
			logger.Error(err))
		respondError(w, http.StatusUnauthorized, "invalid signature")
	case errors.Is(err, billing.ErrMalformedPayload):
		// A server error here is deliberate: the provider retries non-2xx,
		// and a truncated delivery may parse on the next attempt.
		respondError(w, http.StatusInternalServerError, "malformed payload")
	default:
		respondError(w, http.StatusInternalServerError, "failed to process webhook event")
	}
}

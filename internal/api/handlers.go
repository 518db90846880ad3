package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"billingd/pkg/logger"
	"billingd/pkg/paddle"
)

type cancelRequest struct {
	SubscriptionID string `json:"subscription_id"`
	EffectiveFrom  string `json:"effective_from"`
}

// handleCancelSubscription forwards a cancellation to the provider. The
// local ledger is not touched here; the provider confirms with a
// subscription.canceled webhook, which is the single write path.
func (h *handlers) handleCancelSubscription(w http.ResponseWriter, r *http.Request) {
	var req cancelRequest
	if err := h.decode(w, r, &req); err != nil {
		return
	}
	if req.SubscriptionID == "" {
		respondError(w, http.StatusBadRequest, "subscription_id is required")
		return
	}
	if req.EffectiveFrom == "" {
		req.EffectiveFrom = paddle.EffectiveNextBillingPeriod
	}

	if err := h.deps.Paddle.CancelSubscription(r.Context(), req.SubscriptionID, req.EffectiveFrom); err != nil {
		h.deps.Log.ErrorContext(r.Context(), "Failed to cancel subscription",
			logger.SubscriptionID(req.SubscriptionID), logger.Error(err))
		respondError(w, http.StatusBadGateway, "failed to cancel subscription")
		return
	}

	h.deps.Log.InfoContext(r.Context(), "Subscription cancellation requested",
		logger.SubscriptionID(req.SubscriptionID))
	respondSuccess(w)
}

type refundRequest struct {
	TransactionID string `json:"transaction_id"`
	Reason        string `json:"reason"`
}

func (h *handlers) handleRefund(w http.ResponseWriter, r *http.Request) {
	var req refundRequest
	if err := h.decode(w, r, &req); err != nil {
		return
	}
	if req.TransactionID == "" {
		respondError(w, http.StatusBadRequest, "transaction_id is required")
		return
	}
	if req.Reason == "" {
		req.Reason = "requested by customer"
	}

	if err := h.deps.Paddle.RefundTransaction(r.Context(), req.TransactionID, req.Reason); err != nil {
		h.deps.Log.ErrorContext(r.Context(), "Failed to create refund",
			logger.TransactionID(req.TransactionID), logger.Error(err))
		respondError(w, http.StatusBadGateway, "failed to create refund")
		return
	}

	h.deps.Log.InfoContext(r.Context(), "Refund requested",
		logger.TransactionID(req.TransactionID))
	respondSuccess(w)
}

// handleRefundStatus reports the provider's decision on a previously
// requested refund. Refunds start as pending approval and resolve
// asynchronously, so clients poll here after handleRefund.
func (h *handlers) handleRefundStatus(w http.ResponseWriter, r *http.Request) {
	refundID := chi.URLParam(r, "id")
	if refundID == "" {
		respondError(w, http.StatusBadRequest, "refund id is required")
		return
	}

	status, err := h.deps.Paddle.GetRefundStatus(r.Context(), refundID)
	switch {
	case errors.Is(err, paddle.ErrRefundNotFound):
		respondError(w, http.StatusNotFound, "refund not found")
	case err != nil:
		h.deps.Log.ErrorContext(r.Context(), "Failed to fetch refund status",
			logger.RefundID(refundID), logger.Error(err))
		respondError(w, http.StatusBadGateway, "failed to fetch refund status")
	default:
		respondJSON(w, http.StatusOK, status)
	}
}

func (h *handlers) handleInvoice(w http.ResponseWriter, r *http.Request) {
	transactionID := chi.URLParam(r, "id")
	if transactionID == "" {
		respondError(w, http.StatusBadRequest, "transaction id is required")
		return
	}

	url, err := h.deps.Paddle.GetInvoicePDF(r.Context(), transactionID)
	switch {
	case errors.Is(err, paddle.ErrNoInvoiceURL):
		respondError(w, http.StatusNotFound, "no invoice available for transaction")
	case err != nil:
		h.deps.Log.ErrorContext(r.Context(), "Failed to fetch invoice",
			logger.TransactionID(transactionID), logger.Error(err))
		respondError(w, http.StatusBadGateway, "failed to fetch invoice")
	default:
		respondJSON(w, http.StatusOK, map[string]any{"url": url})
	}
}

type verifyRequest struct {
	UserID string `json:"user_id"`
}

// handleVerifySubscription reports the entitlement flags derived from the
// user's most recent subscription.
func (h *handlers) handleVerifySubscription(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := h.decode(w, r, &req); err != nil {
		return
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		respondError(w, http.StatusBadRequest, "user_id must be a valid uuid")
		return
	}

	profile, plan, err := h.deps.Billing.VerifyUser(r.Context(), userID)
	if err != nil {
		h.deps.Log.ErrorContext(r.Context(), "Failed to verify subscription",
			logger.UserID(userID), logger.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to verify subscription")
		return
	}

	resp := map[string]any{
		"active":   profile.SubscriptionActive,
		"on_trial": profile.IsOnFreeTrial,
	}
	if plan != nil {
		resp["plan"] = plan.Name
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *handlers) decode(w http.ResponseWriter, r *http.Request, v any) error {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.cfg.MaxBodyBytes)).Decode(v)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
	}
	return err
}

package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"billingd/pkg/billing"
	"billingd/pkg/httpserver"
	"billingd/pkg/paddle"
)

// Dependencies collects everything the router needs. Health checks are
// optional; the rest is required.
type Dependencies struct {
	Billing *billing.Service
	Paddle  *paddle.Client
	Log     *slog.Logger

	// HealthChecks run on GET /health; any failure reports not ready.
	HealthChecks []func(context.Context) error
}

// NewRouter builds the HTTP handler tree.
func NewRouter(cfg Config, deps Dependencies) http.Handler {
	if deps.Billing == nil {
		panic("api: billing service is required")
	}
	if deps.Paddle == nil {
		panic("api: paddle client is required")
	}
	if deps.Log == nil {
		deps.Log = slog.Default()
	}
	if cfg.AuthToken == "" {
		panic("api: auth token is required")
	}

	h := &handlers{cfg: cfg, deps: deps}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.RequestTimeout))

	r.Get("/health", httpserver.HealthCheckHandler(context.Background(), deps.Log, deps.HealthChecks...))

	r.Post("/webhooks/paddle", h.handleWebhook)

	r.Route("/api", func(r chi.Router) {
		r.Use(h.requireBearer)
		r.Post("/subscriptions/cancel", h.handleCancelSubscription)
		r.Post("/subscriptions/refund", h.handleRefund)
		r.Get("/refunds/{id}", h.handleRefundStatus)
		r.Get("/transactions/{id}/invoice", h.handleInvoice)
		r.Post("/verify-subscription", h.handleVerifySubscription)
	})

	return r
}

type handlers struct {
	cfg  Config
	deps Dependencies
}

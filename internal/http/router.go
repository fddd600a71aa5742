package http

import (
	"github.com/celeparty/ticketops/internal/observability"
	"github.com/celeparty/ticketops/internal/rateLimit"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func SetupRouter(h *Handlers, logger observability.Logger, rl *rateLimit.RateLimiter) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(LoggerMiddleware(logger))
	r.Use(TracingMiddleware)

	r.Post("/v1/webhooks/payment", h.PaymentWebhook)
	r.Get("/v1/transactions/{orderID}", h.GetTransaction)

	r.Group(func(r chi.Router) {
		r.Use(VendorAuthMiddleware)
		r.Use(RateLimitMiddleware(rl))
		r.Post("/v1/tickets/verify", h.VerifyTicket)
	})

	r.Get("/v1/healthz", h.Healthz)
	r.Get("/v1/readyz", h.Readyz)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	return r
}

package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/celeparty/ticketops/internal/domain"
	"github.com/celeparty/ticketops/internal/gateway"
	"github.com/celeparty/ticketops/internal/observability"
	"github.com/celeparty/ticketops/internal/recon"
	"github.com/celeparty/ticketops/internal/verify"
	"github.com/go-chi/chi/v5"
)

type Handlers struct {
	reconciler *recon.Reconciler
	verifier   *verify.Verifier
	locator    *recon.Locator
	logger     observability.Logger
}

func NewHandlers(reconciler *recon.Reconciler, verifier *verify.Verifier, locator *recon.Locator, logger observability.Logger) *Handlers {
	return &Handlers{
		reconciler: reconciler,
		verifier:   verifier,
		locator:    locator,
		logger:     logger,
	}
}

// PaymentWebhook receives the gateway's asynchronous status
// notification. 200 means applied or already applied; any retryable
// downstream failure surfaces as 5xx so the gateway's own retry policy
// redelivers.
func (h *Handlers) PaymentWebhook(w http.ResponseWriter, r *http.Request) {
	var n gateway.Notification
	if err := json.NewDecoder(r.Body).Decode(&n); err != nil {
		observability.WebhooksTotal.WithLabelValues(observability.OutcomeRejected).Inc()
		writeError(w, domain.ErrInvalidInput)
		return
	}

	res, err := h.reconciler.Process(r.Context(), n)
	if err != nil {
		outcome := observability.OutcomeRejected
		if domain.Retryable(err) {
			outcome = observability.OutcomeFailed
			h.logger.WithError(err).
				WithField("order_id", n.OrderID).
				WithField("transaction_status", n.TransactionStatus).
				Error("webhook processing failed, gateway will retry")
		}
		observability.WebhooksTotal.WithLabelValues(outcome).Inc()
		writeError(w, err)
		return
	}

	observability.WebhooksTotal.WithLabelValues(string(res.Outcome)).Inc()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"order_id":       n.OrderID,
		"payment_status": res.Target,
		"outcome":        res.Outcome,
	})
}

// VerifyTicket flips one ticket to verified on behalf of the
// authenticated vendor.
func (h *Handlers) VerifyTicket(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TicketCode string `json:"ticket_code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.ErrInvalidInput)
		return
	}

	detail, err := h.verifier.Verify(r.Context(), req.TicketCode, VendorID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ticket_code": detail.TicketCode,
		"is_verified": detail.IsVerified,
		"verified_at": detail.VerifiedAt,
		"recipient":   detail.RecipientName,
	})
}

// GetTransaction is the storefront's read-only status probe.
func (h *Handlers) GetTransaction(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	txn, err := h.locator.Locate(r.Context(), orderID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"order_id":       txn.OrderID,
		"payment_status": txn.PaymentStatus,
		"event_type":     txn.EventType,
		"kind":           txn.Kind,
	})
}

func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (h *Handlers) Readyz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Ready"))
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// writeError maps the domain error taxonomy onto HTTP statuses. Raw
// transport errors never reach here; adapters re-signal them as one of
// the taxonomy kinds.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		http.Error(w, "invalid request", http.StatusBadRequest)
	case errors.Is(err, domain.ErrUnauthorized):
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	case errors.Is(err, domain.ErrForbidden):
		http.Error(w, "ticket belongs to another vendor", http.StatusForbidden)
	case errors.Is(err, domain.ErrNotFound):
		http.Error(w, "record not found", http.StatusNotFound)
	case errors.Is(err, domain.ErrConflict):
		http.Error(w, "ticket already verified", http.StatusConflict)
	case errors.Is(err, domain.ErrPreconditionFailed):
		http.Error(w, "payment not settled", http.StatusPreconditionFailed)
	case errors.Is(err, domain.ErrWriteFailed):
		http.Error(w, "record store rejected update", http.StatusBadGateway)
	case errors.Is(err, domain.ErrBackendUnavailable):
		http.Error(w, "record store unavailable, retry later", http.StatusServiceUnavailable)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

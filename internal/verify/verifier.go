// Package verify implements the single-use ticket verification state
// machine: unverified → verified, terminal, gated on payment success and
// vendor ownership.
package verify

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/celeparty/ticketops/internal/domain"
	"github.com/celeparty/ticketops/internal/observability"
)

// Store is the slice of the CMS adapter the verifier needs.
type Store interface {
	FindTicketDetail(ctx context.Context, ticketCode string) (*domain.TicketDetail, error)
	FindTicketTransaction(ctx context.Context, orderID string) (*domain.Transaction, error)
	FindGenericTransaction(ctx context.Context, orderID string) (*domain.Transaction, error)
	MarkTicketVerified(ctx context.Context, detail *domain.TicketDetail, at time.Time) error
	MarkTransactionVerified(ctx context.Context, txn *domain.Transaction) error
}

// TrailRecorder appends verification attempts to the audit trail.
type TrailRecorder interface {
	RecordVerification(ctx context.Context, orderID, ticketCode, vendorID, result string) error
}

type Verifier struct {
	store  Store
	trail  TrailRecorder
	logger observability.Logger
	now    func() time.Time
}

func NewVerifier(store Store, trail TrailRecorder, logger observability.Logger) *Verifier {
	return &Verifier{store: store, trail: trail, logger: logger, now: time.Now}
}

// WithClock overrides the timestamp source. Tests only.
func (v *Verifier) WithClock(now func() time.Time) *Verifier {
	v.now = now
	return v
}

// Verify flips one ticket to verified on behalf of a vendor. The code is
// probed as a ticket code first, then as the order id of a generic
// (QR-flow) purchase, mirroring the locator's collection order.
//
// Preconditions, in check order: the actor owns the product (Forbidden),
// the ticket is not already verified (Conflict), and the owning
// transaction's payment has settled (PreconditionFailed). verified_at is
// stamped from the server clock, never from client input.
func (v *Verifier) Verify(ctx context.Context, code, vendorID string) (*domain.TicketDetail, error) {
	if strings.TrimSpace(code) == "" {
		return nil, domain.ErrInvalidInput
	}
	if strings.TrimSpace(vendorID) == "" {
		// The session layer failed to identify the actor; ownership
		// cannot be enforced without it.
		return nil, domain.ErrUnauthorized
	}

	detail, err := v.store.FindTicketDetail(ctx, code)
	if errors.Is(err, domain.ErrNotFound) {
		return v.verifyGeneric(ctx, code, vendorID)
	}
	if err != nil {
		return nil, err
	}

	if detail.VendorID != vendorID {
		v.audit(ctx, detail.OrderID, code, vendorID, "forbidden")
		return nil, domain.ErrForbidden
	}
	if detail.IsVerified {
		v.audit(ctx, detail.OrderID, code, vendorID, "conflict")
		return nil, domain.ErrConflict
	}

	txn, err := v.store.FindTicketTransaction(ctx, detail.OrderID)
	if err != nil {
		return nil, err
	}
	if txn.PaymentStatus != domain.StatusSuccess {
		v.audit(ctx, detail.OrderID, code, vendorID, "payment_not_settled")
		return nil, domain.ErrPreconditionFailed
	}

	at := v.now().UTC()
	if err := v.store.MarkTicketVerified(ctx, detail, at); err != nil {
		return nil, err
	}
	detail.IsVerified = true
	detail.VerifiedAt = &at

	v.audit(ctx, detail.OrderID, code, vendorID, "verified")
	observability.VerificationsTotal.WithLabelValues("verified").Inc()
	return detail, nil
}

// verifyGeneric handles QR-flow purchases where the transaction itself
// is the unit of verification and the scanned code is the order id.
func (v *Verifier) verifyGeneric(ctx context.Context, orderID, vendorID string) (*domain.TicketDetail, error) {
	txn, err := v.store.FindGenericTransaction(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if txn.VendorID != vendorID {
		v.audit(ctx, orderID, "", vendorID, "forbidden")
		return nil, domain.ErrForbidden
	}
	if txn.Verification {
		v.audit(ctx, orderID, "", vendorID, "conflict")
		return nil, domain.ErrConflict
	}
	if txn.PaymentStatus != domain.StatusSuccess {
		v.audit(ctx, orderID, "", vendorID, "payment_not_settled")
		return nil, domain.ErrPreconditionFailed
	}

	if err := v.store.MarkTransactionVerified(ctx, txn); err != nil {
		return nil, err
	}
	txn.Verification = true

	at := v.now().UTC()
	v.audit(ctx, orderID, "", vendorID, "verified")
	observability.VerificationsTotal.WithLabelValues("verified").Inc()
	return &domain.TicketDetail{
		TicketCode: orderID,
		IsVerified: true,
		VerifiedAt: &at,
		OrderID:    orderID,
		VendorID:   txn.VendorID,
	}, nil
}

func (v *Verifier) audit(ctx context.Context, orderID, ticketCode, vendorID, result string) {
	if result != "verified" {
		observability.VerificationsTotal.WithLabelValues(result).Inc()
	}
	if v.trail == nil {
		return
	}
	if err := v.trail.RecordVerification(ctx, orderID, ticketCode, vendorID, result); err != nil {
		v.logger.WithError(err).WithField("order_id", orderID).Warn("failed to record verification trail")
	}
}

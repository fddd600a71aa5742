// Package recon implements the payment-webhook reconciliation pipeline:
// locate the transaction behind a gateway notification, map the gateway
// vocabulary to the system's status domain, and persist at most one
// effective transition per delivered terminal status.
package recon

import (
	"context"
	"time"

	"github.com/celeparty/ticketops/internal/domain"
	"github.com/celeparty/ticketops/internal/notify"
)

// RecordStore is the slice of the CMS adapter the pipeline needs.
type RecordStore interface {
	FindTicketTransaction(ctx context.Context, orderID string) (*domain.Transaction, error)
	FindGenericTransaction(ctx context.Context, orderID string) (*domain.Transaction, error)
	UpdateTransactionStatus(ctx context.Context, txn *domain.Transaction, status domain.PaymentStatus) error
}

// Locker serializes reconciliation per order id. Acquire returns an
// owner token ("" when the lock is held elsewhere) that Release checks
// before deleting, so an expired holder cannot free a later acquirer's
// lock.
type Locker interface {
	AcquireOrderLock(ctx context.Context, orderID string, ttl time.Duration) (string, error)
	ReleaseOrderLock(ctx context.Context, orderID, token string) error
}

// EmailPublisher enqueues the e-ticket email side effect.
type EmailPublisher interface {
	PublishTicketEmail(ctx context.Context, job notify.EmailJob) error
}

// TrailRecorder appends to the reconciliation audit trail.
type TrailRecorder interface {
	RecordWebhook(ctx context.Context, orderID string, prior, target domain.PaymentStatus, outcome string, diag string) error
}

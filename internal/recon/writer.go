package recon

import (
	"context"

	"github.com/celeparty/ticketops/internal/domain"
	"github.com/celeparty/ticketops/internal/observability"
)

// StatusWriter persists a mapped payment status onto a located
// transaction. It re-reads nothing itself: the caller hands it a record
// read moments ago under the per-order lock, and it skips the write (and
// thereby every dependent side effect) when the status already matches.
type StatusWriter struct {
	store  RecordStore
	logger observability.Logger
}

func NewStatusWriter(store RecordStore, logger observability.Logger) *StatusWriter {
	return &StatusWriter{store: store, logger: logger}
}

// Apply persists target onto txn. It returns true only when a state
// mutation actually happened; a repeated delivery of the same status is
// a no-op. A terminal status never regresses to pending: a late or
// out-of-order pending notification is dropped and logged.
func (w *StatusWriter) Apply(ctx context.Context, txn *domain.Transaction, target domain.PaymentStatus) (bool, error) {
	if txn.PaymentStatus == target {
		return false, nil
	}
	if txn.PaymentStatus.Terminal() && target == domain.StatusPending {
		w.logger.WithField("order_id", txn.OrderID).
			WithField("current", string(txn.PaymentStatus)).
			Warn("dropping stale pending notification for settled transaction")
		return false, nil
	}

	if err := w.store.UpdateTransactionStatus(ctx, txn, target); err != nil {
		return false, err
	}
	txn.PaymentStatus = target
	return true, nil
}

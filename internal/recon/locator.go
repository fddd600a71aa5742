package recon

import (
	"context"
	"errors"
	"strings"

	"github.com/celeparty/ticketops/internal/domain"
)

// Locator finds the transaction behind an order id. Purchases live in
// one of two CMS collections; the locator probes ticket transactions
// first, then generic transactions, and returns the first match.
type Locator struct {
	store RecordStore
}

func NewLocator(store RecordStore) *Locator {
	return &Locator{store: store}
}

func (l *Locator) Locate(ctx context.Context, orderID string) (*domain.Transaction, error) {
	if strings.TrimSpace(orderID) == "" {
		return nil, domain.ErrInvalidInput
	}

	txn, err := l.store.FindTicketTransaction(ctx, orderID)
	if err == nil {
		return txn, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	return l.store.FindGenericTransaction(ctx, orderID)
}

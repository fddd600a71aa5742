package recon_test

import (
	"context"
	"testing"

	"github.com/celeparty/ticketops/internal/domain"
	"github.com/celeparty/ticketops/internal/observability"
	"github.com/celeparty/ticketops/internal/recon"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocatorProbesTicketCollectionFirst(t *testing.T) {
	store := &fakeStore{
		ticket: map[string]*domain.Transaction{
			"ORDER-1": {ID: 1, Kind: domain.KindTicket, OrderID: "ORDER-1"},
		},
		generic: map[string]*domain.Transaction{
			"ORDER-1": {ID: 9, Kind: domain.KindGeneric, OrderID: "ORDER-1"},
		},
	}
	l := recon.NewLocator(store)

	txn, err := l.Locate(context.Background(), "ORDER-1")
	require.NoError(t, err)
	assert.Equal(t, domain.KindTicket, txn.Kind)
}

func TestLocatorFallsBackToGeneric(t *testing.T) {
	store := &fakeStore{
		generic: map[string]*domain.Transaction{
			"ORDER-2": {ID: 2, Kind: domain.KindGeneric, OrderID: "ORDER-2"},
		},
	}
	l := recon.NewLocator(store)

	txn, err := l.Locate(context.Background(), "ORDER-2")
	require.NoError(t, err)
	assert.Equal(t, domain.KindGeneric, txn.Kind)
}

func TestLocatorEmptyOrderID(t *testing.T) {
	l := recon.NewLocator(&fakeStore{})

	_, err := l.Locate(context.Background(), "   ")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestLocatorDoesNotMaskBackendFailure(t *testing.T) {
	store := &fakeStore{findErr: errors.Wrap(domain.ErrBackendUnavailable, "cms down")}
	l := recon.NewLocator(store)

	_, err := l.Locate(context.Background(), "ORDER-1")
	assert.ErrorIs(t, err, domain.ErrBackendUnavailable)
	assert.NotErrorIs(t, err, domain.ErrNotFound)
}

func TestWriterSkipsEqualStatus(t *testing.T) {
	store := &fakeStore{}
	w := recon.NewStatusWriter(store, observability.NewLogger())

	txn := &domain.Transaction{OrderID: "ORDER-1", PaymentStatus: domain.StatusSuccess}
	changed, err := w.Apply(context.Background(), txn, domain.StatusSuccess)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Empty(t, store.updates)
}

func TestWriterRefusesTerminalRegression(t *testing.T) {
	store := &fakeStore{}
	w := recon.NewStatusWriter(store, observability.NewLogger())

	txn := &domain.Transaction{OrderID: "ORDER-1", PaymentStatus: domain.StatusFailed}
	changed, err := w.Apply(context.Background(), txn, domain.StatusPending)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Empty(t, store.updates)
	assert.Equal(t, domain.StatusFailed, txn.PaymentStatus)
}

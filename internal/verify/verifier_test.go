package verify_test

import (
	"context"
	"testing"
	"time"

	"github.com/celeparty/ticketops/internal/domain"
	"github.com/celeparty/ticketops/internal/observability"
	"github.com/celeparty/ticketops/internal/verify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	details      map[string]*domain.TicketDetail
	ticketTxns   map[string]*domain.Transaction
	genericTxns  map[string]*domain.Transaction
	markedAt     []time.Time
	markedOrders []string
}

func (f *fakeStore) FindTicketDetail(ctx context.Context, code string) (*domain.TicketDetail, error) {
	if d, ok := f.details[code]; ok {
		cp := *d
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeStore) FindTicketTransaction(ctx context.Context, orderID string) (*domain.Transaction, error) {
	if t, ok := f.ticketTxns[orderID]; ok {
		return t, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeStore) FindGenericTransaction(ctx context.Context, orderID string) (*domain.Transaction, error) {
	if t, ok := f.genericTxns[orderID]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeStore) MarkTicketVerified(ctx context.Context, detail *domain.TicketDetail, at time.Time) error {
	f.markedAt = append(f.markedAt, at)
	orig := f.details[detail.TicketCode]
	orig.IsVerified = true
	orig.VerifiedAt = &at
	return nil
}

func (f *fakeStore) MarkTransactionVerified(ctx context.Context, txn *domain.Transaction) error {
	f.markedOrders = append(f.markedOrders, txn.OrderID)
	f.genericTxns[txn.OrderID].Verification = true
	return nil
}

func paidTicketStore() *fakeStore {
	return &fakeStore{
		details: map[string]*domain.TicketDetail{
			"TKT-001": {
				ID: 11, TicketCode: "TKT-001", OrderID: "ORDER-1",
				VendorID: "vendor-1", RecipientName: "Ana", RecipientEmail: "ana@example.com",
			},
		},
		ticketTxns: map[string]*domain.Transaction{
			"ORDER-1": {ID: 1, Kind: domain.KindTicket, OrderID: "ORDER-1", PaymentStatus: domain.StatusSuccess},
		},
	}
}

func TestVerifySucceedsOnce(t *testing.T) {
	store := paidTicketStore()
	fixed := time.Date(2025, 6, 1, 19, 30, 0, 0, time.UTC)
	v := verify.NewVerifier(store, nil, observability.NewLogger()).WithClock(func() time.Time { return fixed })

	detail, err := v.Verify(context.Background(), "TKT-001", "vendor-1")
	require.NoError(t, err)
	assert.True(t, detail.IsVerified)
	require.NotNil(t, detail.VerifiedAt)
	assert.Equal(t, fixed, *detail.VerifiedAt)

	// Second attempt is a state-machine violation, not a success.
	_, err = v.Verify(context.Background(), "TKT-001", "vendor-1")
	assert.ErrorIs(t, err, domain.ErrConflict)
	require.Len(t, store.markedAt, 1, "verified_at must be written exactly once")
	assert.Equal(t, fixed, *store.details["TKT-001"].VerifiedAt)
}

func TestVerifyRejectsUnpaid(t *testing.T) {
	store := paidTicketStore()
	store.ticketTxns["ORDER-1"].PaymentStatus = domain.StatusPending
	v := verify.NewVerifier(store, nil, observability.NewLogger())

	_, err := v.Verify(context.Background(), "TKT-001", "vendor-1")
	assert.ErrorIs(t, err, domain.ErrPreconditionFailed)
	assert.False(t, store.details["TKT-001"].IsVerified)
	assert.Empty(t, store.markedAt)
}

func TestVerifyRejectsWrongVendor(t *testing.T) {
	v := verify.NewVerifier(paidTicketStore(), nil, observability.NewLogger())

	_, err := v.Verify(context.Background(), "TKT-001", "vendor-2")
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestVerifyUnknownCode(t *testing.T) {
	v := verify.NewVerifier(paidTicketStore(), nil, observability.NewLogger())

	_, err := v.Verify(context.Background(), "TKT-404", "vendor-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestVerifyInputValidation(t *testing.T) {
	v := verify.NewVerifier(paidTicketStore(), nil, observability.NewLogger())

	_, err := v.Verify(context.Background(), "", "vendor-1")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = v.Verify(context.Background(), "TKT-001", "")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestVerifyGenericQRFlow(t *testing.T) {
	store := &fakeStore{
		genericTxns: map[string]*domain.Transaction{
			"ORDER-7": {
				ID: 7, Kind: domain.KindGeneric, OrderID: "ORDER-7",
				PaymentStatus: domain.StatusSuccess, VendorID: "vendor-1",
			},
		},
	}
	v := verify.NewVerifier(store, nil, observability.NewLogger())

	detail, err := v.Verify(context.Background(), "ORDER-7", "vendor-1")
	require.NoError(t, err)
	assert.True(t, detail.IsVerified)
	assert.Equal(t, []string{"ORDER-7"}, store.markedOrders)

	_, err = v.Verify(context.Background(), "ORDER-7", "vendor-1")
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.Len(t, store.markedOrders, 1)
}

package cms_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/celeparty/ticketops/internal/adapters/cms"
	"github.com/celeparty/ticketops/internal/domain"
	"github.com/celeparty/ticketops/internal/observability"
)

func newClient(t *testing.T, handler http.Handler) *cms.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return cms.NewClient(srv.URL, "test-token", 5*time.Second, observability.NewLogger())
}

func TestFindTicketTransaction(t *testing.T) {
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/ticket-transactions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("filters[order_id][$eq]"); got != "ORDER-1" {
			t.Errorf("unexpected filter value %q", got)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("unexpected auth header %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[{"id":7,"attributes":{
			"order_id":"ORDER-1","payment_status":"pending","event_type":"ticket",
			"ticket_details":{"data":[{"id":11,"attributes":{
				"ticket_code":"TKT-001","is_verified":false,
				"recipient_name":"Ana","recipient_email":"ana@example.com","vendor_id":"v-9"}}]}
		}}]}`))
	}))

	txn, err := client.FindTicketTransaction(context.Background(), "ORDER-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if txn.ID != 7 || txn.Kind != domain.KindTicket || txn.PaymentStatus != domain.StatusPending {
		t.Fatalf("unexpected transaction %+v", txn)
	}
	if len(txn.Tickets) != 1 || txn.Tickets[0].TicketCode != "TKT-001" || txn.Tickets[0].OrderID != "ORDER-1" {
		t.Fatalf("unexpected ticket details %+v", txn.Tickets)
	}
}

func TestFindTicketTransactionLargeEnvelope(t *testing.T) {
	const tickets = 40

	var details strings.Builder
	for i := 0; i < tickets; i++ {
		if i > 0 {
			details.WriteString(",")
		}
		fmt.Fprintf(&details, `{"id":%d,"attributes":{
			"ticket_code":"TKT-%03d","is_verified":false,
			"recipient_name":"Recipient Number %d With A Deliberately Long Name",
			"recipient_email":"recipient.number.%d@example.com","vendor_id":"v-9"}}`,
			100+i, i, i, i)
	}
	envelope := `{"data":[{"id":7,"attributes":{
		"order_id":"ORDER-1","payment_status":"pending","event_type":"ticket",
		"ticket_details":{"data":[` + details.String() + `]}}}]}`
	if len(envelope) <= 4096 {
		t.Fatalf("envelope must exceed 4096 bytes to be meaningful, got %d", len(envelope))
	}

	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(envelope))
	}))

	txn, err := client.FindTicketTransaction(context.Background(), "ORDER-1")
	if err != nil {
		t.Fatalf("large response must parse in full, got %v", err)
	}
	if len(txn.Tickets) != tickets {
		t.Fatalf("expected %d ticket details, got %d", tickets, len(txn.Tickets))
	}
	if txn.Tickets[tickets-1].TicketCode != "TKT-039" {
		t.Fatalf("last ticket truncated: %+v", txn.Tickets[tickets-1])
	}
}

func TestFindTransactionNotFound(t *testing.T) {
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[]}`))
	}))

	_, err := client.FindGenericTransaction(context.Background(), "ORDER-404")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateTransactionStatusResendsEventType(t *testing.T) {
	var got map[string]map[string]interface{}
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/api/transactions/3" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		w.Write([]byte(`{"data":{"id":3}}`))
	}))

	txn := &domain.Transaction{ID: 3, Kind: domain.KindGeneric, OrderID: "ORDER-2", EventType: "merchandise"}
	if err := client.UpdateTransactionStatus(context.Background(), txn, domain.StatusSuccess); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got["data"]["payment_status"] != "success" {
		t.Errorf("payment_status not sent: %v", got)
	}
	if got["data"]["event_type"] != "merchandise" {
		t.Errorf("event_type must be re-sent on every update: %v", got)
	}
}

func TestUpdateRejectedIsWriteFailed(t *testing.T) {
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"event_type is required"}}`))
	}))

	txn := &domain.Transaction{ID: 3, Kind: domain.KindGeneric}
	err := client.UpdateTransactionStatus(context.Background(), txn, domain.StatusFailed)
	if !errors.Is(err, domain.ErrWriteFailed) {
		t.Fatalf("expected ErrWriteFailed, got %v", err)
	}
	// The CMS diagnostic must survive wrapping for manual reconciliation.
	if msg := err.Error(); !strings.Contains(msg, "event_type is required") {
		t.Errorf("diagnostic payload missing from error: %s", msg)
	}
}

func TestServerErrorIsBackendUnavailable(t *testing.T) {
	hits := 0
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusBadGateway)
	}))

	_, err := client.FindTicketTransaction(context.Background(), "ORDER-1")
	if !errors.Is(err, domain.ErrBackendUnavailable) {
		t.Fatalf("expected ErrBackendUnavailable, got %v", err)
	}
	if hits < 2 {
		t.Errorf("expected retries on 5xx, got %d attempts", hits)
	}
}

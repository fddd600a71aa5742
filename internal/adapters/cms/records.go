package cms

import (
	"context"
	"encoding/json"
	"time"

	"github.com/celeparty/ticketops/internal/domain"
	"github.com/cockroachdb/errors"
)

const (
	collTicketTransactions = "ticket-transactions"
	collTransactions       = "transactions"
	collTicketDetails      = "ticket-details"
)

type transactionAttrs struct {
	OrderID       string             `json:"order_id"`
	PaymentStatus string             `json:"payment_status"`
	EventType     string             `json:"event_type"`
	VendorID      string             `json:"vendor_id"`
	Verification  bool               `json:"verification"`
	TicketDetails *ticketDetailsList `json:"ticket_details,omitempty"`
}

type ticketDetailsList struct {
	Data []entry `json:"data"`
}

type ticketDetailAttrs struct {
	TicketCode     string     `json:"ticket_code"`
	IsVerified     bool       `json:"is_verified"`
	VerifiedAt     *time.Time `json:"verified_at"`
	RecipientName  string     `json:"recipient_name"`
	RecipientEmail string     `json:"recipient_email"`
	VendorID       string     `json:"vendor_id"`
	OrderID        string     `json:"order_id"`
}

// FindTicketTransaction looks up a ticket-purchase transaction by its
// order id, with its issued ticket details populated.
func (c *Client) FindTicketTransaction(ctx context.Context, orderID string) (*domain.Transaction, error) {
	return c.findTransaction(ctx, collTicketTransactions, domain.KindTicket, orderID)
}

// FindGenericTransaction looks up a merchandise/service transaction by
// its order id.
func (c *Client) FindGenericTransaction(ctx context.Context, orderID string) (*domain.Transaction, error) {
	return c.findTransaction(ctx, collTransactions, domain.KindGeneric, orderID)
}

func (c *Client) findTransaction(ctx context.Context, collection string, kind domain.TransactionKind, orderID string) (*domain.Transaction, error) {
	populate := ""
	if kind == domain.KindTicket {
		populate = "ticket_details"
	}
	entries, err := c.find(ctx, collection, "order_id", orderID, populate)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, domain.ErrNotFound
	}

	var attrs transactionAttrs
	if err := json.Unmarshal(entries[0].Attributes, &attrs); err != nil {
		return nil, errors.Wrapf(domain.ErrBackendUnavailable, "decode %s attributes", collection)
	}

	txn := &domain.Transaction{
		ID:            entries[0].ID,
		Kind:          kind,
		OrderID:       attrs.OrderID,
		PaymentStatus: domain.PaymentStatus(attrs.PaymentStatus),
		EventType:     attrs.EventType,
		VendorID:      attrs.VendorID,
		Verification:  attrs.Verification,
	}
	if attrs.TicketDetails != nil {
		for _, e := range attrs.TicketDetails.Data {
			var da ticketDetailAttrs
			if err := json.Unmarshal(e.Attributes, &da); err != nil {
				return nil, errors.Wrap(domain.ErrBackendUnavailable, "decode ticket detail attributes")
			}
			txn.Tickets = append(txn.Tickets, toDetail(e.ID, da, attrs.OrderID))
		}
	}
	return txn, nil
}

// FindTicketDetail looks up one issued ticket by its code.
func (c *Client) FindTicketDetail(ctx context.Context, ticketCode string) (*domain.TicketDetail, error) {
	entries, err := c.find(ctx, collTicketDetails, "ticket_code", ticketCode, "")
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, domain.ErrNotFound
	}

	var attrs ticketDetailAttrs
	if err := json.Unmarshal(entries[0].Attributes, &attrs); err != nil {
		return nil, errors.Wrap(domain.ErrBackendUnavailable, "decode ticket detail attributes")
	}
	detail := toDetail(entries[0].ID, attrs, attrs.OrderID)
	return &detail, nil
}

// UpdateTransactionStatus persists a new payment status. The CMS rejects
// partial updates that omit the type-discriminator field, so event_type
// is always re-sent alongside the status.
func (c *Client) UpdateTransactionStatus(ctx context.Context, txn *domain.Transaction, status domain.PaymentStatus) error {
	return c.update(ctx, collectionFor(txn.Kind), txn.ID, map[string]interface{}{
		"payment_status": string(status),
		"event_type":     txn.EventType,
	})
}

// MarkTicketVerified flips a ticket detail to verified, stamping
// verified_at in the same update.
func (c *Client) MarkTicketVerified(ctx context.Context, detail *domain.TicketDetail, at time.Time) error {
	return c.update(ctx, collTicketDetails, detail.ID, map[string]interface{}{
		"is_verified": true,
		"verified_at": at.UTC().Format(time.RFC3339),
	})
}

// MarkTransactionVerified flips a generic (QR-flow) transaction to
// verified. event_type rides along for the same reason as in
// UpdateTransactionStatus.
func (c *Client) MarkTransactionVerified(ctx context.Context, txn *domain.Transaction) error {
	return c.update(ctx, collectionFor(txn.Kind), txn.ID, map[string]interface{}{
		"verification": true,
		"event_type":   txn.EventType,
	})
}

func collectionFor(kind domain.TransactionKind) string {
	if kind == domain.KindTicket {
		return collTicketTransactions
	}
	return collTransactions
}

func toDetail(id int, attrs ticketDetailAttrs, orderID string) domain.TicketDetail {
	if attrs.OrderID != "" {
		orderID = attrs.OrderID
	}
	return domain.TicketDetail{
		ID:             id,
		TicketCode:     attrs.TicketCode,
		IsVerified:     attrs.IsVerified,
		VerifiedAt:     attrs.VerifiedAt,
		RecipientName:  attrs.RecipientName,
		RecipientEmail: attrs.RecipientEmail,
		VendorID:       attrs.VendorID,
		OrderID:        orderID,
	}
}

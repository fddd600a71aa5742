package domain

import "time"

// PaymentStatus is the system's own three-valued status domain. Gateway
// vocabularies are translated into it by the status mapper and never
// stored raw.
type PaymentStatus string

const (
	StatusPending PaymentStatus = "pending"
	StatusSuccess PaymentStatus = "success"
	StatusFailed  PaymentStatus = "failed"
)

// Terminal reports whether s is an end state. Once a transaction reaches
// a terminal status it must not silently regress to pending.
func (s PaymentStatus) Terminal() bool {
	return s == StatusSuccess || s == StatusFailed
}

// TransactionKind discriminates the two record shapes the CMS keeps for
// purchases. The locator probes the collections in this order.
type TransactionKind string

const (
	KindTicket  TransactionKind = "ticket-transaction"
	KindGeneric TransactionKind = "transaction"
)

// Transaction is a persisted purchase attempt, keyed by OrderID.
// Depending on Kind it either owns TicketDetail records (ticket
// purchases) or is itself the unit of verification (simple QR flows,
// tracked by the Verification flag).
type Transaction struct {
	ID            int
	Kind          TransactionKind
	OrderID       string
	PaymentStatus PaymentStatus
	EventType     string
	VendorID      string
	Verification  bool
	Tickets       []TicketDetail
}

// TicketDetail is one issued ticket entitlement, keyed by TicketCode.
// Created at issuance after successful payment, mutated only by the
// verifier, never deleted by this subsystem.
type TicketDetail struct {
	ID             int
	TicketCode     string
	IsVerified     bool
	VerifiedAt     *time.Time
	RecipientName  string
	RecipientEmail string
	VendorID       string
	OrderID        string
}

package gateway

import "github.com/celeparty/ticketops/internal/domain"

// Gateway transaction statuses.
const (
	txnCapture    = "capture"
	txnSettlement = "settlement"
	txnPending    = "pending"
	txnDeny       = "deny"
	txnExpire     = "expire"
	txnCancel     = "cancel"
)

// Gateway fraud statuses.
const (
	fraudAccept    = "accept"
	fraudChallenge = "challenge"
	fraudDeny      = "deny"
)

// MapStatus translates a gateway (transaction_status, fraud_status) pair
// into the system's status domain. The mapping is total: an unrecognized
// transaction status maps to pending so an unknown gateway state can
// never be mistaken for a completed payment. The fraud signal overrides
// the raw completion status: challenge holds the transaction at pending,
// deny fails it even when the gateway reports settlement.
func MapStatus(transactionStatus, fraudStatus string) domain.PaymentStatus {
	switch fraudStatus {
	case fraudChallenge:
		return domain.StatusPending
	case fraudDeny:
		return domain.StatusFailed
	}

	switch transactionStatus {
	case txnCapture, txnSettlement:
		return domain.StatusSuccess
	case txnDeny, txnExpire, txnCancel:
		return domain.StatusFailed
	case txnPending:
		return domain.StatusPending
	default:
		return domain.StatusPending
	}
}

// Package gateway holds the payment gateway's webhook vocabulary and the
// translation of it into the system's own status domain.
package gateway

import (
	"strings"

	"github.com/celeparty/ticketops/internal/domain"
)

// Notification is the body of an asynchronous server-to-server webhook
// delivered by the payment gateway when a transaction changes state.
type Notification struct {
	OrderID           string `json:"order_id"`
	TransactionStatus string `json:"transaction_status"`
	FraudStatus       string `json:"fraud_status"`
	StatusCode        string `json:"status_code"`
	GrossAmount       string `json:"gross_amount"`
	SignatureKey      string `json:"signature_key"`
	PaymentType       string `json:"payment_type"`
	TransactionTime   string `json:"transaction_time"`
}

// Validate checks the fields the pipeline cannot proceed without.
func (n Notification) Validate() error {
	if strings.TrimSpace(n.OrderID) == "" {
		return domain.ErrInvalidInput
	}
	if strings.TrimSpace(n.TransactionStatus) == "" {
		return domain.ErrInvalidInput
	}
	return nil
}

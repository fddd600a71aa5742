// Package notify carries the e-ticket email side effect: job payloads
// published on a successful payment transition, and the SMTP dispatch
// that consumes them. Email is best effort and never transactional with
// the status write.
package notify

// RoutingKeyTicketEmail is the topic under which e-ticket email jobs are
// published.
const RoutingKeyTicketEmail = "eticket.email"

// EmailJob is one e-ticket email to one recipient. A redelivered queue
// message carries the same OrderID, which the consumer uses to collapse
// duplicates.
type EmailJob struct {
	OrderID        string   `json:"order_id"`
	RecipientName  string   `json:"recipient_name"`
	RecipientEmail string   `json:"recipient_email"`
	TicketCodes    []string `json:"ticket_codes"`
	EventType      string   `json:"event_type"`
}

package notify

import (
	"context"
	"encoding/json"

	"github.com/celeparty/ticketops/internal/adapters/rabbit"
	amqp "github.com/rabbitmq/amqp091-go"
)

type Publisher struct {
	pub *rabbit.Publisher
}

func NewPublisher(pub *rabbit.Publisher) *Publisher {
	return &Publisher{pub: pub}
}

// PublishTicketEmail enqueues one e-ticket email job. The MessageId is
// derived from the order so a broker redelivery is recognizable
// downstream.
func (p *Publisher) PublishTicketEmail(ctx context.Context, job EmailJob) error {
	body, err := json.Marshal(job)
	if err != nil {
		return err
	}
	msg := amqp.Publishing{
		MessageId:   "eticket:" + job.OrderID + ":" + job.RecipientEmail,
		ContentType: "application/json",
		Body:        body,
	}
	return p.pub.Publish(ctx, RoutingKeyTicketEmail, msg)
}

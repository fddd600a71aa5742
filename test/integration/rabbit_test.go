package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/celeparty/ticketops/internal/adapters/rabbit"
	"github.com/celeparty/ticketops/internal/notify"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startRabbit(t *testing.T) *amqp.Connection {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container-backed test in short mode")
	}
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "rabbitmq:3-alpine",
			ExposedPorts: []string{"5672/tcp"},
			WaitingFor:   wait.ForListeningPort("5672/tcp"),
		},
		Started: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { container.Terminate(ctx) })

	endpoint, err := container.Endpoint(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	conn, err := amqp.Dial(fmt.Sprintf("amqp://guest:guest@%s/", endpoint))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestConsumerStartsBeforePublisher(t *testing.T) {
	conn := startRabbit(t)
	ctx := context.Background()

	// On a fresh broker nothing has declared the exchange yet; the
	// consumer must be able to set up its own binding anyway.
	consumer, err := rabbit.NewConsumer(conn, "eticket.email.q", notify.RoutingKeyTicketEmail)
	if err != nil {
		t.Fatalf("consumer setup on a fresh broker: %v", err)
	}
	deliveries, err := consumer.Consume(ctx)
	if err != nil {
		t.Fatalf("consume: %v", err)
	}

	pub, err := rabbit.NewPublisher(conn)
	if err != nil {
		t.Fatalf("publisher setup: %v", err)
	}
	emails := notify.NewPublisher(pub)
	job := notify.EmailJob{
		OrderID:        "ORDER-1",
		RecipientEmail: "ana@example.com",
		TicketCodes:    []string{"TKT-001"},
	}
	if err := emails.PublishTicketEmail(ctx, job); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case d := <-deliveries:
		var got notify.EmailJob
		if err := json.Unmarshal(d.Body, &got); err != nil {
			t.Fatalf("unmarshal delivery: %v", err)
		}
		if got.OrderID != job.OrderID || got.RecipientEmail != job.RecipientEmail {
			t.Fatalf("unexpected job %+v", got)
		}
		if d.MessageId != "eticket:ORDER-1:ana@example.com" {
			t.Fatalf("unexpected message id %q", d.MessageId)
		}
		d.Ack(false)
	case <-time.After(10 * time.Second):
		t.Fatal("job not delivered to the queue bound before the publisher existed")
	}
}

package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/celeparty/ticketops/internal/adapters/rabbit"
	redisadapter "github.com/celeparty/ticketops/internal/adapters/redis"
	"github.com/celeparty/ticketops/internal/config"
	"github.com/celeparty/ticketops/internal/notify"
	"github.com/celeparty/ticketops/internal/observability"
	amqp "github.com/rabbitmq/amqp091-go"
	redisclient "github.com/redis/go-redis/v9"
)

const emailDedupeTTL = 72 * time.Hour

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	shutdownOtel, err := observability.SetupOTel(context.Background(), cfg)
	if err != nil {
		log.Fatalf("failed to setup otel: %v", err)
	}
	defer shutdownOtel()

	logger := observability.NewLogger()

	redisClient := redisclient.NewClient(&redisclient.Options{Addr: cfg.RedisAddr})
	locks := redisadapter.NewLocks(redisClient)

	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("failed to connect to rabbitmq: %v", err)
	}
	defer conn.Close()
	consumer, err := rabbit.NewConsumer(conn, "eticket.email.q", notify.RoutingKeyTicketEmail)
	if err != nil {
		log.Fatalf("failed to create consumer: %v", err)
	}

	mailer, err := notify.NewMailer(cfg)
	if err != nil {
		log.Fatalf("failed to create mailer: %v", err)
	}

	worker := NewEmailWorker(consumer, mailer, locks, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go worker.Run(ctx)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("Shutdown notifier")
}

type sender interface {
	Send(ctx context.Context, job notify.EmailJob) error
}

type emailClaims interface {
	EmailAlreadySent(ctx context.Context, key string) (bool, error)
	MarkEmailSent(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

type EmailWorker struct {
	consumer  *rabbit.Consumer
	mailer    sender
	claims    emailClaims
	logger    observability.Logger
	retryBase time.Duration
}

func NewEmailWorker(consumer *rabbit.Consumer, mailer sender, claims emailClaims, logger observability.Logger) *EmailWorker {
	return &EmailWorker{
		consumer:  consumer,
		mailer:    mailer,
		claims:    claims,
		logger:    logger,
		retryBase: time.Second,
	}
}

func (w *EmailWorker) Run(ctx context.Context) {
	deliveries, err := w.consumer.Consume(ctx)
	if err != nil {
		w.logger.WithError(err).Error("failed to start consuming")
		return
	}
	w.logger.Info("email worker started")

	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-deliveries:
			if !ok {
				return
			}
			w.handle(ctx, d)
		}
	}
}

func (w *EmailWorker) handle(ctx context.Context, d amqp.Delivery) {
	var job notify.EmailJob
	if err := json.Unmarshal(d.Body, &job); err != nil {
		w.logger.WithError(err).Error("malformed email job, dropping")
		d.Nack(false, false)
		return
	}

	entry := w.logger.WithField("order_id", job.OrderID).WithField("recipient", job.RecipientEmail)
	key := job.OrderID + ":" + job.RecipientEmail

	// A broker redelivery carries the same deterministic MessageId; the
	// dedupe key collapses it into the one email already sent.
	sent, err := w.claims.EmailAlreadySent(ctx, key)
	if err != nil {
		entry.WithError(err).Warn("dedupe check failed, requeueing")
		d.Nack(false, true)
		return
	}
	if sent {
		entry.Info("email already sent, dropping redelivery")
		observability.EmailJobsTotal.WithLabelValues("deduped").Inc()
		d.Ack(false)
		return
	}

	if err := w.sendWithRetry(ctx, job); err != nil {
		entry.WithError(err).Error("failed to send e-ticket email")
		observability.EmailJobsTotal.WithLabelValues("send_failed").Inc()
		d.Nack(false, true)
		return
	}

	// The claim is stamped only after the send went out, so a crash
	// mid-send leaves nothing that would swallow the requeued delivery.
	// The cost is a possible duplicate email in that crash window,
	// which is the right trade for a best-effort notification.
	if _, err := w.claims.MarkEmailSent(ctx, key, emailDedupeTTL); err != nil {
		entry.WithError(err).Warn("failed to record email claim")
	}

	observability.EmailJobsTotal.WithLabelValues("sent").Inc()
	entry.Info("e-ticket email sent")
	d.Ack(false)
}

func (w *EmailWorker) sendWithRetry(ctx context.Context, job notify.EmailJob) error {
	var lastErr error
	for i := 0; i < 3; i++ {
		if lastErr = w.mailer.Send(ctx, job); lastErr == nil {
			return nil
		}
		if i == 2 {
			break
		}
		backoff := time.Duration(1<<i) * w.retryBase
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return lastErr
}

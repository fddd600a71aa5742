package recon

import (
	"context"
	"time"

	"github.com/celeparty/ticketops/internal/domain"
	"github.com/celeparty/ticketops/internal/gateway"
	"github.com/celeparty/ticketops/internal/notify"
	"github.com/celeparty/ticketops/internal/observability"
	"github.com/cockroachdb/errors"
)

// Outcome of processing one webhook delivery.
type Outcome string

const (
	OutcomeApplied        Outcome = "applied"
	OutcomeAlreadyApplied Outcome = "already_applied"
)

type Result struct {
	Outcome Outcome
	Prior   domain.PaymentStatus
	Target  domain.PaymentStatus
}

// Reconciler drives one gateway notification through the pipeline:
// signature check, status mapping, locate, per-order serialized
// idempotent write, then the fire-and-forget email and audit effects.
type Reconciler struct {
	verifier *gateway.SignatureVerifier
	locator  *Locator
	writer   *StatusWriter
	locks    Locker
	lockTTL  time.Duration
	emails   EmailPublisher
	trail    TrailRecorder
	logger   observability.Logger
}

func NewReconciler(
	verifier *gateway.SignatureVerifier,
	locator *Locator,
	writer *StatusWriter,
	locks Locker,
	lockTTL time.Duration,
	emails EmailPublisher,
	trail TrailRecorder,
	logger observability.Logger,
) *Reconciler {
	return &Reconciler{
		verifier: verifier,
		locator:  locator,
		writer:   writer,
		locks:    locks,
		lockTTL:  lockTTL,
		emails:   emails,
		trail:    trail,
		logger:   logger,
	}
}

// Process handles one webhook delivery. Concurrent deliveries for the
// same order are serialized on a redis mutex; a busy lock surfaces as a
// retryable error so the gateway redelivers once the holder is done.
func (r *Reconciler) Process(ctx context.Context, n gateway.Notification) (*Result, error) {
	if err := r.verifier.Verify(n); err != nil {
		return nil, err
	}
	if err := n.Validate(); err != nil {
		return nil, err
	}

	target := gateway.MapStatus(n.TransactionStatus, n.FraudStatus)

	token, err := r.locks.AcquireOrderLock(ctx, n.OrderID, r.lockTTL)
	if err != nil {
		return nil, errors.Wrap(domain.ErrBackendUnavailable, "acquire order lock")
	}
	if token == "" {
		return nil, errors.Wrapf(domain.ErrBackendUnavailable, "order %s is being reconciled", n.OrderID)
	}
	defer func() {
		if err := r.locks.ReleaseOrderLock(context.WithoutCancel(ctx), n.OrderID, token); err != nil {
			r.logger.WithError(err).WithField("order_id", n.OrderID).Warn("failed to release order lock")
		}
	}()

	txn, err := r.locator.Locate(ctx, n.OrderID)
	if err != nil {
		return nil, err
	}
	prior := txn.PaymentStatus

	changed, err := r.writer.Apply(ctx, txn, target)
	if err != nil {
		r.audit(ctx, n.OrderID, prior, target, observability.OutcomeFailed, err.Error())
		return nil, err
	}

	res := &Result{Outcome: OutcomeAlreadyApplied, Prior: prior, Target: target}
	if changed {
		res.Outcome = OutcomeApplied
		if target == domain.StatusSuccess && prior == domain.StatusPending {
			r.dispatchEmails(ctx, txn)
		}
	}

	r.audit(ctx, n.OrderID, prior, target, string(res.Outcome), "")
	return res, nil
}

// dispatchEmails publishes one e-ticket job per recipient. Publishing is
// best effort: a broker outage must not fail the status write that
// already happened.
func (r *Reconciler) dispatchEmails(ctx context.Context, txn *domain.Transaction) {
	if txn.Kind != domain.KindTicket || len(txn.Tickets) == 0 {
		return
	}

	byRecipient := map[string]*notify.EmailJob{}
	order := []string{}
	for _, t := range txn.Tickets {
		job, seen := byRecipient[t.RecipientEmail]
		if !seen {
			job = &notify.EmailJob{
				OrderID:        txn.OrderID,
				RecipientName:  t.RecipientName,
				RecipientEmail: t.RecipientEmail,
				EventType:      txn.EventType,
			}
			byRecipient[t.RecipientEmail] = job
			order = append(order, t.RecipientEmail)
		}
		job.TicketCodes = append(job.TicketCodes, t.TicketCode)
	}

	for _, email := range order {
		job := byRecipient[email]
		if err := r.emails.PublishTicketEmail(ctx, *job); err != nil {
			r.logger.WithError(err).
				WithField("order_id", txn.OrderID).
				WithField("recipient", email).
				Error("failed to publish e-ticket email job")
			observability.EmailJobsTotal.WithLabelValues("publish_failed").Inc()
			continue
		}
		observability.EmailJobsTotal.WithLabelValues("published").Inc()
	}
}

func (r *Reconciler) audit(ctx context.Context, orderID string, prior, target domain.PaymentStatus, outcome, diag string) {
	if r.trail == nil {
		return
	}
	if err := r.trail.RecordWebhook(ctx, orderID, prior, target, outcome, diag); err != nil {
		r.logger.WithError(err).WithField("order_id", orderID).Warn("failed to record reconciliation trail")
	}
}

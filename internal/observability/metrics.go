package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WebhooksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketops_webhooks_total",
			Help: "Payment webhook deliveries by outcome",
		},
		[]string{"outcome"},
	)

	VerificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketops_verifications_total",
			Help: "Ticket verification attempts by result",
		},
		[]string{"result"},
	)

	CMSRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ticketops_cms_request_seconds",
			Help:    "Duration of record store requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	EmailJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketops_email_jobs_total",
			Help: "E-ticket email jobs by stage",
		},
		[]string{"stage"},
	)

	RateLimitExceeded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ticketops_rate_limit_exceeded_total",
			Help: "Total rate limit exceeded",
		},
	)
)

// Webhook outcome label values.
const (
	OutcomeApplied        = "applied"
	OutcomeAlreadyApplied = "already_applied"
	OutcomeRejected       = "rejected"
	OutcomeFailed         = "failed"
)

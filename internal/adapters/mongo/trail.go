package mongo

import (
	"context"
	"time"

	"github.com/celeparty/ticketops/internal/domain"
	"github.com/celeparty/ticketops/internal/observability"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Trail is the append-only reconciliation record. The payment gateway
// surfaces none of its delivery logs to the merchant, so every webhook
// and verification outcome is written here with enough context for
// manual reconciliation.
type Trail struct {
	coll   *mongo.Collection
	logger observability.Logger
}

func NewTrail(db *mongo.Database, logger observability.Logger) *Trail {
	return &Trail{
		coll:   db.Collection("reconciliation_trail"),
		logger: logger,
	}
}

type TrailEntry struct {
	ID        uuid.UUID `bson:"_id"`
	Action    string    `bson:"action"`
	OrderID   string    `bson:"order_id"`
	Timestamp time.Time `bson:"timestamp"`
	Data      bson.M    `bson:"data"`
}

func (t *Trail) record(ctx context.Context, action, orderID string, data map[string]interface{}) error {
	entry := TrailEntry{
		ID:        uuid.New(),
		Action:    action,
		OrderID:   orderID,
		Timestamp: time.Now().UTC(),
		Data:      bson.M(data),
	}
	_, err := t.coll.InsertOne(ctx, entry)
	if err != nil {
		t.logger.WithError(err).Error("failed to insert reconciliation trail entry")
		return err
	}
	return nil
}

// RecordWebhook logs one gateway delivery and what it did.
func (t *Trail) RecordWebhook(ctx context.Context, orderID string, prior, target domain.PaymentStatus, outcome string, diag string) error {
	data := map[string]interface{}{
		"prior_status":  string(prior),
		"target_status": string(target),
		"outcome":       outcome,
	}
	if diag != "" {
		data["diagnostic"] = diag
	}
	return t.record(ctx, "webhook.processed", orderID, data)
}

// RecordVerification logs one ticket verification attempt.
func (t *Trail) RecordVerification(ctx context.Context, orderID, ticketCode, vendorID, result string) error {
	return t.record(ctx, "ticket.verification", orderID, map[string]interface{}{
		"ticket_code": ticketCode,
		"vendor_id":   vendorID,
		"result":      result,
	})
}

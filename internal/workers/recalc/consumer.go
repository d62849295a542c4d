package recalc

import (
	"context"
	"encoding/json"
	"errors"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/orderlift/orderlift-backend/internal/pricing"
	"github.com/orderlift/orderlift-backend/pkg/enums"
	pkgerrors "github.com/orderlift/orderlift-backend/pkg/errors"
	"github.com/orderlift/orderlift-backend/pkg/logger"
	olpubsub "github.com/orderlift/orderlift-backend/pkg/pubsub"
)

// Consumer recomputes pricing sheets asynchronously. The worker re-fetches
// the sheet and recomputes from scratch; concurrent edits during an in-flight
// recompute race with last write wins, a documented limitation of the
// fire-and-forget model.
type Consumer struct {
	pricing      pricing.Service
	subscription *pubsub.Subscriber
	logg         *logger.Logger
}

// NewConsumer constructs a consumer that watches the recalc subscription.
func NewConsumer(pricingService pricing.Service, subscription *pubsub.Subscriber, logg *logger.Logger) (*Consumer, error) {
	if pricingService == nil {
		return nil, errors.New("pricing service is required")
	}
	if subscription == nil {
		return nil, errors.New("recalc subscription is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &Consumer{
		pricing:      pricingService,
		subscription: subscription,
		logg:         logg,
	}, nil
}

// Run processes messages until the context is canceled or the subscription
// errors.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if c.process(ctx, msg) {
			msg.Ack()
			return
		}
		msg.Nack()
	})
}

// process reports whether the message should be acked. Malformed messages
// are acked to keep the subscription from redelivering garbage forever;
// transient recompute failures are nacked for redelivery.
func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) bool {
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": msg.Attributes["event_type"],
	})

	if msg.Attributes["event_type"] != string(enums.EventSheetRecalcRequested) {
		c.logg.Info(logCtx, "skipping event not handled by recalc consumer")
		return true
	}

	var event olpubsub.DomainEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		c.logg.Error(logCtx, "failed to decode event envelope", err)
		return true
	}
	var payload olpubsub.SheetRecalcPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		c.logg.Error(logCtx, "failed to decode recalc payload", err)
		return true
	}
	sheetID, err := uuid.Parse(payload.SheetID)
	if err != nil {
		c.logg.Error(logCtx, "recalc payload carries an invalid sheet id", err)
		return true
	}
	if payload.Actor != "" {
		logCtx = c.logg.WithActor(logCtx, payload.Actor)
	}

	if _, err := c.pricing.Recalculate(logCtx, sheetID); err != nil {
		if appErr := pkgerrors.As(err); appErr != nil {
			switch appErr.Code() {
			case pkgerrors.CodeNotFound:
				// The sheet was deleted after the trigger; nothing to retry.
				c.logg.Warn(logCtx, "sheet vanished before recompute")
				return true
			case pkgerrors.CodeValidation, pkgerrors.CodeConfiguration, pkgerrors.CodeStrictBlocked:
				// Deterministic failures will not heal on redelivery.
				c.logg.Error(logCtx, "recompute failed permanently", err)
				return true
			}
		}
		c.logg.Error(logCtx, "recompute failed, message will be redelivered", err)
		return false
	}
	c.logg.Info(logCtx, "sheet recomputed in background")
	return true
}

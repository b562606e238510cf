package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/lumeplay/lumeplay-backend/pkg/enums"
	"github.com/lumeplay/lumeplay-backend/pkg/logger"
	"github.com/lumeplay/lumeplay-backend/pkg/outbox"
	"github.com/lumeplay/lumeplay-backend/pkg/outbox/idempotency"
	"github.com/lumeplay/lumeplay-backend/pkg/outbox/payloads"
)

const settlementConsumer = "settlement-notifications"

// Consumer fans settlement events out to the fire-and-forget side effects:
// buyer access email, gamification points, producer payout notification.
// Side-effect failures are logged and acked; they never block the stream.
type Consumer struct {
	subscription *pubsub.Subscriber
	idempotency  *idempotency.Manager
	mailer       Mailer
	gamification Gamification
	payouts      PayoutNotifier
	logg         *logger.Logger
}

// NewConsumer builds a settlement notification consumer.
func NewConsumer(subscription *pubsub.Subscriber, manager *idempotency.Manager, mailer Mailer, gamification Gamification, payouts PayoutNotifier, logg *logger.Logger) (*Consumer, error) {
	if subscription == nil {
		return nil, fmt.Errorf("events subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if mailer == nil {
		return nil, fmt.Errorf("mailer required")
	}
	if gamification == nil {
		return nil, fmt.Errorf("gamification required")
	}
	if payouts == nil {
		return nil, fmt.Errorf("payout notifier required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		subscription: subscription,
		idempotency:  manager,
		mailer:       mailer,
		gamification: gamification,
		payouts:      payouts,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := msg.Attributes["event_type"]
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	})

	parsed, err := enums.ParseOutboxEventType(eventType)
	if err != nil {
		c.logg.Info(logCtx, "skipping unrecognized event")
		return processResult{ack: true}
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, settlementConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	switch parsed {
	case enums.EventOrderCompleted:
		c.handleOrderCompleted(logCtx, envelope.Data)
	case enums.EventPayoutCompleted:
		c.handlePayoutCompleted(logCtx, envelope.Data)
	default:
		c.logg.Info(logCtx, "event type carries no side effects")
	}
	return processResult{ack: true}
}

func (c *Consumer) handleOrderCompleted(ctx context.Context, raw json.RawMessage) {
	var event payloads.OrderCompletedEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		c.logg.Error(ctx, "failed to parse order completed payload", err)
		return
	}
	logCtx := c.logg.WithOrderID(ctx, event.OrderID.String())

	if err := c.mailer.SendOrderAccess(logCtx, event); err != nil {
		c.logg.Error(logCtx, "buyer access email failed", err)
	}
	if err := c.gamification.AwardPurchase(logCtx, event.BuyerID, pointsFor(event.Amount.IntPart())); err != nil {
		c.logg.Error(logCtx, "buyer purchase points failed", err)
	}
	if event.ProducerID != nil {
		if err := c.gamification.AwardSale(logCtx, *event.ProducerID, pointsFor(event.ProducerAmount.IntPart())); err != nil {
			c.logg.Error(logCtx, "producer sale points failed", err)
		}
	}
}

func (c *Consumer) handlePayoutCompleted(ctx context.Context, raw json.RawMessage) {
	var event payloads.PayoutCompletedEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		c.logg.Error(ctx, "failed to parse payout completed payload", err)
		return
	}
	if err := c.payouts.NotifyPayout(ctx, event); err != nil {
		c.logg.Error(ctx, "producer payout notification failed", err)
	}
}

// pointsFor awards one point per whole currency unit, floor one.
func pointsFor(units int64) int64 {
	if units < 1 {
		return 1
	}
	return units
}

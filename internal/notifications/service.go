package notifications

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lumeplay/lumeplay-backend/pkg/logger"
	"github.com/lumeplay/lumeplay-backend/pkg/outbox/payloads"
)

// Mailer delivers the buyer's access email after a completed order.
type Mailer interface {
	SendOrderAccess(ctx context.Context, event payloads.OrderCompletedEvent) error
}

// Gamification awards points for marketplace activity.
type Gamification interface {
	AwardPurchase(ctx context.Context, buyerID uuid.UUID, points int64) error
	AwardSale(ctx context.Context, producerID uuid.UUID, points int64) error
}

// PayoutNotifier tells a producer their payout settled.
type PayoutNotifier interface {
	NotifyPayout(ctx context.Context, event payloads.PayoutCompletedEvent) error
}

type logMailer struct {
	logg *logger.Logger
}

// NewLogMailer returns a mailer that records sends in the log stream. The
// real delivery channel hangs off the same interface.
func NewLogMailer(logg *logger.Logger) (Mailer, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &logMailer{logg: logg}, nil
}

func (m *logMailer) SendOrderAccess(ctx context.Context, event payloads.OrderCompletedEvent) error {
	logCtx := m.logg.WithFields(ctx, map[string]any{
		"order_id": event.OrderID.String(),
		"buyer_id": event.BuyerID.String(),
	})
	m.logg.Info(logCtx, "buyer access email queued")
	return nil
}

type pointsAwarder struct {
	db *gorm.DB
}

// NewPointsAwarder persists gamification points directly on the user row.
func NewPointsAwarder(db *gorm.DB) (Gamification, error) {
	if db == nil {
		return nil, fmt.Errorf("db required")
	}
	return &pointsAwarder{db: db}, nil
}

func (p *pointsAwarder) AwardPurchase(ctx context.Context, buyerID uuid.UUID, points int64) error {
	return p.award(ctx, buyerID, points)
}

func (p *pointsAwarder) AwardSale(ctx context.Context, producerID uuid.UUID, points int64) error {
	return p.award(ctx, producerID, points)
}

func (p *pointsAwarder) award(ctx context.Context, userID uuid.UUID, points int64) error {
	if points <= 0 {
		return nil
	}
	return p.db.WithContext(ctx).Exec(`
		UPDATE users
		SET points = points + ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, points, userID).Error
}

type logPayoutNotifier struct {
	logg *logger.Logger
}

// NewLogPayoutNotifier returns a payout notifier that records deliveries in
// the log stream.
func NewLogPayoutNotifier(logg *logger.Logger) (PayoutNotifier, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &logPayoutNotifier{logg: logg}, nil
}

func (n *logPayoutNotifier) NotifyPayout(ctx context.Context, event payloads.PayoutCompletedEvent) error {
	logCtx := n.logg.WithFields(ctx, map[string]any{
		"batch_id":      event.BatchID.String(),
		"producer_id":   event.ProducerID.String(),
		"amount":        event.Amount.StringFixed(2),
		"manual_review": event.ManualReview,
	})
	n.logg.Info(logCtx, "producer payout notification queued")
	return nil
}

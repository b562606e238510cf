package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lumeplay/lumeplay-backend/pkg/enums"
)

// OrderCompletedEvent is emitted in the same transaction that moves an order
// to COMPLETED. Consumers fan it out to buyer email and gamification.
type OrderCompletedEvent struct {
	OrderID        uuid.UUID          `json:"order_id"`
	BuyerID        uuid.UUID          `json:"buyer_id"`
	ProducerID     *uuid.UUID         `json:"producer_id,omitempty"`
	ProductID      *uuid.UUID         `json:"product_id,omitempty"`
	PurchaseType   enums.PurchaseType `json:"purchase_type"`
	Amount         decimal.Decimal    `json:"amount"`
	ProducerAmount decimal.Decimal    `json:"producer_amount"`
	PaidAt         time.Time          `json:"paid_at"`
}

// OrderCancelledEvent reports a cancelled order.
type OrderCancelledEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	BuyerID     uuid.UUID `json:"buyer_id"`
	Reason      string    `json:"reason,omitempty"`
	CancelledAt time.Time `json:"cancelled_at"`
}

// OrderRefundedEvent reports a refunded order.
type OrderRefundedEvent struct {
	OrderID      uuid.UUID       `json:"order_id"`
	BuyerID      uuid.UUID       `json:"buyer_id"`
	RefundAmount decimal.Decimal `json:"refund_amount"`
	RefundedAt   time.Time       `json:"refunded_at"`
}

// PayoutCompletedEvent is emitted when a payout batch settles, whether the
// provider executed it or it was marked for manual review.
type PayoutCompletedEvent struct {
	BatchID      uuid.UUID       `json:"batch_id"`
	ProducerID   uuid.UUID       `json:"producer_id"`
	Amount       decimal.Decimal `json:"amount"`
	TransferIDs  []uuid.UUID     `json:"transfer_ids"`
	ManualReview bool            `json:"manual_review"`
	ProcessedAt  time.Time       `json:"processed_at"`
}

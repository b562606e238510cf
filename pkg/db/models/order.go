package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lumeplay/lumeplay-backend/pkg/enums"
)

// Order is the settlement aggregate. Amount always equals PlatformFee plus
// ProducerAmount; the split is fixed at creation and never recomputed.
//
// PurchaseType discriminates the two shapes: "product" orders reference a
// catalog product, "direct" orders carry an external item id and label and
// never produce a commission.
type Order struct {
	ID             uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BuyerID        uuid.UUID           `gorm:"column:buyer_id;type:uuid;not null;index"`
	ProducerID     *uuid.UUID          `gorm:"column:producer_id;type:uuid;index"`
	PurchaseType   enums.PurchaseType  `gorm:"column:purchase_type;type:text;not null;default:'product'"`
	ProductID      *uuid.UUID          `gorm:"column:product_id;type:uuid;index"`
	DirectItemID   *string             `gorm:"column:direct_item_id"`
	DirectLabel    *string             `gorm:"column:direct_label"`
	Amount         decimal.Decimal     `gorm:"column:amount;type:numeric(12,2);not null"`
	PlatformFee    decimal.Decimal     `gorm:"column:platform_fee;type:numeric(12,2);not null"`
	ProducerAmount decimal.Decimal     `gorm:"column:producer_amount;type:numeric(12,2);not null"`
	PaymentMethod  enums.PaymentMethod `gorm:"column:payment_method;type:text;not null;default:'pix'"`
	PaymentRef     *string             `gorm:"column:payment_ref;index"`
	PaymentStatus  *string             `gorm:"column:payment_status"`
	Status         enums.OrderStatus   `gorm:"column:status;type:text;not null;default:'pending';index"`
	CancelReason   *string             `gorm:"column:cancel_reason"`
	RefundAmount   *decimal.Decimal    `gorm:"column:refund_amount;type:numeric(12,2)"`
	PaidAt         *time.Time          `gorm:"column:paid_at"`
	CancelledAt    *time.Time          `gorm:"column:cancelled_at"`
	RefundedAt     *time.Time          `gorm:"column:refunded_at"`
	CreatedAt      time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

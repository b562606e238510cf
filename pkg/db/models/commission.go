package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lumeplay/lumeplay-backend/pkg/enums"
)

// Commission records the producer's share of a completed product order.
// The unique order_id index is what makes commission creation idempotent.
type Commission struct {
	ID            uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID       uuid.UUID              `gorm:"column:order_id;type:uuid;not null;uniqueIndex"`
	ProducerID    uuid.UUID              `gorm:"column:producer_id;type:uuid;not null;index"`
	Amount        decimal.Decimal        `gorm:"column:amount;type:numeric(12,2);not null"`
	Status        enums.CommissionStatus `gorm:"column:status;type:text;not null;default:'pending';index"`
	PaymentRef    *string                `gorm:"column:payment_ref"`
	FailureReason *string                `gorm:"column:failure_reason"`
	PaidAt        *time.Time             `gorm:"column:paid_at"`
	CreatedAt     time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lumeplay/lumeplay-backend/pkg/enums"
)

// PixTransfer reserves one completed order for a payout batch. The unique
// order_id index guarantees an order is never paid out twice; FAILED rows
// release the order back into the available pool.
type PixTransfer struct {
	ID           uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID      uuid.UUID            `gorm:"column:order_id;type:uuid;not null;uniqueIndex:idx_pix_transfers_order_active,where:status <> 'failed'"`
	ProducerID   uuid.UUID            `gorm:"column:producer_id;type:uuid;not null;index"`
	BatchID      uuid.UUID            `gorm:"column:batch_id;type:uuid;not null;index"`
	Amount       decimal.Decimal      `gorm:"column:amount;type:numeric(12,2);not null"`
	PixKey       string               `gorm:"column:pix_key;not null"`
	PixKeyType   enums.PixKeyType     `gorm:"column:pix_key_type;type:text;not null"`
	Status       enums.TransferStatus `gorm:"column:status;type:text;not null;default:'pending';index"`
	ProviderID   *string              `gorm:"column:provider_id"`
	ErrorDetail  *string              `gorm:"column:error_detail"`
	ManualReview bool                 `gorm:"column:manual_review;not null;default:false"`
	ProcessedAt  *time.Time           `gorm:"column:processed_at"`
	CreatedAt    time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

package payouts

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lumeplay/lumeplay-backend/pkg/db/models"
)

// Balance reports what a producer can withdraw right now.
type Balance struct {
	Available  decimal.Decimal `json:"available"`
	OrderCount int             `json:"order_count"`
}

// Batch is a reserved set of transfers awaiting execution.
type Batch struct {
	BatchID    uuid.UUID            `json:"batch_id"`
	ProducerID uuid.UUID            `json:"producer_id"`
	Amount     decimal.Decimal      `json:"amount"`
	Transfers  []models.PixTransfer `json:"transfers"`
}

// TransferList is one cursor page of a producer's transfer history.
type TransferList struct {
	Transfers  []models.PixTransfer
	NextCursor string
}

// TransferStats aggregates a producer's payout history.
type TransferStats struct {
	TotalPaid     decimal.Decimal `json:"total_paid"`
	CompletedRows int64           `json:"completed_rows"`
	FailedRows    int64           `json:"failed_rows"`
	PendingAmount decimal.Decimal `json:"pending_amount"`
}

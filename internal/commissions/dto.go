package commissions

import (
	"github.com/shopspring/decimal"

	"github.com/lumeplay/lumeplay-backend/pkg/db/models"
	"github.com/lumeplay/lumeplay-backend/pkg/enums"
)

// CommissionList is one cursor page of ledger rows.
type CommissionList struct {
	Commissions []models.Commission
	NextCursor  string
}

// StatusBucket is one status slice of a producer summary.
type StatusBucket struct {
	Count  int64           `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

// Summary totals a producer's ledger by status.
type Summary struct {
	Pending     StatusBucket    `json:"pending"`
	Processing  StatusBucket    `json:"processing"`
	Paid        StatusBucket    `json:"paid"`
	Failed      StatusBucket    `json:"failed"`
	TotalEarned decimal.Decimal `json:"total_earned"`
}

// NewSummary returns a zero-valued summary with decimals initialized.
func NewSummary() *Summary {
	zero := decimal.Zero
	bucket := StatusBucket{Amount: zero}
	return &Summary{
		Pending:     bucket,
		Processing:  bucket,
		Paid:        bucket,
		Failed:      bucket,
		TotalEarned: zero,
	}
}

func (s *Summary) add(status enums.CommissionStatus, count int64, amount decimal.Decimal) {
	bucket := StatusBucket{Count: count, Amount: amount}
	switch status {
	case enums.CommissionStatusPending:
		s.Pending = bucket
	case enums.CommissionStatusProcessing:
		s.Processing = bucket
	case enums.CommissionStatusPaid:
		s.Paid = bucket
		s.TotalEarned = s.TotalEarned.Add(amount)
	case enums.CommissionStatusFailed:
		s.Failed = bucket
	}
}

func parseAmount(raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(raw)
}

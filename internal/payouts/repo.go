package payouts

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/lumeplay/lumeplay-backend/pkg/db/models"
	"github.com/lumeplay/lumeplay-backend/pkg/enums"
	"github.com/lumeplay/lumeplay-backend/pkg/pagination"
)

// Repository persists transfer reservations and payout history.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	AvailableOrders(ctx context.Context, producerID uuid.UUID) ([]models.Order, error)
	CreateTransfers(ctx context.Context, transfers []models.PixTransfer) error
	FindByBatch(ctx context.Context, batchID uuid.UUID) ([]models.PixTransfer, error)
	UpdateBatchFrom(ctx context.Context, batchID uuid.UUID, from []enums.TransferStatus, updates map[string]any) (int64, error)
	ListByProducer(ctx context.Context, producerID uuid.UUID, params pagination.Params) (*TransferList, error)
	StatsByProducer(ctx context.Context, producerID uuid.UUID) (*TransferStats, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a payouts repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// AvailableOrders returns the producer's completed orders that no live
// transfer has claimed, smallest producer share first.
func (r *repository) AvailableOrders(ctx context.Context, producerID uuid.UUID) ([]models.Order, error) {
	var rows []models.Order
	err := r.db.WithContext(ctx).
		Where("producer_id = ? AND status = ?", producerID, enums.OrderStatusCompleted).
		Where("NOT EXISTS (SELECT 1 FROM pix_transfers t WHERE t.order_id = orders.id AND t.status <> ?)",
			enums.TransferStatusFailed).
		Order("producer_amount ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) CreateTransfers(ctx context.Context, transfers []models.PixTransfer) error {
	if len(transfers) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&transfers).Error
}

func (r *repository) FindByBatch(ctx context.Context, batchID uuid.UUID) ([]models.PixTransfer, error) {
	var rows []models.PixTransfer
	err := r.db.WithContext(ctx).
		Where("batch_id = ?", batchID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) UpdateBatchFrom(ctx context.Context, batchID uuid.UUID, from []enums.TransferStatus, updates map[string]any) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.PixTransfer{}).
		Where("batch_id = ? AND status IN ?", batchID, from).
		Updates(updates)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *repository) ListByProducer(ctx context.Context, producerID uuid.UUID, params pagination.Params) (*TransferList, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}

	query := r.db.WithContext(ctx).
		Model(&models.PixTransfer{}).
		Where("producer_id = ?", producerID)
	if cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	limit := pagination.NormalizeLimit(params.Limit)
	var rows []models.PixTransfer
	err = query.
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	list := &TransferList{Transfers: rows}
	if len(rows) > limit {
		list.Transfers = rows[:limit]
		last := list.Transfers[limit-1]
		list.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	return list, nil
}

func (r *repository) StatsByProducer(ctx context.Context, producerID uuid.UUID) (*TransferStats, error) {
	type row struct {
		Status enums.TransferStatus
		Count  int64
		Amount string
	}
	var rows []row
	err := r.db.WithContext(ctx).
		Model(&models.PixTransfer{}).
		Select("status, COUNT(*) AS count, COALESCE(SUM(amount), 0) AS amount").
		Where("producer_id = ?", producerID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	stats := &TransferStats{
		TotalPaid:     decimal.Zero,
		PendingAmount: decimal.Zero,
	}
	for _, rec := range rows {
		amount, err := decimal.NewFromString(rec.Amount)
		if err != nil {
			return nil, err
		}
		switch rec.Status {
		case enums.TransferStatusCompleted:
			stats.CompletedRows = rec.Count
			stats.TotalPaid = amount
		case enums.TransferStatusFailed:
			stats.FailedRows = rec.Count
		case enums.TransferStatusPending, enums.TransferStatusProcessing:
			stats.PendingAmount = stats.PendingAmount.Add(amount)
		}
	}
	return stats, nil
}

package commissions

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lumeplay/lumeplay-backend/pkg/db/models"
	"github.com/lumeplay/lumeplay-backend/pkg/enums"
	"github.com/lumeplay/lumeplay-backend/pkg/pagination"
)

// Repository persists and queries the commission ledger.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, commission *models.Commission) (*models.Commission, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Commission, error)
	FindByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Commission, error)
	UpdateStatusFrom(ctx context.Context, id uuid.UUID, from []enums.CommissionStatus, updates map[string]any) (int64, error)
	MarkPaidByOrderIDs(ctx context.Context, orderIDs []uuid.UUID, paymentRef string) (int64, error)
	ListByProducer(ctx context.Context, producerID uuid.UUID, params pagination.Params) (*CommissionList, error)
	SummaryByProducer(ctx context.Context, producerID uuid.UUID) (*Summary, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a commissions repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, commission *models.Commission) (*models.Commission, error) {
	if err := r.db.WithContext(ctx).Create(commission).Error; err != nil {
		return nil, err
	}
	return commission, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Commission, error) {
	var commission models.Commission
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&commission).Error
	if err != nil {
		return nil, err
	}
	return &commission, nil
}

func (r *repository) FindByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Commission, error) {
	var commission models.Commission
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&commission).Error
	if err != nil {
		return nil, err
	}
	return &commission, nil
}

func (r *repository) UpdateStatusFrom(ctx context.Context, id uuid.UUID, from []enums.CommissionStatus, updates map[string]any) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Commission{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

// MarkPaidByOrderIDs settles every commission bundled into a payout batch.
func (r *repository) MarkPaidByOrderIDs(ctx context.Context, orderIDs []uuid.UUID, paymentRef string) (int64, error) {
	if len(orderIDs) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).
		Model(&models.Commission{}).
		Where("order_id IN ? AND status <> ?", orderIDs, enums.CommissionStatusPaid).
		Updates(map[string]any{
			"status":      enums.CommissionStatusPaid,
			"payment_ref": paymentRef,
			"paid_at":     gorm.Expr("CURRENT_TIMESTAMP"),
		})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *repository) ListByProducer(ctx context.Context, producerID uuid.UUID, params pagination.Params) (*CommissionList, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}

	query := r.db.WithContext(ctx).
		Model(&models.Commission{}).
		Where("producer_id = ?", producerID)
	if cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	limit := pagination.NormalizeLimit(params.Limit)
	var rows []models.Commission
	err = query.
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	list := &CommissionList{Commissions: rows}
	if len(rows) > limit {
		list.Commissions = rows[:limit]
		last := list.Commissions[limit-1]
		list.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	return list, nil
}

// SummaryByProducer aggregates the ledger from rows on every call; totals are
// never cached.
func (r *repository) SummaryByProducer(ctx context.Context, producerID uuid.UUID) (*Summary, error) {
	type row struct {
		Status enums.CommissionStatus
		Count  int64
		Amount string
	}
	var rows []row
	err := r.db.WithContext(ctx).
		Model(&models.Commission{}).
		Select("status, COUNT(*) AS count, COALESCE(SUM(amount), 0) AS amount").
		Where("producer_id = ?", producerID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	summary := NewSummary()
	for _, rec := range rows {
		amount, err := parseAmount(rec.Amount)
		if err != nil {
			return nil, err
		}
		summary.add(rec.Status, rec.Count, amount)
	}
	return summary, nil
}

package commissions

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/lumeplay/lumeplay-backend/pkg/db"
	"github.com/lumeplay/lumeplay-backend/pkg/db/models"
	"github.com/lumeplay/lumeplay-backend/pkg/enums"
	pkgerrors "github.com/lumeplay/lumeplay-backend/pkg/errors"
	"github.com/lumeplay/lumeplay-backend/pkg/pagination"
)

// Service maintains the commission ledger.
type Service interface {
	CreateForOrder(ctx context.Context, tx *gorm.DB, order *models.Order) error
	MarkProcessing(ctx context.Context, id uuid.UUID) error
	MarkPaid(ctx context.Context, id uuid.UUID, paymentRef string) error
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error
	SettleForOrders(ctx context.Context, tx *gorm.DB, orderIDs []uuid.UUID, paymentRef string) error
	List(ctx context.Context, producerID uuid.UUID, params pagination.Params) (*CommissionList, error)
	ProducerSummary(ctx context.Context, producerID uuid.UUID) (*Summary, error)
}

type service struct {
	repo Repository
}

// NewService builds a commissions service with the required dependencies.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("commissions repository required")
	}
	return &service{repo: repo}, nil
}

// CreateForOrder records the producer's share of a completed product order.
// The unique order_id index makes duplicate completions a no-op.
func (s *service) CreateForOrder(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for commission creation")
	}
	if order == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order required")
	}
	if order.ProducerID == nil || *order.ProducerID == uuid.Nil {
		return nil
	}

	repo := s.repo.WithTx(tx)
	if _, err := repo.FindByOrderID(ctx, order.ID); err == nil {
		return nil
	} else if err != gorm.ErrRecordNotFound {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check existing commission")
	}

	commission := &models.Commission{
		ID:         uuid.New(),
		OrderID:    order.ID,
		ProducerID: *order.ProducerID,
		Amount:     order.ProducerAmount,
		Status:     enums.CommissionStatusPending,
	}
	if _, err := repo.Create(ctx, commission); err != nil {
		if dbpkg.IsUniqueViolation(err, "ux_commissions_order_id") {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create commission")
	}
	return nil
}

func (s *service) MarkProcessing(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "commission id required")
	}
	rows, err := s.repo.UpdateStatusFrom(ctx, id,
		[]enums.CommissionStatus{enums.CommissionStatusPending},
		map[string]any{"status": enums.CommissionStatusProcessing})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark commission processing")
	}
	if rows == 0 {
		return s.conflictFor(ctx, id, enums.CommissionStatusProcessing)
	}
	return nil
}

// MarkPaid settles a commission from any non-paid status: admins may pay a
// commission directly without the payout pipeline touching it first.
func (s *service) MarkPaid(ctx context.Context, id uuid.UUID, paymentRef string) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "commission id required")
	}
	updates := map[string]any{
		"status":  enums.CommissionStatusPaid,
		"paid_at": gorm.Expr("CURRENT_TIMESTAMP"),
	}
	if ref := strings.TrimSpace(paymentRef); ref != "" {
		updates["payment_ref"] = ref
	}
	rows, err := s.repo.UpdateStatusFrom(ctx, id,
		[]enums.CommissionStatus{
			enums.CommissionStatusPending,
			enums.CommissionStatusProcessing,
			enums.CommissionStatusFailed,
		}, updates)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark commission paid")
	}
	if rows == 0 {
		return s.conflictFor(ctx, id, enums.CommissionStatusPaid)
	}
	return nil
}

func (s *service) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "commission id required")
	}
	updates := map[string]any{"status": enums.CommissionStatusFailed}
	if trimmed := strings.TrimSpace(reason); trimmed != "" {
		updates["failure_reason"] = trimmed
	}
	rows, err := s.repo.UpdateStatusFrom(ctx, id,
		[]enums.CommissionStatus{
			enums.CommissionStatusPending,
			enums.CommissionStatusProcessing,
		}, updates)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark commission failed")
	}
	if rows == 0 {
		return s.conflictFor(ctx, id, enums.CommissionStatusFailed)
	}
	return nil
}

// SettleForOrders marks every commission behind a payout batch as paid in
// the batch's transaction.
func (s *service) SettleForOrders(ctx context.Context, tx *gorm.DB, orderIDs []uuid.UUID, paymentRef string) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for commission settlement")
	}
	if len(orderIDs) == 0 {
		return nil
	}
	if _, err := s.repo.WithTx(tx).MarkPaidByOrderIDs(ctx, orderIDs, paymentRef); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "settle batch commissions")
	}
	return nil
}

func (s *service) List(ctx context.Context, producerID uuid.UUID, params pagination.Params) (*CommissionList, error) {
	if producerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "producer id required")
	}
	list, err := s.repo.ListByProducer(ctx, producerID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list commissions")
	}
	return list, nil
}

func (s *service) ProducerSummary(ctx context.Context, producerID uuid.UUID) (*Summary, error) {
	if producerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "producer id required")
	}
	summary, err := s.repo.SummaryByProducer(ctx, producerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load commission summary")
	}
	return summary, nil
}

func (s *service) conflictFor(ctx context.Context, id uuid.UUID, target enums.CommissionStatus) error {
	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, "commission not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload commission")
	}
	if current.Status == target {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeStateConflict,
		fmt.Sprintf("commission cannot move from %s to %s", current.Status, target))
}

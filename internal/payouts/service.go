package payouts

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	dbpkg "github.com/lumeplay/lumeplay-backend/pkg/db"
	"github.com/lumeplay/lumeplay-backend/pkg/db/models"
	"github.com/lumeplay/lumeplay-backend/pkg/enums"
	pkgerrors "github.com/lumeplay/lumeplay-backend/pkg/errors"
	"github.com/lumeplay/lumeplay-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// UserDirectory resolves producers and their payout configuration.
type UserDirectory interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Service selects orders into payout batches and reports payout history.
type Service interface {
	AvailableBalance(ctx context.Context, producerID uuid.UUID) (*Balance, error)
	SelectForWithdrawal(ctx context.Context, producerID uuid.UUID, requested *decimal.Decimal) (*Batch, error)
	ListTransfers(ctx context.Context, producerID uuid.UUID, params pagination.Params) (*TransferList, error)
	TransferStats(ctx context.Context, producerID uuid.UUID) (*TransferStats, error)
}

type service struct {
	repo          Repository
	users         UserDirectory
	tx            txRunner
	minWithdrawal decimal.Decimal
}

// NewService builds a payouts service with the required dependencies.
func NewService(repo Repository, users UserDirectory, tx txRunner, minWithdrawal decimal.Decimal) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("payouts repository required")
	}
	if users == nil {
		return nil, fmt.Errorf("user directory required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if !minWithdrawal.IsPositive() {
		return nil, fmt.Errorf("minimum withdrawal must be positive")
	}
	return &service{
		repo:          repo,
		users:         users,
		tx:            tx,
		minWithdrawal: minWithdrawal,
	}, nil
}

func (s *service) AvailableBalance(ctx context.Context, producerID uuid.UUID) (*Balance, error) {
	if producerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "producer id required")
	}
	available, err := s.repo.AvailableOrders(ctx, producerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load available orders")
	}

	balance := &Balance{Available: decimal.Zero, OrderCount: len(available)}
	for _, order := range available {
		balance.Available = balance.Available.Add(order.ProducerAmount)
	}
	return balance, nil
}

// SelectForWithdrawal reserves orders for a payout batch. Orders are taken
// smallest producer share first until the running sum covers the target; the
// order that crosses the target may overshoot it, so a batch can pay out
// more than requested but never less.
func (s *service) SelectForWithdrawal(ctx context.Context, producerID uuid.UUID, requested *decimal.Decimal) (*Batch, error) {
	if producerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "producer id required")
	}

	producer, err := s.users.FindByID(ctx, producerID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "producer not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load producer")
	}
	if !producer.HasPixConfig() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "pix configuration required before withdrawing")
	}

	available, err := s.repo.AvailableOrders(ctx, producerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load available orders")
	}

	balance := decimal.Zero
	for _, order := range available {
		balance = balance.Add(order.ProducerAmount)
	}
	if !balance.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no balance available for withdrawal")
	}

	target := balance
	if requested != nil {
		if !requested.IsPositive() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "requested amount must be positive")
		}
		if requested.GreaterThan(balance) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "requested amount exceeds available balance")
		}
		target = *requested
	}
	if target.LessThan(s.minWithdrawal) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("withdrawal must be at least %s", s.minWithdrawal.StringFixed(2)))
	}

	selected := selectOrders(available, target)
	if len(selected) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no orders available for withdrawal")
	}

	batchID := uuid.New()
	total := decimal.Zero
	transfers := make([]models.PixTransfer, 0, len(selected))
	for _, order := range selected {
		total = total.Add(order.ProducerAmount)
		transfers = append(transfers, models.PixTransfer{
			ID:         uuid.New(),
			OrderID:    order.ID,
			ProducerID: producerID,
			BatchID:    batchID,
			Amount:     order.ProducerAmount,
			PixKey:     *producer.PixKey,
			PixKeyType: *producer.PixKeyType,
			Status:     enums.TransferStatusPending,
		})
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).CreateTransfers(ctx, transfers)
	})
	if err != nil {
		if dbpkg.IsUniqueViolation(err, "idx_pix_transfers_order_active") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "an order in this selection was reserved concurrently")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve payout batch")
	}

	return &Batch{
		BatchID:    batchID,
		ProducerID: producerID,
		Amount:     total,
		Transfers:  transfers,
	}, nil
}

// selectOrders accumulates ascending producer shares until the running sum
// reaches the target. The batch never delivers less than the target: when the
// candidate that crosses the target is taken, the producer is paid the
// overshoot rather than shorted.
func selectOrders(available []models.Order, target decimal.Decimal) []models.Order {
	var selected []models.Order
	sum := decimal.Zero
	for _, order := range available {
		selected = append(selected, order)
		sum = sum.Add(order.ProducerAmount)
		if sum.GreaterThanOrEqual(target) {
			break
		}
	}
	return selected
}

func (s *service) ListTransfers(ctx context.Context, producerID uuid.UUID, params pagination.Params) (*TransferList, error) {
	if producerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "producer id required")
	}
	list, err := s.repo.ListByProducer(ctx, producerID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list transfers")
	}
	return list, nil
}

func (s *service) TransferStats(ctx context.Context, producerID uuid.UUID) (*TransferStats, error) {
	if producerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "producer id required")
	}
	stats, err := s.repo.StatsByProducer(ctx, producerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load transfer stats")
	}
	return stats, nil
}

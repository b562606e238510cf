package orders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/lumeplay/lumeplay-backend/pkg/db/models"
	"github.com/lumeplay/lumeplay-backend/pkg/enums"
	pkgerrors "github.com/lumeplay/lumeplay-backend/pkg/errors"
	"github.com/lumeplay/lumeplay-backend/pkg/metrics"
	"github.com/lumeplay/lumeplay-backend/pkg/outbox"
	"github.com/lumeplay/lumeplay-backend/pkg/outbox/payloads"
	"github.com/lumeplay/lumeplay-backend/pkg/pagination"
)

// legalPredecessors encodes the order lifecycle: which statuses an order may
// hold immediately before moving to the key status.
var legalPredecessors = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusProcessing: {enums.OrderStatusPending},
	enums.OrderStatusCompleted:  {enums.OrderStatusPending, enums.OrderStatusProcessing},
	enums.OrderStatusCancelled:  {enums.OrderStatusPending, enums.OrderStatusProcessing},
	enums.OrderStatusRefunded:   {enums.OrderStatusCompleted},
}

// Service defines the order lifecycle operations.
type Service interface {
	Create(ctx context.Context, input CreateOrderInput) (*models.Order, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Order, error)
	List(ctx context.Context, filters ListFilters, params pagination.Params) (*OrderList, error)
	Transition(ctx context.Context, input TransitionInput) error
	Cancel(ctx context.Context, input CancelInput) error
	Refund(ctx context.Context, input RefundInput) error
	HasPurchased(ctx context.Context, buyerID, productID uuid.UUID) (bool, error)
	Stats(ctx context.Context, producerID uuid.UUID) (*Stats, error)
}

type service struct {
	repo        Repository
	tx          txRunner
	outbox      outboxPublisher
	commissions CommissionCreator
	catalog     Catalog
	users       UserDirectory
	sales       SalesCounter
	feeRate     decimal.Decimal
	metrics     *metrics.SettlementMetrics
}

// NewService builds an orders service with the required dependencies. A nil
// metrics collector disables transition counting.
func NewService(repo Repository, tx txRunner, publisher outboxPublisher, commissions CommissionCreator, catalog Catalog, users UserDirectory, sales SalesCounter, feeRate decimal.Decimal, mtr *metrics.SettlementMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if commissions == nil {
		return nil, fmt.Errorf("commission creator required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("catalog required")
	}
	if users == nil {
		return nil, fmt.Errorf("user directory required")
	}
	if sales == nil {
		return nil, fmt.Errorf("sales counter required")
	}
	if feeRate.IsNegative() || feeRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("fee rate must be in [0, 1)")
	}
	return &service{
		repo:        repo,
		tx:          tx,
		outbox:      publisher,
		commissions: commissions,
		catalog:     catalog,
		users:       users,
		sales:       sales,
		feeRate:     feeRate,
		metrics:     mtr,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	if input.BuyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id required")
	}
	if !input.PurchaseType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid purchase type")
	}
	method := input.PaymentMethod
	if method == "" {
		method = enums.PaymentMethodPix
	}
	if !method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}

	buyer, err := s.users.FindByID(ctx, input.BuyerID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "buyer not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load buyer")
	}

	order := &models.Order{
		BuyerID:       buyer.ID,
		PurchaseType:  input.PurchaseType,
		PaymentMethod: method,
		Status:        enums.OrderStatusPending,
	}

	var amount decimal.Decimal
	switch input.PurchaseType {
	case enums.PurchaseTypeProduct:
		if input.ProductID == nil || *input.ProductID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required for product orders")
		}
		product, err := s.catalog.FindByID(ctx, *input.ProductID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
		}
		if product.Status != enums.ProductStatusPublished {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product is not available for purchase")
		}
		purchased, err := s.repo.HasActivePurchase(ctx, buyer.ID, product.ID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check existing purchase")
		}
		if purchased {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "product already purchased")
		}
		order.ProductID = &product.ID
		producerID := product.ProducerID
		order.ProducerID = &producerID
		amount = product.Price
	case enums.PurchaseTypeDirect:
		itemID := strings.TrimSpace(input.DirectItemID)
		label := strings.TrimSpace(input.DirectLabel)
		if itemID == "" || label == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "direct orders require an item id and label")
		}
		if !input.Amount.IsPositive() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "direct orders require a positive amount")
		}
		order.DirectItemID = &itemID
		order.DirectLabel = &label
		amount = input.Amount
	}

	order.Amount = amount
	order.PlatformFee = amount.Mul(s.feeRate).Round(2)
	order.ProducerAmount = amount.Sub(order.PlatformFee)

	created, err := s.repo.Create(ctx, order)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
	}
	return created, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) List(ctx context.Context, filters ListFilters, params pagination.Params) (*OrderList, error) {
	list, err := s.repo.List(ctx, filters, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return list, nil
}

func (s *service) HasPurchased(ctx context.Context, buyerID, productID uuid.UUID) (bool, error) {
	if buyerID == uuid.Nil || productID == uuid.Nil {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "buyer id and product id required")
	}
	purchased, err := s.repo.HasActivePurchase(ctx, buyerID, productID)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check purchase")
	}
	return purchased, nil
}

func (s *service) Stats(ctx context.Context, producerID uuid.UUID) (*Stats, error) {
	if producerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "producer id required")
	}
	stats, err := s.repo.Stats(ctx, producerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order stats")
	}
	return stats, nil
}

// Transition moves an order along the lifecycle with a conditional update.
// Losing the compare-and-set against an order already at the target status is
// an idempotent no-op; losing it against any other status is a conflict.
func (s *service) Transition(ctx context.Context, input TransitionInput) error {
	if input.OrderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	predecessors, ok := legalPredecessors[input.Target]
	if !ok {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid target status")
	}

	applied := false
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindByID(ctx, input.OrderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}

		now := time.Now().UTC()
		updates := map[string]any{"status": input.Target}
		if input.PaymentRef != nil {
			updates["payment_ref"] = *input.PaymentRef
		}
		if input.PaymentStatus != nil {
			updates["payment_status"] = *input.PaymentStatus
		}

		refundAmount := order.Amount
		switch input.Target {
		case enums.OrderStatusCompleted:
			updates["paid_at"] = now
		case enums.OrderStatusCancelled:
			updates["cancelled_at"] = now
			if input.Reason != nil {
				updates["cancel_reason"] = *input.Reason
			}
		case enums.OrderStatusRefunded:
			updates["refunded_at"] = now
			if input.RefundAmount != nil {
				if input.RefundAmount.IsNegative() || input.RefundAmount.GreaterThan(order.Amount) {
					return pkgerrors.New(pkgerrors.CodeValidation, "refund amount exceeds order amount")
				}
				refundAmount = *input.RefundAmount
			}
			updates["refund_amount"] = refundAmount
		}

		rows, err := repo.UpdateStatusFrom(ctx, order.ID, predecessors, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "apply transition")
		}
		if rows == 0 {
			current, err := repo.FindByID(ctx, order.ID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
			}
			if current.Status == input.Target {
				return nil
			}
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("order cannot move from %s to %s", current.Status, input.Target))
		}

		applied = true
		order.Status = input.Target
		switch input.Target {
		case enums.OrderStatusCompleted:
			order.PaidAt = &now
			return s.onCompleted(ctx, tx, repo, order, input.Actor)
		case enums.OrderStatusCancelled:
			return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventOrderCancelled,
				AggregateType: enums.AggregateOrder,
				AggregateID:   order.ID,
				Version:       1,
				Actor:         input.Actor,
				Data: payloads.OrderCancelledEvent{
					OrderID:     order.ID,
					BuyerID:     order.BuyerID,
					Reason:      stringValue(input.Reason),
					CancelledAt: now,
				},
			})
		case enums.OrderStatusRefunded:
			return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventOrderRefunded,
				AggregateType: enums.AggregateOrder,
				AggregateID:   order.ID,
				Version:       1,
				Actor:         input.Actor,
				Data: payloads.OrderRefundedEvent{
					OrderID:      order.ID,
					BuyerID:      order.BuyerID,
					RefundAmount: refundAmount,
					RefundedAt:   now,
				},
			})
		}
		return nil
	})
	if err == nil && applied {
		s.metrics.IncTransition(input.Target.String())
	}
	return err
}

// onCompleted runs the settlement side effects inside the transition
// transaction: commission row, sales counter, completion event.
func (s *service) onCompleted(ctx context.Context, tx *gorm.DB, repo Repository, order *models.Order, actor *outbox.ActorRef) error {
	if order.PurchaseType == enums.PurchaseTypeProduct && order.ProducerID != nil {
		if err := s.commissions.CreateForOrder(ctx, tx, order); err != nil {
			return err
		}
	}
	if order.ProductID != nil {
		if err := s.sales.Increment(ctx, tx, *order.ProductID); err != nil {
			return err
		}
	}

	paidAt := time.Now().UTC()
	if order.PaidAt != nil {
		paidAt = *order.PaidAt
	}
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderCompleted,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Version:       1,
		Actor:         actor,
		Data: payloads.OrderCompletedEvent{
			OrderID:        order.ID,
			BuyerID:        order.BuyerID,
			ProducerID:     order.ProducerID,
			ProductID:      order.ProductID,
			PurchaseType:   order.PurchaseType,
			Amount:         order.Amount,
			ProducerAmount: order.ProducerAmount,
			PaidAt:         paidAt,
		},
	})
}

func (s *service) Cancel(ctx context.Context, input CancelInput) error {
	if input.OrderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.ActorUserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "actor identity missing")
	}

	order, err := s.Get(ctx, input.OrderID)
	if err != nil {
		return err
	}
	if input.ActorRole != enums.ActorRoleAdmin && order.BuyerID != input.ActorUserID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to caller")
	}

	reason := strings.TrimSpace(input.Reason)
	transition := TransitionInput{
		OrderID: order.ID,
		Target:  enums.OrderStatusCancelled,
		Actor:   actorRef(input.ActorUserID, input.ActorRole),
	}
	if reason != "" {
		transition.Reason = &reason
	}
	return s.Transition(ctx, transition)
}

func (s *service) Refund(ctx context.Context, input RefundInput) error {
	if input.OrderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.ActorUserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "actor identity missing")
	}
	if input.ActorRole != enums.ActorRoleAdmin {
		return pkgerrors.New(pkgerrors.CodeForbidden, "refunds require an admin")
	}

	reason := strings.TrimSpace(input.Reason)
	transition := TransitionInput{
		OrderID:      input.OrderID,
		Target:       enums.OrderStatusRefunded,
		RefundAmount: input.Amount,
		Actor:        actorRef(input.ActorUserID, input.ActorRole),
	}
	if reason != "" {
		transition.Reason = &reason
	}
	return s.Transition(ctx, transition)
}

func actorRef(userID uuid.UUID, role enums.ActorRole) *outbox.ActorRef {
	return &outbox.ActorRef{
		UserID: userID,
		Role:   role.String(),
	}
}

func stringValue(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}

type salesCounterImpl struct{}

// NewSalesCounter exposes the default sales counter implementation.
func NewSalesCounter() SalesCounter {
	return salesCounterImpl{}
}

func (salesCounterImpl) Increment(ctx context.Context, tx *gorm.DB, productID uuid.UUID) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for sales counter")
	}
	res := tx.WithContext(ctx).Exec(`
		UPDATE products
		SET sales_count = sales_count + 1,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, productID)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "increment sales count")
	}
	return nil
}

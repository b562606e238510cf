package orders

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lumeplay/lumeplay-backend/pkg/db/models"
	"github.com/lumeplay/lumeplay-backend/pkg/enums"
	"github.com/lumeplay/lumeplay-backend/pkg/outbox"
)

// CreateOrderInput captures what a buyer submits to open an order. Product
// orders price from the catalog; direct orders carry their own amount.
type CreateOrderInput struct {
	BuyerID       uuid.UUID
	PurchaseType  enums.PurchaseType
	ProductID     *uuid.UUID
	DirectItemID  string
	DirectLabel   string
	Amount        decimal.Decimal
	PaymentMethod enums.PaymentMethod
}

// TransitionInput drives the single mutation entry point of the order
// lifecycle. Optional fields apply only to the matching target status.
type TransitionInput struct {
	OrderID       uuid.UUID
	Target        enums.OrderStatus
	PaymentRef    *string
	PaymentStatus *string
	Reason        *string
	RefundAmount  *decimal.Decimal
	Actor         *outbox.ActorRef
}

// CancelInput carries a buyer or admin cancellation request.
type CancelInput struct {
	OrderID     uuid.UUID
	ActorUserID uuid.UUID
	ActorRole   enums.ActorRole
	Reason      string
}

// RefundInput carries an admin refund request. Amount defaults to the full
// order amount when nil.
type RefundInput struct {
	OrderID     uuid.UUID
	ActorUserID uuid.UUID
	ActorRole   enums.ActorRole
	Reason      string
	Amount      *decimal.Decimal
}

// ListFilters narrows order listings.
type ListFilters struct {
	BuyerID    *uuid.UUID
	ProducerID *uuid.UUID
	Status     *enums.OrderStatus
}

// OrderList is one cursor page of orders.
type OrderList struct {
	Orders     []models.Order
	NextCursor string
}

// Stats aggregates a producer's order volume.
type Stats struct {
	TotalOrders     int64           `json:"total_orders"`
	CompletedOrders int64           `json:"completed_orders"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	ProducerAmount  decimal.Decimal `json:"producer_amount"`
}

package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lumeplay/lumeplay-backend/api/middleware"
	"github.com/lumeplay/lumeplay-backend/api/responses"
	"github.com/lumeplay/lumeplay-backend/api/validators"
	"github.com/lumeplay/lumeplay-backend/internal/orders"
	"github.com/lumeplay/lumeplay-backend/pkg/db/models"
	"github.com/lumeplay/lumeplay-backend/pkg/enums"
	pkgerrors "github.com/lumeplay/lumeplay-backend/pkg/errors"
	"github.com/lumeplay/lumeplay-backend/pkg/logger"
	"github.com/lumeplay/lumeplay-backend/pkg/pagination"
)

type createOrderRequest struct {
	PurchaseType  string  `json:"purchase_type" validate:"required,oneof=product direct"`
	ProductID     *string `json:"product_id,omitempty"`
	DirectItemID  string  `json:"direct_item_id,omitempty"`
	DirectLabel   string  `json:"direct_label,omitempty"`
	Amount        string  `json:"amount,omitempty"`
	PaymentMethod string  `json:"payment_method,omitempty"`
}

type cancelOrderRequest struct {
	Reason string `json:"reason,omitempty" validate:"max=500"`
}

type refundOrderRequest struct {
	Amount string `json:"amount,omitempty"`
	Reason string `json:"reason,omitempty" validate:"max=500"`
}

type orderResponse struct {
	ID             uuid.UUID  `json:"id"`
	BuyerID        uuid.UUID  `json:"buyer_id"`
	ProducerID     *uuid.UUID `json:"producer_id,omitempty"`
	PurchaseType   string     `json:"purchase_type"`
	ProductID      *uuid.UUID `json:"product_id,omitempty"`
	DirectItemID   *string    `json:"direct_item_id,omitempty"`
	DirectLabel    *string    `json:"direct_label,omitempty"`
	Amount         string     `json:"amount"`
	PlatformFee    string     `json:"platform_fee"`
	ProducerAmount string     `json:"producer_amount"`
	PaymentMethod  string     `json:"payment_method"`
	Status         string     `json:"status"`
	CreatedAt      string     `json:"created_at"`
}

func toOrderResponse(order *models.Order) orderResponse {
	return orderResponse{
		ID:             order.ID,
		BuyerID:        order.BuyerID,
		ProducerID:     order.ProducerID,
		PurchaseType:   order.PurchaseType.String(),
		ProductID:      order.ProductID,
		DirectItemID:   order.DirectItemID,
		DirectLabel:    order.DirectLabel,
		Amount:         order.Amount.StringFixed(2),
		PlatformFee:    order.PlatformFee.StringFixed(2),
		ProducerAmount: order.ProducerAmount.StringFixed(2),
		PaymentMethod:  order.PaymentMethod.String(),
		Status:         order.Status.String(),
		CreatedAt:      order.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}

func CreateOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req createOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		input := orders.CreateOrderInput{
			BuyerID:       middleware.ActorID(ctx),
			PurchaseType:  enums.PurchaseType(req.PurchaseType),
			DirectItemID:  req.DirectItemID,
			DirectLabel:   req.DirectLabel,
			PaymentMethod: enums.PaymentMethod(req.PaymentMethod),
		}
		if req.ProductID != nil {
			productID, err := uuid.Parse(*req.ProductID)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid product id"))
				return
			}
			input.ProductID = &productID
		}
		if req.Amount != "" {
			amount, err := decimal.NewFromString(req.Amount)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid amount"))
				return
			}
			input.Amount = amount
		}

		order, err := svc.Create(ctx, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, toOrderResponse(order))
	}
}

func ListOrders(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		limit, err := validators.ParseQueryInt(r, "limit", 0, 0, 100)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		filters := orders.ListFilters{}
		actorID := middleware.ActorID(ctx)
		switch middleware.ActorRole(ctx) {
		case enums.ActorRoleProducer:
			filters.ProducerID = &actorID
		case enums.ActorRoleAdmin:
			// Admins see everything, optionally narrowed by query.
			if raw := r.URL.Query().Get("buyer_id"); raw != "" {
				buyerID, err := uuid.Parse(raw)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid buyer id"))
					return
				}
				filters.BuyerID = &buyerID
			}
		default:
			filters.BuyerID = &actorID
		}
		if raw := r.URL.Query().Get("status"); raw != "" {
			status, err := enums.ParseOrderStatus(raw)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter"))
				return
			}
			filters.Status = &status
		}

		list, err := svc.List(ctx, filters, pagination.Params{
			Limit:  limit,
			Cursor: r.URL.Query().Get("cursor"),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		items := make([]orderResponse, 0, len(list.Orders))
		for i := range list.Orders {
			items = append(items, toOrderResponse(&list.Orders[i]))
		}
		responses.WriteSuccess(w, map[string]any{
			"orders":      items,
			"next_cursor": list.NextCursor,
		})
	}
}

func OrderDetail(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		orderID, err := uuid.Parse(chi.URLParam(r, "orderId"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid order id"))
			return
		}

		order, err := svc.Get(ctx, orderID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		actorID := middleware.ActorID(ctx)
		role := middleware.ActorRole(ctx)
		owned := order.BuyerID == actorID ||
			(order.ProducerID != nil && *order.ProducerID == actorID)
		if role != enums.ActorRoleAdmin && !owned {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to caller"))
			return
		}
		responses.WriteSuccess(w, toOrderResponse(order))
	}
}

func CancelOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		orderID, err := uuid.Parse(chi.URLParam(r, "orderId"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid order id"))
			return
		}

		var req cancelOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		err = svc.Cancel(ctx, orders.CancelInput{
			OrderID:     orderID,
			ActorUserID: middleware.ActorID(ctx),
			ActorRole:   middleware.ActorRole(ctx),
			Reason:      req.Reason,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "cancelled"})
	}
}

func RefundOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		orderID, err := uuid.Parse(chi.URLParam(r, "orderId"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid order id"))
			return
		}

		var req refundOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		input := orders.RefundInput{
			OrderID:     orderID,
			ActorUserID: middleware.ActorID(ctx),
			ActorRole:   middleware.ActorRole(ctx),
			Reason:      req.Reason,
		}
		if req.Amount != "" {
			amount, err := decimal.NewFromString(req.Amount)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid refund amount"))
				return
			}
			input.Amount = &amount
		}

		if err := svc.Refund(ctx, input); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "refunded"})
	}
}

package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/lumeplay/lumeplay-backend/api/middleware"
	"github.com/lumeplay/lumeplay-backend/api/responses"
	"github.com/lumeplay/lumeplay-backend/api/validators"
	"github.com/lumeplay/lumeplay-backend/internal/commissions"
	"github.com/lumeplay/lumeplay-backend/pkg/db/models"
	pkgerrors "github.com/lumeplay/lumeplay-backend/pkg/errors"
	"github.com/lumeplay/lumeplay-backend/pkg/logger"
	"github.com/lumeplay/lumeplay-backend/pkg/pagination"
)

type commissionResponse struct {
	ID            uuid.UUID `json:"id"`
	OrderID       uuid.UUID `json:"order_id"`
	Amount        string    `json:"amount"`
	Status        string    `json:"status"`
	PaymentRef    *string   `json:"payment_ref,omitempty"`
	FailureReason *string   `json:"failure_reason,omitempty"`
	CreatedAt     string    `json:"created_at"`
}

type markPaidRequest struct {
	PaymentRef string `json:"payment_ref,omitempty" validate:"max=200"`
}

type markFailedRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

func toCommissionResponse(c *models.Commission) commissionResponse {
	return commissionResponse{
		ID:            c.ID,
		OrderID:       c.OrderID,
		Amount:        c.Amount.StringFixed(2),
		Status:        c.Status.String(),
		PaymentRef:    c.PaymentRef,
		FailureReason: c.FailureReason,
		CreatedAt:     c.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}

func ListCommissions(svc commissions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		limit, err := validators.ParseQueryInt(r, "limit", 0, 0, 100)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		list, err := svc.List(ctx, middleware.ActorID(ctx), pagination.Params{
			Limit:  limit,
			Cursor: r.URL.Query().Get("cursor"),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		items := make([]commissionResponse, 0, len(list.Commissions))
		for i := range list.Commissions {
			items = append(items, toCommissionResponse(&list.Commissions[i]))
		}
		responses.WriteSuccess(w, map[string]any{
			"commissions": items,
			"next_cursor": list.NextCursor,
		})
	}
}

func CommissionSummary(svc commissions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		summary, err := svc.ProducerSummary(ctx, middleware.ActorID(ctx))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}

func MarkCommissionPaid(svc commissions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		commissionID, err := uuid.Parse(chi.URLParam(r, "commissionId"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid commission id"))
			return
		}

		var req markPaidRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if err := svc.MarkPaid(ctx, commissionID, req.PaymentRef); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "paid"})
	}
}

func MarkCommissionProcessing(svc commissions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		commissionID, err := uuid.Parse(chi.URLParam(r, "commissionId"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid commission id"))
			return
		}

		if err := svc.MarkProcessing(ctx, commissionID); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "processing"})
	}
}

func MarkCommissionFailed(svc commissions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		commissionID, err := uuid.Parse(chi.URLParam(r, "commissionId"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid commission id"))
			return
		}

		var req markFailedRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if err := svc.MarkFailed(ctx, commissionID, req.Reason); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "failed"})
	}
}

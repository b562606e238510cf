package controllers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lumeplay/lumeplay-backend/api/middleware"
	"github.com/lumeplay/lumeplay-backend/api/responses"
	"github.com/lumeplay/lumeplay-backend/api/validators"
	"github.com/lumeplay/lumeplay-backend/internal/payouts"
	"github.com/lumeplay/lumeplay-backend/internal/users"
	"github.com/lumeplay/lumeplay-backend/pkg/db/models"
	"github.com/lumeplay/lumeplay-backend/pkg/enums"
	pkgerrors "github.com/lumeplay/lumeplay-backend/pkg/errors"
	"github.com/lumeplay/lumeplay-backend/pkg/logger"
	"github.com/lumeplay/lumeplay-backend/pkg/pagination"
)

type withdrawRequest struct {
	Amount string `json:"amount,omitempty"`
}

type pixConfigRequest struct {
	PixKey        string `json:"pix_key" validate:"required,max=200"`
	PixKeyType    string `json:"pix_key_type" validate:"required,oneof=cpf cnpj email phone random"`
	AccountHolder string `json:"account_holder" validate:"required,max=200"`
	BankName      string `json:"bank_name,omitempty" validate:"max=200"`
}

type transferResponse struct {
	ID           uuid.UUID `json:"id"`
	OrderID      uuid.UUID `json:"order_id"`
	BatchID      uuid.UUID `json:"batch_id"`
	Amount       string    `json:"amount"`
	Status       string    `json:"status"`
	ProviderID   *string   `json:"provider_id,omitempty"`
	ManualReview bool      `json:"manual_review"`
	CreatedAt    string    `json:"created_at"`
}

func toTransferResponse(t *models.PixTransfer) transferResponse {
	return transferResponse{
		ID:           t.ID,
		OrderID:      t.OrderID,
		BatchID:      t.BatchID,
		Amount:       t.Amount.StringFixed(2),
		Status:       t.Status.String(),
		ProviderID:   t.ProviderID,
		ManualReview: t.ManualReview,
		CreatedAt:    t.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}

func PayoutBalance(svc payouts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		balance, err := svc.AvailableBalance(ctx, middleware.ActorID(ctx))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"available":   balance.Available.StringFixed(2),
			"order_count": balance.OrderCount,
		})
	}
}

// Withdraw reserves a payout batch and executes it in one request. A failed
// provider transfer releases the reservation before the error reaches the
// producer.
func Withdraw(svc payouts.Service, executor *payouts.Executor, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req withdrawRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var requested *decimal.Decimal
		if req.Amount != "" {
			amount, err := decimal.NewFromString(req.Amount)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid amount"))
				return
			}
			requested = &amount
		}

		batch, err := svc.SelectForWithdrawal(ctx, middleware.ActorID(ctx), requested)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if err := executor.ExecuteBatch(ctx, batch.BatchID); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		transfers := make([]transferResponse, 0, len(batch.Transfers))
		for i := range batch.Transfers {
			transfers = append(transfers, toTransferResponse(&batch.Transfers[i]))
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{
			"batch_id":  batch.BatchID,
			"amount":    batch.Amount.StringFixed(2),
			"transfers": transfers,
		})
	}
}

func ListTransfers(svc payouts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		limit, err := validators.ParseQueryInt(r, "limit", 0, 0, 100)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		list, err := svc.ListTransfers(ctx, middleware.ActorID(ctx), pagination.Params{
			Limit:  limit,
			Cursor: r.URL.Query().Get("cursor"),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		items := make([]transferResponse, 0, len(list.Transfers))
		for i := range list.Transfers {
			items = append(items, toTransferResponse(&list.Transfers[i]))
		}
		responses.WriteSuccess(w, map[string]any{
			"transfers":   items,
			"next_cursor": list.NextCursor,
		})
	}
}

func TransferStats(svc payouts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		stats, err := svc.TransferStats(ctx, middleware.ActorID(ctx))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"total_paid":     stats.TotalPaid.StringFixed(2),
			"completed_rows": stats.CompletedRows,
			"failed_rows":    stats.FailedRows,
			"pending_amount": stats.PendingAmount.StringFixed(2),
		})
	}
}

func SavePixConfig(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req pixConfigRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		keyType, err := enums.ParsePixKeyType(req.PixKeyType)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid pix key type"))
			return
		}

		user, err := svc.SavePixConfig(ctx, users.SavePixConfigInput{
			UserID:        middleware.ActorID(ctx),
			PixKey:        req.PixKey,
			PixKeyType:    keyType,
			AccountHolder: req.AccountHolder,
			BankName:      req.BankName,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"pix_key":      user.PixKey,
			"pix_key_type": user.PixKeyType,
			"configured":   user.HasPixConfig(),
		})
	}
}

func SetAutoPayout(svc users.Service, enabled bool, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if err := svc.SetAutoPayout(ctx, middleware.ActorID(ctx), enabled); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"auto_payout_enabled": enabled})
	}
}

func RemovePixConfig(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if err := svc.RemovePixConfig(ctx, middleware.ActorID(ctx)); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "removed"})
	}
}

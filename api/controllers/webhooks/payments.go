package webhooks

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/lumeplay/lumeplay-backend/api/responses"
	"github.com/lumeplay/lumeplay-backend/internal/payments"
	pkgerrors "github.com/lumeplay/lumeplay-backend/pkg/errors"
	"github.com/lumeplay/lumeplay-backend/pkg/logger"
	"github.com/lumeplay/lumeplay-backend/pkg/metrics"
	"github.com/lumeplay/lumeplay-backend/pkg/redis"
)

const (
	webhookProvider           = "mercadopago"
	webhookContinuationBudget = 25 * time.Second
)

type paymentNotificationBody struct {
	Type string `json:"type"`
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
}

// Deduper guards against the provider's at-least-once redelivery.
type Deduper interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	IdempotencyKey(scope, id string) string
}

// PaymentNotification acknowledges the provider immediately and finishes the
// settlement work after the response is written. The provider retries on
// non-2xx, so only an unreadable body is rejected.
func PaymentNotification(svc payments.Service, deduper Deduper, mtr *metrics.SettlementMetrics, dedupTTL time.Duration, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var body paymentNotificationBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			mtr.ObserveWebhook(webhookProvider, "malformed", 0)
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid webhook body"))
			return
		}

		logCtx := logg.WithFields(ctx, map[string]any{
			"notification_type": body.Type,
			"payment_id":        body.Data.ID,
		})

		if body.Data.ID != "" && deduper != nil {
			key := deduper.IdempotencyKey("webhook:payments", fmt.Sprintf("%s:%s", body.Type, body.Data.ID))
			fresh, err := deduper.SetNX(logCtx, key, "1", dedupTTL)
			if err != nil {
				// Dedup is best effort; the pipeline below is idempotent anyway.
				logg.Warn(logCtx, "webhook dedup check failed, continuing")
			} else if !fresh {
				logg.Info(logCtx, "duplicate webhook delivery acknowledged")
				mtr.ObserveWebhook(webhookProvider, "duplicate", 0)
				responses.WriteSuccess(w, map[string]string{"status": "ok"})
				return
			}
		}

		responses.WriteSuccess(w, map[string]string{"status": "ok"})

		// The ACK is already on the wire; the lookup and transition continue
		// detached from the request's cancellation.
		go func() {
			detached, cancel := context.WithTimeout(context.WithoutCancel(logCtx), webhookContinuationBudget)
			defer cancel()

			start := time.Now()
			err := svc.HandleNotification(detached, payments.Notification{
				Type:   body.Type,
				DataID: body.Data.ID,
			})
			if err != nil {
				mtr.ObserveWebhook(webhookProvider, "error", time.Since(start))
				logg.Error(detached, "payment notification processing failed", err)
				return
			}
			mtr.ObserveWebhook(webhookProvider, "processed", time.Since(start))
		}()
	}
}

var _ Deduper = (*redis.Client)(nil)

package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lumeplay/lumeplay-backend/api/controllers"
	webhookcontrollers "github.com/lumeplay/lumeplay-backend/api/controllers/webhooks"
	"github.com/lumeplay/lumeplay-backend/api/middleware"
	"github.com/lumeplay/lumeplay-backend/internal/commissions"
	"github.com/lumeplay/lumeplay-backend/internal/orders"
	"github.com/lumeplay/lumeplay-backend/internal/payments"
	"github.com/lumeplay/lumeplay-backend/internal/payouts"
	"github.com/lumeplay/lumeplay-backend/internal/users"
	"github.com/lumeplay/lumeplay-backend/pkg/config"
	"github.com/lumeplay/lumeplay-backend/pkg/db"
	"github.com/lumeplay/lumeplay-backend/pkg/enums"
	"github.com/lumeplay/lumeplay-backend/pkg/logger"
	"github.com/lumeplay/lumeplay-backend/pkg/metrics"
	"github.com/lumeplay/lumeplay-backend/pkg/redis"
)

// Deps bundles everything the router wires into handlers.
type Deps struct {
	Config  *config.Config
	Logger  *logger.Logger
	DB      db.Pinger
	Redis   *redis.Client
	Metrics *metrics.SettlementMetrics

	Orders      orders.Service
	Commissions commissions.Service
	Payments    payments.Service
	Payouts     payouts.Service
	Executor    *payouts.Executor
	Users       users.Service

	MetricsHandler http.Handler
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB, deps.Redis))
	})

	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/payments", webhookcontrollers.PaymentNotification(
			deps.Payments, deps.Redis, deps.Metrics, cfg.Eventing.WebhookDedupTTL, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Actor(logg))

		r.Route("/orders", func(r chi.Router) {
			r.Use(middleware.RequireActor(logg))
			r.Post("/", controllers.CreateOrder(deps.Orders, logg))
			r.Get("/", controllers.ListOrders(deps.Orders, logg))
			r.Get("/{orderId}", controllers.OrderDetail(deps.Orders, logg))
			r.Post("/{orderId}/cancel", controllers.CancelOrder(deps.Orders, logg))
			r.With(middleware.RequireRole(enums.ActorRoleAdmin, logg)).
				Post("/{orderId}/refund", controllers.RefundOrder(deps.Orders, logg))
		})

		r.Route("/commissions", func(r chi.Router) {
			r.Use(middleware.RequireActor(logg))
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(enums.ActorRoleProducer, logg))
				r.Get("/", controllers.ListCommissions(deps.Commissions, logg))
				r.Get("/summary", controllers.CommissionSummary(deps.Commissions, logg))
			})
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(enums.ActorRoleAdmin, logg))
				r.Post("/{commissionId}/paid", controllers.MarkCommissionPaid(deps.Commissions, logg))
				r.Post("/{commissionId}/processing", controllers.MarkCommissionProcessing(deps.Commissions, logg))
				r.Post("/{commissionId}/failed", controllers.MarkCommissionFailed(deps.Commissions, logg))
			})
		})

		r.Route("/payouts", func(r chi.Router) {
			r.Use(middleware.RequireRole(enums.ActorRoleProducer, logg))
			r.Get("/balance", controllers.PayoutBalance(deps.Payouts, logg))
			r.Post("/withdraw", controllers.Withdraw(deps.Payouts, deps.Executor, logg))
			r.Get("/transfers", controllers.ListTransfers(deps.Payouts, logg))
			r.Get("/stats", controllers.TransferStats(deps.Payouts, logg))
			r.Route("/pix-config", func(r chi.Router) {
				r.Put("/", controllers.SavePixConfig(deps.Users, logg))
				r.Post("/enable", controllers.SetAutoPayout(deps.Users, true, logg))
				r.Post("/disable", controllers.SetAutoPayout(deps.Users, false, logg))
				r.Delete("/", controllers.RemovePixConfig(deps.Users, logg))
			})
		})
	})

	return r
}

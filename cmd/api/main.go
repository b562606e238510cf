package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lumeplay/lumeplay-backend/api/routes"
	"github.com/lumeplay/lumeplay-backend/internal/commissions"
	"github.com/lumeplay/lumeplay-backend/internal/orders"
	"github.com/lumeplay/lumeplay-backend/internal/payments"
	"github.com/lumeplay/lumeplay-backend/internal/payouts"
	"github.com/lumeplay/lumeplay-backend/internal/products"
	"github.com/lumeplay/lumeplay-backend/internal/users"
	"github.com/lumeplay/lumeplay-backend/pkg/asaas"
	"github.com/lumeplay/lumeplay-backend/pkg/config"
	"github.com/lumeplay/lumeplay-backend/pkg/db"
	"github.com/lumeplay/lumeplay-backend/pkg/logger"
	"github.com/lumeplay/lumeplay-backend/pkg/mercadopago"
	"github.com/lumeplay/lumeplay-backend/pkg/metrics"
	"github.com/lumeplay/lumeplay-backend/pkg/migrate"
	"github.com/lumeplay/lumeplay-backend/pkg/outbox"
	"github.com/lumeplay/lumeplay-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	settlementMetrics := metrics.NewSettlementMetrics(registry)

	ordersRepo := orders.NewRepository(dbClient.DB())
	productsRepo := products.NewRepository(dbClient.DB())
	usersRepo := users.NewRepository(dbClient.DB())
	payoutsRepo := payouts.NewRepository(dbClient.DB())
	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	commissionsService, err := commissions.NewService(commissions.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create commissions service", err)
		os.Exit(1)
	}

	ordersService, err := orders.NewService(ordersRepo, dbClient, outboxService,
		commissionsService, productsRepo, usersRepo, orders.NewSalesCounter(),
		cfg.Platform.FeeRate(), settlementMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	mpClient, err := mercadopago.NewClient(cfg.MercadoPago, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create mercadopago client", err)
		os.Exit(1)
	}

	paymentsService, err := payments.NewService(mpClient, ordersService, ordersRepo, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create payments service", err)
		os.Exit(1)
	}

	payoutsService, err := payouts.NewService(payoutsRepo, usersRepo, dbClient, cfg.Platform.MinWithdrawalAmount())
	if err != nil {
		logg.Error(context.Background(), "failed to create payouts service", err)
		os.Exit(1)
	}

	executor, err := newPayoutExecutor(cfg, logg, payoutsRepo, usersRepo, dbClient,
		commissionsService, outboxService, settlementMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create payout executor", err)
		os.Exit(1)
	}

	usersService, err := users.NewService(usersRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create users service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:         cfg,
			Logger:         logg,
			DB:             dbClient,
			Redis:          redisClient,
			Metrics:        settlementMetrics,
			Orders:         ordersService,
			Commissions:    commissionsService,
			Payments:       paymentsService,
			Payouts:        payoutsService,
			Executor:       executor,
			Users:          usersService,
			MetricsHandler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

// newPayoutExecutor wires the transfer provider only when credentials are
// present; without them batches settle for manual review.
func newPayoutExecutor(cfg *config.Config, logg *logger.Logger, repo payouts.Repository, usersRepo users.Repository, dbClient *db.Client, settler commissions.Service, publisher *outbox.Service, mtr *metrics.SettlementMetrics) (*payouts.Executor, error) {
	if !cfg.Asaas.Configured() {
		logg.Warn(context.Background(), "asaas credentials missing, payouts will settle for manual review")
		return payouts.NewExecutor(repo, usersRepo, dbClient, settler, publisher, nil, mtr, logg)
	}
	asaasClient, err := asaas.NewClient(cfg.Asaas, logg)
	if err != nil {
		return nil, err
	}
	return payouts.NewExecutor(repo, usersRepo, dbClient, settler, publisher, asaasClient, mtr, logg)
}

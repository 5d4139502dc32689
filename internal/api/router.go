package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/tonfarm/farmledger/internal/api/handler"
	"github.com/tonfarm/farmledger/internal/api/middleware"
	"github.com/tonfarm/farmledger/internal/config"
	"github.com/tonfarm/farmledger/internal/idempotency"
	"github.com/tonfarm/farmledger/internal/repository"
	"github.com/tonfarm/farmledger/internal/service"
)

// Services is the process-wide service graph. It is constructed once at
// bootstrap and shared between the HTTP surface and the workers, so the
// single-writer balance service really has a single instance.
type Services struct {
	Ledger     *service.LedgerService
	Balance    *service.BalanceService
	Withdrawal *service.WithdrawalService
	History    *service.HistoryService
}

// NewServices builds the service graph over one store.
func NewServices(cfg *config.Config, store *repository.Store) Services {
	guard := service.NewDedupGuard(cfg.DedupWindow)
	balanceSvc := service.NewBalanceService(store)
	ledgerSvc := service.NewLedgerService(store, guard, balanceSvc)
	return Services{
		Ledger:     ledgerSvc,
		Balance:    balanceSvc,
		Withdrawal: service.NewWithdrawalService(store, ledgerSvc),
		History:    service.NewHistoryService(store),
	}
}

// Router wires the HTTP surface on top of the service layer.
type Router struct {
	cfg       *config.Config
	logger    *zap.Logger
	db        *pgxpool.Pool
	svcs      Services
	idemStore *idempotency.Store
	redis     redis.Cmdable
}

func NewRouter(cfg *config.Config, logger *zap.Logger, db *pgxpool.Pool, svcs Services, idemStore *idempotency.Store, redisClient redis.Cmdable) *Router {
	return &Router{
		cfg:       cfg,
		logger:    logger,
		db:        db,
		svcs:      svcs,
		idemStore: idemStore,
		redis:     redisClient,
	}
}

func (api *Router) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.TraceMiddleware)
	r.Use(middleware.RecoverMiddleware(api.logger))
	r.Use(middleware.LoggingMiddleware(api.logger))
	r.Use(middleware.MetricsMiddleware)

	// Handlers
	healthHandler := handler.NewHealthHandler(api.db, api.redis)
	ledgerHandler := handler.NewLedgerHandler(api.svcs.Ledger)
	depositHandler := handler.NewDepositHandler(api.svcs.Ledger)
	balanceHandler := handler.NewBalanceHandler(api.svcs.Balance)
	withdrawalHandler := handler.NewWithdrawalHandler(api.svcs.Withdrawal)
	historyHandler := handler.NewHistoryHandler(api.svcs.History)

	idem := middleware.IdempotencyMiddleware(api.idemStore, api.logger)

	// Public routes
	r.Group(func(r chi.Router) {
		r.Use(middleware.PublicRateLimiter(api.cfg.PublicRateLimitRPS))
		r.Get("/healthz", healthHandler.Live)
		r.Get("/readyz", healthHandler.Ready)
	})
	r.Handle("/metrics", promhttp.Handler())

	// Authenticated routes
	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthMiddleware)
		r.Use(middleware.AuthRateLimiter(api.cfg.AuthRateLimitRPS))

		// Ledger
		r.With(idem).Post("/v1/ledger/entries", ledgerHandler.RecordEvent)
		r.Get("/v1/ledger/entries/{id}", ledgerHandler.GetEntry)

		// Deposits
		r.With(idem).Post("/v1/deposits", depositHandler.ConfirmDeposit)

		// Balance and history
		r.Get("/v1/users/me/balance", balanceHandler.GetMyBalance)
		r.Get("/v1/users/me/history", historyHandler.GetMyHistory)

		// Withdrawals
		r.With(idem).Post("/v1/withdrawals", withdrawalHandler.CreateWithdrawal)
		r.Get("/v1/withdrawals/{id}", withdrawalHandler.GetWithdrawal)

		// Admin review queue
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(middleware.RoleAdmin))
			r.Get("/v1/admin/withdrawals", withdrawalHandler.ListWithdrawals)
			r.With(idem).Post("/v1/admin/withdrawals/{id}/approve", withdrawalHandler.ApproveWithdrawal)
			r.With(idem).Post("/v1/admin/withdrawals/{id}/reject", withdrawalHandler.RejectWithdrawal)
		})
	})

	return r
}

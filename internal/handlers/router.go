package handlers

import (
	"net/http"

	"finledger/internal/config"
	"finledger/internal/db"
	"finledger/internal/middleware"
	"finledger/internal/websocket"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type Handler struct {
	txRunner     db.TxRunner
	cfg          config.Config
	users        UserStore
	accounts     AccountStore
	categories   CategoryStore
	budgets      BudgetStore
	recurring    RecurringStore
	transactions TransactionQueryStore
	operations   OperationStore
	audit        AuditStore
	service      LedgerService
	hub          *websocket.Hub
}

func New(txRunner db.TxRunner, cfg config.Config, users UserStore, accounts AccountStore, categories CategoryStore, budgets BudgetStore, recurring RecurringStore, transactions TransactionQueryStore, operations OperationStore, audit AuditStore, service LedgerService, hub *websocket.Hub) *Handler {
	return &Handler{
		txRunner:     txRunner,
		cfg:          cfg,
		users:        users,
		accounts:     accounts,
		categories:   categories,
		budgets:      budgets,
		recurring:    recurring,
		transactions: transactions,
		operations:   operations,
		audit:        audit,
		service:      service,
		hub:          hub,
	}
}

func (h *Handler) Routes() http.Handler {
	router := chi.NewRouter()
	router.Use(chimiddleware.Logger)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{h.cfg.AllowedOrigins},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Operation-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	router.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.With(middleware.Auth(h.cfg.JWTSecret)).Get("/me", h.Me)
	})
	router.Group(func(r chi.Router) {
		r.Use(middleware.Auth(h.cfg.JWTSecret))
		r.Post("/accounts", h.CreateAccount)
		r.Get("/accounts", h.ListAccounts)
		r.Get("/accounts/{id}/balance", h.GetBalance)
		r.Delete("/accounts/{id}", h.DeactivateAccount)
		r.Get("/accounts/{id}/transactions", h.ListTransactions)

		r.Post("/transactions", h.CreateTransaction)
		r.Get("/transactions/{id}", h.GetTransaction)
		r.Post("/transactions/{id}/adjust", h.AdjustTransaction)
		r.Post("/transactions/{id}/cancel", h.CancelTransaction)
		r.Post("/transactions/{id}/pay", h.PayTransaction)

		r.Post("/installments", h.CreateInstallments)
		r.Get("/installments/{groupID}", h.GetInstallmentGroup)
		r.Post("/installments/{groupID}/adjust", h.AdjustInstallmentGroup)
		r.Post("/installments/{groupID}/cancel", h.CancelInstallmentGroup)
		r.Post("/installments/transactions/{id}/cancel", h.CancelInstallment)

		r.Post("/transfers", h.CreateTransfer)
		r.Get("/transfers/{groupID}", h.GetTransferGroup)
		r.Post("/transfers/{groupID}/cancel", h.CancelTransfer)

		r.Post("/categories", h.CreateCategory)
		r.Get("/categories", h.ListCategories)

		r.Put("/budgets", h.UpsertBudget)
		r.Get("/budgets/report", h.BudgetReport)

		r.Post("/recurring", h.CreateRecurringTemplate)
		r.Get("/recurring", h.ListRecurringTemplates)
		r.Delete("/recurring/{id}", h.DeactivateRecurringTemplate)

		r.Get("/audit", h.ListAuditLogs)
	})
	router.Get("/ws/balances", h.WSBalances)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return router
}

package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"finledger/internal/middleware"
	"finledger/internal/money"
	"finledger/internal/store"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type upsertBudgetRequest struct {
	CategoryID string `json:"category_id"`
	Limit      string `json:"limit"`
}

func (h *Handler) UpsertBudget(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req upsertBudgetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	limitMinor, err := parseAmountMinor(req.Limit)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_amount")
		return
	}
	category, err := h.categories.GetByID(r.Context(), req.CategoryID)
	if err != nil || category.UserID != userID {
		respondError(w, http.StatusNotFound, "category_not_found")
		return
	}
	budget := store.Budget{
		ID:         uuid.NewString(),
		UserID:     userID,
		CategoryID: req.CategoryID,
		LimitMinor: limitMinor,
	}
	if err := h.txRunner.WithTx(r.Context(), func(tx *sqlx.Tx) error {
		return h.budgets.Upsert(r.Context(), tx, budget)
	}); err != nil {
		respondError(w, http.StatusInternalServerError, "budget upsert failed")
		return
	}
	respondJSON(w, http.StatusOK, budget)
}

type budgetReportLine struct {
	CategoryID string `json:"category_id"`
	Limit      string `json:"limit"`
	Spent      string `json:"spent"`
	Used       string `json:"used_percent"`
}

// BudgetReport reports per-category spend against the configured limits for
// one competence month (?year=2026&month=8, defaulting to the current month).
func (h *Handler) BudgetReport(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	now := time.Now().UTC()
	year := queryInt(r, "year", now.Year())
	month := queryInt(r, "month", int(now.Month()))
	if month < 1 || month > 12 {
		respondError(w, http.StatusBadRequest, "invalid_month")
		return
	}
	budgets, err := h.budgets.ListByUser(r.Context(), userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load budgets")
		return
	}
	accounts, err := h.accounts.ListByUser(r.Context(), userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load accounts")
		return
	}
	accountIDs := make([]string, len(accounts))
	for i, account := range accounts {
		accountIDs[i] = account.ID
	}
	report := make([]budgetReportLine, 0, len(budgets))
	for _, budget := range budgets {
		spent, err := h.transactions.SumPaidByCategoryAndMonth(r.Context(), accountIDs, budget.CategoryID, year, month)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "unable to compute report")
			return
		}
		report = append(report, budgetReportLine{
			CategoryID: budget.CategoryID,
			Limit:      money.FormatMinor(budget.LimitMinor),
			Spent:      money.FormatMinor(spent),
			Used:       money.Percent(spent, budget.LimitMinor),
		})
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"year":    year,
		"month":   month,
		"budgets": report,
	})
}

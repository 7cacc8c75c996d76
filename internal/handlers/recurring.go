package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"finledger/internal/middleware"
	"finledger/internal/store"
	"finledger/internal/validator"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type createRecurringRequest struct {
	AccountID   string `json:"account_id"`
	CategoryID  string `json:"category_id"`
	Type        string `json:"type"`
	Amount      string `json:"amount"`
	Description string `json:"description"`
	DayOfMonth  int    `json:"day_of_month"`
}

func (h *Handler) CreateRecurringTemplate(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req createRecurringRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if err := validator.ValidateTransactionType(req.Type); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validator.ValidateDayOfMonth(req.DayOfMonth); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	amountMinor, err := parseAmountMinor(req.Amount)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_amount")
		return
	}
	if _, ok := h.ownedAccount(w, r, userID, req.AccountID); !ok {
		return
	}
	tpl := store.RecurringTemplate{
		ID:          uuid.NewString(),
		UserID:      userID,
		AccountID:   req.AccountID,
		CategoryID:  req.CategoryID,
		Type:        req.Type,
		Amount:      amountMinor,
		Description: req.Description,
		DayOfMonth:  req.DayOfMonth,
		IsActive:    true,
		NextRunAt:   nextRun(time.Now().UTC(), req.DayOfMonth),
	}
	if err := h.txRunner.WithTx(r.Context(), func(tx *sqlx.Tx) error {
		return h.recurring.Create(r.Context(), tx, tpl)
	}); err != nil {
		respondError(w, http.StatusInternalServerError, "template creation failed")
		return
	}
	respondJSON(w, http.StatusCreated, tpl)
}

func (h *Handler) ListRecurringTemplates(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	templates, err := h.recurring.ListByUser(r.Context(), userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to list templates")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"templates": templates})
}

func (h *Handler) DeactivateRecurringTemplate(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	templateID := chi.URLParam(r, "id")
	templates, err := h.recurring.ListByUser(r.Context(), userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load templates")
		return
	}
	owned := false
	for _, tpl := range templates {
		if tpl.ID == templateID {
			owned = true
			break
		}
	}
	if !owned {
		respondError(w, http.StatusNotFound, "template_not_found")
		return
	}
	if err := h.txRunner.WithTx(r.Context(), func(tx *sqlx.Tx) error {
		return h.recurring.Deactivate(r.Context(), tx, templateID)
	}); err != nil {
		if err == sql.ErrNoRows {
			respondError(w, http.StatusNotFound, "template_not_found")
			return
		}
		respondError(w, http.StatusInternalServerError, "deactivation failed")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deactivated"})
}

// nextRun finds the first occurrence of dayOfMonth strictly after now.
func nextRun(now time.Time, dayOfMonth int) time.Time {
	candidate := time.Date(now.Year(), now.Month(), dayOfMonth, 0, 0, 0, 0, time.UTC)
	if !candidate.After(now) {
		candidate = candidate.AddDate(0, 1, 0)
	}
	return candidate
}

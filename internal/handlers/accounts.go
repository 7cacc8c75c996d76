package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"finledger/internal/ledger"
	"finledger/internal/middleware"
	"finledger/internal/money"
	"finledger/internal/validator"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type createAccountRequest struct {
	Name          string `json:"name"`
	Type          string `json:"type"`
	AllowNegative bool   `json:"allow_negative"`
}

func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req createAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}
	if err := validator.ValidateAccountType(req.Type); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	now := time.Now().UTC()
	account := ledger.Account{
		ID:            uuid.NewString(),
		UserID:        userID,
		Name:          req.Name,
		Type:          req.Type,
		AllowNegative: req.AllowNegative,
		IsActive:      true,
		CreatedBy:     userID,
		CreatedAt:     now,
		UpdatedBy:     userID,
		UpdatedAt:     now,
	}
	err := h.txRunner.WithTx(r.Context(), func(tx *sqlx.Tx) error {
		if err := h.accounts.Create(r.Context(), tx, account); err != nil {
			return err
		}
		data, _ := json.Marshal(map[string]string{"name": account.Name, "type": account.Type})
		return h.audit.Log(r.Context(), tx, userID, "account.create", "account", account.ID, string(data))
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "account creation failed")
		return
	}
	respondJSON(w, http.StatusCreated, account)
}

func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	accounts, err := h.accounts.ListByUser(r.Context(), userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to list accounts")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"accounts": accounts})
}

func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	account, ok := h.ownedAccount(w, r, userID, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"account_id": account.ID,
		"balance":    money.FormatMinor(account.Balance),
		"is_active":  account.IsActive,
	})
}

func (h *Handler) DeactivateAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	account, ok := h.ownedAccount(w, r, userID, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	err := h.txRunner.WithTx(r.Context(), func(tx *sqlx.Tx) error {
		if err := h.accounts.Deactivate(r.Context(), tx, account.ID, userID); err != nil {
			return err
		}
		return h.audit.Log(r.Context(), tx, userID, "account.deactivate", "account", account.ID, "{}")
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "deactivation failed")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deactivated"})
}

// ownedAccount loads an account and enforces ownership, writing the error
// response itself when the lookup fails.
func (h *Handler) ownedAccount(w http.ResponseWriter, r *http.Request, userID, accountID string) (ledger.Account, bool) {
	account, err := h.accounts.GetByID(r.Context(), accountID)
	if err != nil {
		if err == sql.ErrNoRows {
			respondError(w, http.StatusNotFound, "account_not_found")
			return ledger.Account{}, false
		}
		respondError(w, http.StatusInternalServerError, "unable to load account")
		return ledger.Account{}, false
	}
	if account.UserID != userID {
		respondError(w, http.StatusForbidden, "account_access_denied")
		return ledger.Account{}, false
	}
	return account, true
}

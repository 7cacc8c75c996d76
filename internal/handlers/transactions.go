package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"finledger/internal/ledger"
	"finledger/internal/middleware"
	"finledger/internal/services"
	"finledger/internal/validator"

	"github.com/go-chi/chi/v5"
)

type createTransactionRequest struct {
	AccountID   string  `json:"account_id"`
	CategoryID  string  `json:"category_id"`
	Type        string  `json:"type"`
	Amount      string  `json:"amount"`
	Description string  `json:"description"`
	Date        string  `json:"date"`
	DueDate     string  `json:"due_date"`
	Status      string  `json:"status"`
	OperationID *string `json:"operation_id"`
}

func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req createTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if err := validator.ValidateTransactionType(req.Type); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Status == "" {
		req.Status = string(ledger.StatusPaid)
	}
	if err := validator.ValidateCreateStatus(req.Status); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	amountMinor, err := parseAmountMinor(req.Amount)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_amount")
		return
	}
	competence, err := parseDate(req.Date)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_date")
		return
	}
	dueDate, err := parseOptionalDate(req.DueDate)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_due_date")
		return
	}
	created, err := h.service.CreateTransaction(r.Context(), services.CreateTransactionRequest{
		ActorID:        userID,
		AccountID:      req.AccountID,
		CategoryID:     req.CategoryID,
		Type:           ledger.TransactionType(req.Type),
		AmountMinor:    amountMinor,
		Description:    req.Description,
		CompetenceDate: competence,
		DueDate:        dueDate,
		Status:         ledger.TransactionStatus(req.Status),
		OperationID:    req.OperationID,
	})
	if err != nil {
		h.respondCommandError(w, r, err, req.OperationID)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	txn, ok := h.ownedTransaction(w, r, userID, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, txn)
}

type adjustTransactionRequest struct {
	NewAmount   string  `json:"new_amount"`
	OperationID *string `json:"operation_id"`
}

func (h *Handler) AdjustTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req adjustTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	newAmount, err := parseAmountMinor(req.NewAmount)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_amount")
		return
	}
	adjustment, err := h.service.AdjustTransaction(r.Context(), services.AdjustTransactionRequest{
		ActorID:        userID,
		TransactionID:  chi.URLParam(r, "id"),
		NewAmountMinor: newAmount,
		OperationID:    req.OperationID,
	})
	if err != nil {
		h.respondCommandError(w, r, err, req.OperationID)
		return
	}
	respondJSON(w, http.StatusCreated, adjustment)
}

type cancelRequest struct {
	Reason      string  `json:"reason"`
	OperationID *string `json:"operation_id"`
}

func (h *Handler) CancelTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req cancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if strings.TrimSpace(req.Reason) == "" {
		respondError(w, http.StatusBadRequest, "reason is required")
		return
	}
	cancelled, err := h.service.CancelTransaction(r.Context(), services.CancelTransactionRequest{
		ActorID:       userID,
		TransactionID: chi.URLParam(r, "id"),
		Reason:        req.Reason,
		OperationID:   req.OperationID,
	})
	if err != nil {
		h.respondCommandError(w, r, err, req.OperationID)
		return
	}
	respondJSON(w, http.StatusOK, cancelled)
}

type payRequest struct {
	OperationID *string `json:"operation_id"`
}

func (h *Handler) PayTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req payRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	paid, err := h.service.PayTransaction(r.Context(), services.PayTransactionRequest{
		ActorID:       userID,
		TransactionID: chi.URLParam(r, "id"),
		OperationID:   req.OperationID,
	})
	if err != nil {
		h.respondCommandError(w, r, err, req.OperationID)
		return
	}
	respondJSON(w, http.StatusOK, paid)
}

func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	account, ok := h.ownedAccount(w, r, userID, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	status := r.URL.Query().Get("status")
	if status != "" {
		switch ledger.TransactionStatus(status) {
		case ledger.StatusPending, ledger.StatusPaid, ledger.StatusCancelled:
		default:
			respondError(w, http.StatusBadRequest, "invalid_status")
			return
		}
	}
	year := queryInt(r, "year", 0)
	month := queryInt(r, "month", 0)
	if (year == 0) != (month == 0) || month < 0 || month > 12 {
		respondError(w, http.StatusBadRequest, "invalid_month_filter")
		return
	}
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)
	transactions, err := h.transactions.ListByAccount(r.Context(), account.ID, status, year, month, limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to list transactions")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"transactions": transactions})
}

// ownedTransaction loads a transaction and checks that its account belongs to
// the caller.
func (h *Handler) ownedTransaction(w http.ResponseWriter, r *http.Request, userID, transactionID string) (ledger.Transaction, bool) {
	txn, err := h.transactions.GetByID(r.Context(), nil, transactionID)
	if err != nil {
		if err == sql.ErrNoRows {
			respondError(w, http.StatusNotFound, "transaction_not_found")
			return ledger.Transaction{}, false
		}
		respondError(w, http.StatusInternalServerError, "unable to load transaction")
		return ledger.Transaction{}, false
	}
	if _, ok := h.ownedAccount(w, r, userID, txn.AccountID); !ok {
		return ledger.Transaction{}, false
	}
	return txn, true
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return fallback
	}
	return value
}

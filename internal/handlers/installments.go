package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"finledger/internal/ledger"
	"finledger/internal/middleware"
	"finledger/internal/services"
	"finledger/internal/validator"

	"github.com/go-chi/chi/v5"
)

type createInstallmentsRequest struct {
	AccountID   string  `json:"account_id"`
	CategoryID  string  `json:"category_id"`
	Type        string  `json:"type"`
	TotalAmount string  `json:"total_amount"`
	Count       int     `json:"count"`
	Description string  `json:"description"`
	FirstDate   string  `json:"first_date"`
	FirstDue    string  `json:"first_due_date"`
	OperationID *string `json:"operation_id"`
}

func (h *Handler) CreateInstallments(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req createInstallmentsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if req.Type == "" {
		req.Type = string(ledger.Debit)
	}
	if err := validator.ValidateTransactionType(req.Type); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	totalMinor, err := parseAmountMinor(req.TotalAmount)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_amount")
		return
	}
	firstDate, err := parseDate(req.FirstDate)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_date")
		return
	}
	firstDue, err := parseOptionalDate(req.FirstDue)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_due_date")
		return
	}
	plan, err := h.service.CreateInstallments(r.Context(), services.CreateInstallmentsRequest{
		ActorID:             userID,
		AccountID:           req.AccountID,
		CategoryID:          req.CategoryID,
		Type:                ledger.TransactionType(req.Type),
		TotalAmountMinor:    totalMinor,
		Count:               req.Count,
		Description:         req.Description,
		FirstCompetenceDate: firstDate,
		FirstDueDate:        firstDue,
		OperationID:         req.OperationID,
	})
	if err != nil {
		h.respondCommandError(w, r, err, req.OperationID)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{
		"installment_group_id": plan[0].InstallmentGroupID,
		"installments":         plan,
	})
}

func (h *Handler) GetInstallmentGroup(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	group, err := h.transactions.GetByInstallmentGroup(r.Context(), nil, chi.URLParam(r, "groupID"))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load installments")
		return
	}
	if len(group) == 0 {
		respondError(w, http.StatusNotFound, "installment_group_not_found")
		return
	}
	if _, ok := h.ownedAccount(w, r, userID, group[0].AccountID); !ok {
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"installments": group})
}

type adjustInstallmentsRequest struct {
	NewTotal    string  `json:"new_total"`
	OperationID *string `json:"operation_id"`
}

func (h *Handler) AdjustInstallmentGroup(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req adjustInstallmentsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	newTotal, err := parseAmountMinor(req.NewTotal)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_amount")
		return
	}
	adjustments, err := h.service.AdjustInstallmentGroup(r.Context(), services.AdjustInstallmentGroupRequest{
		ActorID:       userID,
		GroupID:       chi.URLParam(r, "groupID"),
		NewTotalMinor: newTotal,
		OperationID:   req.OperationID,
	})
	if err != nil {
		h.respondCommandError(w, r, err, req.OperationID)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"adjustments": adjustments})
}

func (h *Handler) CancelInstallment(w http.ResponseWriter, r *http.Request) {
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
	cancelled, err := h.service.CancelInstallment(r.Context(), services.CancelInstallmentRequest{
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

func (h *Handler) CancelInstallmentGroup(w http.ResponseWriter, r *http.Request) {
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
	cancelled, err := h.service.CancelInstallmentGroup(r.Context(), services.CancelInstallmentGroupRequest{
		ActorID:     userID,
		GroupID:     chi.URLParam(r, "groupID"),
		Reason:      req.Reason,
		OperationID: req.OperationID,
	})
	if err != nil {
		h.respondCommandError(w, r, err, req.OperationID)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"cancelled": cancelled})
}

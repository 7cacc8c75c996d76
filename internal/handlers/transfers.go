package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"finledger/internal/middleware"
	"finledger/internal/services"

	"github.com/go-chi/chi/v5"
)

type createTransferRequest struct {
	SourceAccountID      string  `json:"source_account_id"`
	DestinationAccountID string  `json:"destination_account_id"`
	CategoryID           string  `json:"category_id"`
	Amount               string  `json:"amount"`
	Description          string  `json:"description"`
	Date                 string  `json:"date"`
	OperationID          *string `json:"operation_id"`
}

func (h *Handler) CreateTransfer(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req createTransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if req.SourceAccountID == "" || req.DestinationAccountID == "" {
		respondError(w, http.StatusBadRequest, "source and destination accounts are required")
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
	pair, err := h.service.CreateTransfer(r.Context(), services.CreateTransferRequest{
		ActorID:              userID,
		SourceAccountID:      req.SourceAccountID,
		DestinationAccountID: req.DestinationAccountID,
		CategoryID:           req.CategoryID,
		AmountMinor:          amountMinor,
		Description:          req.Description,
		CompetenceDate:       competence,
		OperationID:          req.OperationID,
	})
	if err != nil {
		h.respondCommandError(w, r, err, req.OperationID)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{
		"transfer_group_id": pair.Debit.TransferGroupID,
		"debit":             pair.Debit,
		"credit":            pair.Credit,
	})
}

func (h *Handler) GetTransferGroup(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	legs, err := h.transactions.GetByTransferGroup(r.Context(), nil, chi.URLParam(r, "groupID"))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load transfer")
		return
	}
	if len(legs) == 0 {
		respondError(w, http.StatusNotFound, "transfer_not_found")
		return
	}
	if _, ok := h.ownedAccount(w, r, userID, legs[0].AccountID); !ok {
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"legs": legs})
}

func (h *Handler) CancelTransfer(w http.ResponseWriter, r *http.Request) {
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
	pair, err := h.service.CancelTransfer(r.Context(), services.CancelTransferRequest{
		ActorID:     userID,
		GroupID:     chi.URLParam(r, "groupID"),
		Reason:      req.Reason,
		OperationID: req.OperationID,
	})
	if err != nil {
		h.respondCommandError(w, r, err, req.OperationID)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"debit":  pair.Debit,
		"credit": pair.Credit,
	})
}

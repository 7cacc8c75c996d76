package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"finledger/internal/ledger"
	"finledger/internal/services"
	"finledger/internal/store"
)

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps command errors onto HTTP statuses. Duplicate
// operations land on 409 so retrying clients can tell "already done" from
// "rejected".
func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrDuplicateOperation):
		respondError(w, http.StatusConflict, "duplicate_operation")
	case errors.Is(err, services.ErrAccountNotFound):
		respondError(w, http.StatusNotFound, "account_not_found")
	case errors.Is(err, services.ErrTransactionNotFound):
		respondError(w, http.StatusNotFound, "transaction_not_found")
	case errors.Is(err, services.ErrUnauthorizedAccount):
		respondError(w, http.StatusForbidden, "account_access_denied")
	case errors.Is(err, services.ErrSameAccountTransfer):
		respondError(w, http.StatusBadRequest, "same_account_transfer")
	case errors.Is(err, services.ErrGroupedTransaction):
		respondError(w, http.StatusConflict, "grouped_transaction")
	case errors.Is(err, ledger.ErrInsufficientBalance):
		respondError(w, http.StatusBadRequest, "insufficient_balance")
	case errors.Is(err, ledger.ErrInactiveAccount):
		respondError(w, http.StatusBadRequest, "inactive_account")
	case errors.Is(err, ledger.ErrInvalidAmount):
		respondError(w, http.StatusBadRequest, "invalid_amount")
	case errors.Is(err, ledger.ErrTransactionCancelled):
		respondError(w, http.StatusConflict, "transaction_cancelled")
	case errors.Is(err, ledger.ErrTransactionNotPending):
		respondError(w, http.StatusConflict, "transaction_not_pending")
	case errors.Is(err, ledger.ErrAdjustmentUnchanged):
		respondError(w, http.StatusBadRequest, "adjustment_unchanged")
	case errors.Is(err, ledger.ErrInvalidInstallmentCount):
		respondError(w, http.StatusBadRequest, "invalid_installment_count")
	case errors.Is(err, ledger.ErrNoPendingInstallments):
		respondError(w, http.StatusConflict, "no_pending_installments")
	case errors.Is(err, ledger.ErrInstallmentPaid):
		respondError(w, http.StatusConflict, "installment_already_paid")
	default:
		respondError(w, http.StatusInternalServerError, "operation_failed")
	}
}

// respondCommandError is respondServiceError plus duplicate enrichment: on a
// duplicate the 409 carries the entity id the first attempt produced.
func (h *Handler) respondCommandError(w http.ResponseWriter, r *http.Request, err error, operationID *string) {
	if errors.Is(err, services.ErrDuplicateOperation) {
		if rec, ok := h.operationResult(r, operationID); ok {
			respondJSON(w, http.StatusConflict, map[string]string{
				"error":     "duplicate_operation",
				"entity_id": rec.ResultEntityID,
			})
			return
		}
	}
	respondServiceError(w, err)
}

// operationResult resolves a conflicting operation's earlier result so a 409
// can point the client at the entity the first attempt produced.
func (h *Handler) operationResult(r *http.Request, operationID *string) (store.OperationRecord, bool) {
	if operationID == nil || *operationID == "" {
		return store.OperationRecord{}, false
	}
	rec, err := h.operations.GetByID(r.Context(), *operationID)
	if err != nil {
		return store.OperationRecord{}, false
	}
	return rec, true
}

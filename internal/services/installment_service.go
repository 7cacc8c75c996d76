package services

import (
	"context"
	"time"

	"finledger/internal/ledger"

	"github.com/jmoiron/sqlx"
)

type CreateInstallmentsRequest struct {
	ActorID             string
	AccountID           string
	CategoryID          string
	Type                ledger.TransactionType
	TotalAmountMinor    int64
	Count               int
	Description         string
	FirstCompetenceDate time.Time
	FirstDueDate        *time.Time
	OperationID         *string
}

// CreateInstallments creates a plan of N pending transactions sharing one
// group id. Pending rows carry no balance effect, but the account lock is
// still taken so the active check and the inserts see a stable row.
func (s *LedgerService) CreateInstallments(ctx context.Context, req CreateInstallmentsRequest) ([]ledger.Transaction, error) {
	if err := s.checkDuplicate(ctx, req.OperationID); err != nil {
		return nil, err
	}
	var plan []*ledger.Transaction
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		account, err := s.lockAccount(ctx, tx, req.AccountID, req.ActorID)
		if err != nil {
			return err
		}
		plan, err = ledger.CreateInstallmentPlan(&account, ledger.InstallmentPlanParams{
			CategoryID:          req.CategoryID,
			Type:                req.Type,
			TotalAmount:         req.TotalAmountMinor,
			Count:               req.Count,
			Description:         req.Description,
			FirstCompetenceDate: req.FirstCompetenceDate,
			FirstDueDate:        req.FirstDueDate,
			OperationID:         req.OperationID,
		}, req.ActorID)
		if err != nil {
			return err
		}
		for _, txn := range plan {
			if err := s.transactions.Insert(ctx, tx, *txn); err != nil {
				return err
			}
		}
		groupID := *plan[0].InstallmentGroupID
		if err := s.recordOperation(ctx, tx, req.OperationID, "installment.create", groupID); err != nil {
			return err
		}
		return s.auditTransaction(ctx, tx, req.ActorID, "installment.create", *plan[0])
	})
	if err != nil {
		return nil, s.translate(err)
	}
	out := make([]ledger.Transaction, len(plan))
	for i, txn := range plan {
		out[i] = *txn
	}
	return out, nil
}

type AdjustInstallmentGroupRequest struct {
	ActorID       string
	GroupID       string
	NewTotalMinor int64
	OperationID   *string
}

// AdjustInstallmentGroup redistributes the difference between the new total
// and the current group total across the pending installments.
func (s *LedgerService) AdjustInstallmentGroup(ctx context.Context, req AdjustInstallmentGroupRequest) ([]ledger.Transaction, error) {
	if req.NewTotalMinor <= 0 {
		return nil, ledger.ErrInvalidAmount
	}
	if err := s.checkDuplicate(ctx, req.OperationID); err != nil {
		return nil, err
	}
	members, err := s.transactions.GetByInstallmentGroup(ctx, s.reader, req.GroupID)
	if err != nil {
		return nil, s.translate(err)
	}
	if len(members) == 0 {
		return nil, ErrTransactionNotFound
	}
	var adjustments []*ledger.Transaction
	var adjusted ledger.Account
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		account, err := s.lockAccount(ctx, tx, members[0].AccountID, req.ActorID)
		if err != nil {
			return err
		}
		group, err := s.transactions.GetByInstallmentGroup(ctx, tx, req.GroupID)
		if err != nil {
			return err
		}
		refs := make([]*ledger.Transaction, len(group))
		for i := range group {
			refs[i] = &group[i]
		}
		adjustments, err = ledger.AdjustInstallmentPlan(&account, refs, req.NewTotalMinor, req.ActorID, req.OperationID)
		if err != nil {
			return err
		}
		for _, adj := range adjustments {
			if err := s.transactions.Insert(ctx, tx, *adj); err != nil {
				return err
			}
		}
		for _, member := range refs {
			if member.HasAdjustment {
				if err := s.transactions.Update(ctx, tx, *member); err != nil {
					return err
				}
			}
		}
		// Adjustments are created settled, so the account balance moves.
		if err := s.accounts.UpdateBalance(ctx, tx, account); err != nil {
			return err
		}
		adjusted = account
		if err := s.recordOperation(ctx, tx, req.OperationID, "installment.adjust", req.GroupID); err != nil {
			return err
		}
		if len(adjustments) > 0 {
			return s.auditTransaction(ctx, tx, req.ActorID, "installment.adjust", *adjustments[0])
		}
		return nil
	})
	if err != nil {
		return nil, s.translate(err)
	}
	s.broadcast(adjusted)
	out := make([]ledger.Transaction, len(adjustments))
	for i, adj := range adjustments {
		out[i] = *adj
	}
	return out, nil
}

type CancelInstallmentRequest struct {
	ActorID       string
	TransactionID string
	Reason        string
	OperationID   *string
}

// CancelInstallment cancels a single pending installment. Paid installments
// are immutable here; adjust the group instead.
func (s *LedgerService) CancelInstallment(ctx context.Context, req CancelInstallmentRequest) (ledger.Transaction, error) {
	if err := s.checkDuplicate(ctx, req.OperationID); err != nil {
		return ledger.Transaction{}, err
	}
	peek, err := s.transactions.GetByID(ctx, s.reader, req.TransactionID)
	if err != nil {
		return ledger.Transaction{}, s.translate(err)
	}
	var cancelled ledger.Transaction
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		account, err := s.lockAccount(ctx, tx, peek.AccountID, req.ActorID)
		if err != nil {
			return err
		}
		txn, err := s.transactions.GetByID(ctx, tx, req.TransactionID)
		if err != nil {
			return err
		}
		if err := ledger.CancelInstallment(&account, &txn, req.ActorID, req.Reason); err != nil {
			return err
		}
		if err := s.transactions.Update(ctx, tx, txn); err != nil {
			return err
		}
		if err := s.recordOperation(ctx, tx, req.OperationID, "installment.cancel", txn.ID); err != nil {
			return err
		}
		cancelled = txn
		return s.auditTransaction(ctx, tx, req.ActorID, "installment.cancel", cancelled)
	})
	if err != nil {
		return ledger.Transaction{}, s.translate(err)
	}
	return cancelled, nil
}

type CancelInstallmentGroupRequest struct {
	ActorID     string
	GroupID     string
	Reason      string
	OperationID *string
}

// CancelInstallmentGroup cancels every pending installment in the group and
// leaves paid ones untouched.
func (s *LedgerService) CancelInstallmentGroup(ctx context.Context, req CancelInstallmentGroupRequest) ([]ledger.Transaction, error) {
	if err := s.checkDuplicate(ctx, req.OperationID); err != nil {
		return nil, err
	}
	members, err := s.transactions.GetByInstallmentGroup(ctx, s.reader, req.GroupID)
	if err != nil {
		return nil, s.translate(err)
	}
	if len(members) == 0 {
		return nil, ErrTransactionNotFound
	}
	var cancelled []*ledger.Transaction
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		account, err := s.lockAccount(ctx, tx, members[0].AccountID, req.ActorID)
		if err != nil {
			return err
		}
		group, err := s.transactions.GetByInstallmentGroup(ctx, tx, req.GroupID)
		if err != nil {
			return err
		}
		refs := make([]*ledger.Transaction, len(group))
		for i := range group {
			refs[i] = &group[i]
		}
		cancelled, err = ledger.CancelInstallmentPlan(&account, refs, req.ActorID, req.Reason)
		if err != nil {
			return err
		}
		for _, txn := range cancelled {
			if err := s.transactions.Update(ctx, tx, *txn); err != nil {
				return err
			}
		}
		if err := s.recordOperation(ctx, tx, req.OperationID, "installment.cancel_group", req.GroupID); err != nil {
			return err
		}
		if len(cancelled) > 0 {
			return s.auditTransaction(ctx, tx, req.ActorID, "installment.cancel_group", *cancelled[0])
		}
		return nil
	})
	if err != nil {
		return nil, s.translate(err)
	}
	out := make([]ledger.Transaction, len(cancelled))
	for i, txn := range cancelled {
		out[i] = *txn
	}
	return out, nil
}

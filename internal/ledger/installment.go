package ledger

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidInstallmentCount = errors.New("invalid installment count")
	ErrNoPendingInstallments   = errors.New("no pending installments to adjust")
	ErrInstallmentPaid         = errors.New("paid installment cannot be cancelled")
)

type InstallmentPlanParams struct {
	CategoryID          string
	Type                TransactionType
	TotalAmount         int64
	Count               int
	Description         string
	FirstCompetenceDate time.Time
	FirstDueDate        *time.Time
	OperationID         *string
}

// CreateInstallmentPlan splits a total into Count linked pending
// transactions. Shares are truncated to whole cents and the residue lands on
// the last installment, so the parts always sum to the total exactly. Dates
// advance one calendar month per installment. Only installment #1 carries the
// operation id: idempotency is keyed to the plan, not to each row.
func CreateInstallmentPlan(account *Account, p InstallmentPlanParams, actor string) ([]*Transaction, error) {
	if p.Count < 1 {
		return nil, ErrInvalidInstallmentCount
	}
	if p.TotalAmount <= 0 {
		return nil, ErrInvalidAmount
	}
	amounts := SplitAmount(p.TotalAmount, p.Count)
	groupID := uuid.NewString()
	installments := make([]*Transaction, 0, p.Count)
	for i, amount := range amounts {
		var opID *string
		if i == 0 {
			opID = p.OperationID
		}
		var due *time.Time
		if p.FirstDueDate != nil {
			d := p.FirstDueDate.AddDate(0, i, 0)
			due = &d
		}
		txn, err := CreateTransaction(account, NewTransactionParams{
			CategoryID:     p.CategoryID,
			Type:           p.Type,
			Amount:         amount,
			Description:    p.Description,
			CompetenceDate: p.FirstCompetenceDate.AddDate(0, i, 0),
			DueDate:        due,
			Status:         StatusPending,
			OperationID:    opID,
		}, actor)
		if err != nil {
			return nil, err
		}
		txn.InstallmentGroupID = &groupID
		txn.InstallmentNumber = i + 1
		txn.TotalInstallments = p.Count
		installments = append(installments, txn)
	}
	return installments, nil
}

// AdjustInstallmentPlan redistributes the difference between newTotal and the
// group's current effective total over the pending members only; paid and
// cancelled members are immutable. Each non-zero per-member delta becomes a
// linked adjustment. Only the first adjustment carries the operation id.
//
// Adjustment rows share the group id, so on a re-adjustment the slice holds
// them too. They count toward the effective total signed against the plan's
// direction (an opposite-type adjustment subtracts) and are never adjusted
// themselves.
func AdjustInstallmentPlan(account *Account, installments []*Transaction, newTotal int64, actor string, operationID *string) ([]*Transaction, error) {
	if newTotal <= 0 {
		return nil, ErrInvalidAmount
	}
	var direction TransactionType
	for _, txn := range installments {
		if !txn.IsAdjustment {
			direction = txn.Type
			break
		}
	}
	var pending []*Transaction
	var currentTotal int64
	for _, txn := range installments {
		if txn.Status != StatusCancelled {
			if txn.Type == direction {
				currentTotal += txn.Amount
			} else {
				currentTotal -= txn.Amount
			}
		}
		if txn.Status == StatusPending && !txn.IsAdjustment {
			pending = append(pending, txn)
		}
	}
	if len(pending) == 0 {
		return nil, ErrNoPendingInstallments
	}
	delta := newTotal - currentTotal
	if delta == 0 {
		return nil, ErrAdjustmentUnchanged
	}
	deltas := SplitAmount(delta, len(pending))
	adjustments := make([]*Transaction, 0, len(pending))
	for i, member := range pending {
		if deltas[i] == 0 {
			continue
		}
		adj, err := CreateAdjustment(account, member, member.Amount+deltas[i], actor)
		if err != nil {
			return nil, err
		}
		if len(adjustments) == 0 {
			adj.OperationID = operationID
		}
		adjustments = append(adjustments, adj)
	}
	return adjustments, nil
}

// CancelInstallment cancels a single group member. A settled installment
// cannot be unilaterally cancelled; it takes an adjustment instead.
func CancelInstallment(account *Account, installment *Transaction, actor, reason string) error {
	if installment.Status == StatusPaid {
		return ErrInstallmentPaid
	}
	return CancelTransaction(account, installment, actor, reason)
}

// CancelInstallmentPlan cancels every pending member of the group, skipping
// paid and already-cancelled members. Partial cancellation is the expected
// outcome for a mixed-status group. Returns the members actually cancelled.
func CancelInstallmentPlan(account *Account, installments []*Transaction, actor, reason string) ([]*Transaction, error) {
	var cancelled []*Transaction
	for _, txn := range installments {
		if txn.Status != StatusPending {
			continue
		}
		if err := CancelTransaction(account, txn, actor, reason); err != nil {
			return nil, err
		}
		cancelled = append(cancelled, txn)
	}
	return cancelled, nil
}

// SplitAmount divides total cents into n shares truncated toward zero, with
// the remainder folded into the last share so the shares sum to total. Works
// for negative totals too, which group adjustment relies on.
func SplitAmount(total int64, n int) []int64 {
	share := total / int64(n)
	shares := make([]int64, n)
	for i := range shares {
		shares[i] = share
	}
	shares[n-1] += total - share*int64(n)
	return shares
}

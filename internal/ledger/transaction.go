package ledger

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

type TransactionType string

const (
	Debit  TransactionType = "debit"
	Credit TransactionType = "credit"
)

type TransactionStatus string

const (
	StatusPending   TransactionStatus = "pending"
	StatusPaid      TransactionStatus = "paid"
	StatusCancelled TransactionStatus = "cancelled"
)

var (
	ErrTransactionCancelled  = errors.New("transaction is cancelled")
	ErrTransactionNotPending = errors.New("transaction is not pending")
	ErrAdjustmentUnchanged   = errors.New("adjustment amount equals current amount")
)

// Transaction is a single ledger movement. Amount is always strictly
// positive; direction is carried by Type. Linkage fields tie a transaction to
// an installment group, a transfer pair, a recurrence template or the
// transaction it adjusts.
type Transaction struct {
	ID                    string            `db:"id" json:"id"`
	AccountID             string            `db:"account_id" json:"account_id"`
	CategoryID            string            `db:"category_id" json:"category_id"`
	Type                  TransactionType   `db:"type" json:"type"`
	Status                TransactionStatus `db:"status" json:"status"`
	Amount                int64             `db:"amount" json:"amount"`
	Description           string            `db:"description" json:"description"`
	CompetenceDate        time.Time         `db:"competence_date" json:"competence_date"`
	DueDate               *time.Time        `db:"due_date" json:"due_date,omitempty"`
	IsAdjustment          bool              `db:"is_adjustment" json:"is_adjustment"`
	OriginalTransactionID *string           `db:"original_transaction_id" json:"original_transaction_id,omitempty"`
	HasAdjustment         bool              `db:"has_adjustment" json:"has_adjustment"`
	InstallmentGroupID    *string           `db:"installment_group_id" json:"installment_group_id,omitempty"`
	InstallmentNumber     int               `db:"installment_number" json:"installment_number,omitempty"`
	TotalInstallments     int               `db:"total_installments" json:"total_installments,omitempty"`
	TransferGroupID       *string           `db:"transfer_group_id" json:"transfer_group_id,omitempty"`
	RecurrenceTemplateID  *string           `db:"recurrence_template_id" json:"recurrence_template_id,omitempty"`
	CancelReason          *string           `db:"cancel_reason" json:"cancel_reason,omitempty"`
	CancelledBy           *string           `db:"cancelled_by" json:"cancelled_by,omitempty"`
	CancelledAt           *time.Time        `db:"cancelled_at" json:"cancelled_at,omitempty"`
	OperationID           *string           `db:"operation_id" json:"operation_id,omitempty"`
	CreatedBy             string            `db:"created_by" json:"created_by"`
	CreatedAt             time.Time         `db:"created_at" json:"created_at"`
	UpdatedBy             string            `db:"updated_by" json:"updated_by"`
	UpdatedAt             time.Time         `db:"updated_at" json:"updated_at"`
}

type NewTransactionParams struct {
	CategoryID           string
	Type                 TransactionType
	Amount               int64
	Description          string
	CompetenceDate       time.Time
	DueDate              *time.Time
	Status               TransactionStatus
	OperationID          *string
	RecurrenceTemplateID *string
}

// CreateTransaction builds a transaction against account and, when created
// Paid, applies its balance effect immediately. Pending transactions never
// touch the balance.
func CreateTransaction(account *Account, p NewTransactionParams, actor string) (*Transaction, error) {
	if err := account.ValidateCanReceiveTransaction(); err != nil {
		return nil, err
	}
	if p.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	now := time.Now().UTC()
	txn := &Transaction{
		ID:                   uuid.NewString(),
		AccountID:            account.ID,
		CategoryID:           p.CategoryID,
		Type:                 p.Type,
		Status:               p.Status,
		Amount:               p.Amount,
		Description:          p.Description,
		CompetenceDate:       p.CompetenceDate,
		DueDate:              p.DueDate,
		OperationID:          p.OperationID,
		RecurrenceTemplateID: p.RecurrenceTemplateID,
		CreatedBy:            actor,
		CreatedAt:            now,
		UpdatedBy:            actor,
		UpdatedAt:            now,
	}
	if p.Status == StatusPaid {
		if err := applyEffect(account, txn, actor); err != nil {
			return nil, err
		}
	}
	return txn, nil
}

// CreateAdjustment corrects a settled transaction's effective amount with a
// new linked transaction; the original's amount is never mutated. The
// adjustment direction follows the signed delta against the original's
// direction: a debit grown to a larger amount needs an extra debit, a debit
// shrunk needs a credit giving money back, and symmetrically for credits.
func CreateAdjustment(account *Account, original *Transaction, newAmount int64, actor string) (*Transaction, error) {
	if original.Status == StatusCancelled {
		return nil, ErrTransactionCancelled
	}
	if newAmount <= 0 {
		return nil, ErrInvalidAmount
	}
	if newAmount == original.Amount {
		return nil, ErrAdjustmentUnchanged
	}
	delta := newAmount - original.Amount
	adjType := original.Type
	if delta < 0 {
		adjType = opposite(original.Type)
		delta = -delta
	}
	adj, err := CreateTransaction(account, NewTransactionParams{
		CategoryID:     original.CategoryID,
		Type:           adjType,
		Amount:         delta,
		Description:    original.Description + " (adjustment)",
		CompetenceDate: original.CompetenceDate,
		DueDate:        original.DueDate,
		Status:         StatusPaid,
	}, actor)
	if err != nil {
		return nil, err
	}
	adj.IsAdjustment = true
	adj.OriginalTransactionID = &original.ID
	adj.InstallmentGroupID = original.InstallmentGroupID
	original.HasAdjustment = true
	original.UpdatedBy = actor
	original.UpdatedAt = time.Now().UTC()
	return adj, nil
}

// CancelTransaction moves a transaction to its terminal Cancelled state,
// undoing the balance effect if it had been applied. Cancelled is terminal:
// re-cancelling is rejected. A transaction that has adjustments may still be
// cancelled; the adjustments stand on their own.
func CancelTransaction(account *Account, txn *Transaction, actor, reason string) error {
	if txn.Status == StatusCancelled {
		return ErrTransactionCancelled
	}
	if txn.Status == StatusPaid {
		revertEffect(account, txn, actor)
	}
	now := time.Now().UTC()
	txn.Status = StatusCancelled
	txn.CancelReason = &reason
	txn.CancelledBy = &actor
	txn.CancelledAt = &now
	txn.UpdatedBy = actor
	txn.UpdatedAt = now
	return nil
}

// PayTransaction settles a pending transaction, applying its balance effect.
func PayTransaction(account *Account, txn *Transaction, actor string) error {
	if txn.Status != StatusPending {
		return ErrTransactionNotPending
	}
	if err := applyEffect(account, txn, actor); err != nil {
		return err
	}
	txn.Status = StatusPaid
	txn.UpdatedBy = actor
	txn.UpdatedAt = time.Now().UTC()
	return nil
}

func applyEffect(account *Account, txn *Transaction, actor string) error {
	if txn.Type == Debit {
		return account.ApplyDebit(txn.Amount, actor)
	}
	return account.ApplyCredit(txn.Amount, actor)
}

func revertEffect(account *Account, txn *Transaction, actor string) {
	if txn.Type == Debit {
		account.RevertDebit(txn.Amount, actor)
		return
	}
	account.RevertCredit(txn.Amount, actor)
}

func opposite(t TransactionType) TransactionType {
	if t == Debit {
		return Credit
	}
	return Debit
}

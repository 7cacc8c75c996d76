package store

import (
	"context"
	"fmt"
	"time"

	"finledger/internal/ledger"

	"github.com/lib/pq"
)

type TransactionStore struct {
	db DB
}

func NewTransactionStore(db DB) *TransactionStore {
	return &TransactionStore{db: db}
}

const transactionColumns = `id, account_id, category_id, type, status, amount, description,
	competence_date, due_date, is_adjustment, original_transaction_id, has_adjustment,
	installment_group_id, installment_number, total_installments, transfer_group_id,
	recurrence_template_id, cancel_reason, cancelled_by, cancelled_at, operation_id,
	created_by, created_at, updated_by, updated_at`

func (s *TransactionStore) Insert(ctx context.Context, tx Execer, txn ledger.Transaction) error {
	query := `
		INSERT INTO transactions (
			id, account_id, category_id, type, status, amount, description,
			competence_date, due_date, is_adjustment, original_transaction_id, has_adjustment,
			installment_group_id, installment_number, total_installments, transfer_group_id,
			recurrence_template_id, operation_id, created_by, updated_by
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	`
	_, err := tx.ExecContext(ctx, query,
		txn.ID, txn.AccountID, txn.CategoryID, txn.Type, txn.Status, txn.Amount, txn.Description,
		txn.CompetenceDate, txn.DueDate, txn.IsAdjustment, txn.OriginalTransactionID, txn.HasAdjustment,
		txn.InstallmentGroupID, txn.InstallmentNumber, txn.TotalInstallments, txn.TransferGroupID,
		txn.RecurrenceTemplateID, txn.OperationID, txn.CreatedBy, txn.UpdatedBy,
	)
	return err
}

// Update persists the mutable fields: status, adjustment flag and
// cancellation metadata. Everything else is written once at insert.
func (s *TransactionStore) Update(ctx context.Context, tx Execer, txn ledger.Transaction) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE transactions
		SET status = $1, has_adjustment = $2, cancel_reason = $3, cancelled_by = $4,
		    cancelled_at = $5, updated_by = $6, updated_at = NOW()
		WHERE id = $7
	`, txn.Status, txn.HasAdjustment, txn.CancelReason, txn.CancelledBy,
		txn.CancelledAt, txn.UpdatedBy, txn.ID)
	return err
}

// GetByID reads through q when the caller holds a transaction, or the bound
// database when q is nil.
func (s *TransactionStore) GetByID(ctx context.Context, q Getter, transactionID string) (ledger.Transaction, error) {
	if q == nil {
		q = s.db
	}
	var row ledger.Transaction
	err := q.GetContext(ctx, &row, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE id = $1
	`, transactionID)
	if err != nil {
		return ledger.Transaction{}, err
	}
	return row, nil
}

func (s *TransactionStore) GetByInstallmentGroup(ctx context.Context, q Selecter, groupID string) ([]ledger.Transaction, error) {
	if q == nil {
		q = s.db
	}
	var rows []ledger.Transaction
	err := q.SelectContext(ctx, &rows, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE installment_group_id = $1
		ORDER BY installment_number
	`, groupID)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *TransactionStore) GetByTransferGroup(ctx context.Context, q Selecter, groupID string) ([]ledger.Transaction, error) {
	if q == nil {
		q = s.db
	}
	var rows []ledger.Transaction
	err := q.SelectContext(ctx, &rows, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE transfer_group_id = $1
		ORDER BY type
	`, groupID)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ListByAccount pages a single account's transactions, optionally filtered by
// status and competence month (year and month zero means all months).
func (s *TransactionStore) ListByAccount(ctx context.Context, accountID, status string, year, month, limit, offset int) ([]ledger.Transaction, error) {
	var rows []ledger.Transaction
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE account_id = $1
	`
	args := []any{accountID}
	if status != "" {
		query += ` AND status = $` + itoa(len(args)+1)
		args = append(args, status)
	}
	if year != 0 && month != 0 {
		from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
		query += ` AND competence_date >= $` + itoa(len(args)+1) + ` AND competence_date < $` + itoa(len(args)+2)
		args = append(args, from, from.AddDate(0, 1, 0))
	}
	query += ` ORDER BY competence_date DESC, created_at DESC LIMIT $` + itoa(len(args)+1) + ` OFFSET $` + itoa(len(args)+2)
	args = append(args, limit, offset)
	err := s.db.SelectContext(ctx, &rows, query, args...)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// SumPaidByCategoryAndMonth feeds the budget utilization report: net spend
// per category for the competence month, debits minus credits, paid only.
func (s *TransactionStore) SumPaidByCategoryAndMonth(ctx context.Context, accountIDs []string, categoryID string, year int, month int) (int64, error) {
	if len(accountIDs) == 0 {
		return 0, nil
	}
	query := `
		SELECT COALESCE(SUM(CASE WHEN type = 'debit' THEN amount ELSE -amount END), 0)
		FROM transactions
		WHERE category_id = $1
		  AND status = 'paid'
		  AND date_trunc('month', competence_date) = make_date($2, $3, 1)
		  AND account_id = ANY($4)
	`
	var sum int64
	err := s.db.GetContext(ctx, &sum, query, categoryID, year, month, pq.Array(accountIDs))
	return sum, err
}

func itoa(value int) string {
	return fmt.Sprintf("%d", value)
}

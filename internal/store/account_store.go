package store

import (
	"context"

	"finledger/internal/ledger"
)

type AccountStore struct {
	db DB
}

func NewAccountStore(db DB) *AccountStore {
	return &AccountStore{db: db}
}

const accountColumns = `id, user_id, name, type, balance, allow_negative, is_active, created_by, created_at, updated_by, updated_at`

func (s *AccountStore) Create(ctx context.Context, tx Execer, account ledger.Account) error {
	query := `
		INSERT INTO accounts (id, user_id, name, type, balance, allow_negative, is_active, created_by, updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := tx.ExecContext(ctx, query,
		account.ID, account.UserID, account.Name, account.Type, account.Balance,
		account.AllowNegative, account.IsActive, account.CreatedBy, account.UpdatedBy,
	)
	return err
}

func (s *AccountStore) GetByID(ctx context.Context, accountID string) (ledger.Account, error) {
	var row ledger.Account
	err := s.db.GetContext(ctx, &row, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE id = $1
	`, accountID)
	if err != nil {
		return ledger.Account{}, err
	}
	return row, nil
}

// GetForUpdate loads the account under an exclusive row lock held until the
// enclosing transaction commits or rolls back.
func (s *AccountStore) GetForUpdate(ctx context.Context, tx Getter, accountID string) (ledger.Account, error) {
	var row ledger.Account
	err := tx.GetContext(ctx, &row, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE id = $1
		FOR UPDATE
	`, accountID)
	if err != nil {
		return ledger.Account{}, err
	}
	return row, nil
}

func (s *AccountStore) ListByUser(ctx context.Context, userID string) ([]ledger.Account, error) {
	var rows []ledger.Account
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE user_id = $1
		ORDER BY created_at
	`, userID)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *AccountStore) UpdateBalance(ctx context.Context, tx Execer, account ledger.Account) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE accounts
		SET balance = $1, updated_by = $2, updated_at = NOW()
		WHERE id = $3
	`, account.Balance, account.UpdatedBy, account.ID)
	return err
}

// Deactivate is a soft delete; accounts referenced by transactions are never
// physically removed.
func (s *AccountStore) Deactivate(ctx context.Context, tx Execer, accountID, actor string) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE accounts
		SET is_active = FALSE, updated_by = $1, updated_at = NOW()
		WHERE id = $2
	`, actor, accountID)
	return err
}

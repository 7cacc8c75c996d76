package store

import (
	"context"
	"time"
)

type BudgetStore struct {
	db DB
}

// Budget is a per-category monthly spending limit in minor units. Budgets are
// read-side bookkeeping; they never participate in the transactional path.
type Budget struct {
	ID         string    `db:"id" json:"id"`
	UserID     string    `db:"user_id" json:"user_id"`
	CategoryID string    `db:"category_id" json:"category_id"`
	LimitMinor int64     `db:"limit_minor" json:"limit"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

func NewBudgetStore(db DB) *BudgetStore {
	return &BudgetStore{db: db}
}

func (s *BudgetStore) Upsert(ctx context.Context, tx Execer, budget Budget) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO budgets (id, user_id, category_id, limit_minor)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, category_id)
		DO UPDATE SET limit_minor = EXCLUDED.limit_minor, updated_at = NOW()
	`, budget.ID, budget.UserID, budget.CategoryID, budget.LimitMinor)
	return err
}

func (s *BudgetStore) ListByUser(ctx context.Context, userID string) ([]Budget, error) {
	var rows []Budget
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, user_id, category_id, limit_minor, created_at, updated_at
		FROM budgets
		WHERE user_id = $1
		ORDER BY created_at
	`, userID)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

package store

import (
	"context"
	"time"
)

type RecurringStore struct {
	db DB
}

// RecurringTemplate describes a movement materialized once per month by the
// background worker. NextRunAt advances after each materialization; the
// worker also keys each run with a deterministic operation id, so a crashed
// or repeated cycle cannot double-create.
type RecurringTemplate struct {
	ID          string    `db:"id" json:"id"`
	UserID      string    `db:"user_id" json:"user_id"`
	AccountID   string    `db:"account_id" json:"account_id"`
	CategoryID  string    `db:"category_id" json:"category_id"`
	Type        string    `db:"type" json:"type"`
	Amount      int64     `db:"amount" json:"amount"`
	Description string    `db:"description" json:"description"`
	DayOfMonth  int       `db:"day_of_month" json:"day_of_month"`
	IsActive    bool      `db:"is_active" json:"is_active"`
	NextRunAt   time.Time `db:"next_run_at" json:"next_run_at"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

func NewRecurringStore(db DB) *RecurringStore {
	return &RecurringStore{db: db}
}

func (s *RecurringStore) Create(ctx context.Context, tx Execer, tpl RecurringTemplate) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO recurring_templates (id, user_id, account_id, category_id, type, amount, description, day_of_month, is_active, next_run_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, tpl.ID, tpl.UserID, tpl.AccountID, tpl.CategoryID, tpl.Type, tpl.Amount,
		tpl.Description, tpl.DayOfMonth, tpl.IsActive, tpl.NextRunAt)
	return err
}

func (s *RecurringStore) ListDue(ctx context.Context, now time.Time) ([]RecurringTemplate, error) {
	var rows []RecurringTemplate
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, user_id, account_id, category_id, type, amount, description, day_of_month, is_active, next_run_at, created_at
		FROM recurring_templates
		WHERE is_active = TRUE AND next_run_at <= $1
		ORDER BY next_run_at
	`, now)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *RecurringStore) ListByUser(ctx context.Context, userID string) ([]RecurringTemplate, error) {
	var rows []RecurringTemplate
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, user_id, account_id, category_id, type, amount, description, day_of_month, is_active, next_run_at, created_at
		FROM recurring_templates
		WHERE user_id = $1
		ORDER BY created_at
	`, userID)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *RecurringStore) AdvanceNextRun(ctx context.Context, templateID string, nextRunAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE recurring_templates SET next_run_at = $1 WHERE id = $2
	`, nextRunAt, templateID)
	return err
}

func (s *RecurringStore) Deactivate(ctx context.Context, tx Execer, templateID string) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE recurring_templates SET is_active = FALSE WHERE id = $1
	`, templateID)
	return err
}

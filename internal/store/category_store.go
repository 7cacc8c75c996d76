package store

import (
	"context"
	"time"
)

type CategoryStore struct {
	db DB
}

type Category struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

func NewCategoryStore(db DB) *CategoryStore {
	return &CategoryStore{db: db}
}

func (s *CategoryStore) Create(ctx context.Context, tx Execer, category Category) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO categories (id, user_id, name)
		VALUES ($1, $2, $3)
	`, category.ID, category.UserID, category.Name)
	return err
}

func (s *CategoryStore) GetByID(ctx context.Context, categoryID string) (Category, error) {
	var row Category
	err := s.db.GetContext(ctx, &row, `
		SELECT id, user_id, name, created_at FROM categories WHERE id = $1
	`, categoryID)
	if err != nil {
		return Category{}, err
	}
	return row, nil
}

func (s *CategoryStore) ListByUser(ctx context.Context, userID string) ([]Category, error) {
	var rows []Category
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, user_id, name, created_at FROM categories WHERE user_id = $1 ORDER BY name
	`, userID)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

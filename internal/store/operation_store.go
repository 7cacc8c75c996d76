package store

import (
	"context"
	"time"
)

// OperationStore is the idempotency ledger. A row is written once per
// successful mutating command that supplied a client operation id and is
// never updated; the primary key on operation_id is what resolves concurrent
// retries racing past the pre-check.
type OperationStore struct {
	db DB
}

type OperationRecord struct {
	OperationID    string    `db:"operation_id"`
	OperationType  string    `db:"operation_type"`
	ResultEntityID string    `db:"result_entity_id"`
	ResultPayload  string    `db:"result_payload"`
	CreatedAt      time.Time `db:"created_at"`
	ExpiresAt      time.Time `db:"expires_at"`
}

func NewOperationStore(db DB) *OperationStore {
	return &OperationStore{db: db}
}

// Exists is the fast duplicate pre-check, read outside any lock.
func (s *OperationStore) Exists(ctx context.Context, operationID string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists, `
		SELECT EXISTS(SELECT 1 FROM operation_log WHERE operation_id = $1)
	`, operationID)
	return exists, err
}

func (s *OperationStore) GetByID(ctx context.Context, operationID string) (OperationRecord, error) {
	var row OperationRecord
	err := s.db.GetContext(ctx, &row, `
		SELECT operation_id, operation_type, result_entity_id, result_payload, created_at, expires_at
		FROM operation_log
		WHERE operation_id = $1
	`, operationID)
	if err != nil {
		return OperationRecord{}, err
	}
	return row, nil
}

func (s *OperationStore) Insert(ctx context.Context, tx Execer, rec OperationRecord) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO operation_log (operation_id, operation_type, result_entity_id, result_payload, expires_at)
		VALUES ($1, $2, $3, $4, $5)
	`, rec.OperationID, rec.OperationType, rec.ResultEntityID, rec.ResultPayload, rec.ExpiresAt)
	return err
}

// DeleteExpired is the maintenance sweep; it runs off the transactional path.
func (s *OperationStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM operation_log WHERE expires_at < $1
	`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

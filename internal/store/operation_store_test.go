package store

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"
)

func TestOperationStoreExists(t *testing.T) {
	ctx := context.Background()
	store := NewOperationStore(stubDB{
		getFn: func(_ context.Context, dest any, query string, args ...any) error {
			if !strings.Contains(query, "FROM operation_log") {
				t.Fatalf("unexpected query: %s", query)
			}
			if len(args) != 1 || args[0] != "op-1" {
				t.Fatalf("unexpected args: %#v", args)
			}
			*dest.(*bool) = true
			return nil
		},
	})
	exists, err := store.Exists(ctx, "op-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists")
	}
}

func TestOperationStoreInsert(t *testing.T) {
	ctx := context.Background()
	expires := time.Now().Add(24 * time.Hour)
	execer := stubExecer{
		execFn: func(_ context.Context, query string, args ...any) (sql.Result, error) {
			if !strings.Contains(query, "INSERT INTO operation_log") {
				t.Fatalf("unexpected query: %s", query)
			}
			if len(args) != 5 || args[0] != "op-1" || args[1] != "transaction.create" {
				t.Fatalf("unexpected args: %#v", args)
			}
			return stubResult{rows: 1}, nil
		},
	}
	store := NewOperationStore(stubDB{})
	err := store.Insert(ctx, execer, OperationRecord{
		OperationID:    "op-1",
		OperationType:  "transaction.create",
		ResultEntityID: "txn-1",
		ResultPayload:  "{}",
		ExpiresAt:      expires,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestOperationStoreDeleteExpired(t *testing.T) {
	ctx := context.Background()
	store := NewOperationStore(stubDB{
		execFn: func(_ context.Context, query string, args ...any) (sql.Result, error) {
			if !strings.Contains(query, "DELETE FROM operation_log") {
				t.Fatalf("unexpected query: %s", query)
			}
			return stubResult{rows: 3}, nil
		},
	})
	deleted, err := store.DeleteExpired(ctx, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if deleted != 3 {
		t.Fatalf("expected 3 deleted, got %d", deleted)
	}
}

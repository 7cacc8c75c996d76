package store

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"finledger/internal/ledger"
)

func TestAccountStoreCreate(t *testing.T) {
	ctx := context.Background()
	execer := stubExecer{
		execFn: func(_ context.Context, query string, args ...any) (sql.Result, error) {
			if !strings.Contains(query, "INSERT INTO accounts") {
				t.Fatalf("unexpected query: %s", query)
			}
			if len(args) != 9 {
				t.Fatalf("expected 9 args, got %d", len(args))
			}
			if args[0] != "acc-1" || args[3] != ledger.AccountChecking || args[4] != int64(1000) {
				t.Fatalf("unexpected args: %#v", args)
			}
			return stubResult{rows: 1}, nil
		},
	}
	store := NewAccountStore(stubDB{})
	err := store.Create(ctx, execer, ledger.Account{
		ID: "acc-1", UserID: "user-1", Name: "Checking", Type: ledger.AccountChecking,
		Balance: 1000, IsActive: true, CreatedBy: "user-1", UpdatedBy: "user-1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAccountStoreGetForUpdate(t *testing.T) {
	ctx := context.Background()
	getter := stubGetter{
		getFn: func(_ context.Context, dest any, query string, args ...any) error {
			if !strings.Contains(query, "FOR UPDATE") {
				t.Fatalf("expected row lock in query: %s", query)
			}
			if len(args) != 1 || args[0] != "acc-1" {
				t.Fatalf("unexpected args: %#v", args)
			}
			*dest.(*ledger.Account) = ledger.Account{ID: "acc-1", Balance: 5000}
			return nil
		},
	}
	store := NewAccountStore(stubDB{})
	account, err := store.GetForUpdate(ctx, getter, "acc-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if account.ID != "acc-1" || account.Balance != 5000 {
		t.Fatalf("unexpected account: %#v", account)
	}
}

func TestAccountStoreUpdateBalance(t *testing.T) {
	ctx := context.Background()
	execer := stubExecer{
		execFn: func(_ context.Context, query string, args ...any) (sql.Result, error) {
			if !strings.Contains(query, "UPDATE accounts") {
				t.Fatalf("unexpected query: %s", query)
			}
			if args[0] != int64(4200) || args[1] != "user-1" || args[2] != "acc-1" {
				t.Fatalf("unexpected args: %#v", args)
			}
			return stubResult{rows: 1}, nil
		},
	}
	store := NewAccountStore(stubDB{})
	err := store.UpdateBalance(ctx, execer, ledger.Account{ID: "acc-1", Balance: 4200, UpdatedBy: "user-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAccountStoreDeactivate(t *testing.T) {
	ctx := context.Background()
	execer := stubExecer{
		execFn: func(_ context.Context, query string, args ...any) (sql.Result, error) {
			if !strings.Contains(query, "SET is_active = FALSE") {
				t.Fatalf("unexpected query: %s", query)
			}
			return stubResult{rows: 1}, nil
		},
	}
	store := NewAccountStore(stubDB{})
	if err := store.Deactivate(ctx, execer, "acc-1", "user-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

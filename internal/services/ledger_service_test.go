package services

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"finledger/internal/ledger"
	"finledger/internal/store"
	"finledger/internal/websocket"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

var competence = time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

type fakeTxRunner struct {
	err error
}

func (f fakeTxRunner) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	if f.err != nil {
		return f.err
	}
	return fn(nil)
}

type stubAccountStore struct {
	getByIDFn       func(ctx context.Context, accountID string) (ledger.Account, error)
	getForUpdateFn  func(ctx context.Context, tx store.Getter, accountID string) (ledger.Account, error)
	updateBalanceFn func(ctx context.Context, tx store.Execer, account ledger.Account) error
}

func (s stubAccountStore) GetByID(ctx context.Context, accountID string) (ledger.Account, error) {
	if s.getByIDFn == nil {
		return ledger.Account{}, nil
	}
	return s.getByIDFn(ctx, accountID)
}

func (s stubAccountStore) GetForUpdate(ctx context.Context, tx store.Getter, accountID string) (ledger.Account, error) {
	return s.getForUpdateFn(ctx, tx, accountID)
}

func (s stubAccountStore) UpdateBalance(ctx context.Context, tx store.Execer, account ledger.Account) error {
	if s.updateBalanceFn == nil {
		return nil
	}
	return s.updateBalanceFn(ctx, tx, account)
}

type stubTransactionStore struct {
	getByIDFn               func(ctx context.Context, q store.Getter, transactionID string) (ledger.Transaction, error)
	getByInstallmentGroupFn func(ctx context.Context, q store.Selecter, groupID string) ([]ledger.Transaction, error)
	getByTransferGroupFn    func(ctx context.Context, q store.Selecter, groupID string) ([]ledger.Transaction, error)
	insertFn                func(ctx context.Context, tx store.Execer, txn ledger.Transaction) error
	updateFn                func(ctx context.Context, tx store.Execer, txn ledger.Transaction) error
}

func (s stubTransactionStore) GetByID(ctx context.Context, q store.Getter, transactionID string) (ledger.Transaction, error) {
	return s.getByIDFn(ctx, q, transactionID)
}

func (s stubTransactionStore) GetByInstallmentGroup(ctx context.Context, q store.Selecter, groupID string) ([]ledger.Transaction, error) {
	return s.getByInstallmentGroupFn(ctx, q, groupID)
}

func (s stubTransactionStore) GetByTransferGroup(ctx context.Context, q store.Selecter, groupID string) ([]ledger.Transaction, error) {
	return s.getByTransferGroupFn(ctx, q, groupID)
}

func (s stubTransactionStore) Insert(ctx context.Context, tx store.Execer, txn ledger.Transaction) error {
	if s.insertFn == nil {
		return nil
	}
	return s.insertFn(ctx, tx, txn)
}

func (s stubTransactionStore) Update(ctx context.Context, tx store.Execer, txn ledger.Transaction) error {
	if s.updateFn == nil {
		return nil
	}
	return s.updateFn(ctx, tx, txn)
}

type stubOperationStore struct {
	existsFn func(ctx context.Context, operationID string) (bool, error)
	insertFn func(ctx context.Context, tx store.Execer, rec store.OperationRecord) error
}

func (s stubOperationStore) Exists(ctx context.Context, operationID string) (bool, error) {
	if s.existsFn == nil {
		return false, nil
	}
	return s.existsFn(ctx, operationID)
}

func (s stubOperationStore) Insert(ctx context.Context, tx store.Execer, rec store.OperationRecord) error {
	if s.insertFn == nil {
		return nil
	}
	return s.insertFn(ctx, tx, rec)
}

type stubAuditStore struct {
	logFn func(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID, data string) error
}

func (s stubAuditStore) Log(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID, data string) error {
	if s.logFn == nil {
		return nil
	}
	return s.logFn(ctx, tx, actorID, action, entityType, entityID, data)
}

type stubHub struct {
	calls []websocket.BalanceUpdate
}

func (s *stubHub) BroadcastBalance(_ string, update websocket.BalanceUpdate) {
	s.calls = append(s.calls, update)
}

func newTestService(accounts stubAccountStore, transactions stubTransactionStore, operations stubOperationStore, hub *stubHub) *LedgerService {
	if hub == nil {
		hub = &stubHub{}
	}
	return NewLedgerService(fakeTxRunner{}, nil, accounts, transactions, operations, stubAuditStore{}, hub, time.Hour)
}

func ownedAccount(id string, balance int64) ledger.Account {
	return ledger.Account{ID: id, UserID: "user-1", Name: "main", Type: ledger.AccountChecking, Balance: balance, IsActive: true}
}

func TestCreateTransactionAppliesPaidDebit(t *testing.T) {
	var inserted ledger.Transaction
	var written ledger.Account
	hub := &stubHub{}
	service := newTestService(stubAccountStore{
		getForUpdateFn: func(_ context.Context, _ store.Getter, accountID string) (ledger.Account, error) {
			return ownedAccount(accountID, 10000), nil
		},
		updateBalanceFn: func(_ context.Context, _ store.Execer, account ledger.Account) error {
			written = account
			return nil
		},
	}, stubTransactionStore{
		insertFn: func(_ context.Context, _ store.Execer, txn ledger.Transaction) error {
			inserted = txn
			return nil
		},
	}, stubOperationStore{}, hub)

	created, err := service.CreateTransaction(context.Background(), CreateTransactionRequest{
		ActorID: "user-1", AccountID: "acc-1", CategoryID: "cat-1",
		Type: ledger.Debit, AmountMinor: 2500, Description: "groceries",
		CompetenceDate: competence, Status: ledger.StatusPaid,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.ID == "" || inserted.ID != created.ID {
		t.Fatalf("unexpected transaction: %#v", inserted)
	}
	if written.Balance != 7500 {
		t.Fatalf("expected balance 7500, got %d", written.Balance)
	}
	if len(hub.calls) != 1 || hub.calls[0].Balance != "75.00" {
		t.Fatalf("unexpected broadcasts: %#v", hub.calls)
	}
}

func TestCreateTransactionDuplicatePrecheck(t *testing.T) {
	service := newTestService(stubAccountStore{
		getForUpdateFn: func(context.Context, store.Getter, string) (ledger.Account, error) {
			t.Fatalf("unexpected store call")
			return ledger.Account{}, nil
		},
	}, stubTransactionStore{}, stubOperationStore{
		existsFn: func(context.Context, string) (bool, error) { return true, nil },
	}, nil)

	opID := "op-1"
	_, err := service.CreateTransaction(context.Background(), CreateTransactionRequest{
		ActorID: "user-1", AccountID: "acc-1", CategoryID: "cat-1",
		Type: ledger.Debit, AmountMinor: 100, CompetenceDate: competence,
		Status: ledger.StatusPaid, OperationID: &opID,
	})
	if err != ErrDuplicateOperation {
		t.Fatalf("expected ErrDuplicateOperation, got %v", err)
	}
}

func TestCreateTransactionUniqueViolationTranslated(t *testing.T) {
	service := newTestService(stubAccountStore{
		getForUpdateFn: func(_ context.Context, _ store.Getter, accountID string) (ledger.Account, error) {
			return ownedAccount(accountID, 10000), nil
		},
	}, stubTransactionStore{}, stubOperationStore{
		insertFn: func(context.Context, store.Execer, store.OperationRecord) error {
			return &pq.Error{Code: "23505", Constraint: "operation_log_pkey"}
		},
	}, nil)

	opID := "op-1"
	_, err := service.CreateTransaction(context.Background(), CreateTransactionRequest{
		ActorID: "user-1", AccountID: "acc-1", CategoryID: "cat-1",
		Type: ledger.Debit, AmountMinor: 100, CompetenceDate: competence,
		Status: ledger.StatusPaid, OperationID: &opID,
	})
	if err != ErrDuplicateOperation {
		t.Fatalf("expected ErrDuplicateOperation, got %v", err)
	}
}

func TestCreateTransactionUnauthorized(t *testing.T) {
	service := newTestService(stubAccountStore{
		getForUpdateFn: func(_ context.Context, _ store.Getter, accountID string) (ledger.Account, error) {
			account := ownedAccount(accountID, 10000)
			account.UserID = "someone-else"
			return account, nil
		},
	}, stubTransactionStore{}, stubOperationStore{}, nil)

	_, err := service.CreateTransaction(context.Background(), CreateTransactionRequest{
		ActorID: "user-1", AccountID: "acc-1", CategoryID: "cat-1",
		Type: ledger.Debit, AmountMinor: 100, CompetenceDate: competence, Status: ledger.StatusPaid,
	})
	if err != ErrUnauthorizedAccount {
		t.Fatalf("expected ErrUnauthorizedAccount, got %v", err)
	}
}

func TestCreateTransactionAccountNotFound(t *testing.T) {
	service := newTestService(stubAccountStore{
		getForUpdateFn: func(context.Context, store.Getter, string) (ledger.Account, error) {
			return ledger.Account{}, sql.ErrNoRows
		},
	}, stubTransactionStore{}, stubOperationStore{}, nil)

	_, err := service.CreateTransaction(context.Background(), CreateTransactionRequest{
		ActorID: "user-1", AccountID: "missing", CategoryID: "cat-1",
		Type: ledger.Debit, AmountMinor: 100, CompetenceDate: competence, Status: ledger.StatusPaid,
	})
	if err != ErrAccountNotFound {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestCancelTransactionRestoresBalance(t *testing.T) {
	var written ledger.Account
	var updated ledger.Transaction
	service := newTestService(stubAccountStore{
		getForUpdateFn: func(_ context.Context, _ store.Getter, accountID string) (ledger.Account, error) {
			return ownedAccount(accountID, 7500), nil
		},
		updateBalanceFn: func(_ context.Context, _ store.Execer, account ledger.Account) error {
			written = account
			return nil
		},
	}, stubTransactionStore{
		getByIDFn: func(_ context.Context, _ store.Getter, transactionID string) (ledger.Transaction, error) {
			return ledger.Transaction{
				ID: transactionID, AccountID: "acc-1",
				Type: ledger.Debit, Amount: 2500, Status: ledger.StatusPaid,
			}, nil
		},
		updateFn: func(_ context.Context, _ store.Execer, txn ledger.Transaction) error {
			updated = txn
			return nil
		},
	}, stubOperationStore{}, nil)

	cancelled, err := service.CancelTransaction(context.Background(), CancelTransactionRequest{
		ActorID: "user-1", TransactionID: "txn-1", Reason: "wrong amount",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cancelled.Status != ledger.StatusCancelled || updated.Status != ledger.StatusCancelled {
		t.Fatalf("expected cancelled status, got %s", updated.Status)
	}
	if written.Balance != 10000 {
		t.Fatalf("expected balance restored to 10000, got %d", written.Balance)
	}
}

func TestCancelTransactionRejectsGroupMembers(t *testing.T) {
	groupID := "grp-1"
	cases := []struct {
		name string
		txn  ledger.Transaction
	}{
		{"paid installment", ledger.Transaction{
			ID: "i1", AccountID: "acc-1", Type: ledger.Debit, Amount: 2500,
			Status: ledger.StatusPaid, InstallmentGroupID: &groupID, InstallmentNumber: 1, TotalInstallments: 3,
		}},
		{"transfer leg", ledger.Transaction{
			ID: "d1", AccountID: "acc-1", Type: ledger.Debit, Amount: 2500,
			Status: ledger.StatusPaid, TransferGroupID: &groupID,
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			txn := tc.txn
			service := newTestService(stubAccountStore{
				getForUpdateFn: func(_ context.Context, _ store.Getter, accountID string) (ledger.Account, error) {
					return ownedAccount(accountID, 7500), nil
				},
				updateBalanceFn: func(context.Context, store.Execer, ledger.Account) error {
					t.Fatal("balance must not move")
					return nil
				},
			}, stubTransactionStore{
				getByIDFn: func(context.Context, store.Getter, string) (ledger.Transaction, error) {
					return txn, nil
				},
				updateFn: func(context.Context, store.Execer, ledger.Transaction) error {
					t.Fatal("group member must not be cancelled directly")
					return nil
				},
			}, stubOperationStore{}, nil)

			_, err := service.CancelTransaction(context.Background(), CancelTransactionRequest{
				ActorID: "user-1", TransactionID: txn.ID, Reason: "mistake",
			})
			if !errors.Is(err, ErrGroupedTransaction) {
				t.Fatalf("expected ErrGroupedTransaction, got %v", err)
			}
		})
	}
}

func TestAdjustTransactionNotFound(t *testing.T) {
	service := newTestService(stubAccountStore{}, stubTransactionStore{
		getByIDFn: func(context.Context, store.Getter, string) (ledger.Transaction, error) {
			return ledger.Transaction{}, sql.ErrNoRows
		},
	}, stubOperationStore{}, nil)

	_, err := service.AdjustTransaction(context.Background(), AdjustTransactionRequest{
		ActorID: "user-1", TransactionID: "missing", NewAmountMinor: 100,
	})
	if err != ErrTransactionNotFound {
		t.Fatalf("expected ErrTransactionNotFound, got %v", err)
	}
}

func TestAdjustTransactionUpwardDebit(t *testing.T) {
	var inserted ledger.Transaction
	var written ledger.Account
	service := newTestService(stubAccountStore{
		getForUpdateFn: func(_ context.Context, _ store.Getter, accountID string) (ledger.Account, error) {
			return ownedAccount(accountID, 9900), nil
		},
		updateBalanceFn: func(_ context.Context, _ store.Execer, account ledger.Account) error {
			written = account
			return nil
		},
	}, stubTransactionStore{
		getByIDFn: func(_ context.Context, _ store.Getter, transactionID string) (ledger.Transaction, error) {
			return ledger.Transaction{
				ID: transactionID, AccountID: "acc-1",
				Type: ledger.Debit, Amount: 100, Status: ledger.StatusPaid,
			}, nil
		},
		insertFn: func(_ context.Context, _ store.Execer, txn ledger.Transaction) error {
			inserted = txn
			return nil
		},
	}, stubOperationStore{}, nil)

	adjustment, err := service.AdjustTransaction(context.Background(), AdjustTransactionRequest{
		ActorID: "user-1", TransactionID: "txn-1", NewAmountMinor: 130,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if adjustment.Type != ledger.Debit || adjustment.Amount != 30 {
		t.Fatalf("expected debit adjustment of 30, got %s %d", adjustment.Type, adjustment.Amount)
	}
	if !inserted.IsAdjustment || inserted.OriginalTransactionID == nil {
		t.Fatalf("adjustment linkage missing: %#v", inserted)
	}
	if written.Balance != 9870 {
		t.Fatalf("expected balance 9870, got %d", written.Balance)
	}
}

func TestCreateInstallmentsSplitsTotal(t *testing.T) {
	var inserted []ledger.Transaction
	var recorded store.OperationRecord
	service := newTestService(stubAccountStore{
		getForUpdateFn: func(_ context.Context, _ store.Getter, accountID string) (ledger.Account, error) {
			return ownedAccount(accountID, 0), nil
		},
	}, stubTransactionStore{
		insertFn: func(_ context.Context, _ store.Execer, txn ledger.Transaction) error {
			inserted = append(inserted, txn)
			return nil
		},
	}, stubOperationStore{
		insertFn: func(_ context.Context, _ store.Execer, rec store.OperationRecord) error {
			recorded = rec
			return nil
		},
	}, nil)

	opID := "op-plan"
	plan, err := service.CreateInstallments(context.Background(), CreateInstallmentsRequest{
		ActorID: "user-1", AccountID: "acc-1", CategoryID: "cat-1",
		Type: ledger.Debit, TotalAmountMinor: 10000, Count: 3,
		Description: "fridge", FirstCompetenceDate: competence, OperationID: &opID,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(plan) != 3 || len(inserted) != 3 {
		t.Fatalf("expected 3 installments, got %d", len(inserted))
	}
	if inserted[0].Amount != 3333 || inserted[1].Amount != 3333 || inserted[2].Amount != 3334 {
		t.Fatalf("unexpected split: %d %d %d", inserted[0].Amount, inserted[1].Amount, inserted[2].Amount)
	}
	for _, txn := range inserted {
		if txn.Status != ledger.StatusPending {
			t.Fatalf("expected pending installments, got %s", txn.Status)
		}
	}
	if inserted[0].OperationID == nil || inserted[1].OperationID != nil {
		t.Fatalf("operation id should sit on the first installment only")
	}
	if recorded.OperationType != "installment.create" || recorded.ResultEntityID != *inserted[0].InstallmentGroupID {
		t.Fatalf("unexpected operation record: %#v", recorded)
	}
}

func TestCancelInstallmentGroupSkipsPaid(t *testing.T) {
	groupID := "grp-1"
	var updates []ledger.Transaction
	group := []ledger.Transaction{
		{ID: "i1", AccountID: "acc-1", Type: ledger.Debit, Amount: 3333, Status: ledger.StatusPaid, InstallmentGroupID: &groupID, InstallmentNumber: 1, TotalInstallments: 3},
		{ID: "i2", AccountID: "acc-1", Type: ledger.Debit, Amount: 3333, Status: ledger.StatusPending, InstallmentGroupID: &groupID, InstallmentNumber: 2, TotalInstallments: 3},
		{ID: "i3", AccountID: "acc-1", Type: ledger.Debit, Amount: 3334, Status: ledger.StatusPending, InstallmentGroupID: &groupID, InstallmentNumber: 3, TotalInstallments: 3},
	}
	service := newTestService(stubAccountStore{
		getForUpdateFn: func(_ context.Context, _ store.Getter, accountID string) (ledger.Account, error) {
			return ownedAccount(accountID, 0), nil
		},
	}, stubTransactionStore{
		getByInstallmentGroupFn: func(context.Context, store.Selecter, string) ([]ledger.Transaction, error) {
			return group, nil
		},
		updateFn: func(_ context.Context, _ store.Execer, txn ledger.Transaction) error {
			updates = append(updates, txn)
			return nil
		},
	}, stubOperationStore{}, nil)

	cancelled, err := service.CancelInstallmentGroup(context.Background(), CancelInstallmentGroupRequest{
		ActorID: "user-1", GroupID: groupID, Reason: "returned purchase",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cancelled) != 2 || len(updates) != 2 {
		t.Fatalf("expected 2 cancellations, got %d", len(updates))
	}
	for _, txn := range updates {
		if txn.ID == "i1" {
			t.Fatalf("paid installment must not be touched")
		}
		if txn.Status != ledger.StatusCancelled {
			t.Fatalf("expected cancelled, got %s", txn.Status)
		}
	}
}

func TestAdjustInstallmentGroupMovesBalance(t *testing.T) {
	groupID := "grp-2"
	group := []ledger.Transaction{
		{ID: "i1", AccountID: "acc-1", CategoryID: "cat-1", Type: ledger.Debit, Amount: 3333, Status: ledger.StatusPending, InstallmentGroupID: &groupID, InstallmentNumber: 1, TotalInstallments: 3},
		{ID: "i2", AccountID: "acc-1", CategoryID: "cat-1", Type: ledger.Debit, Amount: 3333, Status: ledger.StatusPending, InstallmentGroupID: &groupID, InstallmentNumber: 2, TotalInstallments: 3},
		{ID: "i3", AccountID: "acc-1", CategoryID: "cat-1", Type: ledger.Debit, Amount: 3334, Status: ledger.StatusPending, InstallmentGroupID: &groupID, InstallmentNumber: 3, TotalInstallments: 3},
	}
	var inserted []ledger.Transaction
	var written ledger.Account
	var flagged int
	hub := &stubHub{}
	service := newTestService(stubAccountStore{
		getForUpdateFn: func(_ context.Context, _ store.Getter, accountID string) (ledger.Account, error) {
			return ownedAccount(accountID, 20000), nil
		},
		updateBalanceFn: func(_ context.Context, _ store.Execer, account ledger.Account) error {
			written = account
			return nil
		},
	}, stubTransactionStore{
		getByInstallmentGroupFn: func(context.Context, store.Selecter, string) ([]ledger.Transaction, error) {
			return append([]ledger.Transaction(nil), group...), nil
		},
		insertFn: func(_ context.Context, _ store.Execer, txn ledger.Transaction) error {
			inserted = append(inserted, txn)
			return nil
		},
		updateFn: func(_ context.Context, _ store.Execer, txn ledger.Transaction) error {
			if txn.HasAdjustment {
				flagged++
			}
			return nil
		},
	}, stubOperationStore{}, hub)

	opID := "op-adj-plan"
	adjustments, err := service.AdjustInstallmentGroup(context.Background(), AdjustInstallmentGroupRequest{
		ActorID: "user-1", GroupID: groupID, NewTotalMinor: 13000, OperationID: &opID,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(adjustments) != 3 || len(inserted) != 3 {
		t.Fatalf("expected 3 adjustments, got %d", len(inserted))
	}
	for _, adj := range inserted {
		if !adj.IsAdjustment || adj.Type != ledger.Debit || adj.Amount != 1000 || adj.Status != ledger.StatusPaid {
			t.Fatalf("unexpected adjustment: %#v", adj)
		}
	}
	if flagged != 3 {
		t.Fatalf("expected 3 members flagged, got %d", flagged)
	}
	if written.Balance != 17000 {
		t.Fatalf("expected balance 17000, got %d", written.Balance)
	}
	if len(hub.calls) != 1 || hub.calls[0].Balance != "170.00" {
		t.Fatalf("unexpected broadcasts: %#v", hub.calls)
	}
}

func TestCancelPaidInstallmentRejected(t *testing.T) {
	groupID := "grp-1"
	service := newTestService(stubAccountStore{
		getForUpdateFn: func(_ context.Context, _ store.Getter, accountID string) (ledger.Account, error) {
			return ownedAccount(accountID, 0), nil
		},
	}, stubTransactionStore{
		getByIDFn: func(_ context.Context, _ store.Getter, transactionID string) (ledger.Transaction, error) {
			return ledger.Transaction{
				ID: transactionID, AccountID: "acc-1",
				Type: ledger.Debit, Amount: 3333, Status: ledger.StatusPaid,
				InstallmentGroupID: &groupID, InstallmentNumber: 1, TotalInstallments: 3,
			}, nil
		},
	}, stubOperationStore{}, nil)

	_, err := service.CancelInstallment(context.Background(), CancelInstallmentRequest{
		ActorID: "user-1", TransactionID: "i1", Reason: "mistake",
	})
	if !errors.Is(err, ledger.ErrInstallmentPaid) {
		t.Fatalf("expected ErrInstallmentPaid, got %v", err)
	}
}

func TestTransferLocksInAscendingOrder(t *testing.T) {
	var lockOrder []string
	balances := map[string]int64{}
	hub := &stubHub{}
	service := newTestService(stubAccountStore{
		getForUpdateFn: func(_ context.Context, _ store.Getter, accountID string) (ledger.Account, error) {
			lockOrder = append(lockOrder, accountID)
			return ownedAccount(accountID, 10000), nil
		},
		updateBalanceFn: func(_ context.Context, _ store.Execer, account ledger.Account) error {
			balances[account.ID] = account.Balance
			return nil
		},
	}, stubTransactionStore{}, stubOperationStore{}, hub)

	pair, err := service.CreateTransfer(context.Background(), CreateTransferRequest{
		ActorID: "user-1", SourceAccountID: "b-acc", DestinationAccountID: "a-acc",
		CategoryID: "cat-1", AmountMinor: 1000, Description: "top up", CompetenceDate: competence,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lockOrder[0] != "a-acc" || lockOrder[1] != "b-acc" {
		t.Fatalf("expected ascending lock order, got %v", lockOrder)
	}
	if balances["b-acc"] != 9000 || balances["a-acc"] != 11000 {
		t.Fatalf("unexpected balances: %#v", balances)
	}
	if pair.Debit.AccountID != "b-acc" || pair.Credit.AccountID != "a-acc" {
		t.Fatalf("roles mapped incorrectly: %#v", pair)
	}
	if pair.Debit.OperationID != nil {
		t.Fatalf("no operation id was supplied")
	}
	if len(hub.calls) != 2 {
		t.Fatalf("expected 2 broadcasts, got %d", len(hub.calls))
	}
}

func TestTransferSameAccountRejected(t *testing.T) {
	service := newTestService(stubAccountStore{}, stubTransactionStore{}, stubOperationStore{}, nil)
	_, err := service.CreateTransfer(context.Background(), CreateTransferRequest{
		ActorID: "user-1", SourceAccountID: "acc-1", DestinationAccountID: "acc-1",
		CategoryID: "cat-1", AmountMinor: 1000, CompetenceDate: competence,
	})
	if err != ErrSameAccountTransfer {
		t.Fatalf("expected ErrSameAccountTransfer, got %v", err)
	}
}

func TestTransferInsufficientFunds(t *testing.T) {
	service := newTestService(stubAccountStore{
		getForUpdateFn: func(_ context.Context, _ store.Getter, accountID string) (ledger.Account, error) {
			return ownedAccount(accountID, 500), nil
		},
	}, stubTransactionStore{}, stubOperationStore{}, nil)

	_, err := service.CreateTransfer(context.Background(), CreateTransferRequest{
		ActorID: "user-1", SourceAccountID: "a", DestinationAccountID: "b",
		CategoryID: "cat-1", AmountMinor: 1000, CompetenceDate: competence,
	})
	if !errors.Is(err, ledger.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
}

func TestCancelTransferRestoresBothLegs(t *testing.T) {
	groupID := "tg-1"
	balances := map[string]int64{}
	var updates []ledger.Transaction
	legs := []ledger.Transaction{
		{ID: "credit-leg", AccountID: "dst", Type: ledger.Credit, Amount: 1000, Status: ledger.StatusPaid, TransferGroupID: &groupID},
		{ID: "debit-leg", AccountID: "src", Type: ledger.Debit, Amount: 1000, Status: ledger.StatusPaid, TransferGroupID: &groupID},
	}
	service := newTestService(stubAccountStore{
		getForUpdateFn: func(_ context.Context, _ store.Getter, accountID string) (ledger.Account, error) {
			if accountID == "src" {
				return ownedAccount("src", 9000), nil
			}
			return ownedAccount("dst", 11000), nil
		},
		updateBalanceFn: func(_ context.Context, _ store.Execer, account ledger.Account) error {
			balances[account.ID] = account.Balance
			return nil
		},
	}, stubTransactionStore{
		getByTransferGroupFn: func(context.Context, store.Selecter, string) ([]ledger.Transaction, error) {
			return legs, nil
		},
		updateFn: func(_ context.Context, _ store.Execer, txn ledger.Transaction) error {
			updates = append(updates, txn)
			return nil
		},
	}, stubOperationStore{}, nil)

	pair, err := service.CancelTransfer(context.Background(), CancelTransferRequest{
		ActorID: "user-1", GroupID: groupID, Reason: "sent to wrong account",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if balances["src"] != 10000 || balances["dst"] != 10000 {
		t.Fatalf("balances not restored: %#v", balances)
	}
	if len(updates) != 2 {
		t.Fatalf("expected both legs updated, got %d", len(updates))
	}
	if pair.Debit.Status != ledger.StatusCancelled || pair.Credit.Status != ledger.StatusCancelled {
		t.Fatalf("expected both legs cancelled")
	}
}

func TestCancelTransferUnknownGroup(t *testing.T) {
	service := newTestService(stubAccountStore{}, stubTransactionStore{
		getByTransferGroupFn: func(context.Context, store.Selecter, string) ([]ledger.Transaction, error) {
			return nil, nil
		},
	}, stubOperationStore{}, nil)

	_, err := service.CancelTransfer(context.Background(), CancelTransferRequest{
		ActorID: "user-1", GroupID: "missing",
	})
	if err != ErrTransactionNotFound {
		t.Fatalf("expected ErrTransactionNotFound, got %v", err)
	}
}

func TestPayTransactionSettles(t *testing.T) {
	var written ledger.Account
	var updated ledger.Transaction
	service := newTestService(stubAccountStore{
		getForUpdateFn: func(_ context.Context, _ store.Getter, accountID string) (ledger.Account, error) {
			return ownedAccount(accountID, 10000), nil
		},
		updateBalanceFn: func(_ context.Context, _ store.Execer, account ledger.Account) error {
			written = account
			return nil
		},
	}, stubTransactionStore{
		getByIDFn: func(_ context.Context, _ store.Getter, transactionID string) (ledger.Transaction, error) {
			return ledger.Transaction{
				ID: transactionID, AccountID: "acc-1",
				Type: ledger.Debit, Amount: 3000, Status: ledger.StatusPending,
			}, nil
		},
		updateFn: func(_ context.Context, _ store.Execer, txn ledger.Transaction) error {
			updated = txn
			return nil
		},
	}, stubOperationStore{}, nil)

	paid, err := service.PayTransaction(context.Background(), PayTransactionRequest{
		ActorID: "user-1", TransactionID: "txn-1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if paid.Status != ledger.StatusPaid || updated.Status != ledger.StatusPaid {
		t.Fatalf("expected paid status, got %s", updated.Status)
	}
	if written.Balance != 7000 {
		t.Fatalf("expected balance 7000, got %d", written.Balance)
	}
}

package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"finledger/internal/db"
	"finledger/internal/ledger"
	"finledger/internal/money"
	"finledger/internal/store"
	"finledger/internal/websocket"

	"github.com/jmoiron/sqlx"
)

var (
	ErrDuplicateOperation  = errors.New("operation already processed")
	ErrAccountNotFound     = errors.New("account not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrUnauthorizedAccount = errors.New("account does not belong to user")
	ErrSameAccountTransfer = errors.New("cannot transfer to same account")
	ErrGroupedTransaction  = errors.New("transaction belongs to a group; cancel through its group command")
)

// LedgerService orchestrates every balance-mutating command. Each command
// follows the same sequence: duplicate pre-check, begin transaction, lock the
// accounts it will touch, run the domain logic on the locked snapshots,
// persist, record the operation log, commit. Any failure after begin rolls
// the whole thing back.
type LedgerService struct {
	txRunner     db.TxRunner
	reader       store.DB
	accounts     AccountStore
	transactions TransactionStore
	operations   OperationStore
	audit        AuditStore
	hub          BalanceHub
	operationTTL time.Duration
}

type AccountStore interface {
	GetByID(ctx context.Context, accountID string) (ledger.Account, error)
	GetForUpdate(ctx context.Context, tx store.Getter, accountID string) (ledger.Account, error)
	UpdateBalance(ctx context.Context, tx store.Execer, account ledger.Account) error
}

type TransactionStore interface {
	GetByID(ctx context.Context, q store.Getter, transactionID string) (ledger.Transaction, error)
	GetByInstallmentGroup(ctx context.Context, q store.Selecter, groupID string) ([]ledger.Transaction, error)
	GetByTransferGroup(ctx context.Context, q store.Selecter, groupID string) ([]ledger.Transaction, error)
	Insert(ctx context.Context, tx store.Execer, txn ledger.Transaction) error
	Update(ctx context.Context, tx store.Execer, txn ledger.Transaction) error
}

type OperationStore interface {
	Exists(ctx context.Context, operationID string) (bool, error)
	Insert(ctx context.Context, tx store.Execer, rec store.OperationRecord) error
}

type AuditStore interface {
	Log(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID, data string) error
}

type BalanceHub interface {
	BroadcastBalance(userID string, update websocket.BalanceUpdate)
}

func NewLedgerService(txRunner db.TxRunner, reader store.DB, accounts AccountStore, transactions TransactionStore, operations OperationStore, audit AuditStore, hub BalanceHub, operationTTL time.Duration) *LedgerService {
	return &LedgerService{
		txRunner:     txRunner,
		reader:       reader,
		accounts:     accounts,
		transactions: transactions,
		operations:   operations,
		audit:        audit,
		hub:          hub,
		operationTTL: operationTTL,
	}
}

type CreateTransactionRequest struct {
	ActorID              string
	AccountID            string
	CategoryID           string
	Type                 ledger.TransactionType
	AmountMinor          int64
	Description          string
	CompetenceDate       time.Time
	DueDate              *time.Time
	Status               ledger.TransactionStatus
	OperationID          *string
	RecurrenceTemplateID *string
}

func (s *LedgerService) CreateTransaction(ctx context.Context, req CreateTransactionRequest) (ledger.Transaction, error) {
	if req.AmountMinor <= 0 {
		return ledger.Transaction{}, ledger.ErrInvalidAmount
	}
	if err := s.checkDuplicate(ctx, req.OperationID); err != nil {
		return ledger.Transaction{}, err
	}
	var created ledger.Transaction
	var account ledger.Account
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		account, err = s.lockAccount(ctx, tx, req.AccountID, req.ActorID)
		if err != nil {
			return err
		}
		txn, err := ledger.CreateTransaction(&account, ledger.NewTransactionParams{
			CategoryID:           req.CategoryID,
			Type:                 req.Type,
			Amount:               req.AmountMinor,
			Description:          req.Description,
			CompetenceDate:       req.CompetenceDate,
			DueDate:              req.DueDate,
			Status:               req.Status,
			OperationID:          req.OperationID,
			RecurrenceTemplateID: req.RecurrenceTemplateID,
		}, req.ActorID)
		if err != nil {
			return err
		}
		if err := s.transactions.Insert(ctx, tx, *txn); err != nil {
			return err
		}
		if err := s.accounts.UpdateBalance(ctx, tx, account); err != nil {
			return err
		}
		if err := s.recordOperation(ctx, tx, req.OperationID, "transaction.create", txn.ID); err != nil {
			return err
		}
		created = *txn
		return s.auditTransaction(ctx, tx, req.ActorID, "transaction.create", created)
	})
	if err != nil {
		return ledger.Transaction{}, s.translate(err)
	}
	s.broadcast(account)
	return created, nil
}

type AdjustTransactionRequest struct {
	ActorID        string
	TransactionID  string
	NewAmountMinor int64
	OperationID    *string
}

func (s *LedgerService) AdjustTransaction(ctx context.Context, req AdjustTransactionRequest) (ledger.Transaction, error) {
	if req.NewAmountMinor <= 0 {
		return ledger.Transaction{}, ledger.ErrInvalidAmount
	}
	if err := s.checkDuplicate(ctx, req.OperationID); err != nil {
		return ledger.Transaction{}, err
	}
	// Pre-lock lookup only resolves the owning account; the original is
	// re-read under the lock before mutation.
	peek, err := s.transactions.GetByID(ctx, s.reader, req.TransactionID)
	if err != nil {
		return ledger.Transaction{}, s.translate(err)
	}
	var adjustment ledger.Transaction
	var account ledger.Account
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		account, err = s.lockAccount(ctx, tx, peek.AccountID, req.ActorID)
		if err != nil {
			return err
		}
		original, err := s.transactions.GetByID(ctx, tx, req.TransactionID)
		if err != nil {
			return err
		}
		adj, err := ledger.CreateAdjustment(&account, &original, req.NewAmountMinor, req.ActorID)
		if err != nil {
			return err
		}
		adj.OperationID = req.OperationID
		if err := s.transactions.Insert(ctx, tx, *adj); err != nil {
			return err
		}
		if err := s.transactions.Update(ctx, tx, original); err != nil {
			return err
		}
		if err := s.accounts.UpdateBalance(ctx, tx, account); err != nil {
			return err
		}
		if err := s.recordOperation(ctx, tx, req.OperationID, "transaction.adjust", adj.ID); err != nil {
			return err
		}
		adjustment = *adj
		return s.auditTransaction(ctx, tx, req.ActorID, "transaction.adjust", adjustment)
	})
	if err != nil {
		return ledger.Transaction{}, s.translate(err)
	}
	s.broadcast(account)
	return adjustment, nil
}

type CancelTransactionRequest struct {
	ActorID       string
	TransactionID string
	Reason        string
	OperationID   *string
}

func (s *LedgerService) CancelTransaction(ctx context.Context, req CancelTransactionRequest) (ledger.Transaction, error) {
	if err := s.checkDuplicate(ctx, req.OperationID); err != nil {
		return ledger.Transaction{}, err
	}
	peek, err := s.transactions.GetByID(ctx, s.reader, req.TransactionID)
	if err != nil {
		return ledger.Transaction{}, s.translate(err)
	}
	var cancelled ledger.Transaction
	var account ledger.Account
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		account, err = s.lockAccount(ctx, tx, peek.AccountID, req.ActorID)
		if err != nil {
			return err
		}
		txn, err := s.transactions.GetByID(ctx, tx, req.TransactionID)
		if err != nil {
			return err
		}
		// Installment members and transfer legs are cancelled through
		// their group commands only.
		if txn.InstallmentGroupID != nil || txn.TransferGroupID != nil {
			return ErrGroupedTransaction
		}
		if err := ledger.CancelTransaction(&account, &txn, req.ActorID, req.Reason); err != nil {
			return err
		}
		if err := s.transactions.Update(ctx, tx, txn); err != nil {
			return err
		}
		if err := s.accounts.UpdateBalance(ctx, tx, account); err != nil {
			return err
		}
		if err := s.recordOperation(ctx, tx, req.OperationID, "transaction.cancel", txn.ID); err != nil {
			return err
		}
		cancelled = txn
		return s.auditTransaction(ctx, tx, req.ActorID, "transaction.cancel", cancelled)
	})
	if err != nil {
		return ledger.Transaction{}, s.translate(err)
	}
	s.broadcast(account)
	return cancelled, nil
}

type PayTransactionRequest struct {
	ActorID       string
	TransactionID string
	OperationID   *string
}

// PayTransaction settles a pending transaction, applying its balance effect
// under the account lock.
func (s *LedgerService) PayTransaction(ctx context.Context, req PayTransactionRequest) (ledger.Transaction, error) {
	if err := s.checkDuplicate(ctx, req.OperationID); err != nil {
		return ledger.Transaction{}, err
	}
	peek, err := s.transactions.GetByID(ctx, s.reader, req.TransactionID)
	if err != nil {
		return ledger.Transaction{}, s.translate(err)
	}
	var paid ledger.Transaction
	var account ledger.Account
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		account, err = s.lockAccount(ctx, tx, peek.AccountID, req.ActorID)
		if err != nil {
			return err
		}
		txn, err := s.transactions.GetByID(ctx, tx, req.TransactionID)
		if err != nil {
			return err
		}
		if err := ledger.PayTransaction(&account, &txn, req.ActorID); err != nil {
			return err
		}
		if err := s.transactions.Update(ctx, tx, txn); err != nil {
			return err
		}
		if err := s.accounts.UpdateBalance(ctx, tx, account); err != nil {
			return err
		}
		if err := s.recordOperation(ctx, tx, req.OperationID, "transaction.pay", txn.ID); err != nil {
			return err
		}
		paid = txn
		return s.auditTransaction(ctx, tx, req.ActorID, "transaction.pay", paid)
	})
	if err != nil {
		return ledger.Transaction{}, s.translate(err)
	}
	s.broadcast(account)
	return paid, nil
}

// lockAccount acquires the exclusive row lock and checks ownership.
func (s *LedgerService) lockAccount(ctx context.Context, tx store.Getter, accountID, actorID string) (ledger.Account, error) {
	account, err := s.accounts.GetForUpdate(ctx, tx, accountID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ledger.Account{}, ErrAccountNotFound
		}
		return ledger.Account{}, err
	}
	if account.UserID != actorID {
		return ledger.Account{}, ErrUnauthorizedAccount
	}
	return account, nil
}

// lockTwoAccounts acquires both row locks in ascending id order regardless of
// the semantic source/destination roles, then maps the results back. The
// canonical order removes the deadlock between two transfers running the same
// pair in opposite directions.
func (s *LedgerService) lockTwoAccounts(ctx context.Context, tx store.Getter, firstID, secondID string) (ledger.Account, ledger.Account, error) {
	leftID, rightID := orderedIDs(firstID, secondID)
	left, err := s.accounts.GetForUpdate(ctx, tx, leftID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ledger.Account{}, ledger.Account{}, ErrAccountNotFound
		}
		return ledger.Account{}, ledger.Account{}, err
	}
	right, err := s.accounts.GetForUpdate(ctx, tx, rightID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ledger.Account{}, ledger.Account{}, ErrAccountNotFound
		}
		return ledger.Account{}, ledger.Account{}, err
	}
	if firstID == leftID {
		return left, right, nil
	}
	return right, left, nil
}

func orderedIDs(firstID, secondID string) (string, string) {
	if firstID <= secondID {
		return firstID, secondID
	}
	return secondID, firstID
}

// checkDuplicate is the fast pre-check run before any lock is taken. Two
// concurrent retries can both pass it; the unique constraint on the
// operation log resolves that race at commit and translate() maps the
// violation back to ErrDuplicateOperation.
func (s *LedgerService) checkDuplicate(ctx context.Context, operationID *string) error {
	if operationID == nil || *operationID == "" {
		return nil
	}
	exists, err := s.operations.Exists(ctx, *operationID)
	if err != nil {
		return err
	}
	if exists {
		return ErrDuplicateOperation
	}
	return nil
}

func (s *LedgerService) recordOperation(ctx context.Context, tx store.Execer, operationID *string, operationType, entityID string) error {
	if operationID == nil || *operationID == "" {
		return nil
	}
	payload, _ := json.Marshal(map[string]string{"entity_id": entityID})
	now := time.Now().UTC()
	return s.operations.Insert(ctx, tx, store.OperationRecord{
		OperationID:    *operationID,
		OperationType:  operationType,
		ResultEntityID: entityID,
		ResultPayload:  string(payload),
		CreatedAt:      now,
		ExpiresAt:      now.Add(s.operationTTL),
	})
}

func (s *LedgerService) auditTransaction(ctx context.Context, tx store.Execer, actorID, action string, txn ledger.Transaction) error {
	data, _ := json.Marshal(map[string]string{
		"account_id": txn.AccountID,
		"amount":     money.FormatMinor(txn.Amount),
		"type":       string(txn.Type),
		"status":     string(txn.Status),
	})
	return s.audit.Log(ctx, tx, actorID, action, "transaction", txn.ID, string(data))
}

func (s *LedgerService) translate(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrTransactionNotFound
	}
	if db.IsUniqueViolation(err, "") {
		return ErrDuplicateOperation
	}
	return err
}

func (s *LedgerService) broadcast(account ledger.Account) {
	s.hub.BroadcastBalance(account.UserID, websocket.BalanceUpdate{
		AccountID: account.ID,
		Balance:   money.FormatMinor(account.Balance),
	})
}

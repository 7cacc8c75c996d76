package handlers

import (
	"context"
	"time"

	"finledger/internal/ledger"
	"finledger/internal/services"
	"finledger/internal/store"
)

type UserStore interface {
	Create(ctx context.Context, tx store.Execer, id, username, email, passwordHash string) error
	GetByEmail(ctx context.Context, email string) (store.User, error)
	GetByID(ctx context.Context, userID string) (store.User, error)
}

type AccountStore interface {
	Create(ctx context.Context, tx store.Execer, account ledger.Account) error
	GetByID(ctx context.Context, accountID string) (ledger.Account, error)
	ListByUser(ctx context.Context, userID string) ([]ledger.Account, error)
	Deactivate(ctx context.Context, tx store.Execer, accountID, actor string) error
}

type CategoryStore interface {
	Create(ctx context.Context, tx store.Execer, category store.Category) error
	GetByID(ctx context.Context, categoryID string) (store.Category, error)
	ListByUser(ctx context.Context, userID string) ([]store.Category, error)
}

type BudgetStore interface {
	Upsert(ctx context.Context, tx store.Execer, budget store.Budget) error
	ListByUser(ctx context.Context, userID string) ([]store.Budget, error)
}

type RecurringStore interface {
	Create(ctx context.Context, tx store.Execer, tpl store.RecurringTemplate) error
	ListByUser(ctx context.Context, userID string) ([]store.RecurringTemplate, error)
	Deactivate(ctx context.Context, tx store.Execer, templateID string) error
}

type TransactionQueryStore interface {
	GetByID(ctx context.Context, q store.Getter, transactionID string) (ledger.Transaction, error)
	GetByInstallmentGroup(ctx context.Context, q store.Selecter, groupID string) ([]ledger.Transaction, error)
	GetByTransferGroup(ctx context.Context, q store.Selecter, groupID string) ([]ledger.Transaction, error)
	ListByAccount(ctx context.Context, accountID, status string, year, month, limit, offset int) ([]ledger.Transaction, error)
	SumPaidByCategoryAndMonth(ctx context.Context, accountIDs []string, categoryID string, year, month int) (int64, error)
}

type AuditStore interface {
	Log(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID, data string) error
	ListByActor(ctx context.Context, actorID string, limit, offset int) ([]store.AuditEntry, error)
}

type OperationStore interface {
	GetByID(ctx context.Context, operationID string) (store.OperationRecord, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type LedgerService interface {
	CreateTransaction(ctx context.Context, req services.CreateTransactionRequest) (ledger.Transaction, error)
	AdjustTransaction(ctx context.Context, req services.AdjustTransactionRequest) (ledger.Transaction, error)
	CancelTransaction(ctx context.Context, req services.CancelTransactionRequest) (ledger.Transaction, error)
	PayTransaction(ctx context.Context, req services.PayTransactionRequest) (ledger.Transaction, error)
	CreateInstallments(ctx context.Context, req services.CreateInstallmentsRequest) ([]ledger.Transaction, error)
	AdjustInstallmentGroup(ctx context.Context, req services.AdjustInstallmentGroupRequest) ([]ledger.Transaction, error)
	CancelInstallment(ctx context.Context, req services.CancelInstallmentRequest) (ledger.Transaction, error)
	CancelInstallmentGroup(ctx context.Context, req services.CancelInstallmentGroupRequest) ([]ledger.Transaction, error)
	CreateTransfer(ctx context.Context, req services.CreateTransferRequest) (ledger.TransferPair, error)
	CancelTransfer(ctx context.Context, req services.CancelTransferRequest) (ledger.TransferPair, error)
}

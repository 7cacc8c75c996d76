package handlers

import (
	"context"
	"time"

	"finledger/internal/config"
	"finledger/internal/db"
	"finledger/internal/ledger"
	"finledger/internal/services"
	"finledger/internal/store"
	"finledger/internal/websocket"

	"github.com/jmoiron/sqlx"
)

type fakeTxRunner struct {
	withTxFn func(ctx context.Context, fn func(*sqlx.Tx) error) error
}

func (f fakeTxRunner) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	if f.withTxFn != nil {
		return f.withTxFn(ctx, fn)
	}
	return fn(nil)
}

type stubUserStore struct {
	createFn     func(ctx context.Context, tx store.Execer, id, username, email, passwordHash string) error
	getByEmailFn func(ctx context.Context, email string) (store.User, error)
	getByIDFn    func(ctx context.Context, userID string) (store.User, error)
}

func (s stubUserStore) Create(ctx context.Context, tx store.Execer, id, username, email, passwordHash string) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, tx, id, username, email, passwordHash)
}

func (s stubUserStore) GetByEmail(ctx context.Context, email string) (store.User, error) {
	if s.getByEmailFn == nil {
		return store.User{}, nil
	}
	return s.getByEmailFn(ctx, email)
}

func (s stubUserStore) GetByID(ctx context.Context, userID string) (store.User, error) {
	if s.getByIDFn == nil {
		return store.User{}, nil
	}
	return s.getByIDFn(ctx, userID)
}

type stubAccountStore struct {
	createFn     func(ctx context.Context, tx store.Execer, account ledger.Account) error
	getByIDFn    func(ctx context.Context, accountID string) (ledger.Account, error)
	listByUserFn func(ctx context.Context, userID string) ([]ledger.Account, error)
	deactivateFn func(ctx context.Context, tx store.Execer, accountID, actor string) error
}

func (s stubAccountStore) Create(ctx context.Context, tx store.Execer, account ledger.Account) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, tx, account)
}

func (s stubAccountStore) GetByID(ctx context.Context, accountID string) (ledger.Account, error) {
	if s.getByIDFn == nil {
		return ledger.Account{}, nil
	}
	return s.getByIDFn(ctx, accountID)
}

func (s stubAccountStore) ListByUser(ctx context.Context, userID string) ([]ledger.Account, error) {
	if s.listByUserFn == nil {
		return nil, nil
	}
	return s.listByUserFn(ctx, userID)
}

func (s stubAccountStore) Deactivate(ctx context.Context, tx store.Execer, accountID, actor string) error {
	if s.deactivateFn == nil {
		return nil
	}
	return s.deactivateFn(ctx, tx, accountID, actor)
}

type stubCategoryStore struct {
	createFn     func(ctx context.Context, tx store.Execer, category store.Category) error
	getByIDFn    func(ctx context.Context, categoryID string) (store.Category, error)
	listByUserFn func(ctx context.Context, userID string) ([]store.Category, error)
}

func (s stubCategoryStore) Create(ctx context.Context, tx store.Execer, category store.Category) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, tx, category)
}

func (s stubCategoryStore) GetByID(ctx context.Context, categoryID string) (store.Category, error) {
	if s.getByIDFn == nil {
		return store.Category{}, nil
	}
	return s.getByIDFn(ctx, categoryID)
}

func (s stubCategoryStore) ListByUser(ctx context.Context, userID string) ([]store.Category, error) {
	if s.listByUserFn == nil {
		return nil, nil
	}
	return s.listByUserFn(ctx, userID)
}

type stubBudgetStore struct {
	upsertFn     func(ctx context.Context, tx store.Execer, budget store.Budget) error
	listByUserFn func(ctx context.Context, userID string) ([]store.Budget, error)
}

func (s stubBudgetStore) Upsert(ctx context.Context, tx store.Execer, budget store.Budget) error {
	if s.upsertFn == nil {
		return nil
	}
	return s.upsertFn(ctx, tx, budget)
}

func (s stubBudgetStore) ListByUser(ctx context.Context, userID string) ([]store.Budget, error) {
	if s.listByUserFn == nil {
		return nil, nil
	}
	return s.listByUserFn(ctx, userID)
}

type stubRecurringStore struct {
	createFn     func(ctx context.Context, tx store.Execer, tpl store.RecurringTemplate) error
	listByUserFn func(ctx context.Context, userID string) ([]store.RecurringTemplate, error)
	deactivateFn func(ctx context.Context, tx store.Execer, templateID string) error
}

func (s stubRecurringStore) Create(ctx context.Context, tx store.Execer, tpl store.RecurringTemplate) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, tx, tpl)
}

func (s stubRecurringStore) ListByUser(ctx context.Context, userID string) ([]store.RecurringTemplate, error) {
	if s.listByUserFn == nil {
		return nil, nil
	}
	return s.listByUserFn(ctx, userID)
}

func (s stubRecurringStore) Deactivate(ctx context.Context, tx store.Execer, templateID string) error {
	if s.deactivateFn == nil {
		return nil
	}
	return s.deactivateFn(ctx, tx, templateID)
}

type stubTransactionQueryStore struct {
	getByIDFn               func(ctx context.Context, q store.Getter, transactionID string) (ledger.Transaction, error)
	getByInstallmentGroupFn func(ctx context.Context, q store.Selecter, groupID string) ([]ledger.Transaction, error)
	getByTransferGroupFn    func(ctx context.Context, q store.Selecter, groupID string) ([]ledger.Transaction, error)
	listByAccountFn         func(ctx context.Context, accountID, status string, year, month, limit, offset int) ([]ledger.Transaction, error)
	sumFn                   func(ctx context.Context, accountIDs []string, categoryID string, year, month int) (int64, error)
}

func (s stubTransactionQueryStore) GetByID(ctx context.Context, q store.Getter, transactionID string) (ledger.Transaction, error) {
	if s.getByIDFn == nil {
		return ledger.Transaction{}, nil
	}
	return s.getByIDFn(ctx, q, transactionID)
}

func (s stubTransactionQueryStore) GetByInstallmentGroup(ctx context.Context, q store.Selecter, groupID string) ([]ledger.Transaction, error) {
	if s.getByInstallmentGroupFn == nil {
		return nil, nil
	}
	return s.getByInstallmentGroupFn(ctx, q, groupID)
}

func (s stubTransactionQueryStore) GetByTransferGroup(ctx context.Context, q store.Selecter, groupID string) ([]ledger.Transaction, error) {
	if s.getByTransferGroupFn == nil {
		return nil, nil
	}
	return s.getByTransferGroupFn(ctx, q, groupID)
}

func (s stubTransactionQueryStore) ListByAccount(ctx context.Context, accountID, status string, year, month, limit, offset int) ([]ledger.Transaction, error) {
	if s.listByAccountFn == nil {
		return nil, nil
	}
	return s.listByAccountFn(ctx, accountID, status, year, month, limit, offset)
}

func (s stubTransactionQueryStore) SumPaidByCategoryAndMonth(ctx context.Context, accountIDs []string, categoryID string, year, month int) (int64, error) {
	if s.sumFn == nil {
		return 0, nil
	}
	return s.sumFn(ctx, accountIDs, categoryID, year, month)
}

type stubAuditStore struct {
	logFn         func(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID, data string) error
	listByActorFn func(ctx context.Context, actorID string, limit, offset int) ([]store.AuditEntry, error)
}

func (s stubAuditStore) Log(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID, data string) error {
	if s.logFn == nil {
		return nil
	}
	return s.logFn(ctx, tx, actorID, action, entityType, entityID, data)
}

func (s stubAuditStore) ListByActor(ctx context.Context, actorID string, limit, offset int) ([]store.AuditEntry, error) {
	if s.listByActorFn == nil {
		return nil, nil
	}
	return s.listByActorFn(ctx, actorID, limit, offset)
}

type stubOperationStore struct {
	getByIDFn       func(ctx context.Context, operationID string) (store.OperationRecord, error)
	deleteExpiredFn func(ctx context.Context, now time.Time) (int64, error)
}

func (s stubOperationStore) GetByID(ctx context.Context, operationID string) (store.OperationRecord, error) {
	if s.getByIDFn == nil {
		return store.OperationRecord{}, nil
	}
	return s.getByIDFn(ctx, operationID)
}

func (s stubOperationStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	if s.deleteExpiredFn == nil {
		return 0, nil
	}
	return s.deleteExpiredFn(ctx, now)
}

type stubService struct {
	createTransactionFn      func(ctx context.Context, req services.CreateTransactionRequest) (ledger.Transaction, error)
	adjustTransactionFn      func(ctx context.Context, req services.AdjustTransactionRequest) (ledger.Transaction, error)
	cancelTransactionFn      func(ctx context.Context, req services.CancelTransactionRequest) (ledger.Transaction, error)
	payTransactionFn         func(ctx context.Context, req services.PayTransactionRequest) (ledger.Transaction, error)
	createInstallmentsFn     func(ctx context.Context, req services.CreateInstallmentsRequest) ([]ledger.Transaction, error)
	adjustInstallmentGroupFn func(ctx context.Context, req services.AdjustInstallmentGroupRequest) ([]ledger.Transaction, error)
	cancelInstallmentFn      func(ctx context.Context, req services.CancelInstallmentRequest) (ledger.Transaction, error)
	cancelInstallmentGroupFn func(ctx context.Context, req services.CancelInstallmentGroupRequest) ([]ledger.Transaction, error)
	createTransferFn         func(ctx context.Context, req services.CreateTransferRequest) (ledger.TransferPair, error)
	cancelTransferFn         func(ctx context.Context, req services.CancelTransferRequest) (ledger.TransferPair, error)
}

func (s stubService) CreateTransaction(ctx context.Context, req services.CreateTransactionRequest) (ledger.Transaction, error) {
	if s.createTransactionFn == nil {
		return ledger.Transaction{}, nil
	}
	return s.createTransactionFn(ctx, req)
}

func (s stubService) AdjustTransaction(ctx context.Context, req services.AdjustTransactionRequest) (ledger.Transaction, error) {
	if s.adjustTransactionFn == nil {
		return ledger.Transaction{}, nil
	}
	return s.adjustTransactionFn(ctx, req)
}

func (s stubService) CancelTransaction(ctx context.Context, req services.CancelTransactionRequest) (ledger.Transaction, error) {
	if s.cancelTransactionFn == nil {
		return ledger.Transaction{}, nil
	}
	return s.cancelTransactionFn(ctx, req)
}

func (s stubService) PayTransaction(ctx context.Context, req services.PayTransactionRequest) (ledger.Transaction, error) {
	if s.payTransactionFn == nil {
		return ledger.Transaction{}, nil
	}
	return s.payTransactionFn(ctx, req)
}

func (s stubService) CreateInstallments(ctx context.Context, req services.CreateInstallmentsRequest) ([]ledger.Transaction, error) {
	if s.createInstallmentsFn == nil {
		return nil, nil
	}
	return s.createInstallmentsFn(ctx, req)
}

func (s stubService) AdjustInstallmentGroup(ctx context.Context, req services.AdjustInstallmentGroupRequest) ([]ledger.Transaction, error) {
	if s.adjustInstallmentGroupFn == nil {
		return nil, nil
	}
	return s.adjustInstallmentGroupFn(ctx, req)
}

func (s stubService) CancelInstallment(ctx context.Context, req services.CancelInstallmentRequest) (ledger.Transaction, error) {
	if s.cancelInstallmentFn == nil {
		return ledger.Transaction{}, nil
	}
	return s.cancelInstallmentFn(ctx, req)
}

func (s stubService) CancelInstallmentGroup(ctx context.Context, req services.CancelInstallmentGroupRequest) ([]ledger.Transaction, error) {
	if s.cancelInstallmentGroupFn == nil {
		return nil, nil
	}
	return s.cancelInstallmentGroupFn(ctx, req)
}

func (s stubService) CreateTransfer(ctx context.Context, req services.CreateTransferRequest) (ledger.TransferPair, error) {
	if s.createTransferFn == nil {
		return ledger.TransferPair{}, nil
	}
	return s.createTransferFn(ctx, req)
}

func (s stubService) CancelTransfer(ctx context.Context, req services.CancelTransferRequest) (ledger.TransferPair, error) {
	if s.cancelTransferFn == nil {
		return ledger.TransferPair{}, nil
	}
	return s.cancelTransferFn(ctx, req)
}

type handlerDeps struct {
	txRunner     db.TxRunner
	users        stubUserStore
	accounts     stubAccountStore
	categories   stubCategoryStore
	budgets      stubBudgetStore
	recurring    stubRecurringStore
	transactions stubTransactionQueryStore
	operations   stubOperationStore
	audit        stubAuditStore
	service      stubService
}

func newTestHandler(deps handlerDeps) *Handler {
	cfg := config.Config{
		AppEnv:         "test",
		Port:           "0",
		JWTSecret:      "secret",
		TokenTTL:       time.Minute,
		AllowedOrigins: "*",
		OperationTTL:   time.Hour,
	}
	txRunner := deps.txRunner
	if txRunner == nil {
		txRunner = fakeTxRunner{}
	}
	return New(txRunner, cfg, deps.users, deps.accounts, deps.categories, deps.budgets, deps.recurring, deps.transactions, deps.operations, deps.audit, deps.service, websocket.NewHub())
}

func stringPtr(value string) *string {
	return &value
}

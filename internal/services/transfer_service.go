package services

import (
	"context"
	"time"

	"finledger/internal/ledger"

	"github.com/jmoiron/sqlx"
)

type CreateTransferRequest struct {
	ActorID              string
	SourceAccountID      string
	DestinationAccountID string
	CategoryID           string
	AmountMinor          int64
	Description          string
	CompetenceDate       time.Time
	OperationID          *string
}

// CreateTransfer moves money between two of the caller's accounts as a linked
// debit/credit pair committed atomically. Both rows succeed or neither does.
func (s *LedgerService) CreateTransfer(ctx context.Context, req CreateTransferRequest) (ledger.TransferPair, error) {
	if req.AmountMinor <= 0 {
		return ledger.TransferPair{}, ledger.ErrInvalidAmount
	}
	if req.SourceAccountID == req.DestinationAccountID {
		return ledger.TransferPair{}, ErrSameAccountTransfer
	}
	if err := s.checkDuplicate(ctx, req.OperationID); err != nil {
		return ledger.TransferPair{}, err
	}
	var pair ledger.TransferPair
	var source, destination ledger.Account
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		source, destination, err = s.lockTwoAccounts(ctx, tx, req.SourceAccountID, req.DestinationAccountID)
		if err != nil {
			return err
		}
		if source.UserID != req.ActorID || destination.UserID != req.ActorID {
			return ErrUnauthorizedAccount
		}
		pair, err = ledger.CreateTransferPair(&source, &destination, req.CategoryID, req.AmountMinor, req.Description, req.CompetenceDate, req.ActorID, req.OperationID)
		if err != nil {
			return err
		}
		if err := s.transactions.Insert(ctx, tx, *pair.Debit); err != nil {
			return err
		}
		if err := s.transactions.Insert(ctx, tx, *pair.Credit); err != nil {
			return err
		}
		if err := s.accounts.UpdateBalance(ctx, tx, source); err != nil {
			return err
		}
		if err := s.accounts.UpdateBalance(ctx, tx, destination); err != nil {
			return err
		}
		if err := s.recordOperation(ctx, tx, req.OperationID, "transfer.create", *pair.Debit.TransferGroupID); err != nil {
			return err
		}
		return s.auditTransaction(ctx, tx, req.ActorID, "transfer.create", *pair.Debit)
	})
	if err != nil {
		return ledger.TransferPair{}, s.translate(err)
	}
	s.broadcast(source)
	s.broadcast(destination)
	return pair, nil
}

type CancelTransferRequest struct {
	ActorID     string
	GroupID     string
	Reason      string
	OperationID *string
}

// CancelTransfer cancels both legs of a transfer and restores both balances.
func (s *LedgerService) CancelTransfer(ctx context.Context, req CancelTransferRequest) (ledger.TransferPair, error) {
	if err := s.checkDuplicate(ctx, req.OperationID); err != nil {
		return ledger.TransferPair{}, err
	}
	legs, err := s.transactions.GetByTransferGroup(ctx, s.reader, req.GroupID)
	if err != nil {
		return ledger.TransferPair{}, s.translate(err)
	}
	if len(legs) != 2 {
		return ledger.TransferPair{}, ErrTransactionNotFound
	}
	var pair ledger.TransferPair
	var source, destination ledger.Account
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		group, err := s.transactions.GetByTransferGroup(ctx, tx, req.GroupID)
		if err != nil {
			return err
		}
		if len(group) != 2 {
			return ErrTransactionNotFound
		}
		// ORDER BY type puts the credit leg first.
		pair = ledger.TransferPair{Credit: &group[0], Debit: &group[1]}
		source, destination, err = s.lockTwoAccounts(ctx, tx, pair.Debit.AccountID, pair.Credit.AccountID)
		if err != nil {
			return err
		}
		if source.UserID != req.ActorID || destination.UserID != req.ActorID {
			return ErrUnauthorizedAccount
		}
		if err := ledger.CancelTransferPair(&source, &destination, pair, req.ActorID, req.Reason); err != nil {
			return err
		}
		if err := s.transactions.Update(ctx, tx, *pair.Debit); err != nil {
			return err
		}
		if err := s.transactions.Update(ctx, tx, *pair.Credit); err != nil {
			return err
		}
		if err := s.accounts.UpdateBalance(ctx, tx, source); err != nil {
			return err
		}
		if err := s.accounts.UpdateBalance(ctx, tx, destination); err != nil {
			return err
		}
		if err := s.recordOperation(ctx, tx, req.OperationID, "transfer.cancel", req.GroupID); err != nil {
			return err
		}
		return s.auditTransaction(ctx, tx, req.ActorID, "transfer.cancel", *pair.Debit)
	})
	if err != nil {
		return ledger.TransferPair{}, s.translate(err)
	}
	s.broadcast(source)
	s.broadcast(destination)
	return pair, nil
}

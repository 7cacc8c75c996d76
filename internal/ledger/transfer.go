package ledger

import (
	"time"

	"github.com/google/uuid"
)

// TransferPair is the linked debit/credit pair representing money moved
// between two accounts. Both legs share a transfer group id, amount and
// competence date.
type TransferPair struct {
	Debit  *Transaction
	Credit *Transaction
}

// CreateTransferPair debits source and credits destination for the same
// amount, both legs created Paid with their balance effects applied. Only the
// debit leg carries the operation id. Callers are responsible for ensuring
// the two accounts are distinct and locked.
func CreateTransferPair(source, destination *Account, categoryID string, amount int64, description string, competenceDate time.Time, actor string, operationID *string) (TransferPair, error) {
	groupID := uuid.NewString()
	debit, err := CreateTransaction(source, NewTransactionParams{
		CategoryID:     categoryID,
		Type:           Debit,
		Amount:         amount,
		Description:    description,
		CompetenceDate: competenceDate,
		Status:         StatusPaid,
		OperationID:    operationID,
	}, actor)
	if err != nil {
		return TransferPair{}, err
	}
	credit, err := CreateTransaction(destination, NewTransactionParams{
		CategoryID:     categoryID,
		Type:           Credit,
		Amount:         amount,
		Description:    description,
		CompetenceDate: competenceDate,
		Status:         StatusPaid,
	}, actor)
	if err != nil {
		return TransferPair{}, err
	}
	debit.TransferGroupID = &groupID
	credit.TransferGroupID = &groupID
	return TransferPair{Debit: debit, Credit: credit}, nil
}

// CancelTransferPair cancels both legs, reverting each account's balance
// independently. Transfers are created Paid, so both sides always see a
// revert.
func CancelTransferPair(source, destination *Account, pair TransferPair, actor, reason string) error {
	if err := CancelTransaction(source, pair.Debit, actor, reason); err != nil {
		return err
	}
	return CancelTransaction(destination, pair.Credit, actor, reason)
}

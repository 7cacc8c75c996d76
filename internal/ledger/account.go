package ledger

import (
	"errors"
	"time"
)

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInactiveAccount     = errors.New("account is inactive")
	ErrInvalidAmount       = errors.New("invalid amount")
)

const (
	AccountChecking   = "checking"
	AccountWallet     = "wallet"
	AccountInvestment = "investment"
	AccountCreditCard = "credit_card"
)

// Account balances are stored in minor units (cents). All balance mutations
// go through the four primitives below; callers must hold the account's row
// lock for the duration of the enclosing transaction.
type Account struct {
	ID            string    `db:"id" json:"id"`
	UserID        string    `db:"user_id" json:"user_id"`
	Name          string    `db:"name" json:"name"`
	Type          string    `db:"type" json:"type"`
	Balance       int64     `db:"balance" json:"balance"`
	AllowNegative bool      `db:"allow_negative" json:"allow_negative"`
	IsActive      bool      `db:"is_active" json:"is_active"`
	CreatedBy     string    `db:"created_by" json:"created_by"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedBy     string    `db:"updated_by" json:"updated_by"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

func (a *Account) ApplyDebit(amount int64, actor string) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if a.Balance-amount < 0 && !a.AllowNegative {
		return ErrInsufficientBalance
	}
	a.Balance -= amount
	a.touch(actor)
	return nil
}

func (a *Account) ApplyCredit(amount int64, actor string) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	a.Balance += amount
	a.touch(actor)
	return nil
}

// RevertDebit undoes a previously applied debit. Reverts restore a state that
// was valid when applied, so the negative-balance policy is not re-checked.
func (a *Account) RevertDebit(amount int64, actor string) {
	a.Balance += amount
	a.touch(actor)
}

func (a *Account) RevertCredit(amount int64, actor string) {
	a.Balance -= amount
	a.touch(actor)
}

func (a *Account) ValidateCanReceiveTransaction() error {
	if !a.IsActive {
		return ErrInactiveAccount
	}
	return nil
}

func (a *Account) touch(actor string) {
	a.UpdatedBy = actor
	a.UpdatedAt = time.Now().UTC()
}

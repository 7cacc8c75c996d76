package validator

import (
	"errors"
	"regexp"

	"finledger/internal/ledger"
)

var (
	ErrInvalidEmail       = errors.New("invalid email")
	ErrInvalidUsername    = errors.New("invalid username")
	ErrInvalidPassword    = errors.New("invalid password")
	ErrInvalidAccountType = errors.New("invalid account type")
	ErrInvalidType        = errors.New("invalid transaction type")
	ErrInvalidStatus      = errors.New("invalid transaction status")
	ErrInvalidDayOfMonth  = errors.New("day of month must be between 1 and 28")
)

var (
	emailRegex    = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_]{3,30}$`)
)

func ValidateEmail(email string) error {
	if !emailRegex.MatchString(email) {
		return ErrInvalidEmail
	}
	return nil
}

func ValidateUsername(username string) error {
	if !usernameRegex.MatchString(username) {
		return ErrInvalidUsername
	}
	return nil
}

func ValidatePassword(password string) error {
	if len(password) < 8 {
		return ErrInvalidPassword
	}
	return nil
}

func ValidateAccountType(accountType string) error {
	switch accountType {
	case ledger.AccountChecking, ledger.AccountWallet, ledger.AccountInvestment, ledger.AccountCreditCard:
		return nil
	}
	return ErrInvalidAccountType
}

func ValidateTransactionType(transactionType string) error {
	switch ledger.TransactionType(transactionType) {
	case ledger.Debit, ledger.Credit:
		return nil
	}
	return ErrInvalidType
}

// ValidateCreateStatus limits new transactions to pending or paid; cancelled
// is reachable only through cancellation.
func ValidateCreateStatus(status string) error {
	switch ledger.TransactionStatus(status) {
	case ledger.StatusPending, ledger.StatusPaid:
		return nil
	}
	return ErrInvalidStatus
}

// ValidateDayOfMonth keeps recurring templates off days that do not exist in
// every month.
func ValidateDayOfMonth(day int) error {
	if day < 1 || day > 28 {
		return ErrInvalidDayOfMonth
	}
	return nil
}

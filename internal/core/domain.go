package core

import "errors"

const (
	// VacationLedger holds vacation money and owns savings goals.
	VacationLedger LedgerKind = "vacation"
	// SavingsLedger holds savings and rejects overdrawing withdrawals.
	SavingsLedger LedgerKind = "savings"
)

const (
	Deposit    TransactionType = "deposit"
	Withdrawal TransactionType = "withdrawal"
)

// Transfer and contribution descriptions, kept stable because clients key
// on them to render transfer pairs and the fixed contribution.
const (
	DescTransferToVacation   = "savings.transfer_to_vacation"
	DescTransferFromSavings  = "savings.transfer_from_savings"
	DescFixedContribution    = "savings.energy_drink"
	FixedContributionAmount  = "7.00"
	DefaultVacationMonths    = 12
)

type (
	LedgerKind      string
	TransactionType string
)

var (
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInvalidType         = errors.New("invalid transaction type")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrEmptyGoalName       = errors.New("empty goal name")
	ErrInvalidMonths       = errors.New("vacation months must be positive")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrGoalNotFound        = errors.New("goal not found")
	ErrInvalidStatus       = errors.New("invalid application status")
	ErrApplicationNotFound = errors.New("application not found")
	ErrUserNotFound        = errors.New("user not found")
	ErrEmptyCompanyName    = errors.New("empty company name")
	ErrEmptyPosition       = errors.New("empty position")
)

// Valid reports whether k names a known ledger kind.
func (k LedgerKind) Valid() bool {
	return k == VacationLedger || k == SavingsLedger
}

// Valid reports whether t names a known transaction type.
func (t TransactionType) Valid() bool {
	return t == Deposit || t == Withdrawal
}

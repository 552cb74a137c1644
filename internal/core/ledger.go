package core

import "time"

// Transaction is a single deposit or withdrawal recorded on a ledger.
// CreatedAt is set once when the transaction is appended and never changes.
type Transaction struct {
	ID          int64
	Type        TransactionType
	Amount      Money
	Description string
	CreatedAt   time.Time
}

// Ledger is one money pool owned by a single user. The vacation kind owns
// goals and an informational vacation-months divisor; the savings kind
// rejects withdrawals that would drive its balance below zero.
type Ledger struct {
	ID             int64
	UserID         int64
	Kind           LedgerKind
	Balance        Money
	VacationMonths int
	Transactions   []Transaction
	Goals          []Goal
}

// NewLedger returns an empty ledger for the given user and kind.
func NewLedger(userID int64, kind LedgerKind) *Ledger {
	l := &Ledger{UserID: userID, Kind: kind}
	if kind == VacationLedger {
		l.VacationMonths = DefaultVacationMonths
	}
	return l
}

// AddTransaction appends a transaction and applies its effect on the
// balance. A savings withdrawal that would make the balance negative fails
// with ErrInsufficientFunds and leaves the ledger untouched. Vacation
// withdrawals are not blocked.
func (l *Ledger) AddTransaction(t TransactionType, amount Money, description string, now time.Time) (*Transaction, error) {
	if !t.Valid() {
		return nil, ErrInvalidType
	}
	if !Zero().LessThan(amount) {
		return nil, ErrInvalidAmount
	}

	switch t {
	case Deposit:
		l.Balance = l.Balance.Add(amount)
	case Withdrawal:
		if l.Kind == SavingsLedger && l.Balance.LessThan(amount) {
			return nil, ErrInsufficientFunds
		}
		l.Balance = l.Balance.Sub(amount)
	}

	l.Transactions = append(l.Transactions, Transaction{
		Type:        t,
		Amount:      amount,
		Description: description,
		CreatedAt:   now,
	})
	return &l.Transactions[len(l.Transactions)-1], nil
}

// DeleteTransaction removes a transaction and reverses its effect on the
// balance. The reversed balance is clamped at zero so undoing a deposit
// never leaves debt behind. Returns the removed transaction.
func (l *Ledger) DeleteTransaction(id int64) (*Transaction, error) {
	for i := range l.Transactions {
		if l.Transactions[i].ID != id {
			continue
		}
		removed := l.Transactions[i]
		switch removed.Type {
		case Deposit:
			l.Balance = l.Balance.SubClamped(removed.Amount)
		case Withdrawal:
			l.Balance = l.Balance.Add(removed.Amount)
		}
		l.Transactions = append(l.Transactions[:i], l.Transactions[i+1:]...)
		return &removed, nil
	}
	return nil, ErrTransactionNotFound
}

// FindTransaction returns the transaction with the given id.
func (l *Ledger) FindTransaction(id int64) (*Transaction, error) {
	for i := range l.Transactions {
		if l.Transactions[i].ID == id {
			return &l.Transactions[i], nil
		}
	}
	return nil, ErrTransactionNotFound
}

// TotalDeposits sums all deposit amounts, recomputed on demand.
func (l *Ledger) TotalDeposits() Money {
	return l.totalOf(Deposit)
}

// TotalWithdrawals sums all withdrawal amounts, recomputed on demand.
func (l *Ledger) TotalWithdrawals() Money {
	return l.totalOf(Withdrawal)
}

func (l *Ledger) totalOf(t TransactionType) Money {
	total := Zero()
	for _, tx := range l.Transactions {
		if tx.Type == t {
			total = total.Add(tx.Amount)
		}
	}
	return total
}

// PeriodTotal sums amounts of the given type created on or after since.
func (l *Ledger) PeriodTotal(t TransactionType, since time.Time) Money {
	total := Zero()
	for _, tx := range l.Transactions {
		if tx.Type == t && !tx.CreatedAt.Before(since) {
			total = total.Add(tx.Amount)
		}
	}
	return total
}

package services

import (
	"context"
	"fmt"
	"time"

	"jobfund/internal/core"
)

// TransferResult reports the two sides of a completed savings-to-vacation
// transfer together with the resulting balances.
type TransferResult struct {
	Withdrawal      *core.Transaction
	Deposit         *core.Transaction
	SavingsBalance  core.Money
	VacationBalance core.Money
}

// SavingsStats aggregates the savings ledger for reporting: lifetime
// totals plus deposit sums for the current ISO week, calendar month and
// calendar year.
type SavingsStats struct {
	Balance          core.Money
	TotalDeposits    core.Money
	TotalWithdrawals core.Money
	Weekly           core.Money
	Monthly          core.Money
	Yearly           core.Money
}

// SavingsService manages the per-user savings ledger and coordinates the
// atomic transfer into the vacation ledger.
type SavingsService struct {
	store LedgerStore
	now   func() time.Time
}

func NewSavingsService(store LedgerStore) *SavingsService {
	return &SavingsService{store: store, now: time.Now}
}

// GetOrCreate returns the user's savings ledger, creating it on first
// access.
func (s *SavingsService) GetOrCreate(ctx context.Context, userID int64) (*core.Ledger, error) {
	return s.store.GetOrCreateLedger(ctx, userID, core.SavingsLedger)
}

// AddFixedContribution deposits the fixed contribution amount through the
// regular transaction path. It is a convenience shortcut, not a separate
// balance rule.
func (s *SavingsService) AddFixedContribution(ctx context.Context, userID int64) (*core.Transaction, error) {
	return s.addTransaction(ctx, userID, core.Deposit, core.FixedContributionAmount, core.DescFixedContribution)
}

// Withdraw records a withdrawal on the savings ledger. A withdrawal that
// would drive the balance negative fails with ErrInsufficientFunds and
// changes nothing.
func (s *SavingsService) Withdraw(ctx context.Context, userID int64, amount, description string) (*core.Transaction, error) {
	return s.addTransaction(ctx, userID, core.Withdrawal, amount, description)
}

func (s *SavingsService) addTransaction(ctx context.Context, userID int64, txType core.TransactionType, amountStr, description string) (*core.Transaction, error) {
	amount, err := core.ParseAmount(amountStr)
	if err != nil {
		return nil, err
	}

	var created *core.Transaction
	err = s.store.RunAtomically(ctx, func(ctx context.Context) error {
		ledger, err := s.store.GetOrCreateLedger(ctx, userID, core.SavingsLedger)
		if err != nil {
			return err
		}
		tx, err := ledger.AddTransaction(txType, amount, description, s.now())
		if err != nil {
			return err
		}
		if err := s.store.InsertTransaction(ctx, ledger.ID, tx); err != nil {
			return fmt.Errorf("insert transaction: %w", err)
		}
		if err := s.store.SaveLedger(ctx, ledger); err != nil {
			return fmt.Errorf("save ledger: %w", err)
		}
		created = tx
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// DeleteTransaction reverses and removes a savings transaction; the
// reversed balance is clamped at zero.
func (s *SavingsService) DeleteTransaction(ctx context.Context, userID, txID int64) error {
	return s.store.RunAtomically(ctx, func(ctx context.Context) error {
		ledger, err := s.store.GetOrCreateLedger(ctx, userID, core.SavingsLedger)
		if err != nil {
			return err
		}
		if _, err := ledger.DeleteTransaction(txID); err != nil {
			return err
		}
		if err := s.store.DeleteTransaction(ctx, ledger.ID, txID); err != nil {
			return fmt.Errorf("delete transaction: %w", err)
		}
		return s.store.SaveLedger(ctx, ledger)
	})
}

// TransferToVacation moves amount from the savings ledger into the
// vacation ledger as a withdrawal/deposit pair tagged with the transfer
// markers. Both ledgers are written inside a single storage transaction;
// on any failure neither ledger is mutated. The total across both ledgers
// is conserved.
func (s *SavingsService) TransferToVacation(ctx context.Context, userID int64, amountStr string) (*TransferResult, error) {
	amount, err := core.ParseAmount(amountStr)
	if err != nil {
		return nil, err
	}

	var result *TransferResult
	err = s.store.RunAtomically(ctx, func(ctx context.Context) error {
		savings, err := s.store.GetOrCreateLedger(ctx, userID, core.SavingsLedger)
		if err != nil {
			return err
		}
		vacation, err := s.store.GetOrCreateLedger(ctx, userID, core.VacationLedger)
		if err != nil {
			return err
		}
		if savings.Balance.LessThan(amount) {
			return core.ErrInsufficientFunds
		}

		now := s.now()
		withdrawal, err := savings.AddTransaction(core.Withdrawal, amount, core.DescTransferToVacation, now)
		if err != nil {
			return err
		}
		deposit, err := vacation.AddTransaction(core.Deposit, amount, core.DescTransferFromSavings, now)
		if err != nil {
			return err
		}
		if err := s.store.InsertTransaction(ctx, savings.ID, withdrawal); err != nil {
			return fmt.Errorf("insert withdrawal: %w", err)
		}
		if err := s.store.InsertTransaction(ctx, vacation.ID, deposit); err != nil {
			return fmt.Errorf("insert deposit: %w", err)
		}

		vacation.ReallocateGoals(now)
		if err := s.store.SaveLedger(ctx, savings); err != nil {
			return fmt.Errorf("save savings ledger: %w", err)
		}
		if err := s.store.SaveLedger(ctx, vacation); err != nil {
			return fmt.Errorf("save vacation ledger: %w", err)
		}
		if err := s.store.SaveGoalStates(ctx, vacation.ID, vacation.Goals); err != nil {
			return fmt.Errorf("save goal states: %w", err)
		}

		result = &TransferResult{
			Withdrawal:      withdrawal,
			Deposit:         deposit,
			SavingsBalance:  savings.Balance,
			VacationBalance: vacation.Balance,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Stats computes the savings reporting aggregates for the current week,
// month and year windows.
func (s *SavingsService) Stats(ctx context.Context, userID int64) (*SavingsStats, error) {
	ledger, err := s.store.GetOrCreateLedger(ctx, userID, core.SavingsLedger)
	if err != nil {
		return nil, err
	}
	now := s.now()
	return &SavingsStats{
		Balance:          ledger.Balance,
		TotalDeposits:    ledger.TotalDeposits(),
		TotalWithdrawals: ledger.TotalWithdrawals(),
		Weekly:           ledger.PeriodTotal(core.Deposit, core.StartOfWeek(now)),
		Monthly:          ledger.PeriodTotal(core.Deposit, core.StartOfMonth(now)),
		Yearly:           ledger.PeriodTotal(core.Deposit, core.StartOfYear(now)),
	}, nil
}

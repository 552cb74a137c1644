package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"jobfund/internal/core"
)

// AddTransactionCommand is a validated request to record a deposit or
// withdrawal. Amount is a decimal string with at most two fractional
// digits.
type AddTransactionCommand struct {
	Type        string
	Amount      string
	Description string
}

// GoalCommand carries the user-editable goal fields.
type GoalCommand struct {
	Name         string
	TargetAmount string
}

// BudgetService manages the per-user vacation ledger: transactions, goals
// and the vacation-months setting. Every balance- or goal-affecting command
// re-runs the goal allocation before persisting, inside one storage
// transaction.
type BudgetService struct {
	store LedgerStore
	now   func() time.Time
}

func NewBudgetService(store LedgerStore) *BudgetService {
	return &BudgetService{store: store, now: time.Now}
}

// GetOrCreate returns the user's vacation ledger, creating it on first
// access.
func (s *BudgetService) GetOrCreate(ctx context.Context, userID int64) (*core.Ledger, error) {
	return s.store.GetOrCreateLedger(ctx, userID, core.VacationLedger)
}

// AddTransaction records a transaction on the vacation ledger and
// reallocates goals against the new balance.
func (s *BudgetService) AddTransaction(ctx context.Context, userID int64, cmd AddTransactionCommand) (*core.Transaction, error) {
	txType := core.TransactionType(cmd.Type)
	if !txType.Valid() {
		return nil, core.ErrInvalidType
	}
	amount, err := core.ParseAmount(cmd.Amount)
	if err != nil {
		return nil, err
	}

	var created *core.Transaction
	err = s.store.RunAtomically(ctx, func(ctx context.Context) error {
		ledger, err := s.store.GetOrCreateLedger(ctx, userID, core.VacationLedger)
		if err != nil {
			return err
		}
		now := s.now()
		tx, err := ledger.AddTransaction(txType, amount, cmd.Description, now)
		if err != nil {
			return err
		}
		if err := s.store.InsertTransaction(ctx, ledger.ID, tx); err != nil {
			return fmt.Errorf("insert transaction: %w", err)
		}
		ledger.ReallocateGoals(now)
		created = tx
		return s.persistLedger(ctx, ledger)
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// DeleteTransaction reverses and removes a transaction owned by the user's
// vacation ledger.
func (s *BudgetService) DeleteTransaction(ctx context.Context, userID, txID int64) error {
	return s.store.RunAtomically(ctx, func(ctx context.Context) error {
		ledger, err := s.store.GetOrCreateLedger(ctx, userID, core.VacationLedger)
		if err != nil {
			return err
		}
		if _, err := ledger.DeleteTransaction(txID); err != nil {
			return err
		}
		if err := s.store.DeleteTransaction(ctx, ledger.ID, txID); err != nil {
			return fmt.Errorf("delete transaction: %w", err)
		}
		ledger.ReallocateGoals(s.now())
		return s.persistLedger(ctx, ledger)
	})
}

// AddGoal creates a goal and immediately evaluates it against the current
// balance.
func (s *BudgetService) AddGoal(ctx context.Context, userID int64, cmd GoalCommand) (*core.Goal, error) {
	name, target, err := parseGoalCommand(cmd)
	if err != nil {
		return nil, err
	}

	var created *core.Goal
	err = s.store.RunAtomically(ctx, func(ctx context.Context) error {
		ledger, err := s.store.GetOrCreateLedger(ctx, userID, core.VacationLedger)
		if err != nil {
			return err
		}
		goal := core.Goal{Name: name, Target: target}
		if err := s.store.InsertGoal(ctx, ledger.ID, &goal); err != nil {
			return fmt.Errorf("insert goal: %w", err)
		}
		ledger.Goals = append(ledger.Goals, goal)
		ledger.ReallocateGoals(s.now())
		if err := s.store.SaveGoalStates(ctx, ledger.ID, ledger.Goals); err != nil {
			return fmt.Errorf("save goal states: %w", err)
		}
		g, err := ledger.FindGoal(goal.ID)
		if err != nil {
			return err
		}
		created = g
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// UpdateGoal renames or retargets a goal and re-evaluates completion.
func (s *BudgetService) UpdateGoal(ctx context.Context, userID, goalID int64, cmd GoalCommand) (*core.Goal, error) {
	name, target, err := parseGoalCommand(cmd)
	if err != nil {
		return nil, err
	}

	var updated *core.Goal
	err = s.store.RunAtomically(ctx, func(ctx context.Context) error {
		ledger, err := s.store.GetOrCreateLedger(ctx, userID, core.VacationLedger)
		if err != nil {
			return err
		}
		goal, err := ledger.FindGoal(goalID)
		if err != nil {
			return err
		}
		goal.Name = name
		goal.Target = target
		if err := s.store.UpdateGoal(ctx, ledger.ID, goal); err != nil {
			return fmt.Errorf("update goal: %w", err)
		}
		ledger.ReallocateGoals(s.now())
		if err := s.store.SaveGoalStates(ctx, ledger.ID, ledger.Goals); err != nil {
			return fmt.Errorf("save goal states: %w", err)
		}
		updated, err = ledger.FindGoal(goalID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteGoal removes a goal owned by the user's vacation ledger.
func (s *BudgetService) DeleteGoal(ctx context.Context, userID, goalID int64) error {
	return s.store.RunAtomically(ctx, func(ctx context.Context) error {
		ledger, err := s.store.GetOrCreateLedger(ctx, userID, core.VacationLedger)
		if err != nil {
			return err
		}
		if err := ledger.RemoveGoal(goalID); err != nil {
			return err
		}
		if err := s.store.DeleteGoal(ctx, ledger.ID, goalID); err != nil {
			return fmt.Errorf("delete goal: %w", err)
		}
		ledger.ReallocateGoals(s.now())
		return s.store.SaveGoalStates(ctx, ledger.ID, ledger.Goals)
	})
}

// SetVacationMonths updates the informational vacation-months divisor.
func (s *BudgetService) SetVacationMonths(ctx context.Context, userID int64, months int) (*core.Ledger, error) {
	if months <= 0 {
		return nil, core.ErrInvalidMonths
	}
	var ledger *core.Ledger
	err := s.store.RunAtomically(ctx, func(ctx context.Context) error {
		l, err := s.store.GetOrCreateLedger(ctx, userID, core.VacationLedger)
		if err != nil {
			return err
		}
		l.VacationMonths = months
		if err := s.store.SaveLedger(ctx, l); err != nil {
			return fmt.Errorf("save ledger: %w", err)
		}
		ledger = l
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ledger, nil
}

func (s *BudgetService) persistLedger(ctx context.Context, ledger *core.Ledger) error {
	if err := s.store.SaveLedger(ctx, ledger); err != nil {
		return fmt.Errorf("save ledger: %w", err)
	}
	if err := s.store.SaveGoalStates(ctx, ledger.ID, ledger.Goals); err != nil {
		return fmt.Errorf("save goal states: %w", err)
	}
	return nil
}

func parseGoalCommand(cmd GoalCommand) (string, core.Money, error) {
	name := strings.TrimSpace(cmd.Name)
	if name == "" {
		return "", core.Money{}, core.ErrEmptyGoalName
	}
	target, err := core.ParseAmount(cmd.TargetAmount)
	if err != nil {
		return "", core.Money{}, err
	}
	return name, target, nil
}

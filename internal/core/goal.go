package core

import (
	"sort"
	"time"
)

// Goal is a named savings target on a vacation ledger. Completion state is
// owned by the allocation engine and never set directly by callers.
type Goal struct {
	ID          int64
	Name        string
	Target      Money
	Completed   bool
	CompletedAt *time.Time
}

// ReallocateGoals recomputes every goal's completion state with a waterfall
// allocation: goals claim slices of the balance in id order (creation
// order), so earlier goals are funded first and a goal is complete only if
// the cumulative balance up to and including it covers its target.
//
// Completion transitions stamp CompletedAt when it was unset and clear it
// when a goal falls back to incomplete. Re-running with an unchanged
// balance and goal set is a no-op.
func (l *Ledger) ReallocateGoals(now time.Time) {
	sort.Slice(l.Goals, func(i, j int) bool { return l.Goals[i].ID < l.Goals[j].ID })

	remaining := l.Balance
	if remaining.IsNegative() {
		remaining = Zero()
	}
	for i := range l.Goals {
		g := &l.Goals[i]
		allocated := remaining.Min(g.Target)
		completed := allocated.Cmp(g.Target) >= 0

		if completed && !g.Completed && g.CompletedAt == nil {
			t := now
			g.CompletedAt = &t
		}
		if !completed {
			g.CompletedAt = nil
		}
		g.Completed = completed

		remaining = remaining.SubClamped(allocated)
	}
}

// FindGoal returns the goal with the given id.
func (l *Ledger) FindGoal(id int64) (*Goal, error) {
	for i := range l.Goals {
		if l.Goals[i].ID == id {
			return &l.Goals[i], nil
		}
	}
	return nil, ErrGoalNotFound
}

// RemoveGoal deletes the goal with the given id from the ledger.
func (l *Ledger) RemoveGoal(id int64) error {
	for i := range l.Goals {
		if l.Goals[i].ID == id {
			l.Goals = append(l.Goals[:i], l.Goals[i+1:]...)
			return nil
		}
	}
	return ErrGoalNotFound
}

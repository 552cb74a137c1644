package core

import (
	"testing"
	"time"
)

func ledgerWithGoals(t *testing.T, balance string, targets ...string) *Ledger {
	t.Helper()
	l := NewLedger(1, VacationLedger)
	b, err := ParseBalance(balance)
	if err != nil {
		t.Fatalf("parse balance %q: %v", balance, err)
	}
	l.Balance = b
	for i, target := range targets {
		l.Goals = append(l.Goals, Goal{
			ID:     int64(i + 1),
			Name:   "goal",
			Target: mustAmount(t, target),
		})
	}
	return l
}

func TestReallocateGoalsWaterfall(t *testing.T) {
	// Balance 120.00 against targets 100.00 and 50.00: the first goal
	// claims 100.00 and completes, the second sees only 20.00.
	l := ledgerWithGoals(t, "120.00", "100.00", "50.00")
	l.ReallocateGoals(testTime)

	if !l.Goals[0].Completed {
		t.Fatalf("goal 1 expected completed")
	}
	if l.Goals[0].CompletedAt == nil || !l.Goals[0].CompletedAt.Equal(testTime) {
		t.Fatalf("goal 1 expected CompletedAt %v, got %v", testTime, l.Goals[0].CompletedAt)
	}
	if l.Goals[1].Completed {
		t.Fatalf("goal 2 expected incomplete")
	}
	if l.Goals[1].CompletedAt != nil {
		t.Fatalf("goal 2 expected nil CompletedAt")
	}
}

func TestReallocateGoalsFundsInIDOrder(t *testing.T) {
	l := ledgerWithGoals(t, "150.00", "100.00", "50.00", "10.00")
	// Shuffle storage order; allocation must still run by id ascending.
	l.Goals[0], l.Goals[2] = l.Goals[2], l.Goals[0]
	l.ReallocateGoals(testTime)

	if !l.Goals[0].Completed || !l.Goals[1].Completed {
		t.Fatalf("goals 1 and 2 expected completed")
	}
	if l.Goals[2].Completed {
		t.Fatalf("goal 3 expected incomplete, nothing remains after 100+50")
	}
}

func TestReallocateGoalsIsIdempotent(t *testing.T) {
	l := ledgerWithGoals(t, "120.00", "100.00", "50.00")
	l.ReallocateGoals(testTime)

	later := testTime.Add(time.Hour)
	l.ReallocateGoals(later)

	if got := l.Goals[0].CompletedAt; got == nil || !got.Equal(testTime) {
		t.Fatalf("re-run must not restamp CompletedAt: got %v", got)
	}
	if l.Goals[1].Completed || l.Goals[1].CompletedAt != nil {
		t.Fatalf("re-run must not change incomplete goal state")
	}
}

func TestReallocateGoalsClearsCompletedAtOnRegression(t *testing.T) {
	l := ledgerWithGoals(t, "120.00", "100.00")
	l.ReallocateGoals(testTime)
	if !l.Goals[0].Completed {
		t.Fatalf("expected completed")
	}

	// Balance drops below the target; completion is withdrawn.
	b, _ := ParseBalance("80.00")
	l.Balance = b
	l.ReallocateGoals(testTime.Add(time.Hour))

	if l.Goals[0].Completed {
		t.Fatalf("expected incomplete after balance drop")
	}
	if l.Goals[0].CompletedAt != nil {
		t.Fatalf("CompletedAt must be cleared, got %v", l.Goals[0].CompletedAt)
	}
}

func TestReallocateGoalsExactBoundary(t *testing.T) {
	l := ledgerWithGoals(t, "150.00", "100.00", "50.00")
	l.ReallocateGoals(testTime)
	if !l.Goals[0].Completed || !l.Goals[1].Completed {
		t.Fatalf("both goals expected completed on exact cover")
	}
}

func TestReallocateGoalsNegativeBalance(t *testing.T) {
	l := ledgerWithGoals(t, "-5.00", "10.00")
	l.ReallocateGoals(testTime)
	if l.Goals[0].Completed {
		t.Fatalf("negative balance funds nothing")
	}
}

// Package services provides business logic and orchestration on top of the
// domain model: ledger commands, the savings-to-vacation transfer
// coordinator, job application tracking, and account management.
package services

import (
	"context"
	"time"

	"jobfund/internal/core"
)

// LedgerStore is the persistence port for ledger aggregates. Loading
// returns the full aggregate (balance, transactions ordered by creation,
// goals ordered by id); implementations create the ledger lazily on first
// access. RunAtomically wraps fn in one storage transaction: every store
// call made with the context it passes joins that transaction, and an
// error from fn rolls everything back.
type LedgerStore interface {
	GetOrCreateLedger(ctx context.Context, userID int64, kind core.LedgerKind) (*core.Ledger, error)
	SaveLedger(ctx context.Context, l *core.Ledger) error
	InsertTransaction(ctx context.Context, ledgerID int64, tx *core.Transaction) error
	DeleteTransaction(ctx context.Context, ledgerID, txID int64) error
	InsertGoal(ctx context.Context, ledgerID int64, g *core.Goal) error
	UpdateGoal(ctx context.Context, ledgerID int64, g *core.Goal) error
	SaveGoalStates(ctx context.Context, ledgerID int64, goals []core.Goal) error
	DeleteGoal(ctx context.Context, ledgerID, goalID int64) error
	RunAtomically(ctx context.Context, fn func(ctx context.Context) error) error
}

// ApplicationStore is the persistence port for job applications and their
// append-only status history.
type ApplicationStore interface {
	ListApplications(ctx context.Context, userID int64) ([]core.Application, error)
	ListApplicationsInRange(ctx context.Context, userID int64, from, to time.Time) ([]core.Application, error)
	GetApplication(ctx context.Context, userID, id int64) (*core.Application, error)
	InsertApplication(ctx context.Context, app *core.Application) error
	UpdateApplication(ctx context.Context, app *core.Application) error
	DeleteApplication(ctx context.Context, userID, id int64) error
	InsertStatusChange(ctx context.Context, applicationID int64, change *core.StatusChange) error
	RunAtomically(ctx context.Context, fn func(ctx context.Context) error) error
}

// UserStore is the persistence port for accounts and refresh tokens.
type UserStore interface {
	CreateUser(ctx context.Context, u *core.User) error
	FindUserByEmail(ctx context.Context, email string) (*core.User, error)
	FindUserByID(ctx context.Context, id int64) (*core.User, error)
	FindUserByVerificationToken(ctx context.Context, token string) (*core.User, error)
	MarkUserVerified(ctx context.Context, userID int64) error
	SaveRefreshToken(ctx context.Context, t core.RefreshToken) error
	FindRefreshToken(ctx context.Context, token string) (*core.RefreshToken, error)
	DeleteRefreshToken(ctx context.Context, token string) error
}

// VerificationPublisher dispatches verification email messages to the mail
// worker. A nil publisher disables dispatch.
type VerificationPublisher interface {
	PublishVerificationEmail(ctx context.Context, userID int64, email, token string) error
}

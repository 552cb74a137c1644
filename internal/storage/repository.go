package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"jobfund/internal/core"

	_ "modernc.org/sqlite"
)

// SQLiteRepository persists users, ledgers and applications in a single
// sqlite database. It implements the services storage ports.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ready reports whether the database is reachable.
func (r *SQLiteRepository) Ready(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

type txKey struct{}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// conn returns the transaction carried by ctx, or the plain connection
// when the call happens outside RunAtomically.
func (r *SQLiteRepository) conn(ctx context.Context) querier {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}
	return r.db
}

// RunAtomically runs fn inside a database transaction. The transaction
// travels down through ctx, so every repository call made by fn joins it.
// Nested calls reuse the enclosing transaction.
func (r *SQLiteRepository) RunAtomically(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return fn(ctx)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// --- ledgers ---

func (r *SQLiteRepository) GetOrCreateLedger(ctx context.Context, userID int64, kind core.LedgerKind) (*core.Ledger, error) {
	q := r.conn(ctx)

	ledger := &core.Ledger{UserID: userID, Kind: kind}
	var balance string
	err := q.QueryRowContext(ctx,
		`SELECT id, balance, vacation_months FROM ledgers WHERE user_id = ? AND kind = ?`,
		userID, kind,
	).Scan(&ledger.ID, &balance, &ledger.VacationMonths)
	if errors.Is(err, sql.ErrNoRows) {
		created := core.NewLedger(userID, kind)
		res, err := q.ExecContext(ctx,
			`INSERT INTO ledgers (user_id, kind, balance, vacation_months) VALUES (?, ?, ?, ?)`,
			userID, kind, created.Balance.String(), created.VacationMonths,
		)
		if err != nil {
			return nil, fmt.Errorf("create ledger: %w", err)
		}
		created.ID, err = res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("ledger id: %w", err)
		}
		return created, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get ledger: %w", err)
	}

	ledger.Balance, err = core.ParseBalance(balance)
	if err != nil {
		return nil, fmt.Errorf("parse ledger balance %q: %w", balance, err)
	}
	if ledger.Transactions, err = r.loadTransactions(ctx, ledger.ID); err != nil {
		return nil, err
	}
	if ledger.Goals, err = r.loadGoals(ctx, ledger.ID); err != nil {
		return nil, err
	}
	return ledger, nil
}

func (r *SQLiteRepository) SaveLedger(ctx context.Context, l *core.Ledger) error {
	_, err := r.conn(ctx).ExecContext(ctx,
		`UPDATE ledgers SET balance = ?, vacation_months = ? WHERE id = ?`,
		l.Balance.String(), l.VacationMonths, l.ID,
	)
	if err != nil {
		return fmt.Errorf("save ledger: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) loadTransactions(ctx context.Context, ledgerID int64) ([]core.Transaction, error) {
	rows, err := r.conn(ctx).QueryContext(ctx,
		`SELECT id, type, amount, description, created_at
		 FROM transactions WHERE ledger_id = ? ORDER BY id`,
		ledgerID,
	)
	if err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		var tx core.Transaction
		var amount string
		if err := rows.Scan(&tx.ID, &tx.Type, &amount, &tx.Description, &tx.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		if tx.Amount, err = core.ParseBalance(amount); err != nil {
			return nil, fmt.Errorf("parse transaction amount %q: %w", amount, err)
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) InsertTransaction(ctx context.Context, ledgerID int64, tx *core.Transaction) error {
	res, err := r.conn(ctx).ExecContext(ctx,
		`INSERT INTO transactions (ledger_id, type, amount, description, created_at) VALUES (?, ?, ?, ?, ?)`,
		ledgerID, tx.Type, tx.Amount.String(), tx.Description, tx.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	if tx.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("transaction id: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, ledgerID, txID int64) error {
	res, err := r.conn(ctx).ExecContext(ctx,
		`DELETE FROM transactions WHERE id = ? AND ledger_id = ?`, txID, ledgerID,
	)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrTransactionNotFound
	}
	return nil
}

// --- goals ---

func (r *SQLiteRepository) loadGoals(ctx context.Context, ledgerID int64) ([]core.Goal, error) {
	rows, err := r.conn(ctx).QueryContext(ctx,
		`SELECT id, name, target, completed, completed_at
		 FROM goals WHERE ledger_id = ? ORDER BY id`,
		ledgerID,
	)
	if err != nil {
		return nil, fmt.Errorf("load goals: %w", err)
	}
	defer rows.Close()

	var out []core.Goal
	for rows.Next() {
		var g core.Goal
		var target string
		var completedAt sql.NullTime
		if err := rows.Scan(&g.ID, &g.Name, &target, &g.Completed, &completedAt); err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		if g.Target, err = core.ParseBalance(target); err != nil {
			return nil, fmt.Errorf("parse goal target %q: %w", target, err)
		}
		if completedAt.Valid {
			t := completedAt.Time
			g.CompletedAt = &t
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) InsertGoal(ctx context.Context, ledgerID int64, g *core.Goal) error {
	res, err := r.conn(ctx).ExecContext(ctx,
		`INSERT INTO goals (ledger_id, name, target, completed, completed_at) VALUES (?, ?, ?, ?, ?)`,
		ledgerID, g.Name, g.Target.String(), g.Completed, completedAtValue(g),
	)
	if err != nil {
		return fmt.Errorf("insert goal: %w", err)
	}
	if g.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("goal id: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) UpdateGoal(ctx context.Context, ledgerID int64, g *core.Goal) error {
	res, err := r.conn(ctx).ExecContext(ctx,
		`UPDATE goals SET name = ?, target = ? WHERE id = ? AND ledger_id = ?`,
		g.Name, g.Target.String(), g.ID, ledgerID,
	)
	if err != nil {
		return fmt.Errorf("update goal: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrGoalNotFound
	}
	return nil
}

// SaveGoalStates writes back the completion flags recomputed by the
// allocation pass.
func (r *SQLiteRepository) SaveGoalStates(ctx context.Context, ledgerID int64, goals []core.Goal) error {
	q := r.conn(ctx)
	for i := range goals {
		g := &goals[i]
		_, err := q.ExecContext(ctx,
			`UPDATE goals SET completed = ?, completed_at = ? WHERE id = ? AND ledger_id = ?`,
			g.Completed, completedAtValue(g), g.ID, ledgerID,
		)
		if err != nil {
			return fmt.Errorf("save goal state: %w", err)
		}
	}
	return nil
}

func (r *SQLiteRepository) DeleteGoal(ctx context.Context, ledgerID, goalID int64) error {
	res, err := r.conn(ctx).ExecContext(ctx,
		`DELETE FROM goals WHERE id = ? AND ledger_id = ?`, goalID, ledgerID,
	)
	if err != nil {
		return fmt.Errorf("delete goal: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrGoalNotFound
	}
	return nil
}

func completedAtValue(g *core.Goal) any {
	if g.CompletedAt == nil {
		return nil
	}
	return *g.CompletedAt
}

// --- applications ---

const applicationColumns = `id, user_id, company_name, position, platform, status, applied_at`

func (r *SQLiteRepository) ListApplications(ctx context.Context, userID int64) ([]core.Application, error) {
	rows, err := r.conn(ctx).QueryContext(ctx,
		`SELECT `+applicationColumns+` FROM applications WHERE user_id = ? ORDER BY applied_at DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	return scanApplications(rows)
}

func (r *SQLiteRepository) ListApplicationsInRange(ctx context.Context, userID int64, from, to time.Time) ([]core.Application, error) {
	rows, err := r.conn(ctx).QueryContext(ctx,
		`SELECT `+applicationColumns+` FROM applications
		 WHERE user_id = ? AND applied_at >= ? AND applied_at < ?
		 ORDER BY applied_at DESC, id DESC`,
		userID, from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("list applications in range: %w", err)
	}
	return scanApplications(rows)
}

func scanApplications(rows *sql.Rows) ([]core.Application, error) {
	defer rows.Close()
	var out []core.Application
	for rows.Next() {
		var a core.Application
		if err := rows.Scan(&a.ID, &a.UserID, &a.CompanyName, &a.Position, &a.Platform, &a.Status, &a.AppliedAt); err != nil {
			return nil, fmt.Errorf("scan application: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) GetApplication(ctx context.Context, userID, id int64) (*core.Application, error) {
	var a core.Application
	err := r.conn(ctx).QueryRowContext(ctx,
		`SELECT `+applicationColumns+` FROM applications WHERE id = ? AND user_id = ?`,
		id, userID,
	).Scan(&a.ID, &a.UserID, &a.CompanyName, &a.Position, &a.Platform, &a.Status, &a.AppliedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrApplicationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get application: %w", err)
	}

	rows, err := r.conn(ctx).QueryContext(ctx,
		`SELECT id, old_status, new_status, changed_at
		 FROM application_status_history WHERE application_id = ? ORDER BY id`,
		a.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("load status history: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var c core.StatusChange
		if err := rows.Scan(&c.ID, &c.OldStatus, &c.NewStatus, &c.ChangedAt); err != nil {
			return nil, fmt.Errorf("scan status change: %w", err)
		}
		a.History = append(a.History, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *SQLiteRepository) InsertApplication(ctx context.Context, app *core.Application) error {
	res, err := r.conn(ctx).ExecContext(ctx,
		`INSERT INTO applications (user_id, company_name, position, platform, status, applied_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		app.UserID, app.CompanyName, app.Position, app.Platform, app.Status, app.AppliedAt,
	)
	if err != nil {
		return fmt.Errorf("insert application: %w", err)
	}
	if app.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("application id: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) UpdateApplication(ctx context.Context, app *core.Application) error {
	res, err := r.conn(ctx).ExecContext(ctx,
		`UPDATE applications SET company_name = ?, position = ?, platform = ?, status = ?, applied_at = ?
		 WHERE id = ? AND user_id = ?`,
		app.CompanyName, app.Position, app.Platform, app.Status, app.AppliedAt, app.ID, app.UserID,
	)
	if err != nil {
		return fmt.Errorf("update application: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrApplicationNotFound
	}
	return nil
}

func (r *SQLiteRepository) DeleteApplication(ctx context.Context, userID, id int64) error {
	res, err := r.conn(ctx).ExecContext(ctx,
		`DELETE FROM applications WHERE id = ? AND user_id = ?`, id, userID,
	)
	if err != nil {
		return fmt.Errorf("delete application: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrApplicationNotFound
	}
	return nil
}

func (r *SQLiteRepository) InsertStatusChange(ctx context.Context, applicationID int64, change *core.StatusChange) error {
	res, err := r.conn(ctx).ExecContext(ctx,
		`INSERT INTO application_status_history (application_id, old_status, new_status, changed_at)
		 VALUES (?, ?, ?, ?)`,
		applicationID, change.OldStatus, change.NewStatus, change.ChangedAt,
	)
	if err != nil {
		return fmt.Errorf("insert status change: %w", err)
	}
	if change.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("status change id: %w", err)
	}
	return nil
}

// --- users ---

func (r *SQLiteRepository) CreateUser(ctx context.Context, u *core.User) error {
	res, err := r.conn(ctx).ExecContext(ctx,
		`INSERT INTO users (email, password_hash, is_verified, verification_token, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		u.Email, u.PasswordHash, u.IsVerified, u.VerificationToken, u.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	if u.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("user id: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) findUser(ctx context.Context, where string, arg any) (*core.User, error) {
	var u core.User
	err := r.conn(ctx).QueryRowContext(ctx,
		`SELECT id, email, password_hash, is_verified, verification_token, created_at
		 FROM users WHERE `+where,
		arg,
	).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.IsVerified, &u.VerificationToken, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &u, nil
}

func (r *SQLiteRepository) FindUserByEmail(ctx context.Context, email string) (*core.User, error) {
	return r.findUser(ctx, "email = ?", email)
}

func (r *SQLiteRepository) FindUserByID(ctx context.Context, id int64) (*core.User, error) {
	return r.findUser(ctx, "id = ?", id)
}

func (r *SQLiteRepository) FindUserByVerificationToken(ctx context.Context, token string) (*core.User, error) {
	if token == "" {
		return nil, core.ErrUserNotFound
	}
	return r.findUser(ctx, "verification_token = ?", token)
}

func (r *SQLiteRepository) MarkUserVerified(ctx context.Context, userID int64) error {
	res, err := r.conn(ctx).ExecContext(ctx,
		`UPDATE users SET is_verified = 1 WHERE id = ?`, userID,
	)
	if err != nil {
		return fmt.Errorf("mark user verified: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrUserNotFound
	}
	return nil
}

func (r *SQLiteRepository) SaveRefreshToken(ctx context.Context, t core.RefreshToken) error {
	_, err := r.conn(ctx).ExecContext(ctx,
		`INSERT INTO refresh_tokens (token, user_id, expires_at) VALUES (?, ?, ?)`,
		t.Token, t.UserID, t.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("save refresh token: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) FindRefreshToken(ctx context.Context, token string) (*core.RefreshToken, error) {
	var t core.RefreshToken
	err := r.conn(ctx).QueryRowContext(ctx,
		`SELECT token, user_id, expires_at FROM refresh_tokens WHERE token = ?`, token,
	).Scan(&t.Token, &t.UserID, &t.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find refresh token: %w", err)
	}
	return &t, nil
}

func (r *SQLiteRepository) DeleteRefreshToken(ctx context.Context, token string) error {
	if _, err := r.conn(ctx).ExecContext(ctx,
		`DELETE FROM refresh_tokens WHERE token = ?`, token,
	); err != nil {
		return fmt.Errorf("delete refresh token: %w", err)
	}
	return nil
}

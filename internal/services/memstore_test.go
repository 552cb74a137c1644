package services

import (
	"context"
	"fmt"
	"time"

	"jobfund/internal/core"
)

// memStore is an in-memory implementation of the storage ports. It hands
// out deep copies the same way the sqlite repository hydrates fresh rows,
// so a failed command never leaks mutations into stored state.
type memStore struct {
	nextID  int64
	ledgers map[string]*core.Ledger
	apps    map[int64]*core.Application
	users   map[int64]*core.User
	refresh map[string]core.RefreshToken
}

func newMemStore() *memStore {
	return &memStore{
		ledgers: make(map[string]*core.Ledger),
		apps:    make(map[int64]*core.Application),
		users:   make(map[int64]*core.User),
		refresh: make(map[string]core.RefreshToken),
	}
}

func (m *memStore) id() int64 {
	m.nextID++
	return m.nextID
}

func ledgerKey(userID int64, kind core.LedgerKind) string {
	return fmt.Sprintf("%d/%s", userID, kind)
}

func copyLedger(l *core.Ledger) *core.Ledger {
	c := *l
	c.Transactions = append([]core.Transaction(nil), l.Transactions...)
	c.Goals = append([]core.Goal(nil), l.Goals...)
	return &c
}

func (m *memStore) GetOrCreateLedger(ctx context.Context, userID int64, kind core.LedgerKind) (*core.Ledger, error) {
	key := ledgerKey(userID, kind)
	l, ok := m.ledgers[key]
	if !ok {
		l = core.NewLedger(userID, kind)
		l.ID = m.id()
		m.ledgers[key] = l
	}
	return copyLedger(l), nil
}

func (m *memStore) SaveLedger(ctx context.Context, l *core.Ledger) error {
	m.ledgers[ledgerKey(l.UserID, l.Kind)] = copyLedger(l)
	return nil
}

func (m *memStore) InsertTransaction(ctx context.Context, ledgerID int64, tx *core.Transaction) error {
	tx.ID = m.id()
	return nil
}

func (m *memStore) DeleteTransaction(ctx context.Context, ledgerID, txID int64) error {
	return nil
}

func (m *memStore) InsertGoal(ctx context.Context, ledgerID int64, g *core.Goal) error {
	g.ID = m.id()
	return nil
}

func (m *memStore) UpdateGoal(ctx context.Context, ledgerID int64, g *core.Goal) error {
	return nil
}

func (m *memStore) SaveGoalStates(ctx context.Context, ledgerID int64, goals []core.Goal) error {
	for _, l := range m.ledgers {
		if l.ID == ledgerID {
			l.Goals = append([]core.Goal(nil), goals...)
		}
	}
	return nil
}

func (m *memStore) DeleteGoal(ctx context.Context, ledgerID, goalID int64) error {
	return nil
}

func (m *memStore) RunAtomically(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func copyApplication(a *core.Application) *core.Application {
	c := *a
	c.History = append([]core.StatusChange(nil), a.History...)
	return &c
}

func (m *memStore) ListApplications(ctx context.Context, userID int64) ([]core.Application, error) {
	var out []core.Application
	for _, a := range m.apps {
		if a.UserID == userID {
			out = append(out, *copyApplication(a))
		}
	}
	return out, nil
}

func (m *memStore) ListApplicationsInRange(ctx context.Context, userID int64, from, to time.Time) ([]core.Application, error) {
	var out []core.Application
	for _, a := range m.apps {
		if a.UserID == userID && !a.AppliedAt.Before(from) && a.AppliedAt.Before(to) {
			out = append(out, *copyApplication(a))
		}
	}
	return out, nil
}

func (m *memStore) GetApplication(ctx context.Context, userID, id int64) (*core.Application, error) {
	a, ok := m.apps[id]
	if !ok || a.UserID != userID {
		return nil, core.ErrApplicationNotFound
	}
	return copyApplication(a), nil
}

func (m *memStore) InsertApplication(ctx context.Context, app *core.Application) error {
	app.ID = m.id()
	m.apps[app.ID] = copyApplication(app)
	return nil
}

func (m *memStore) UpdateApplication(ctx context.Context, app *core.Application) error {
	if _, ok := m.apps[app.ID]; !ok {
		return core.ErrApplicationNotFound
	}
	m.apps[app.ID] = copyApplication(app)
	return nil
}

func (m *memStore) DeleteApplication(ctx context.Context, userID, id int64) error {
	a, ok := m.apps[id]
	if !ok || a.UserID != userID {
		return core.ErrApplicationNotFound
	}
	delete(m.apps, id)
	return nil
}

func (m *memStore) InsertStatusChange(ctx context.Context, applicationID int64, change *core.StatusChange) error {
	change.ID = m.id()
	return nil
}

func (m *memStore) CreateUser(ctx context.Context, u *core.User) error {
	u.ID = m.id()
	c := *u
	m.users[u.ID] = &c
	return nil
}

func (m *memStore) FindUserByEmail(ctx context.Context, email string) (*core.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			c := *u
			return &c, nil
		}
	}
	return nil, core.ErrUserNotFound
}

func (m *memStore) FindUserByID(ctx context.Context, id int64) (*core.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, core.ErrUserNotFound
	}
	c := *u
	return &c, nil
}

func (m *memStore) FindUserByVerificationToken(ctx context.Context, token string) (*core.User, error) {
	for _, u := range m.users {
		if u.VerificationToken == token {
			c := *u
			return &c, nil
		}
	}
	return nil, core.ErrUserNotFound
}

func (m *memStore) MarkUserVerified(ctx context.Context, userID int64) error {
	u, ok := m.users[userID]
	if !ok {
		return core.ErrUserNotFound
	}
	u.IsVerified = true
	return nil
}

func (m *memStore) SaveRefreshToken(ctx context.Context, t core.RefreshToken) error {
	m.refresh[t.Token] = t
	return nil
}

func (m *memStore) FindRefreshToken(ctx context.Context, token string) (*core.RefreshToken, error) {
	t, ok := m.refresh[token]
	if !ok {
		return nil, core.ErrUserNotFound
	}
	return &t, nil
}

func (m *memStore) DeleteRefreshToken(ctx context.Context, token string) error {
	delete(m.refresh, token)
	return nil
}

// recordingPublisher captures verification email publishes for assertions.
type recordingPublisher struct {
	published []string
	fail      error
}

func (p *recordingPublisher) PublishVerificationEmail(ctx context.Context, userID int64, email, token string) error {
	if p.fail != nil {
		return p.fail
	}
	p.published = append(p.published, token)
	return nil
}

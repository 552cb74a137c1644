package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"jobfund/internal/auth"
	"jobfund/internal/core"
	"jobfund/internal/services"
)

var testTime = time.Date(2026, time.March, 10, 15, 0, 0, 0, time.UTC)

type stubBudget struct {
	ledger *core.Ledger
	err    error
}

func (s *stubBudget) GetOrCreate(ctx context.Context, userID int64) (*core.Ledger, error) {
	return s.ledger, s.err
}

func (s *stubBudget) AddTransaction(ctx context.Context, userID int64, cmd services.AddTransactionCommand) (*core.Transaction, error) {
	if s.err != nil {
		return nil, s.err
	}
	amount, err := core.ParseAmount(cmd.Amount)
	if err != nil {
		return nil, err
	}
	return &core.Transaction{ID: 1, Type: core.TransactionType(cmd.Type), Amount: amount, Description: cmd.Description, CreatedAt: testTime}, nil
}

func (s *stubBudget) DeleteTransaction(ctx context.Context, userID, txID int64) error { return s.err }

func (s *stubBudget) AddGoal(ctx context.Context, userID int64, cmd services.GoalCommand) (*core.Goal, error) {
	if s.err != nil {
		return nil, s.err
	}
	target, err := core.ParseAmount(cmd.TargetAmount)
	if err != nil {
		return nil, err
	}
	return &core.Goal{ID: 1, Name: cmd.Name, Target: target}, nil
}

func (s *stubBudget) UpdateGoal(ctx context.Context, userID, goalID int64, cmd services.GoalCommand) (*core.Goal, error) {
	if s.err != nil {
		return nil, s.err
	}
	target, _ := core.ParseAmount(cmd.TargetAmount)
	return &core.Goal{ID: goalID, Name: cmd.Name, Target: target}, nil
}

func (s *stubBudget) DeleteGoal(ctx context.Context, userID, goalID int64) error { return s.err }

func (s *stubBudget) SetVacationMonths(ctx context.Context, userID int64, months int) (*core.Ledger, error) {
	return s.ledger, s.err
}

type stubSavings struct {
	ledger     *core.Ledger
	stats      *services.SavingsStats
	statsCalls int
	err        error
}

func (s *stubSavings) GetOrCreate(ctx context.Context, userID int64) (*core.Ledger, error) {
	return s.ledger, s.err
}

func (s *stubSavings) AddFixedContribution(ctx context.Context, userID int64) (*core.Transaction, error) {
	if s.err != nil {
		return nil, s.err
	}
	amount, _ := core.ParseAmount("7.00")
	return &core.Transaction{ID: 2, Type: core.Deposit, Amount: amount, Description: core.DescFixedContribution, CreatedAt: testTime}, nil
}

func (s *stubSavings) Withdraw(ctx context.Context, userID int64, amount, description string) (*core.Transaction, error) {
	if s.err != nil {
		return nil, s.err
	}
	parsed, err := core.ParseAmount(amount)
	if err != nil {
		return nil, err
	}
	return &core.Transaction{ID: 3, Type: core.Withdrawal, Amount: parsed, Description: description, CreatedAt: testTime}, nil
}

func (s *stubSavings) DeleteTransaction(ctx context.Context, userID, txID int64) error { return s.err }

func (s *stubSavings) TransferToVacation(ctx context.Context, userID int64, amount string) (*services.TransferResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	parsed, err := core.ParseAmount(amount)
	if err != nil {
		return nil, err
	}
	return &services.TransferResult{
		Withdrawal:      &core.Transaction{ID: 4, Type: core.Withdrawal, Amount: parsed, Description: core.DescTransferToVacation, CreatedAt: testTime},
		Deposit:         &core.Transaction{ID: 5, Type: core.Deposit, Amount: parsed, Description: core.DescTransferFromSavings, CreatedAt: testTime},
		SavingsBalance:  core.Zero(),
		VacationBalance: parsed,
	}, nil
}

func (s *stubSavings) Stats(ctx context.Context, userID int64) (*services.SavingsStats, error) {
	s.statsCalls++
	return s.stats, s.err
}

type stubApplications struct {
	apps  []core.Application
	stats *services.ApplicationStats
	err   error
}

func (s *stubApplications) List(ctx context.Context, userID int64) ([]core.Application, error) {
	return s.apps, s.err
}

func (s *stubApplications) Get(ctx context.Context, userID, id int64) (*core.Application, error) {
	if s.err != nil {
		return nil, s.err
	}
	for i := range s.apps {
		if s.apps[i].ID == id {
			return &s.apps[i], nil
		}
	}
	return nil, core.ErrApplicationNotFound
}

func (s *stubApplications) Create(ctx context.Context, userID int64, cmd services.ApplicationCommand) (*core.Application, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &core.Application{ID: 10, UserID: userID, CompanyName: cmd.CompanyName, Position: cmd.Position, Platform: cmd.Platform, Status: core.StatusApplied, AppliedAt: testTime}, nil
}

func (s *stubApplications) Update(ctx context.Context, userID, id int64, cmd services.ApplicationCommand) (*core.Application, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &core.Application{ID: id, UserID: userID, CompanyName: cmd.CompanyName, Position: cmd.Position, Status: core.StatusApplied, AppliedAt: testTime}, nil
}

func (s *stubApplications) ChangeStatus(ctx context.Context, userID, id int64, status string) (*core.Application, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &core.Application{
		ID: id, UserID: userID, CompanyName: "Acme", Position: "Engineer",
		Status: core.ApplicationStatus(status), AppliedAt: testTime,
		History: []core.StatusChange{{ID: 1, OldStatus: core.StatusApplied, NewStatus: core.ApplicationStatus(status), ChangedAt: testTime}},
	}, nil
}

func (s *stubApplications) Delete(ctx context.Context, userID, id int64) error { return s.err }

func (s *stubApplications) Weekly(ctx context.Context, userID int64) ([]core.Application, error) {
	return s.apps, s.err
}

func (s *stubApplications) Monthly(ctx context.Context, userID int64) ([]core.Application, error) {
	return s.apps, s.err
}

func (s *stubApplications) Stats(ctx context.Context, userID int64) (*services.ApplicationStats, error) {
	return s.stats, s.err
}

type stubUsers struct {
	user *core.User
	pair *services.TokenPair
	err  error
}

func (s *stubUsers) Register(ctx context.Context, email, password string) (*core.User, error) {
	return s.user, s.err
}

func (s *stubUsers) Authenticate(ctx context.Context, email, password string) (*services.TokenPair, error) {
	return s.pair, s.err
}

func (s *stubUsers) Refresh(ctx context.Context, token string) (*services.TokenPair, error) {
	return s.pair, s.err
}

func (s *stubUsers) Logout(ctx context.Context, token string) error { return s.err }

func (s *stubUsers) VerifyEmail(ctx context.Context, token string) error { return s.err }

func (s *stubUsers) Me(ctx context.Context, userID int64) (*core.User, error) {
	return s.user, s.err
}

type stubReadiness struct{ err error }

func (s *stubReadiness) Ready(ctx context.Context) error { return s.err }

type testEnv struct {
	server       *Server
	budget       *stubBudget
	savings      *stubSavings
	applications *stubApplications
	users        *stubUsers
	readiness    *stubReadiness
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	balance, _ := core.ParseAmount("70.25")
	ledger := &core.Ledger{ID: 1, UserID: 42, Kind: core.VacationLedger, Balance: balance, VacationMonths: 12}

	weekly, _ := core.ParseAmount("7.00")
	stats := &services.SavingsStats{
		Balance:          balance,
		TotalDeposits:    balance,
		TotalWithdrawals: core.Zero(),
		Weekly:           weekly,
		Monthly:          weekly,
		Yearly:           weekly,
	}

	env := &testEnv{
		budget:  &stubBudget{ledger: ledger},
		savings: &stubSavings{ledger: ledger, stats: stats},
		applications: &stubApplications{
			apps: []core.Application{{
				ID: 10, UserID: 42, CompanyName: "Acme", Position: "Engineer",
				Status: core.StatusApplied, AppliedAt: testTime,
			}},
			stats: &services.ApplicationStats{Total: 1, ByStatus: map[core.ApplicationStatus]int{core.StatusApplied: 1}},
		},
		users: &stubUsers{
			user: &core.User{ID: 42, Email: "user@example.com", IsVerified: true, CreatedAt: testTime},
			pair: &services.TokenPair{AccessToken: "access", RefreshToken: "refresh", ExpiresIn: 900},
		},
		readiness: &stubReadiness{},
	}

	tokens := auth.NewTokenManager("test-secret-for-handlers", 15*time.Minute)
	server, err := NewServer(
		Config{Addr: ":0", RateLimitPerMinute: 1000, StatsCacheTTL: time.Minute},
		env.budget, env.savings, env.applications, env.users, tokens, env.readiness,
	)
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	env.server = server
	return env
}

func (env *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	env.server.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func (env *testEnv) token(t *testing.T) string {
	t.Helper()
	token, err := env.server.tokens.Issue(42, "user@example.com", time.Now())
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	return token
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func TestAuthMiddleware(t *testing.T) {
	env := newTestEnv(t)

	if rec := env.do(t, http.MethodGet, "/api/budget", "", nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("no token: status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
	if rec := env.do(t, http.MethodGet, "/api/budget", "not-a-jwt", nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("garbage token: status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
	if rec := env.do(t, http.MethodGet, "/api/budget", env.token(t), nil); rec.Code != http.StatusOK {
		t.Errorf("valid token: status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestGetBudget(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/budget", env.token(t), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	var resp ledgerResponse
	decodeBody(t, rec, &resp)
	if resp.Balance != "70.25" {
		t.Errorf("balance = %q, want %q", resp.Balance, "70.25")
	}
	if resp.VacationMonths != 12 {
		t.Errorf("vacation months = %d, want 12", resp.VacationMonths)
	}
}

func TestAddBudgetTransaction(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t)

	rec := env.do(t, http.MethodPost, "/api/budget/transactions", token, addTransactionRequest{
		Type: "deposit", Amount: "100.50", Description: "bonus",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusCreated, rec.Body.String())
	}
	var resp transactionResponse
	decodeBody(t, rec, &resp)
	if resp.Amount != "100.50" || resp.Type != "deposit" {
		t.Errorf("got %+v, want amount 100.50 deposit", resp)
	}

	rec = env.do(t, http.MethodPost, "/api/budget/transactions", token, addTransactionRequest{
		Type: "deposit", Amount: "not-a-number",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid amount: status = %d, want %d", rec.Code, http.StatusBadRequest)
	}

	rec = env.do(t, http.MethodPost, "/api/budget/transactions", token, map[string]string{"bogus": "field"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown field: status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestWithdrawInsufficientFunds(t *testing.T) {
	env := newTestEnv(t)
	env.savings.err = core.ErrInsufficientFunds

	rec := env.do(t, http.MethodPost, "/api/savings/withdrawal", env.token(t), withdrawRequest{
		Amount: "999.00", Description: "rent",
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnprocessableEntity)
	}
}

func TestTransfer(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/savings/transfer-to-vacation", env.token(t), transferRequest{Amount: "15.00"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	var resp transferResponse
	decodeBody(t, rec, &resp)
	if resp.Withdrawal.Amount != "15.00" || resp.Deposit.Amount != "15.00" {
		t.Errorf("got withdrawal %q deposit %q, want 15.00 both", resp.Withdrawal.Amount, resp.Deposit.Amount)
	}
	if resp.VacationBalance != "15.00" {
		t.Errorf("vacation balance = %q, want 15.00", resp.VacationBalance)
	}
}

func TestSavingsStatsCaching(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t)

	for i := 0; i < 2; i++ {
		rec := env.do(t, http.MethodGet, "/api/savings/stats", token, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
		}
	}
	if env.savings.statsCalls != 1 {
		t.Errorf("stats calls after two reads = %d, want 1 (cached)", env.savings.statsCalls)
	}

	// A write invalidates the cached entry.
	if rec := env.do(t, http.MethodPost, "/api/savings/energy-drink", token, nil); rec.Code != http.StatusCreated {
		t.Fatalf("contribution status = %d, want %d", rec.Code, http.StatusCreated)
	}
	if rec := env.do(t, http.MethodGet, "/api/savings/stats", token, nil); rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if env.savings.statsCalls != 2 {
		t.Errorf("stats calls after invalidation = %d, want 2", env.savings.statsCalls)
	}
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/register", "", registerRequest{Email: "not-an-email", Password: "longenough"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	var resp struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields"`
	}
	decodeBody(t, rec, &resp)
	if len(resp.Fields) == 0 {
		t.Errorf("expected translated field errors, got %+v", resp)
	}

	rec = env.do(t, http.MethodPost, "/api/register", "", registerRequest{Email: "user@example.com", Password: "longenough"})
	if rec.Code != http.StatusCreated {
		t.Errorf("status = %d, want %d: %s", rec.Code, http.StatusCreated, rec.Body.String())
	}
}

func TestRegisterConflict(t *testing.T) {
	env := newTestEnv(t)
	env.users.err = services.ErrEmailTaken

	rec := env.do(t, http.MethodPost, "/api/register", "", registerRequest{Email: "user@example.com", Password: "longenough"})
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusConflict)
	}
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/login", "", loginRequest{Email: "user@example.com", Password: "pw"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	var resp tokenResponse
	decodeBody(t, rec, &resp)
	if resp.AccessToken != "access" || resp.TokenType != "Bearer" {
		t.Errorf("got %+v, want access token and Bearer type", resp)
	}

	env.users.err = services.ErrInvalidCredentials
	rec = env.do(t, http.MethodPost, "/api/login", "", loginRequest{Email: "user@example.com", Password: "wrong"})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad credentials: status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestVerifyEmail(t *testing.T) {
	env := newTestEnv(t)

	if rec := env.do(t, http.MethodGet, "/api/verify-email?token=abc", "", nil); rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if rec := env.do(t, http.MethodGet, "/api/verify-email", "", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("missing token: status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestApplicationHandlers(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t)

	rec := env.do(t, http.MethodGet, "/api/applications", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: status = %d, want %d", rec.Code, http.StatusOK)
	}
	var list []applicationResponse
	decodeBody(t, rec, &list)
	if len(list) != 1 || list[0].CompanyName != "Acme" {
		t.Errorf("list = %+v, want one Acme application", list)
	}

	rec = env.do(t, http.MethodGet, "/api/applications/999", token, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing id: status = %d, want %d", rec.Code, http.StatusNotFound)
	}

	rec = env.do(t, http.MethodPatch, "/api/applications/10/status", token, statusChangeRequest{Status: "interview"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status change: status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	var app applicationResponse
	decodeBody(t, rec, &app)
	if app.Status != "interview" || len(app.History) != 1 {
		t.Errorf("got %+v, want interview status with one history entry", app)
	}

	rec = env.do(t, http.MethodGet, "/api/applications/stats", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("stats: status = %d, want %d", rec.Code, http.StatusOK)
	}
	var stats applicationStatsResponse
	decodeBody(t, rec, &stats)
	if stats.Total != 1 || stats.ByStatus["applied"] != 1 {
		t.Errorf("stats = %+v, want total 1 with one applied", stats)
	}
}

func TestHealthAndReadiness(t *testing.T) {
	env := newTestEnv(t)

	if rec := env.do(t, http.MethodGet, "/healthz", "", nil); rec.Code != http.StatusOK {
		t.Errorf("healthz: status = %d, want %d", rec.Code, http.StatusOK)
	}
	if rec := env.do(t, http.MethodGet, "/readyz", "", nil); rec.Code != http.StatusOK {
		t.Errorf("readyz: status = %d, want %d", rec.Code, http.StatusOK)
	}

	env.readiness.err = errors.New("db gone")
	if rec := env.do(t, http.MethodGet, "/readyz", "", nil); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("readyz failing: status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}

func TestSecurityHeaders(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/healthz", "", nil)
	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q, want nosniff", got)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header")
	}
}

package http

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/gorilla/mux"

	"jobfund/internal/auth"
	"jobfund/internal/cache"
	"jobfund/internal/core"
	"jobfund/internal/middleware/ratelimit"
	"jobfund/internal/middleware/security"
	"jobfund/internal/middleware/trace"
	"jobfund/internal/services"
)

// BudgetService is the vacation ledger surface the server needs.
type BudgetService interface {
	GetOrCreate(ctx context.Context, userID int64) (*core.Ledger, error)
	AddTransaction(ctx context.Context, userID int64, cmd services.AddTransactionCommand) (*core.Transaction, error)
	DeleteTransaction(ctx context.Context, userID, txID int64) error
	AddGoal(ctx context.Context, userID int64, cmd services.GoalCommand) (*core.Goal, error)
	UpdateGoal(ctx context.Context, userID, goalID int64, cmd services.GoalCommand) (*core.Goal, error)
	DeleteGoal(ctx context.Context, userID, goalID int64) error
	SetVacationMonths(ctx context.Context, userID int64, months int) (*core.Ledger, error)
}

// SavingsService is the savings ledger surface the server needs.
type SavingsService interface {
	GetOrCreate(ctx context.Context, userID int64) (*core.Ledger, error)
	AddFixedContribution(ctx context.Context, userID int64) (*core.Transaction, error)
	Withdraw(ctx context.Context, userID int64, amount, description string) (*core.Transaction, error)
	DeleteTransaction(ctx context.Context, userID, txID int64) error
	TransferToVacation(ctx context.Context, userID int64, amount string) (*services.TransferResult, error)
	Stats(ctx context.Context, userID int64) (*services.SavingsStats, error)
}

// ApplicationService is the job application surface the server needs.
type ApplicationService interface {
	List(ctx context.Context, userID int64) ([]core.Application, error)
	Get(ctx context.Context, userID, id int64) (*core.Application, error)
	Create(ctx context.Context, userID int64, cmd services.ApplicationCommand) (*core.Application, error)
	Update(ctx context.Context, userID, id int64, cmd services.ApplicationCommand) (*core.Application, error)
	ChangeStatus(ctx context.Context, userID, id int64, status string) (*core.Application, error)
	Delete(ctx context.Context, userID, id int64) error
	Weekly(ctx context.Context, userID int64) ([]core.Application, error)
	Monthly(ctx context.Context, userID int64) ([]core.Application, error)
	Stats(ctx context.Context, userID int64) (*services.ApplicationStats, error)
}

// UserService is the account surface the server needs.
type UserService interface {
	Register(ctx context.Context, email, password string) (*core.User, error)
	Authenticate(ctx context.Context, email, password string) (*services.TokenPair, error)
	Refresh(ctx context.Context, token string) (*services.TokenPair, error)
	Logout(ctx context.Context, token string) error
	VerifyEmail(ctx context.Context, token string) error
	Me(ctx context.Context, userID int64) (*core.User, error)
}

// Readiness reports whether backing stores are reachable.
type Readiness interface {
	Ready(ctx context.Context) error
}

// Config tunes the HTTP server.
type Config struct {
	Addr               string
	RateLimitPerMinute int
	StatsCacheTTL      time.Duration
}

type Server struct {
	http.Server

	budget       BudgetService
	savings      SavingsService
	applications ApplicationService
	users        UserService
	tokens       *auth.TokenManager
	readiness    Readiness

	validator  *validator.Validate
	translator ut.Translator

	rateLimiter *ratelimit.Limiter
	statsCache  *cache.LRUCache[*services.SavingsStats]
}

func NewServer(cfg Config, budget BudgetService, savings SavingsService, applications ApplicationService, users UserService, tokens *auth.TokenManager, readiness Readiness) (*Server, error) {
	v := validator.New()
	eng := en.New()
	uni := ut.New(eng, eng)
	translator, _ := uni.GetTranslator("en")
	if err := en_translations.RegisterDefaultTranslations(v, translator); err != nil {
		return nil, err
	}

	rl := ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.RateLimitPerMinute})

	statsTTL := cfg.StatsCacheTTL
	if statsTTL <= 0 {
		statsTTL = 30 * time.Second
	}

	s := &Server{
		budget:       budget,
		savings:      savings,
		applications: applications,
		users:        users,
		tokens:       tokens,
		readiness:    readiness,
		validator:    v,
		translator:   translator,
		rateLimiter:  rl,
		statsCache:   cache.NewLRUCache[*services.SavingsStats](1024, statsTTL),
	}

	s.Server = http.Server{
		Addr:         cfg.Addr,
		Handler:      s.routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s, nil
}

func (s *Server) routes() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/register", s.handleRegister).Methods(http.MethodPost)
	api.HandleFunc("/login", s.handleLogin).Methods(http.MethodPost)
	api.HandleFunc("/refresh", s.handleRefresh).Methods(http.MethodPost)
	api.HandleFunc("/logout", s.handleLogout).Methods(http.MethodPost)
	api.HandleFunc("/verify-email", s.handleVerifyEmail).Methods(http.MethodGet)

	authed := api.NewRoute().Subrouter()
	authed.Use(s.authMiddleware)
	authed.HandleFunc("/me", s.handleMe).Methods(http.MethodGet)

	authed.HandleFunc("/budget", s.handleGetBudget).Methods(http.MethodGet)
	authed.HandleFunc("/budget/transactions", s.handleAddBudgetTransaction).Methods(http.MethodPost)
	authed.HandleFunc("/budget/transactions/{id:[0-9]+}", s.handleDeleteBudgetTransaction).Methods(http.MethodDelete)
	authed.HandleFunc("/budget/goals", s.handleAddGoal).Methods(http.MethodPost)
	authed.HandleFunc("/budget/goals/{id:[0-9]+}", s.handleUpdateGoal).Methods(http.MethodPut)
	authed.HandleFunc("/budget/goals/{id:[0-9]+}", s.handleDeleteGoal).Methods(http.MethodDelete)
	authed.HandleFunc("/budget/vacation-months", s.handleSetVacationMonths).Methods(http.MethodPut)

	authed.HandleFunc("/savings", s.handleGetSavings).Methods(http.MethodGet)
	authed.HandleFunc("/savings/transactions", s.handleListSavingsTransactions).Methods(http.MethodGet)
	authed.HandleFunc("/savings/energy-drink", s.handleAddContribution).Methods(http.MethodPost)
	authed.HandleFunc("/savings/withdrawal", s.handleWithdraw).Methods(http.MethodPost)
	authed.HandleFunc("/savings/transactions/{id:[0-9]+}", s.handleDeleteSavingsTransaction).Methods(http.MethodDelete)
	authed.HandleFunc("/savings/transfer-to-vacation", s.handleTransfer).Methods(http.MethodPost)
	authed.HandleFunc("/savings/stats", s.handleSavingsStats).Methods(http.MethodGet)

	authed.HandleFunc("/applications", s.handleListApplications).Methods(http.MethodGet)
	authed.HandleFunc("/applications", s.handleCreateApplication).Methods(http.MethodPost)
	authed.HandleFunc("/applications/weekly", s.handleWeeklyApplications).Methods(http.MethodGet)
	authed.HandleFunc("/applications/monthly", s.handleMonthlyApplications).Methods(http.MethodGet)
	authed.HandleFunc("/applications/stats", s.handleApplicationStats).Methods(http.MethodGet)
	authed.HandleFunc("/applications/{id:[0-9]+}", s.handleGetApplication).Methods(http.MethodGet)
	authed.HandleFunc("/applications/{id:[0-9]+}", s.handleUpdateApplication).Methods(http.MethodPut)
	authed.HandleFunc("/applications/{id:[0-9]+}/status", s.handleChangeApplicationStatus).Methods(http.MethodPatch)
	authed.HandleFunc("/applications/{id:[0-9]+}", s.handleDeleteApplication).Methods(http.MethodDelete)

	traceMW := trace.NewMiddleware(extractClientIP)
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	limit := s.rateLimiter.Middleware(extractClientIP, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "60")
		respondWithError(w, http.StatusTooManyRequests, "rate limit exceeded")
	})

	return traceMW.Middleware(headers.Middleware(limit(r)))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.readiness != nil {
		if err := s.readiness.Ready(r.Context()); err != nil {
			slog.ErrorContext(r.Context(), "readiness check failed", "error", err)
			respondWithError(w, http.StatusServiceUnavailable, "not ready")
			return
		}
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// Shutdown stops background helpers and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.rateLimiter.Stop()
	return s.Server.Shutdown(ctx)
}

// extractClientIP prefers proxy headers, falling back to the socket peer.
func extractClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	if real := r.Header.Get("X-Real-IP"); real != "" {
		return real
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

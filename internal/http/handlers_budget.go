package http

import (
	"net/http"
	"time"

	"jobfund/internal/core"
	"jobfund/internal/services"
)

type transactionResponse struct {
	ID          int64     `json:"id"`
	Type        string    `json:"type"`
	Amount      string    `json:"amount"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

type goalResponse struct {
	ID           int64      `json:"id"`
	Name         string     `json:"name"`
	TargetAmount string     `json:"target_amount"`
	Completed    bool       `json:"completed"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

type ledgerResponse struct {
	Kind             string                `json:"kind"`
	Balance          string                `json:"balance"`
	TotalDeposits    string                `json:"total_deposits"`
	TotalWithdrawals string                `json:"total_withdrawals"`
	VacationMonths   int                   `json:"vacation_months,omitempty"`
	Transactions     []transactionResponse `json:"transactions"`
	Goals            []goalResponse        `json:"goals,omitempty"`
}

func newTransactionResponse(t *core.Transaction) transactionResponse {
	return transactionResponse{
		ID:          t.ID,
		Type:        string(t.Type),
		Amount:      t.Amount.String(),
		Description: t.Description,
		CreatedAt:   t.CreatedAt,
	}
}

func newGoalResponse(g *core.Goal) goalResponse {
	return goalResponse{
		ID:           g.ID,
		Name:         g.Name,
		TargetAmount: g.Target.String(),
		Completed:    g.Completed,
		CompletedAt:  g.CompletedAt,
	}
}

func newLedgerResponse(l *core.Ledger) ledgerResponse {
	resp := ledgerResponse{
		Kind:             string(l.Kind),
		Balance:          l.Balance.String(),
		TotalDeposits:    l.TotalDeposits().String(),
		TotalWithdrawals: l.TotalWithdrawals().String(),
		VacationMonths:   l.VacationMonths,
		Transactions:     make([]transactionResponse, 0, len(l.Transactions)),
	}
	for i := range l.Transactions {
		resp.Transactions = append(resp.Transactions, newTransactionResponse(&l.Transactions[i]))
	}
	for i := range l.Goals {
		resp.Goals = append(resp.Goals, newGoalResponse(&l.Goals[i]))
	}
	return resp
}

type addTransactionRequest struct {
	Type        string `json:"type"`
	Amount      string `json:"amount"`
	Description string `json:"description"`
}

type goalRequest struct {
	Name         string `json:"name"`
	TargetAmount string `json:"target_amount"`
}

type vacationMonthsRequest struct {
	Months int `json:"months"`
}

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	ledger, err := s.budget.GetOrCreate(r.Context(), userID(r.Context()))
	if err != nil {
		s.respondWithDomainError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, newLedgerResponse(ledger))
}

func (s *Server) handleAddBudgetTransaction(w http.ResponseWriter, r *http.Request) {
	var req addTransactionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tx, err := s.budget.AddTransaction(r.Context(), userID(r.Context()), services.AddTransactionCommand{
		Type:        req.Type,
		Amount:      req.Amount,
		Description: req.Description,
	})
	if err != nil {
		s.respondWithDomainError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, newTransactionResponse(tx))
}

func (s *Server) handleDeleteBudgetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid transaction id")
		return
	}
	if err := s.budget.DeleteTransaction(r.Context(), userID(r.Context()), id); err != nil {
		s.respondWithDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAddGoal(w http.ResponseWriter, r *http.Request) {
	var req goalRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	goal, err := s.budget.AddGoal(r.Context(), userID(r.Context()), services.GoalCommand{
		Name:         req.Name,
		TargetAmount: req.TargetAmount,
	})
	if err != nil {
		s.respondWithDomainError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, newGoalResponse(goal))
}

func (s *Server) handleUpdateGoal(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid goal id")
		return
	}
	var req goalRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	goal, err := s.budget.UpdateGoal(r.Context(), userID(r.Context()), id, services.GoalCommand{
		Name:         req.Name,
		TargetAmount: req.TargetAmount,
	})
	if err != nil {
		s.respondWithDomainError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, newGoalResponse(goal))
}

func (s *Server) handleDeleteGoal(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid goal id")
		return
	}
	if err := s.budget.DeleteGoal(r.Context(), userID(r.Context()), id); err != nil {
		s.respondWithDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetVacationMonths(w http.ResponseWriter, r *http.Request) {
	var req vacationMonthsRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ledger, err := s.budget.SetVacationMonths(r.Context(), userID(r.Context()), req.Months)
	if err != nil {
		s.respondWithDomainError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, newLedgerResponse(ledger))
}

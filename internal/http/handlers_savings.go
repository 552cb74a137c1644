package http

import (
	"fmt"
	"net/http"

	"jobfund/internal/services"
)

type withdrawRequest struct {
	Amount      string `json:"amount"`
	Description string `json:"description"`
}

type transferRequest struct {
	Amount string `json:"amount"`
}

type transferResponse struct {
	Withdrawal      transactionResponse `json:"withdrawal"`
	Deposit         transactionResponse `json:"deposit"`
	SavingsBalance  string              `json:"savings_balance"`
	VacationBalance string              `json:"vacation_balance"`
}

type savingsStatsResponse struct {
	Balance          string `json:"balance"`
	TotalDeposits    string `json:"total_deposits"`
	TotalWithdrawals string `json:"total_withdrawals"`
	Weekly           string `json:"weekly"`
	Monthly          string `json:"monthly"`
	Yearly           string `json:"yearly"`
}

func newSavingsStatsResponse(stats *services.SavingsStats) savingsStatsResponse {
	return savingsStatsResponse{
		Balance:          stats.Balance.String(),
		TotalDeposits:    stats.TotalDeposits.String(),
		TotalWithdrawals: stats.TotalWithdrawals.String(),
		Weekly:           stats.Weekly.String(),
		Monthly:          stats.Monthly.String(),
		Yearly:           stats.Yearly.String(),
	}
}

func savingsStatsKey(userID int64) string {
	return fmt.Sprintf("savings-stats:%d", userID)
}

func (s *Server) invalidateSavingsStats(userID int64) {
	s.statsCache.Delete(savingsStatsKey(userID))
}

func (s *Server) handleGetSavings(w http.ResponseWriter, r *http.Request) {
	ledger, err := s.savings.GetOrCreate(r.Context(), userID(r.Context()))
	if err != nil {
		s.respondWithDomainError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, newLedgerResponse(ledger))
}

func (s *Server) handleListSavingsTransactions(w http.ResponseWriter, r *http.Request) {
	ledger, err := s.savings.GetOrCreate(r.Context(), userID(r.Context()))
	if err != nil {
		s.respondWithDomainError(w, r, err)
		return
	}
	resp := make([]transactionResponse, 0, len(ledger.Transactions))
	for i := range ledger.Transactions {
		resp = append(resp, newTransactionResponse(&ledger.Transactions[i]))
	}
	respondWithJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAddContribution(w http.ResponseWriter, r *http.Request) {
	uid := userID(r.Context())
	tx, err := s.savings.AddFixedContribution(r.Context(), uid)
	if err != nil {
		s.respondWithDomainError(w, r, err)
		return
	}
	s.invalidateSavingsStats(uid)
	respondWithJSON(w, http.StatusCreated, newTransactionResponse(tx))
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	var req withdrawRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	uid := userID(r.Context())
	tx, err := s.savings.Withdraw(r.Context(), uid, req.Amount, req.Description)
	if err != nil {
		s.respondWithDomainError(w, r, err)
		return
	}
	s.invalidateSavingsStats(uid)
	respondWithJSON(w, http.StatusCreated, newTransactionResponse(tx))
}

func (s *Server) handleDeleteSavingsTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid transaction id")
		return
	}

	uid := userID(r.Context())
	if err := s.savings.DeleteTransaction(r.Context(), uid, id); err != nil {
		s.respondWithDomainError(w, r, err)
		return
	}
	s.invalidateSavingsStats(uid)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	uid := userID(r.Context())
	result, err := s.savings.TransferToVacation(r.Context(), uid, req.Amount)
	if err != nil {
		s.respondWithDomainError(w, r, err)
		return
	}
	s.invalidateSavingsStats(uid)
	respondWithJSON(w, http.StatusOK, transferResponse{
		Withdrawal:      newTransactionResponse(result.Withdrawal),
		Deposit:         newTransactionResponse(result.Deposit),
		SavingsBalance:  result.SavingsBalance.String(),
		VacationBalance: result.VacationBalance.String(),
	})
}

func (s *Server) handleSavingsStats(w http.ResponseWriter, r *http.Request) {
	uid := userID(r.Context())
	key := savingsStatsKey(uid)

	if stats, ok := s.statsCache.Get(key); ok {
		respondWithJSON(w, http.StatusOK, newSavingsStatsResponse(stats))
		return
	}

	stats, err := s.savings.Stats(r.Context(), uid)
	if err != nil {
		s.respondWithDomainError(w, r, err)
		return
	}
	s.statsCache.Set(key, stats)
	respondWithJSON(w, http.StatusOK, newSavingsStatsResponse(stats))
}

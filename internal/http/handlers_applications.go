package http

import (
	"net/http"
	"time"

	"jobfund/internal/core"
	"jobfund/internal/services"
)

type applicationRequest struct {
	CompanyName string     `json:"company_name"`
	Position    string     `json:"position"`
	Platform    string     `json:"platform"`
	Status      string     `json:"status"`
	AppliedAt   *time.Time `json:"applied_at"`
}

type statusChangeRequest struct {
	Status string `json:"status"`
}

type statusChangeResponse struct {
	OldStatus string    `json:"old_status"`
	NewStatus string    `json:"new_status"`
	ChangedAt time.Time `json:"changed_at"`
}

type applicationResponse struct {
	ID          int64                  `json:"id"`
	CompanyName string                 `json:"company_name"`
	Position    string                 `json:"position"`
	Platform    string                 `json:"platform,omitempty"`
	Status      string                 `json:"status"`
	AppliedAt   time.Time              `json:"applied_at"`
	History     []statusChangeResponse `json:"history,omitempty"`
}

type applicationStatsResponse struct {
	Total    int            `json:"total"`
	ByStatus map[string]int `json:"by_status"`
}

func newApplicationResponse(a *core.Application) applicationResponse {
	resp := applicationResponse{
		ID:          a.ID,
		CompanyName: a.CompanyName,
		Position:    a.Position,
		Platform:    a.Platform,
		Status:      string(a.Status),
		AppliedAt:   a.AppliedAt,
	}
	for _, change := range a.History {
		resp.History = append(resp.History, statusChangeResponse{
			OldStatus: string(change.OldStatus),
			NewStatus: string(change.NewStatus),
			ChangedAt: change.ChangedAt,
		})
	}
	return resp
}

func newApplicationListResponse(apps []core.Application) []applicationResponse {
	resp := make([]applicationResponse, 0, len(apps))
	for i := range apps {
		resp = append(resp, newApplicationResponse(&apps[i]))
	}
	return resp
}

func (r applicationRequest) command() services.ApplicationCommand {
	return services.ApplicationCommand{
		CompanyName: r.CompanyName,
		Position:    r.Position,
		Platform:    r.Platform,
		Status:      r.Status,
		AppliedAt:   r.AppliedAt,
	}
}

func (s *Server) handleListApplications(w http.ResponseWriter, r *http.Request) {
	apps, err := s.applications.List(r.Context(), userID(r.Context()))
	if err != nil {
		s.respondWithDomainError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, newApplicationListResponse(apps))
}

func (s *Server) handleGetApplication(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid application id")
		return
	}
	app, err := s.applications.Get(r.Context(), userID(r.Context()), id)
	if err != nil {
		s.respondWithDomainError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, newApplicationResponse(app))
}

func (s *Server) handleCreateApplication(w http.ResponseWriter, r *http.Request) {
	var req applicationRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	app, err := s.applications.Create(r.Context(), userID(r.Context()), req.command())
	if err != nil {
		s.respondWithDomainError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, newApplicationResponse(app))
}

func (s *Server) handleUpdateApplication(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid application id")
		return
	}
	var req applicationRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	app, err := s.applications.Update(r.Context(), userID(r.Context()), id, req.command())
	if err != nil {
		s.respondWithDomainError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, newApplicationResponse(app))
}

func (s *Server) handleChangeApplicationStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid application id")
		return
	}
	var req statusChangeRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	app, err := s.applications.ChangeStatus(r.Context(), userID(r.Context()), id, req.Status)
	if err != nil {
		s.respondWithDomainError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, newApplicationResponse(app))
}

func (s *Server) handleDeleteApplication(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid application id")
		return
	}
	if err := s.applications.Delete(r.Context(), userID(r.Context()), id); err != nil {
		s.respondWithDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleWeeklyApplications(w http.ResponseWriter, r *http.Request) {
	apps, err := s.applications.Weekly(r.Context(), userID(r.Context()))
	if err != nil {
		s.respondWithDomainError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, newApplicationListResponse(apps))
}

func (s *Server) handleMonthlyApplications(w http.ResponseWriter, r *http.Request) {
	apps, err := s.applications.Monthly(r.Context(), userID(r.Context()))
	if err != nil {
		s.respondWithDomainError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, newApplicationListResponse(apps))
}

func (s *Server) handleApplicationStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.applications.Stats(r.Context(), userID(r.Context()))
	if err != nil {
		s.respondWithDomainError(w, r, err)
		return
	}
	resp := applicationStatsResponse{Total: stats.Total, ByStatus: make(map[string]int, len(stats.ByStatus))}
	for status, count := range stats.ByStatus {
		resp.ByStatus[string(status)] = count
	}
	respondWithJSON(w, http.StatusOK, resp)
}

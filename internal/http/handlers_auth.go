package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"jobfund/internal/core"
	"jobfund/internal/services"
)

type registerRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type userResponse struct {
	ID         int64     `json:"id"`
	Email      string    `json:"email"`
	IsVerified bool      `json:"is_verified"`
	CreatedAt  time.Time `json:"created_at"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

func newUserResponse(u *core.User) userResponse {
	return userResponse{ID: u.ID, Email: u.Email, IsVerified: u.IsVerified, CreatedAt: u.CreatedAt}
}

func newTokenResponse(pair *services.TokenPair) tokenResponse {
	return tokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    pair.ExpiresIn,
	}
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if errs := s.validator.Struct(req); errs != nil {
		var verrs validator.ValidationErrors
		if errors.As(errs, &verrs) {
			s.respondWithValidationError(w, verrs)
			return
		}
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := s.users.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		s.respondWithDomainError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, newUserResponse(user))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.validator.Struct(req); err != nil {
		// Do not leak which field failed on a credentials endpoint.
		respondWithError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	pair, err := s.users.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		s.respondWithDomainError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, newTokenResponse(pair))
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil || req.RefreshToken == "" {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	pair, err := s.users.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		s.respondWithDomainError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, newTokenResponse(pair))
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil || req.RefreshToken == "" {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.users.Logout(r.Context(), req.RefreshToken); err != nil {
		s.respondWithDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		respondWithError(w, http.StatusBadRequest, "missing token")
		return
	}
	if err := s.users.VerifyEmail(r.Context(), token); err != nil {
		s.respondWithDomainError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "verified"})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user, err := s.users.Me(r.Context(), userID(r.Context()))
	if err != nil {
		s.respondWithDomainError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, newUserResponse(user))
}

package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"jobfund/internal/auth"
	"jobfund/internal/core"
	"jobfund/internal/services"
)

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		slog.Error("failed to marshal response", "error", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"internal server error"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

func (s *Server) respondWithValidationError(w http.ResponseWriter, errs validator.ValidationErrors) {
	fields := make(map[string]string, len(errs))
	for field, msg := range errs.Translate(s.translator) {
		fields[field] = msg
	}
	respondWithJSON(w, http.StatusBadRequest, map[string]any{
		"error":  "validation failed",
		"fields": fields,
	})
}

// decodeJSON decodes a request body, rejecting unknown fields.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
}

// respondWithDomainError maps service and domain errors onto HTTP status
// codes. Anything unrecognized is logged and hidden behind a 500.
func (s *Server) respondWithDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		s.respondWithValidationError(w, verrs)
		return
	}

	switch {
	case errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidType),
		errors.Is(err, core.ErrEmptyGoalName),
		errors.Is(err, core.ErrInvalidMonths),
		errors.Is(err, core.ErrInvalidStatus),
		errors.Is(err, core.ErrEmptyCompanyName),
		errors.Is(err, core.ErrEmptyPosition),
		errors.Is(err, services.ErrInvalidEmail),
		errors.Is(err, services.ErrWeakPassword):
		respondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, core.ErrInsufficientFunds):
		respondWithError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, core.ErrTransactionNotFound),
		errors.Is(err, core.ErrGoalNotFound),
		errors.Is(err, core.ErrApplicationNotFound),
		errors.Is(err, core.ErrUserNotFound):
		respondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrEmailTaken):
		respondWithError(w, http.StatusConflict, err.Error())
	case errors.Is(err, services.ErrInvalidCredentials),
		errors.Is(err, services.ErrNotVerified),
		errors.Is(err, services.ErrInvalidRefresh),
		errors.Is(err, auth.ErrInvalidToken):
		respondWithError(w, http.StatusUnauthorized, err.Error())
	default:
		slog.ErrorContext(r.Context(), "request failed", "error", err, "path", r.URL.Path)
		respondWithError(w, http.StatusInternalServerError, "internal server error")
	}
}

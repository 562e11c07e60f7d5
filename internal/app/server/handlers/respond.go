package handlers

import (
	"dealwire/internal/core/domain"
	"dealwire/internal/platform/logger"
	"dealwire/pkg/logging"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
)

type errorResponse struct {
	Error string `json:"error"`
}

func loggerFrom(r *http.Request) *slog.Logger {
	return logger.FromContext(r.Context())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors to status codes. Anything unrecognised is
// logged and reported as a 500 without detail.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		loggerFrom(r).ErrorContext(r.Context(), "handler - request failed", logging.Err(err))
		msg = http.StatusText(status)
	}
	writeJSON(w, status, errorResponse{Error: msg})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidDealID),
		errors.Is(err, domain.ErrInvalidStatus),
		errors.Is(err, domain.ErrInvalidTerms),
		errors.Is(err, domain.ErrEmptyPatch):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrDealNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

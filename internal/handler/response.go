package handler

// JSON RESPONSE HELPERS:
// The read-only API under /api uses these so every endpoint answers with
// the same shapes:
//
//	success: writeJSON(w, http.StatusOK, data)
//	failure: writeError(w, err)  →  {"error": "not_found", "message": "..."}
//
// The "error" field is machine-readable and stable; "message" is for humans.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/snippetbin/internal/apperror"
)

// ErrorResponse is the body of every API error.
type ErrorResponse struct {
	Error   string `json:"error"`   // e.g. "not_found"
	Message string `json:"message"` // human-readable description
}

// writeJSON sends data as JSON with the given status code.
//
// HEADER ORDER MATTERS: headers and status must be set before the first
// Write, which Encode does internally. Later header changes are ignored.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent, so all we can do is log.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// errorStatus maps a domain error to an HTTP status and error kind.
//
// errors.Is walks the whole %w chain, so a NotFound wrapped by the
// repository and again by the service still matches ErrNotFound here.
// The service layer never knows about HTTP status codes.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, apperror.ErrValidation):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, apperror.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, apperror.ErrConflict):
		return http.StatusConflict, "conflict"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// writeError maps err to a JSON error response.
//
// Only typed application errors (AppError, FieldErrors) have their message
// passed through. Anything else becomes a generic 500: raw error strings can
// contain SQL, file paths or other details clients must not see.
func writeError(w http.ResponseWriter, err error) {
	status, kind := errorStatus(err)

	var appErr *apperror.AppError
	var fieldErrs apperror.FieldErrors
	switch {
	case status == http.StatusInternalServerError:
		slog.Error("API request failed", slog.String("error", err.Error()))
		writeJSON(w, status, ErrorResponse{Error: kind, Message: "An internal error occurred"})
	case errors.As(err, &appErr):
		writeJSON(w, status, ErrorResponse{Error: kind, Message: appErr.Message})
	case errors.As(err, &fieldErrs):
		writeJSON(w, status, ErrorResponse{Error: kind, Message: fieldErrs.Error()})
	default:
		writeJSON(w, status, ErrorResponse{Error: kind, Message: http.StatusText(status)})
	}
}

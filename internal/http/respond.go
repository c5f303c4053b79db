package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"submanager/internal/auth"
	"submanager/internal/core"
	"submanager/internal/store"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeServiceError maps the error taxonomy onto status codes: missing
// session 401, validation 422, unknown record 404, anything else a plain
// 500 write failure. No automatic retries anywhere.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrNotAuthenticated):
		writeError(w, http.StatusUnauthorized, "not authenticated")
	case isValidationError(err):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, store.ErrRecordNotFound):
		writeError(w, http.StatusNotFound, "record not found")
	default:
		slog.ErrorContext(r.Context(), "Write failed", "error", err, "url", r.URL.Path)
		writeError(w, http.StatusInternalServerError, "write failed")
	}
}

func isValidationError(err error) bool {
	for _, target := range []error{
		core.ErrInvalidAmount,
		core.ErrInvalidDate,
		core.ErrInvalidCycle,
		core.ErrEmptyName,
		core.ErrEmptyDescription,
		core.ErrInvalidRepeat,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

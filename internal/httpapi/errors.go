package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"gptlocal/internal/llm"
	"gptlocal/internal/prompt"
	"gptlocal/internal/resolver"
	"gptlocal/pkg/types"
)

// HTTPError allows services to provide an HTTP status code for an error.
type HTTPError interface {
	error
	StatusCode() int
}

// statusFor maps library errors to HTTP status codes.
func statusFor(err error) int {
	var he HTTPError
	var ure *prompt.UnknownRoleError
	switch {
	case errors.As(err, &he):
		return he.StatusCode()
	case errors.As(err, &ure):
		return http.StatusBadRequest
	case resolver.IsUnknownModel(err), resolver.IsDownloadDisabled(err):
		return http.StatusNotFound
	case llm.IsUnavailable(err):
		return http.StatusServiceUnavailable
	case errors.Is(err, llm.ErrNotLoaded):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg, Code: status})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to encode response")
	}
}

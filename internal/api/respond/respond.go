// Package respond centralizes JSON response writing for the HTTP surface.
package respond

import (
	"encoding/json"
	"errors"
	"net/http"

	errx "github.com/fieldops-copilot/server/internal/core/error"
	logx "github.com/fieldops-copilot/server/pkg/logger"
)

// ErrorResponse is the standard error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Message string `json:"message,omitempty"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		logx.Error().Err(err).Msg("failed to encode JSON response")
	}
}

// WriteError writes a standardized error response.
func WriteError(w http.ResponseWriter, statusCode int, message string) {
	WriteJSON(w, statusCode, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Code:    statusCode,
		Message: message,
	})
}

// WriteBadRequest writes a 400 Bad Request response.
func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, message)
}

// WriteAppError maps a typed application error onto the wire, falling back
// to 500 for untyped errors.
func WriteAppError(w http.ResponseWriter, err error) {
	var appErr *errx.Error
	if errors.As(err, &appErr) {
		WriteError(w, appErr.Status, appErr.Message)
		return
	}
	logx.Error().Err(err).Msg("unhandled internal error")
	WriteError(w, http.StatusInternalServerError, "internal server error")
}

// Package httputil holds the shared JSON response envelope and the mapping
// from the domain error taxonomy to HTTP status codes.
package httputil

import (
	"encoding/json"
	"net/http"

	"github.com/shelfwise/shelfwise/internal/apperr"
)

// APIError is the uniform error envelope.
type APIError struct {
	Error APIErrorBody `json:"error"`
}

type APIErrorBody struct {
	Message   string `json:"message"`
	Type      string `json:"type"`
	Code      string `json:"code"`
	RequestID string `json:"request_id,omitempty"`
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, requestID string, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	if requestID != "" {
		w.Header().Set("X-Request-ID", requestID)
	}
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, requestID string, statusCode int, errType, code, message string) {
	WriteJSON(w, requestID, statusCode, APIError{
		Error: APIErrorBody{
			Message:   message,
			Type:      errType,
			Code:      code,
			RequestID: requestID,
		},
	})
}

func WriteAuthError(w http.ResponseWriter, requestID, message string) {
	WriteError(w, requestID, http.StatusUnauthorized, "authentication_error", "invalid_api_key", message)
}

func WritePermissionError(w http.ResponseWriter, requestID, message string) {
	WriteError(w, requestID, http.StatusForbidden, "permission_error", "forbidden", message)
}

func WriteRateLimitError(w http.ResponseWriter, requestID, message string) {
	WriteError(w, requestID, http.StatusTooManyRequests, "rate_limit_error", "rate_limit_exceeded", message)
}

func WriteBadRequestError(w http.ResponseWriter, requestID, message string) {
	WriteError(w, requestID, http.StatusBadRequest, "invalid_request_error", "invalid_request", message)
}

func WriteNotFoundError(w http.ResponseWriter, requestID, message string) {
	WriteError(w, requestID, http.StatusNotFound, "not_found_error", "not_found", message)
}

func WriteInternalError(w http.ResponseWriter, requestID, message string) {
	WriteError(w, requestID, http.StatusInternalServerError, "server_error", "internal_error", message)
}

// WriteAppError maps a domain error to its HTTP representation. Unknown
// errors become an opaque 500.
func WriteAppError(w http.ResponseWriter, requestID string, err error) {
	switch {
	case apperr.IsValidation(err):
		WriteBadRequestError(w, requestID, err.Error())
	case apperr.IsPermission(err):
		WritePermissionError(w, requestID, err.Error())
	case apperr.IsNotFound(err):
		WriteNotFoundError(w, requestID, err.Error())
	case apperr.IsRateLimit(err):
		WriteRateLimitError(w, requestID, err.Error())
	default:
		WriteInternalError(w, requestID, "An error occurred while processing your request.")
	}
}

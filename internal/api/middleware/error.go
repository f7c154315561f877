// Package middleware carries the request log and panic recovery wrapped
// around the station API, plus the error envelope every handler writes.
package middleware

import (
	"encoding/json"
	"log"
	"net/http"
	"runtime/debug"
)

// Error codes the dashboard switches on.
const (
	ErrNotFound      = "not_found"
	ErrBadRequest    = "bad_request"
	ErrConflict      = "conflict"
	ErrInternalError = "internal_error"
	ErrValidation    = "validation_error"
	ErrUnauthorized  = "unauthorized"
	ErrForbidden     = "forbidden"
	ErrBadGateway    = "bad_gateway"
)

// ErrorResponse is the error envelope shared by all API endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// WriteError writes the error envelope with the given status code.
func WriteError(w http.ResponseWriter, status int, errCode, message string) {
	writeErrorResponse(w, status, ErrorResponse{Error: errCode, Message: message})
}

// WriteErrorWithDetails writes the error envelope with a details payload,
// for errors the dashboard renders beyond the message (conflict lists,
// field validation).
func WriteErrorWithDetails(w http.ResponseWriter, status int, errCode, message string, details any) {
	writeErrorResponse(w, status, ErrorResponse{Error: errCode, Message: message, Details: details})
}

func writeErrorResponse(w http.ResponseWriter, status int, resp ErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

// ErrorRecovery turns a handler panic into a 500 instead of dropping the
// connection under the dashboard.
func ErrorRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				log.Printf("Panic recovered: %v\n%s", err, debug.Stack())
				WriteError(w, http.StatusInternalServerError, ErrInternalError, "An unexpected error occurred")
			}
		}()
		next.ServeHTTP(w, r)
	})
}
